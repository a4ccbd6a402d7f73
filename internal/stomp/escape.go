package stomp

import "strings"

// Backslash is escaped first so the sequences produced for ':' and '\n'
// are never escaped a second time.
var headerEscaper = strings.NewReplacer(
	`\`, `\\`,
	`:`, `\c`,
	"\n", `\n`,
)

// EscapeHeader encodes a header key or value for the wire.
func EscapeHeader(s string) string {
	if !strings.ContainsAny(s, "\\:\n") {
		return s
	}
	return headerEscaper.Replace(s)
}

// UnescapeHeader reverses EscapeHeader. The input is scanned once from the
// left, so an escaped backslash followed by 'n' or 'c' is never decoded
// twice. Unknown escape sequences are kept verbatim.
func UnescapeHeader(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 'c':
			b.WriteByte(':')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(c)
			continue
		}
		i++
	}
	return b.String()
}
