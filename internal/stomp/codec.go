package stomp

import (
	"bytes"
	"math"
	"strconv"
	"strings"
)

// Decode reads one frame from the start of buf. It returns the frame and
// the number of bytes it occupied. When buf holds only part of a frame it
// returns (nil, 0, nil): nothing is consumed and calling Decode again with
// more bytes appended yields the same frame. A non-nil error is a
// *ParseError and means the stream is unusable.
func Decode(buf []byte) (*Frame, int, error) {
	frame, n, _, err := decode(buf)
	return frame, n, err
}

// resume describes how far an incomplete frame got, so a streaming caller
// can skip decoding again until the missing bytes may have arrived.
type resume struct {
	// need is the buffer length the frame requires at minimum.
	need int
	// scan is the offset the terminator search reached without a match.
	// Zero means the head is incomplete and nothing can be skipped.
	scan int
}

func decode(buf []byte) (*Frame, int, resume, error) {
	var wait resume
	if len(buf) == 0 {
		return nil, 0, wait, nil
	}

	// A lone EOL between frames is a heart-beat.
	switch buf[0] {
	case eol:
		return NewHeartBeat(), 1, wait, nil
	case cr:
		if len(buf) < 2 {
			return nil, 0, wait, nil
		}
		if buf[1] == eol {
			return NewHeartBeat(), 2, wait, nil
		}
	}

	line, pos, ok := readLine(buf, 0)
	if !ok {
		if !isCommandPrefix(buf) {
			return nil, 0, wait, parseError(ErrInvalidCommand, "%q", truncate(buf))
		}
		return nil, 0, wait, nil
	}
	command := Command(line)
	if !command.Valid() {
		return nil, 0, wait, parseError(ErrInvalidCommand, "%q", line)
	}

	frame := &Frame{Command: command, Header: &Header{}}

	// A frame without headers and body may skip the blank line.
	if pos < len(buf) && buf[pos] == terminator {
		return frame, pos + 1, wait, nil
	}

	for {
		line, next, ok := readLine(buf, pos)
		if !ok {
			return nil, 0, wait, nil
		}
		pos = next
		if line == "" {
			break
		}
		key, value, found := strings.Cut(line, string(separator))
		if !found {
			continue
		}
		frame.Header.Set(UnescapeHeader(key), UnescapeHeader(value))
	}

	if !command.HasBody() {
		if pos >= len(buf) {
			wait.need = pos + 1
			return nil, 0, wait, nil
		}
		if buf[pos] != terminator {
			return nil, 0, wait, parseError(ErrMissingTerminator, "%s frame carries a body", command)
		}
		return frame, pos + 1, wait, nil
	}

	if length, ok := contentLength(frame.Header); ok && length > 0 {
		// Compared against the remaining bytes, pos+length may overflow.
		if len(buf)-pos <= length {
			wait.need = math.MaxInt
			if length < math.MaxInt-pos {
				wait.need = pos + length + 1
			}
			return nil, 0, wait, nil
		}
		end := pos + length
		if buf[end] != terminator {
			return nil, 0, wait, parseError(ErrMissingTerminator, "expected NUL after %d body bytes", length)
		}
		frame.Body = copyBody(buf[pos:end])
		return frame, end + 1, wait, nil
	}

	i := bytes.IndexByte(buf[pos:], terminator)
	if i < 0 {
		wait.scan = len(buf)
		return nil, 0, wait, nil
	}
	frame.Body = copyBody(buf[pos : pos+i])
	return frame, pos + i + 1, wait, nil
}

// Encode serializes f. Header keys and values are escaped; the body is
// written only for commands that carry one.
func Encode(f *Frame) []byte {
	return AppendEncode(nil, f)
}

// AppendEncode appends the serialized frame to dst.
func AppendEncode(dst []byte, f *Frame) []byte {
	if f.IsHeartBeat() {
		return append(dst, eol)
	}

	buf := bytes.NewBuffer(dst)
	buf.WriteString(string(f.Command))
	buf.WriteByte(eol)

	for i := 0; i < f.Header.Len(); i++ {
		entry := f.Header.entries[i]
		buf.WriteString(EscapeHeader(entry.key))
		buf.WriteByte(separator)
		buf.WriteString(EscapeHeader(entry.value))
		buf.WriteByte(eol)
	}

	hasBody := f.Command.HasBody() && len(f.Body) > 0
	if f.Header.Len() > 0 || hasBody {
		buf.WriteByte(eol)
	}
	if hasBody {
		buf.Write(f.Body)
	}

	buf.WriteByte(terminator)
	return buf.Bytes()
}

// readLine returns the EOL terminated line starting at pos, without the
// EOL and an optional preceding CR, and the position after the EOL.
func readLine(buf []byte, pos int) (string, int, bool) {
	i := bytes.IndexByte(buf[pos:], eol)
	if i < 0 {
		return "", 0, false
	}
	line := buf[pos : pos+i]
	if n := len(line); n > 0 && line[n-1] == cr {
		line = line[:n-1]
	}
	return string(line), pos + i + 1, true
}

// isCommandPrefix reports whether an unterminated first line may still
// become a valid command once more bytes arrive.
func isCommandPrefix(buf []byte) bool {
	prefix := string(bytes.TrimSuffix(buf, []byte{cr}))
	for command := range validCommands {
		if strings.HasPrefix(string(command), prefix) {
			return true
		}
	}
	return false
}

// contentLength returns the numeric content-length. A malformed value is
// treated as absent.
func contentLength(h *Header) (int, bool) {
	value, ok := h.Get(HeaderContentLength)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func copyBody(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	body := make([]byte, len(b))
	copy(body, b)
	return body
}

func truncate(b []byte) []byte {
	if len(b) > 32 {
		return b[:32]
	}
	return b
}
