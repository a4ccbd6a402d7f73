package stomp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnescapeHeader(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{`test\ntest`, "test\ntest"},
		{`test\ctest`, "test:test"},
		{`test\\test`, `test\test`},
		{`test\cline1\nline2 \\b\\`, "test:line1\nline2 \\b\\"},
		{`\\n`, `\n`},
		{`\\c`, `\c`},
		{`keep\tunknown`, `keep\tunknown`},
		{`trailing\`, `trailing\`},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		result := UnescapeHeader(tt.input)
		if result != tt.expect {
			t.Errorf("input=%q expect=%q actual=%q", tt.input, tt.expect, result)
		}
	}
}

func TestEscapeHeader(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"test\ntest", `test\ntest`},
		{"test:test", `test\ctest`},
		{`test\test`, `test\\test`},
		{`\n`, `\\n`},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		result := EscapeHeader(tt.input)
		if result != tt.expect {
			t.Errorf("input=%q expect=%q actual=%q", tt.input, tt.expect, result)
		}
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	values := []string{
		"a:b\nc\\",
		`\c\n\\`,
		"::\n\n\\\\",
		`already \n escaped looking`,
		"",
	}
	for _, value := range values {
		assert.Equal(t, value, UnescapeHeader(EscapeHeader(value)))
	}

	frame := NewFrame(SEND, HeaderDestination, "/topic", "odd", "a:b\nc\\")
	decoded, _, err := Decode(Encode(frame))
	assert.NoError(t, err)
	assert.Equal(t, "a:b\nc\\", decoded.Value("odd"))
}
