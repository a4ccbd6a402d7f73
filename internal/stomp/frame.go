package stomp

import "fmt"

const (
	eol        = '\n'
	cr         = '\r'
	separator  = ':'
	terminator = 0x00
)

// Frame is one STOMP protocol unit.
type Frame struct {
	Command Command
	Header  *Header
	Body    []byte
}

// NewFrame returns a frame with an empty header set.
func NewFrame(command Command, kv ...string) *Frame {
	return &Frame{Command: command, Header: NewHeader(kv...)}
}

// Get is a shortcut for f.Header.Get.
func (f *Frame) Get(key string) (string, bool) {
	return f.Header.Get(key)
}

// Value is a shortcut for f.Header.Value.
func (f *Frame) Value(key string) string {
	return f.Header.Value(key)
}

// Set is a shortcut for f.Header.Set.
func (f *Frame) Set(key, value string) *Frame {
	if f.Header == nil {
		f.Header = &Header{}
	}
	f.Header.Set(key, value)
	return f
}

// IsHeartBeat reports whether f is the EOL keep-alive frame.
func (f *Frame) IsHeartBeat() bool {
	return f.Command == HEARTBEAT
}

func (f *Frame) String() string {
	body := f.Body
	if len(body) > 1000 {
		return fmt.Sprintf("Frame[command=%s, header=%v, body=%q...]", f.Command, f.Header.Map(), body[:1000])
	}
	return fmt.Sprintf("Frame[command=%s, header=%v, body=%q]", f.Command, f.Header.Map(), body)
}
