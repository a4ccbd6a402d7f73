package stomp

import "bytes"

// Decoder accumulates stream bytes and hands out complete frames.
type Decoder struct {
	buf  []byte
	wait resume
	// MaxFrameSize bounds the bytes buffered for a single incomplete
	// frame. Zero disables the check.
	MaxFrameSize int
}

func NewDecoder(maxFrameSize int) *Decoder {
	return &Decoder{MaxFrameSize: maxFrameSize}
}

// Write appends stream bytes. It never fails.
func (d *Decoder) Write(p []byte) (int, error) {
	d.buf = append(d.buf, p...)
	return len(p), nil
}

// Next returns the next complete frame, or nil when more input is needed.
// A frame arriving in many writes is decoded again only once the bytes it
// is waiting for may be present.
func (d *Decoder) Next() (*Frame, error) {
	if d.waiting() {
		return nil, d.checkSize()
	}
	frame, n, wait, err := decode(d.buf)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		d.wait = wait
		return nil, d.checkSize()
	}
	d.buf = append(d.buf[:0], d.buf[n:]...)
	d.wait = resume{}
	return frame, nil
}

// waiting reports whether the bytes written since the last decode cannot
// complete the pending frame.
func (d *Decoder) waiting() bool {
	if len(d.buf) < d.wait.need {
		return true
	}
	if d.wait.scan > 0 {
		if bytes.IndexByte(d.buf[d.wait.scan:], terminator) < 0 {
			d.wait.scan = len(d.buf)
			return true
		}
	}
	return false
}

func (d *Decoder) checkSize() error {
	if d.MaxFrameSize > 0 && len(d.buf) > d.MaxFrameSize {
		return parseError(ErrFrameTooLarge, "%d bytes buffered, limit %d", len(d.buf), d.MaxFrameSize)
	}
	return nil
}

// Buffered returns the number of bytes waiting for the rest of a frame.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}
