package stomp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCommand    = errors.New("invalid command")
	ErrMissingTerminator = errors.New("frame is not terminated by a NUL byte")
	ErrFrameTooLarge     = errors.New("frame exceeds the maximum size")
	ErrInvalidHeartBeat  = errors.New("invalid heart-beat header")
)

// ParseError reports bytes that cannot be framed. The stream cannot be
// resynchronized after one, the connection has to be dropped.
type ParseError struct {
	Err    error
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("stomp: %v", e.Err)
	}
	return fmt.Sprintf("stomp: %v: %s", e.Err, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseError(err error, format string, v ...interface{}) *ParseError {
	return &ParseError{Err: err, Detail: fmt.Sprintf(format, v...)}
}
