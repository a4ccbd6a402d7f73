package session

import "errors"

// Protocol violations. Each is answered with an ERROR frame, then the
// connection is closed.
var (
	ErrAlreadyConnected   = errors.New("session is already connected")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
	ErrBadCredentials     = errors.New("bad credentials")
	ErrNotConnected       = errors.New("session is not connected")
)

var (
	// ErrDisconnected is returned after a DISCONNECT frame, the read loop
	// stops without reporting a failure.
	ErrDisconnected = errors.New("client disconnected")
	ErrClosed       = errors.New("session is closed")
)
