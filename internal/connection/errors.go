package connection

import (
	"errors"
	"io"
	"net"
	"os"

	"github.com/gorilla/websocket"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
)

func IsNetClosedError(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var opErr *net.OpError
	ok := errors.As(err, &opErr)
	return ok && opErr.Timeout()
}

// HandleReadError logs why reading from a client stopped.
func HandleReadError(connID string, err error) {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		logger.InfoF("[%s] Client close connection", connID)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		logger.InfoF("[%s] Client close websocket", connID)
	case os.IsTimeout(err):
		logger.WarnF("[%s] Reading timeout", connID)
	case errors.Is(err, net.ErrClosed):
		logger.DebugF("[%s] Connection closed by server", connID)
	default:
		logger.ErrorF("[%s] Error occured while reading frame, details: %v", connID, err)
	}
}
