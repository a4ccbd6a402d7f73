package server

import (
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/connection"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/heartbeat"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/session"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
)

const readBufferSize = 4096

// ConnectionHandler reads frames from one client and feeds its session.
type ConnectionHandler struct {
	broker  *Broker
	conn    net.Conn
	connID  string
	out     *connection.Conn
	session *session.Session
	decoder *stomp.Decoder
}

// ServeConn runs the client on conn until it disconnects or the broker
// shuts down. The connection is always closed when ServeConn returns.
func (b *Broker) ServeConn(conn net.Conn) {
	connID := uuid.NewString()
	out := connection.New(connID, conn, connection.Options{QueueSize: b.cfg.OutboundQueue})
	c := &ConnectionHandler{
		broker:  b,
		conn:    conn,
		connID:  connID,
		out:     out,
		session: session.New(connID, out, b.options),
		decoder: stomp.NewDecoder(b.cfg.MaxFrameSize),
	}
	c.handleConnection()
}

func (c *ConnectionHandler) handleConnection() {
	c.broker.manager.Add(c.connID, c.session)
	defer func() {
		c.broker.manager.Remove(c.connID)
		if err := c.session.Close(); err != nil && !connection.IsNetClosedError(err) {
			logger.WarnF("[%s] Error occured while closing connection, details: %v", c.connID, err)
		}
	}()

	// Shutdown may have swept the manager before Add.
	if c.broker.isClosed() {
		c.broker.metrics.ConnectionClosed("shutdown")
		return
	}

	logger.DebugF("[%s] New client from %s", c.connID, c.conn.RemoteAddr())
	reason := c.readLoop()
	c.broker.metrics.ConnectionClosed(reason)
	logger.DebugF("[%s] Client finished: %s", c.connID, reason)
}

// readDeadline is the connect timeout until CONNECT succeeds, then the
// heart-beat receive window, or none when the client does not beat.
func (c *ConnectionHandler) readDeadline(connectBy time.Time) time.Time {
	if c.session.State() != session.StateConnected {
		return connectBy
	}
	timeout := heartbeat.ReadTimeout(c.session.HeartBeat().Receive, c.broker.cfg.HeartBeat.Tolerance)
	if timeout == 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

func (c *ConnectionHandler) readLoop() string {
	var connectBy time.Time
	if c.broker.connectTimeout > 0 {
		connectBy = time.Now().Add(c.broker.connectTimeout)
	}
	buf := make([]byte, readBufferSize)

	for {
		_ = c.conn.SetReadDeadline(c.readDeadline(connectBy))

		n, err := c.conn.Read(buf)
		if n > 0 {
			_, _ = c.decoder.Write(buf[:n])
			if reason, done := c.drain(); done {
				return reason
			}
		}
		if err != nil {
			connection.HandleReadError(c.connID, err)
			return readErrorReason(err)
		}
	}
}

// drain hands every complete buffered frame to the session. It reports
// whether the connection must be closed.
func (c *ConnectionHandler) drain() (string, bool) {
	for {
		frame, err := c.decoder.Next()
		if err != nil {
			// The framing is lost, so no ERROR frame can be trusted to parse.
			logger.WarnF("[%s] Malformed frame, details: %v", c.connID, err)
			c.broker.metrics.ProtocolError("Malformed frame")
			return "malformed", true
		}
		if frame == nil {
			return "", false
		}

		logger.DebugF("[%s] Receive %s frame", c.connID, frame.Command)
		if err := c.session.Handle(frame); err != nil {
			return handleErrorReason(c.connID, err), true
		}
	}
}

func handleErrorReason(connID string, err error) string {
	switch {
	case errors.Is(err, session.ErrDisconnected):
		logger.InfoF("[%s] Client disconnect", connID)
		return "disconnect"
	case errors.Is(err, session.ErrClosed):
		return "shutdown"
	default:
		logger.WarnF("[%s] Protocol error, details: %v", connID, err)
		return "protocol"
	}
}

func readErrorReason(err error) string {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.Is(err, net.ErrClosed):
		return "closed"
	default:
		return "eof"
	}
}
