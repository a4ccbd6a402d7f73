// Package connection owns the outbound side of a client socket: a bounded
// frame queue drained by one writer goroutine.
package connection

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
)

var (
	ErrClosed       = errors.New("connection is closed")
	ErrSlowConsumer = errors.New("outbound queue is full")
)

const (
	DefaultQueueSize    = 256
	DefaultWriteTimeout = 10 * time.Second
)

type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// Conn serializes every frame written to a client. Send never blocks: a
// full queue marks the client as a slow consumer and drops it.
type Conn struct {
	id           string
	conn         net.Conn
	queue        chan *stomp.Frame
	writeTimeout time.Duration

	mu        sync.RWMutex
	closed    bool
	broken    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once

	sentFrames atomic.Int64
	sentBytes  atomic.Int64
}

func New(id string, conn net.Conn, opts Options) *Conn {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	c := &Conn{
		id:           id,
		conn:         conn,
		queue:        make(chan *stomp.Frame, opts.QueueSize),
		writeTimeout: opts.WriteTimeout,
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Send enqueues frame for the writer.
func (c *Conn) Send(frame *stomp.Frame) error {
	c.mu.RLock()
	if c.closed || c.broken.Load() {
		c.mu.RUnlock()
		return ErrClosed
	}
	select {
	case c.queue <- frame:
		c.mu.RUnlock()
		return nil
	default:
	}
	c.mu.RUnlock()

	logger.WarnF("[%s] Outbound queue is full, dropping slow consumer", c.id)
	c.Abort()
	return ErrSlowConsumer
}

// Close stops accepting frames, lets the writer flush what is queued and
// closes the socket. It waits for the writer and is safe to call more
// than once.
func (c *Conn) Close() error {
	c.closeQueue()
	<-c.done
	return nil
}

// Abort closes the socket without flushing. Pending frames are dropped.
func (c *Conn) Abort() {
	c.broken.Store(true)
	c.closeQueue()
	if err := c.conn.Close(); err != nil && !IsNetClosedError(err) {
		logger.WarnF("[%s] Error occured while closing connection, details: %v", c.id, err)
	}
}

// Done is closed once the socket is closed and the writer has exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Stats returns the frames and bytes written so far.
func (c *Conn) Stats() (frames, bytes int64) {
	return c.sentFrames.Load(), c.sentBytes.Load()
}

func (c *Conn) closeQueue() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.queue)
		c.mu.Unlock()
	})
}

func (c *Conn) writeLoop() {
	defer close(c.done)
	defer func() {
		logger.DebugF("[%s] Connection closed", c.id)
		if err := c.conn.Close(); err != nil && !IsNetClosedError(err) {
			logger.WarnF("[%s] Error occured while closing connection, details: %v", c.id, err)
		}
	}()

	for frame := range c.queue {
		if c.broken.Load() {
			continue
		}
		data := stomp.Encode(frame)
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		if err := write(c.conn, data); err != nil {
			if !IsNetClosedError(err) {
				logger.ErrorF("[%s] Fail to send data, details: %v", c.id, err)
			}
			// The reader notices the closed socket and tears the session down.
			c.broken.Store(true)
			_ = c.conn.Close()
			continue
		}
		c.sentFrames.Add(1)
		c.sentBytes.Add(int64(len(data)))
		logger.DebugF("[%s] Send %s frame, %d bytes", c.id, frame.Command, len(data))
	}
}

func write(conn net.Conn, data []byte) error {
	total := 0
	for total < len(data) {
		n, err := conn.Write(data[total:])
		if err != nil {
			return err
		}
		total += n
	}
	return nil
}
