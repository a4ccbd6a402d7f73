// Package session implements the server side STOMP state machine of one
// client connection.
package session

import (
	"sync"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/heartbeat"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
)

type handler func(s *Session, frame *stomp.Frame) error

// dispatch maps client commands to their handlers. Commands missing here
// are answered as unknown.
var dispatch = map[stomp.Command]handler{
	stomp.CONNECT:     (*Session).handleConnect,
	stomp.DISCONNECT:  (*Session).handleDisconnect,
	stomp.SUBSCRIBE:   connected((*Session).handleSubscribe),
	stomp.UNSUBSCRIBE: connected((*Session).handleUnsubscribe),
	stomp.SEND:        connected((*Session).handleSend),
	stomp.ACK:         connected((*Session).handleAck),
	stomp.NACK:        connected((*Session).handleAck),
	stomp.BEGIN:       connected((*Session).handleTransaction),
	stomp.COMMIT:      connected((*Session).handleTransaction),
	stomp.ABORT:       connected((*Session).handleTransaction),
	stomp.HEARTBEAT:   (*Session).handleHeartBeat,
}

// Session is the protocol state of one connection. Handle is called from
// a single reader goroutine; Send and Close may be called from anywhere.
type Session struct {
	id        string
	transport Transport
	opts      *Options

	mu        sync.Mutex
	state     State
	token     string
	login     string
	agreement heartbeat.Agreement
	scheduler *heartbeat.Scheduler

	closeOnce sync.Once
	closeErr  error
}

func New(id string, transport Transport, opts *Options) *Session {
	if opts == nil {
		opts = NewOptions()
	} else {
		opts.setDefaults()
	}
	return &Session{
		id:        id,
		transport: transport,
		opts:      opts,
	}
}

func (s *Session) ID() string {
	return s.id
}

// SessionID identifies the session in the subscription registry and the
// ack tracker.
func (s *Session) SessionID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Login returns the login the client connected with.
func (s *Session) Login() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.login
}

// HeartBeat returns the negotiated heart-beat, zero before CONNECT.
func (s *Session) HeartBeat() heartbeat.Agreement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agreement
}

func (s *Session) tokenValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Handle processes one inbound frame. A non-nil error means the
// connection must be closed; ERROR frames have already been queued.
func (s *Session) Handle(frame *stomp.Frame) error {
	s.opts.Recorder.FrameReceived(frame.Command)
	if s.State() == StateClosed {
		return ErrClosed
	}
	h, ok := dispatch[frame.Command]
	if !ok {
		return s.handleUnknown(frame)
	}
	return h(s, frame)
}

// Send queues a frame for this client. Once Close has begun it fails with
// ErrClosed, so a publisher holding a stale subscription snapshot releases
// the acknowledgement it registered instead of leaking it.
func (s *Session) Send(frame *stomp.Frame) error {
	if s.State() == StateClosed {
		return ErrClosed
	}
	if err := s.transport.Send(frame); err != nil {
		return err
	}
	s.opts.Recorder.FrameSent(frame.Command)
	return nil
}

// Close tears the session down exactly once: the heart-beat stops before
// anything else, then subscriptions and pending acknowledgements are
// released and the transport is closed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		scheduler := s.scheduler
		s.mu.Unlock()

		if scheduler != nil {
			scheduler.Stop()
		}
		removed := s.opts.Registry.RemoveAllForSession(s.id)
		released := s.opts.Tracker.ReleaseSession(s.id)
		s.closeErr = s.transport.Close()

		logger.DebugF("[%s] Session closed, %d subscriptions removed, %d messages released", s.id, len(removed), released)
	})
	return s.closeErr
}

func connected(h handler) handler {
	return func(s *Session, frame *stomp.Frame) error {
		if s.State() != StateConnected {
			s.sendError("Not connected", "The "+string(frame.Command)+" command requires a CONNECT first", frame)
			return ErrNotConnected
		}
		return h(s, frame)
	}
}

// sendError queues an ERROR frame answering request.
func (s *Session) sendError(message, description string, request *stomp.Frame) {
	frame := stomp.NewErrorFrame(message, description)
	if request != nil {
		if receipt, ok := request.Get(stomp.HeaderReceipt); ok {
			frame.Set(stomp.HeaderReceiptID, receipt)
		}
	}
	s.opts.Recorder.ProtocolError(message)
	if err := s.Send(frame); err != nil {
		logger.DebugF("[%s] Fail to send ERROR %q, details: %v", s.id, message, err)
	}
}

// sendReceipt answers request with a RECEIPT when it asked for one.
func (s *Session) sendReceipt(request *stomp.Frame) {
	receipt := stomp.ReceiptFor(request)
	if receipt == nil {
		return
	}
	if err := s.Send(receipt); err != nil {
		logger.DebugF("[%s] Fail to send RECEIPT, details: %v", s.id, err)
	}
}
