package session

import (
	"strconv"
	"sync/atomic"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/ack"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/auth"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/subscription"
)

// Transport is the outbound side of a client connection. Send must not
// block; Close flushes what was accepted and releases the socket.
type Transport interface {
	Send(frame *stomp.Frame) error
	Close() error
}

// Recorder receives protocol events, typically to feed metrics.
type Recorder interface {
	FrameReceived(command stomp.Command)
	FrameSent(command stomp.Command)
	MessagePublished(deliveries int)
	ProtocolError(message string)
}

type nopRecorder struct{}

func (nopRecorder) FrameReceived(stomp.Command) {}
func (nopRecorder) FrameSent(stomp.Command)     {}
func (nopRecorder) MessagePublished(int)        {}
func (nopRecorder) ProtocolError(string)        {}

// MessageIDs hands out broker wide unique message ids.
type MessageIDs struct {
	next atomic.Uint64
}

func (m *MessageIDs) Next() string {
	return "message-" + strconv.FormatUint(m.next.Add(1)-1, 10)
}

// Options carries the state shared by every session of a broker.
type Options struct {
	// ServerName is sent in the CONNECTED server header.
	ServerName    string
	HeartBeat     stomp.HeartBeat
	Authenticator auth.Authenticator
	Registry      *subscription.Registry
	Tracker       *ack.Tracker
	MessageIDs    *MessageIDs
	Recorder      Recorder
}

// NewOptions returns options with fresh shared state and allow-all
// authentication.
func NewOptions() *Options {
	o := &Options{}
	o.setDefaults()
	return o
}

func (o *Options) setDefaults() {
	if o.ServerName == "" {
		o.ServerName = "stomp-broker"
	}
	if o.Authenticator == nil {
		o.Authenticator = auth.AllowAll{}
	}
	if o.Registry == nil {
		o.Registry = subscription.NewRegistry()
	}
	if o.Tracker == nil {
		o.Tracker = ack.NewTracker()
	}
	if o.MessageIDs == nil {
		o.MessageIDs = &MessageIDs{}
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
}
