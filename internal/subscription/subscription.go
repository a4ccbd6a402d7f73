// Package subscription keeps track of which session listens to which topic.
package subscription

import (
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
)

// Subscriber is the receiving end of a subscription, usually a session.
type Subscriber interface {
	SessionID() string
	Send(frame *stomp.Frame) error
}

// Subscription binds a subscriber to a topic under a client chosen id.
// The id is only unique within the subscriber's session.
type Subscription struct {
	ID         int64
	Topic      string
	AckMode    stomp.AckMode
	Subscriber Subscriber
}

// SessionID returns the id of the owning session.
func (s Subscription) SessionID() string {
	return s.Subscriber.SessionID()
}

// NeedsAck reports whether deliveries on this subscription wait for ACK.
func (s Subscription) NeedsAck() bool {
	return s.AckMode != stomp.AckAuto
}

type subscriptionKey struct {
	sessionID string
	id        int64
}

func (s Subscription) key() subscriptionKey {
	return subscriptionKey{sessionID: s.SessionID(), id: s.ID}
}
