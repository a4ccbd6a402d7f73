// Package ack defers a publisher's RECEIPT until every subscriber that
// asked for acknowledgements has acknowledged the message.
package ack

import (
	"sync"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
)

// Origin is the session that published the message.
type Origin interface {
	SessionID() string
	Send(frame *stomp.Frame) error
}

// Waiter identifies one subscription a message waits on. Subscription ids
// are chosen by clients, so the session id is part of the identity.
type Waiter struct {
	SessionID      string
	SubscriptionID int64
}

type entry struct {
	pending map[Waiter]struct{}
	origin  Origin
	request *stomp.Frame
}

// Tracker maps message ids to the acknowledgements still missing.
type Tracker struct {
	mu    sync.Mutex
	waits map[string]*entry
}

func NewTracker() *Tracker {
	return &Tracker{waits: make(map[string]*entry)}
}

// RegisterWait records that messageID waits for waiters. Nothing is stored
// when waiters is empty. request is the SEND frame, its receipt header
// decides whether completion produces a RECEIPT.
func (t *Tracker) RegisterWait(messageID string, waiters []Waiter, origin Origin, request *stomp.Frame) bool {
	if len(waiters) == 0 {
		return false
	}
	pending := make(map[Waiter]struct{}, len(waiters))
	for _, w := range waiters {
		pending[w] = struct{}{}
	}

	t.mu.Lock()
	t.waits[messageID] = &entry{pending: pending, origin: origin, request: request}
	t.mu.Unlock()

	logger.DebugF("[%s] Message %s waits for %d acknowledgements", origin.SessionID(), messageID, len(pending))
	return true
}

// Acknowledge removes waiter from the pending set of messageID. It returns
// true when this call completed the message. Unknown message ids, unknown
// waiters and duplicate acknowledgements are ignored.
func (t *Tracker) Acknowledge(messageID string, waiter Waiter) bool {
	t.mu.Lock()
	e, ok := t.waits[messageID]
	if !ok {
		t.mu.Unlock()
		return false
	}
	if _, ok := e.pending[waiter]; !ok {
		t.mu.Unlock()
		return false
	}
	delete(e.pending, waiter)
	done := len(e.pending) == 0
	if done {
		delete(t.waits, messageID)
	}
	t.mu.Unlock()

	if done {
		complete(messageID, e)
	}
	return done
}

// ReleaseSession forgets a closed session. Its outstanding
// acknowledgements are treated as given, and messages it published no
// longer produce receipts. It returns the number of messages completed.
func (t *Tracker) ReleaseSession(sessionID string) int {
	var completed []string
	var entries []*entry

	t.mu.Lock()
	for messageID, e := range t.waits {
		if e.origin.SessionID() == sessionID {
			delete(t.waits, messageID)
			continue
		}
		for w := range e.pending {
			if w.SessionID == sessionID {
				delete(e.pending, w)
			}
		}
		if len(e.pending) == 0 {
			delete(t.waits, messageID)
			completed = append(completed, messageID)
			entries = append(entries, e)
		}
	}
	t.mu.Unlock()

	for i := range entries {
		complete(completed[i], entries[i])
	}
	return len(entries)
}

// Pending returns the number of messages waiting for acknowledgements.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.waits)
}

// complete runs outside the lock, Send may block on the origin's queue.
func complete(messageID string, e *entry) {
	receipt := stomp.ReceiptFor(e.request)
	if receipt == nil {
		logger.DebugF("[%s] Message %s fully acknowledged", e.origin.SessionID(), messageID)
		return
	}
	if err := e.origin.Send(receipt); err != nil {
		logger.WarnF("[%s] Fail to send deferred receipt for %s, details: %v", e.origin.SessionID(), messageID, err)
		return
	}
	logger.DebugF("[%s] Message %s fully acknowledged, receipt %s sent", e.origin.SessionID(), messageID, receipt.Value(stomp.HeaderReceiptID))
}
