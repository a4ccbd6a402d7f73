package ack

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOrigin struct {
	id     string
	mu     sync.Mutex
	frames []*stomp.Frame
	err    error
}

func (o *recordingOrigin) SessionID() string { return o.id }

func (o *recordingOrigin) Send(frame *stomp.Frame) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.frames = append(o.frames, frame)
	return nil
}

func (o *recordingOrigin) received() []*stomp.Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*stomp.Frame(nil), o.frames...)
}

func sendWithReceipt(receipt string) *stomp.Frame {
	return stomp.NewFrame(stomp.SEND, stomp.HeaderDestination, "/topic", stomp.HeaderReceipt, receipt)
}

func TestRegisterWaitIgnoresEmptySet(t *testing.T) {
	tracker := NewTracker()
	origin := &recordingOrigin{id: "pub"}

	assert.False(t, tracker.RegisterWait("m0", nil, origin, sendWithReceipt("r")))
	assert.Zero(t, tracker.Pending())
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	tracker := NewTracker()
	origin := &recordingOrigin{id: "pub"}
	one := Waiter{SessionID: "sub", SubscriptionID: 1}
	two := Waiter{SessionID: "sub", SubscriptionID: 2}

	require.True(t, tracker.RegisterWait("m1", []Waiter{one, two}, origin, sendWithReceipt("r-1")))
	assert.Equal(t, 1, tracker.Pending())

	assert.False(t, tracker.Acknowledge("m1", one))
	assert.Empty(t, origin.received())

	assert.True(t, tracker.Acknowledge("m1", two))
	assert.False(t, tracker.Acknowledge("m1", one))
	assert.False(t, tracker.Acknowledge("m1", two))

	frames := origin.received()
	require.Len(t, frames, 1)
	assert.Equal(t, stomp.RECEIPT, frames[0].Command)
	assert.Equal(t, "r-1", frames[0].Value(stomp.HeaderReceiptID))
	assert.Zero(t, tracker.Pending())
}

func TestAcknowledgeUnknown(t *testing.T) {
	tracker := NewTracker()
	origin := &recordingOrigin{id: "pub"}
	tracker.RegisterWait("m1", []Waiter{{SessionID: "a", SubscriptionID: 0}}, origin, sendWithReceipt("r"))

	assert.False(t, tracker.Acknowledge("nope", Waiter{SessionID: "a"}))
	assert.False(t, tracker.Acknowledge("m1", Waiter{SessionID: "b"}))
	assert.Equal(t, 1, tracker.Pending())
	assert.Empty(t, origin.received())
}

func TestSameSubscriptionIDOnTwoSessions(t *testing.T) {
	tracker := NewTracker()
	origin := &recordingOrigin{id: "pub"}
	a := Waiter{SessionID: "a", SubscriptionID: 0}
	b := Waiter{SessionID: "b", SubscriptionID: 0}

	tracker.RegisterWait("m", []Waiter{a, b}, origin, sendWithReceipt("r"))
	assert.False(t, tracker.Acknowledge("m", a))
	assert.Empty(t, origin.received())
	assert.True(t, tracker.Acknowledge("m", b))
	assert.Len(t, origin.received(), 1)
}

func TestCompletionWithoutReceipt(t *testing.T) {
	tracker := NewTracker()
	origin := &recordingOrigin{id: "pub"}
	w := Waiter{SessionID: "a", SubscriptionID: 3}

	tracker.RegisterWait("m", []Waiter{w}, origin, stomp.NewFrame(stomp.SEND, stomp.HeaderDestination, "/t"))
	assert.True(t, tracker.Acknowledge("m", w))
	assert.Empty(t, origin.received())
}

func TestCompletionWithFailingOrigin(t *testing.T) {
	tracker := NewTracker()
	origin := &recordingOrigin{id: "pub", err: errors.New("closed")}
	w := Waiter{SessionID: "a", SubscriptionID: 3}

	tracker.RegisterWait("m", []Waiter{w}, origin, sendWithReceipt("r"))
	assert.True(t, tracker.Acknowledge("m", w))
	assert.Zero(t, tracker.Pending())
}

func TestReleaseSession(t *testing.T) {
	tracker := NewTracker()
	publisher := &recordingOrigin{id: "pub"}
	gone := &recordingOrigin{id: "gone"}

	tracker.RegisterWait("m1", []Waiter{{"sub", 1}}, publisher, sendWithReceipt("r1"))
	tracker.RegisterWait("m2", []Waiter{{"sub", 1}, {"other", 1}}, publisher, sendWithReceipt("r2"))
	tracker.RegisterWait("m3", []Waiter{{"other", 2}}, gone, sendWithReceipt("r3"))

	assert.Equal(t, 1, tracker.ReleaseSession("sub"))
	frames := publisher.received()
	require.Len(t, frames, 1)
	assert.Equal(t, "r1", frames[0].Value(stomp.HeaderReceiptID))
	assert.Equal(t, 2, tracker.Pending())

	assert.Zero(t, tracker.ReleaseSession("gone"))
	assert.Equal(t, 1, tracker.Pending())
	assert.False(t, tracker.Acknowledge("m3", Waiter{"other", 2}))

	assert.True(t, tracker.Acknowledge("m2", Waiter{"other", 1}))
	assert.Len(t, publisher.received(), 2)
	assert.Empty(t, gone.received())
}

func TestConcurrentAcknowledge(t *testing.T) {
	tracker := NewTracker()
	origin := &recordingOrigin{id: "pub"}

	const messages = 100
	const subscribers = 8
	for m := 0; m < messages; m++ {
		waiters := make([]Waiter, 0, subscribers)
		for s := 0; s < subscribers; s++ {
			waiters = append(waiters, Waiter{SessionID: fmt.Sprintf("s%d", s), SubscriptionID: 0})
		}
		tracker.RegisterWait(fmt.Sprintf("m%d", m), waiters, origin, sendWithReceipt(fmt.Sprintf("r%d", m)))
	}

	var wg sync.WaitGroup
	for s := 0; s < subscribers; s++ {
		for dup := 0; dup < 2; dup++ {
			wg.Add(1)
			go func(s int) {
				defer wg.Done()
				for m := 0; m < messages; m++ {
					tracker.Acknowledge(fmt.Sprintf("m%d", m), Waiter{SessionID: fmt.Sprintf("s%d", s)})
				}
			}(s)
		}
	}
	wg.Wait()

	assert.Zero(t, tracker.Pending())
	assert.Len(t, origin.received(), messages)
}
