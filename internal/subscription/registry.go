package subscription

import (
	"sort"
	"sync"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
)

// Registry indexes subscriptions by topic and by session. Both indices are
// guarded by the same lock, a subscription is never visible in one and
// missing from the other.
type Registry struct {
	mu       sync.RWMutex
	topics   map[string]map[subscriptionKey]Subscription
	sessions map[string]map[int64]Subscription
}

func NewRegistry() *Registry {
	return &Registry{
		topics:   make(map[string]map[subscriptionKey]Subscription),
		sessions: make(map[string]map[int64]Subscription),
	}
}

// AddSubscription registers sub. A previous subscription of the same
// session with the same id is replaced and returned.
func (r *Registry) AddSubscription(sub Subscription) (Subscription, bool) {
	sessionID := sub.SessionID()

	r.mu.Lock()
	defer r.mu.Unlock()

	previous, replaced := r.sessions[sessionID][sub.ID]
	if replaced {
		r.removeFromTopic(previous)
	}

	bySession, ok := r.sessions[sessionID]
	if !ok {
		bySession = make(map[int64]Subscription)
		r.sessions[sessionID] = bySession
	}
	bySession[sub.ID] = sub

	byTopic, ok := r.topics[sub.Topic]
	if !ok {
		byTopic = make(map[subscriptionKey]Subscription)
		r.topics[sub.Topic] = byTopic
	}
	byTopic[sub.key()] = sub

	logger.DebugF("[%s] Subscription %d added on %s (ack=%s)", sessionID, sub.ID, sub.Topic, sub.AckMode)
	return previous, replaced
}

// RemoveSubscription drops the subscription id of a session. Removing an
// unknown subscription is a no-op.
func (r *Registry) RemoveSubscription(sessionID string, id int64) (Subscription, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bySession, ok := r.sessions[sessionID]
	if !ok {
		return Subscription{}, false
	}
	sub, ok := bySession[id]
	if !ok {
		return Subscription{}, false
	}
	delete(bySession, id)
	if len(bySession) == 0 {
		delete(r.sessions, sessionID)
	}
	r.removeFromTopic(sub)

	logger.DebugF("[%s] Subscription %d removed from %s", sessionID, id, sub.Topic)
	return sub, true
}

// RemoveAllForSession drops every subscription of a session and returns
// them. An unknown session yields nothing.
func (r *Registry) RemoveAllForSession(sessionID string) []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	bySession, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	delete(r.sessions, sessionID)

	removed := make([]Subscription, 0, len(bySession))
	for _, sub := range bySession {
		r.removeFromTopic(sub)
		removed = append(removed, sub)
	}
	sortSubscriptions(removed)

	logger.DebugF("[%s] %d subscriptions removed", sessionID, len(removed))
	return removed
}

// SubscriptionsForTopic returns a snapshot of the subscriptions on topic,
// ordered by session id then subscription id. Unknown topics yield an
// empty slice.
func (r *Registry) SubscriptionsForTopic(topic string) []Subscription {
	r.mu.RLock()
	byTopic := r.topics[topic]
	result := make([]Subscription, 0, len(byTopic))
	for _, sub := range byTopic {
		result = append(result, sub)
	}
	r.mu.RUnlock()

	sortSubscriptions(result)
	return result
}

// Lookup returns the subscription id of a session.
func (r *Registry) Lookup(sessionID string, id int64) (Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.sessions[sessionID][id]
	return sub, ok
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, bySession := range r.sessions {
		n += len(bySession)
	}
	return n
}

// Topics returns the number of topics with at least one subscription.
func (r *Registry) Topics() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}

// removeFromTopic must be called with mu held.
func (r *Registry) removeFromTopic(sub Subscription) {
	byTopic, ok := r.topics[sub.Topic]
	if !ok {
		return
	}
	delete(byTopic, sub.key())
	if len(byTopic) == 0 {
		delete(r.topics, sub.Topic)
	}
}

func sortSubscriptions(subs []Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		if a, b := subs[i].SessionID(), subs[j].SessionID(); a != b {
			return a < b
		}
		return subs[i].ID < subs[j].ID
	})
}
