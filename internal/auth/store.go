package auth

import (
	"context"
	"errors"
	"path"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/database"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
)

const matchAll = "#"

// StoreAuthenticator checks credentials against a user store. The token
// is the login; users are cached so per-frame authorization does not
// reach the store.
type StoreAuthenticator struct {
	store   database.UserStore
	cache   *expirable.LRU[string, *database.User]
	timeout time.Duration
}

func NewStoreAuthenticator(store database.UserStore, cacheSize int, ttl time.Duration, timeout time.Duration) *StoreAuthenticator {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &StoreAuthenticator{
		store:   store,
		cache:   expirable.NewLRU[string, *database.User](cacheSize, nil, ttl),
		timeout: timeout,
	}
}

func (a *StoreAuthenticator) Connect(username, password string) (string, error) {
	if username == "" {
		return "", ErrAuthFailure
	}
	user, err := a.fetch(username)
	if err != nil {
		if !errors.Is(err, database.ErrUserNotFound) {
			logger.ErrorF("Fail to look up user %s, details: %v", username, err)
		}
		return "", ErrAuthFailure
	}
	if !user.CheckPassword(password) {
		return "", ErrAuthFailure
	}
	a.cache.Add(username, user)
	return username, nil
}

func (a *StoreAuthenticator) CanSend(token, topic string) bool {
	user, ok := a.lookup(token)
	return ok && matchAny(user.SendTopics, topic)
}

func (a *StoreAuthenticator) CanSubscribe(token, topic string) bool {
	user, ok := a.lookup(token)
	return ok && matchAny(user.SubscribeTopics, topic)
}

// Forget drops a cached user, e.g. after its permissions changed.
func (a *StoreAuthenticator) Forget(login string) {
	a.cache.Remove(login)
}

func (a *StoreAuthenticator) lookup(token string) (*database.User, bool) {
	if token == "" {
		return nil, false
	}
	if user, ok := a.cache.Get(token); ok {
		return user, true
	}
	user, err := a.fetch(token)
	if err != nil {
		logger.DebugF("Authorization lookup for %s failed, details: %v", token, err)
		return nil, false
	}
	a.cache.Add(token, user)
	return user, true
}

func (a *StoreAuthenticator) fetch(login string) (*database.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return a.store.FindUser(ctx, login)
}

func matchAny(patterns []string, topic string) bool {
	for _, pattern := range patterns {
		if pattern == matchAll || pattern == topic {
			return true
		}
		if ok, err := path.Match(pattern, topic); err == nil && ok {
			return true
		}
	}
	return false
}
