// Package auth holds the authentication and authorization collaborators
// consulted by sessions.
package auth

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrAuthFailure          = errors.New("auth: authentication failure")
	ErrAuthProviderNotFound = errors.New("auth: authentication provider not found")
)

// Authenticator validates credentials on CONNECT and authorizes topics
// with the token it handed out.
type Authenticator interface {
	Connect(username, password string) (token string, err error)
	CanSend(token, topic string) bool
	CanSubscribe(token, topic string) bool
}

var (
	providersMu sync.RWMutex
	providers   = make(map[string]Authenticator)
)

func init() {
	Register("allow", AllowAll{})
	Register("deny", DenyAll{})
}

// Register makes a provider available by name. It panics on a nil
// provider or a duplicate name.
func Register(name string, provider Authenticator) {
	if provider == nil {
		panic("auth: Register provider is nil")
	}
	providersMu.Lock()
	defer providersMu.Unlock()
	if _, dup := providers[name]; dup {
		panic("auth: Register called twice for provider " + name)
	}
	providers[name] = provider
}

func Unregister(name string) {
	providersMu.Lock()
	defer providersMu.Unlock()
	delete(providers, name)
}

// New returns the provider registered under name.
func New(name string) (Authenticator, error) {
	providersMu.RLock()
	defer providersMu.RUnlock()
	p, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAuthProviderNotFound, name)
	}
	return p, nil
}

// Providers lists the registered names.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllowAll accepts every login and authorizes every topic.
type AllowAll struct{}

func (AllowAll) Connect(username, _ string) (string, error) {
	return "token-" + username, nil
}

func (AllowAll) CanSend(_, _ string) bool { return true }

func (AllowAll) CanSubscribe(_, _ string) bool { return true }

// DenyAll rejects every login and every topic.
type DenyAll struct{}

func (DenyAll) Connect(_, _ string) (string, error) {
	return "", ErrAuthFailure
}

func (DenyAll) CanSend(_, _ string) bool { return false }

func (DenyAll) CanSubscribe(_, _ string) bool { return false }
