package auth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowAll(t *testing.T) {
	token, err := AllowAll{}.Connect("guest", "")
	require.NoError(t, err)
	assert.Equal(t, "token-guest", token)
	assert.True(t, AllowAll{}.CanSend(token, "/topic"))
	assert.True(t, AllowAll{}.CanSubscribe(token, "/topic"))
}

func TestDenyAll(t *testing.T) {
	_, err := DenyAll{}.Connect("guest", "guest")
	assert.ErrorIs(t, err, ErrAuthFailure)
	assert.False(t, DenyAll{}.CanSend("t", "/topic"))
	assert.False(t, DenyAll{}.CanSubscribe("t", "/topic"))
}

func TestProviderRegistry(t *testing.T) {
	p, err := New("allow")
	require.NoError(t, err)
	assert.IsType(t, AllowAll{}, p)

	p, err = New("deny")
	require.NoError(t, err)
	assert.IsType(t, DenyAll{}, p)

	_, err = New("nope")
	assert.ErrorIs(t, err, ErrAuthProviderNotFound)

	Register("test-provider", DenyAll{})
	defer Unregister("test-provider")
	assert.Contains(t, Providers(), "test-provider")
	assert.Panics(t, func() { Register("test-provider", AllowAll{}) })
	assert.Panics(t, func() { Register("nil-provider", nil) })
}

type countingStore struct {
	database.UserStore
	finds atomic.Int32
}

func (s *countingStore) FindUser(ctx context.Context, login string) (*database.User, error) {
	s.finds.Add(1)
	return s.UserStore.FindUser(ctx, login)
}

func newStore(t *testing.T) *countingStore {
	t.Helper()
	memory := database.NewMemoryUserStore()
	user, err := database.NewUser("alice", "secret",
		[]string{"/topic/*", "/queue/orders"},
		[]string{"#"},
	)
	require.NoError(t, err)
	require.NoError(t, memory.SaveUser(context.Background(), user))
	return &countingStore{UserStore: memory}
}

func TestStoreAuthenticatorConnect(t *testing.T) {
	a := NewStoreAuthenticator(newStore(t), 16, time.Minute, time.Second)

	token, err := a.Connect("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", token)

	_, err = a.Connect("alice", "wrong")
	assert.ErrorIs(t, err, ErrAuthFailure)
	_, err = a.Connect("bob", "secret")
	assert.ErrorIs(t, err, ErrAuthFailure)
	_, err = a.Connect("", "")
	assert.ErrorIs(t, err, ErrAuthFailure)
}

func TestStoreAuthenticatorAuthorize(t *testing.T) {
	store := newStore(t)
	a := NewStoreAuthenticator(store, 16, time.Minute, time.Second)
	token, err := a.Connect("alice", "secret")
	require.NoError(t, err)
	finds := store.finds.Load()

	assert.True(t, a.CanSend(token, "/topic/news"))
	assert.True(t, a.CanSend(token, "/queue/orders"))
	assert.False(t, a.CanSend(token, "/topic/news/sport"))
	assert.False(t, a.CanSend(token, "/queue/other"))
	assert.True(t, a.CanSubscribe(token, "/anything/at/all"))
	assert.Equal(t, finds, store.finds.Load(), "authorization should be served from cache")

	assert.False(t, a.CanSend("", "/topic/news"))
	assert.False(t, a.CanSubscribe("mallory", "/topic/news"))
	finds = store.finds.Load()

	a.Forget("alice")
	assert.True(t, a.CanSend(token, "/topic/news"))
	assert.Equal(t, finds+1, store.finds.Load())
}

func TestMatchAny(t *testing.T) {
	assert.True(t, matchAny([]string{"#"}, "/x"))
	assert.True(t, matchAny([]string{"/a/[bc]"}, "/a/c"))
	assert.False(t, matchAny([]string{"/a/[bc"}, "/a/b"))
	assert.False(t, matchAny(nil, "/x"))
}
