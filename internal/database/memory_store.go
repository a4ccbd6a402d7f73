package database

import (
	"context"
	"sync"
	"time"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
)

// MemoryUserStore keeps users in process, for tests and single node
// setups without MongoDB.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]User)}
}

func (ms *MemoryUserStore) FindUser(_ context.Context, login string) (*User, error) {
	if login == "" {
		return nil, ErrLoginEmpty
	}
	ms.mu.RLock()
	user, ok := ms.users[login]
	ms.mu.RUnlock()
	if !ok {
		logger.DebugF("User does not exist for login %s", login)
		return nil, ErrUserNotFound
	}
	return user.clone(), nil
}

func (ms *MemoryUserStore) SaveUser(_ context.Context, user *User) error {
	if user.Login == "" {
		return ErrLoginEmpty
	}
	stored := *user.clone()
	stored.UpdatedAt = time.Now()

	ms.mu.Lock()
	ms.users[user.Login] = stored
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryUserStore) DeleteUser(_ context.Context, login string) error {
	if login == "" {
		return ErrLoginEmpty
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.users[login]; !ok {
		return ErrUserNotFound
	}
	delete(ms.users, login)
	return nil
}
