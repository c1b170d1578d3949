// Package credstore persists the client's bearer credential and refresh
// cookie so a session survives a process restart.
package credstore

import (
	"context"
	"errors"
	"sync"
)

// Well-known keys.
const (
	CredentialKey    = "accessToken"
	RefreshCookieKey = "refreshToken"
)

// ErrNotFound is returned by Load when key has no value.
var ErrNotFound = errors.New("credstore: not found")

// Store is a small string key/value store. Implementations must be safe for
// concurrent use. Delete of a missing key is not an error.
type Store interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps values in process memory. It is the default when no
// durable store is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Load(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
