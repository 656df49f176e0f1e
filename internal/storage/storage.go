// Package storage provides the flat key-value persistence layer behind the
// blacklist, keyword lists, and runtime flags. Callers treat read failures as
// missing data rather than fatal errors.
package storage

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Well-known keys.
const (
	KeyActive          = "active"
	KeyDebug           = "debug"
	KeyBlacklist       = "blacklist"
	KeyDefaultKeywords = "keywords:default"
	KeyCustomKeywords  = "keywords:custom"
)

// Store is a flat namespaced key-value store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// GetBool reads a boolean flag, falling back to def on a miss or any storage
// failure.
func GetBool(ctx context.Context, s Store, key string, def bool) bool {
	val, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

// SetBool writes a boolean flag.
func SetBool(ctx context.Context, s Store, key string, value bool) error {
	return s.Set(ctx, key, strconv.FormatBool(value))
}

// MemoryStore is the in-process Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
