// Package cache provides the keyed TTL byte store used for listing caching
// and short-lived auth state (OAuth nonces, revoked tokens).
//
// The store is always passed to its consumers as a constructor argument so
// tests can swap the Redis client for the in-memory implementation.
package cache

import (
	"sync"
	"time"
)

// Store is a keyed byte cache with per-entry expiry.
type Store interface {
	// GetBytes returns the cached value and whether it is present and fresh.
	GetBytes(key string) ([]byte, bool)
	// SetBytes stores a value for ttl; ttl <= 0 falls back to a default.
	SetBytes(key string, b []byte, ttl time.Duration)
	// Delete drops a single key.
	Delete(key string)
	// Clear drops every key with the given prefix.
	Clear(prefix string)
}

const defaultTTL = time.Hour

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Store. It backs tests and single-node deployments
// that run without Redis.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem)}
}

func (m *Memory) GetBytes(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(it.expiresAt) {
		delete(m.items, key)
		return nil, false
	}
	return it.data, true
}

func (m *Memory) SetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryItem{data: b, expiresAt: time.Now().Add(ttl)}
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
}

func (m *Memory) Clear(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.items, k)
		}
	}
}
