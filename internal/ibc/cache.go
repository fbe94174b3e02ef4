package ibc

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Cache stores resolved denom traces keyed by chain and hash.
type Cache interface {
	Get(ctx context.Context, chain, hash string) (json.RawMessage, bool, error)
	Put(ctx context.Context, chain, hash string, trace json.RawMessage) error
}

type cacheKey struct {
	chain string
	hash  string
}

type memEntry struct {
	trace  json.RawMessage
	stored time.Time
}

// MemoryCache is the in-process Cache used when no database is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]memEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache returns an empty cache. A non-positive ttl keeps entries forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[cacheKey]memEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, chain, hash string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[cacheKey{chain, hash}]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.ttl > 0 && m.now().Sub(e.stored) > m.ttl {
		m.mu.Lock()
		delete(m.entries, cacheKey{chain, hash})
		m.mu.Unlock()
		return nil, false, nil
	}
	return append(json.RawMessage(nil), e.trace...), true, nil
}

// Put implements Cache.
func (m *MemoryCache) Put(_ context.Context, chain, hash string, trace json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey{chain, hash}] = memEntry{
		trace:  append(json.RawMessage(nil), trace...),
		stored: m.now(),
	}
	return nil
}

// Len returns the number of cached traces.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
