package store

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired entries are purged.
const DefaultCleanupInterval = 10 * time.Second

// Memory is an in-process store backed by go-cache.
type Memory struct {
	cache *cache.Cache
	// serialises read-modify-write of fragment sets
	fragMu sync.Mutex
}

// NewMemory creates an empty in-memory store.
func NewMemory(cleanup time.Duration) *Memory {
	if cleanup <= 0 {
		cleanup = DefaultCleanupInterval
	}
	return &Memory{cache: cache.New(cache.NoExpiration, cleanup)}
}

// Seen uses cache.Add, which fails when an unexpired item exists.
func (m *Memory) Seen(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if err := m.cache.Add(key, struct{}{}, ttl); err != nil {
		return true, nil
	}
	return false, nil
}

// AddFragment stores value as part num of key and refreshes the expiry.
func (m *Memory) AddFragment(_ context.Context, key string, num int, value string, ttl time.Duration) (map[int]string, error) {
	m.fragMu.Lock()
	defer m.fragMu.Unlock()

	parts := make(map[int]string)
	if v, found := m.cache.Get(key); found {
		if held, ok := v.(map[int]string); ok {
			for k, p := range held {
				parts[k] = p
			}
		}
	}
	parts[num] = value
	m.cache.Set(key, parts, ttl)

	out := make(map[int]string, len(parts))
	for k, p := range parts {
		out[k] = p
	}
	return out, nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

// Len returns the number of held entries, including expired ones not yet
// purged.
func (m *Memory) Len() int {
	return m.cache.ItemCount()
}

// Close flushes the cache.
func (m *Memory) Close() error {
	m.cache.Flush()
	return nil
}
