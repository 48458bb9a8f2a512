package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process memory. Expired entries are purged
// every cleanup interval.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore creates an in-memory store. cleanup controls how often
// expired entries are purged.
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	if cleanup <= 0 {
		cleanup = DefaultTTL
	}
	return &MemoryStore{
		items: gocache.New(gocache.NoExpiration, cleanup),
	}
}

// Get retrieves a cache entry by key.
func (m *MemoryStore) Get(_ context.Context, key Key) (*Entry, error) {
	value, ok := m.items.Get(key.String())
	if !ok {
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}

	entry, ok := value.(*Entry)
	if !ok {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: unexpected type %T", ErrInvalidEntry, value)
	}
	if entry.IsExpired() {
		m.items.Delete(key.String())
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, ErrCacheMiss
	}

	CacheHits.WithLabelValues("memory").Inc()
	return entry, nil
}

// Set stores the entry until its Expires time.
func (m *MemoryStore) Set(_ context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	m.items.Set(key.String(), entry, ttl)
	return nil
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (m *MemoryStore) Len() int {
	return m.items.ItemCount()
}

// Flush removes all entries.
func (m *MemoryStore) Flush() {
	m.items.Flush()
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*RedisStore)(nil)

