package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is a response cache backend.
type Store interface {
	// Get returns ErrCacheMiss if the key is absent or expired.
	Get(ctx context.Context, key Key) (*Entry, error)

	// Set stores the entry until it expires. Expired entries are ignored.
	Set(ctx context.Context, key Key, entry *Entry) error
}
