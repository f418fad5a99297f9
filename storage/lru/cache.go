// Package lru provides an in-process storage.Cache bounded by entry count.
package lru

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/poiesic/attest/storage"
)

const defaultCacheMaxSize = 512

type cacheEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// Cache implements storage.Cache with a fixed-size LRU. Expired entries are
// dropped lazily on read.
type Cache struct {
	entries *lru.Cache[string, cacheEntry]
	now     func() time.Time
}

var _ storage.Cache = (*Cache)(nil)

// New creates a Cache holding at most size entries. A non-positive size
// selects the default.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = defaultCacheMaxSize
	}
	entries, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries, now: time.Now}, nil
}

// Get returns the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.entries.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key. A non-positive ttl stores without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := cacheEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries.Add(key, entry)
	return nil
}

// Len reports the number of entries, including expired ones not yet
// evicted.
func (c *Cache) Len() int {
	return c.entries.Len()
}
