package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/attest/storage"
)

// Cache implements storage.Cache on BadgerDB. Expiry is delegated to
// Badger's per-entry TTL.
type Cache struct {
	backend *Backend
}

var _ storage.Cache = (*Cache)(nil)

// NewCache creates a Cache sharing the given backend.
func NewCache(backend *Backend) *Cache {
	return &Cache{backend: backend}
}

// Get returns the value stored under key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.backend.View(ctx, func(tx *badger.Txn) error {
		item, err := tx.Get(makeCacheKey(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set stores value under key. A non-positive ttl stores without expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.backend.Update(ctx, func(tx *badger.Txn) error {
		entry := badger.NewEntry(makeCacheKey(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return tx.SetEntry(entry)
	})
}
