package badger

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{backend: backend}
}

// AddDocuments inserts or replaces documents keyed by ID.
func (r *DocumentRepository) AddDocuments(ctx context.Context, docs ...*core.Document) error {
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}
	}
	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		for _, doc := range docs {
			if err := tx.Set(makeDocumentKey(doc.ID), storage.MarshalDocument(doc)); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDocument retrieves a single document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	return result, err
}

// GetDocuments retrieves multiple documents by their IDs.
func (r *DocumentRepository) GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error) {
	var result []*core.Document
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(id))
			if err != nil {
				return err
			}
			if doc != nil {
				result = append(result, doc)
			}
		}
		return nil
	})
	return result, err
}

// CountDocuments returns the number of stored documents.
func (r *DocumentRepository) CountDocuments(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.View(ctx, func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(documentPrefix), true, func(_, _ []byte) error {
			count++
			return nil
		})
	})
	return count, err
}

// ForEachDocument pages through the store, one read transaction per batch,
// so fn may write to the store.
func (r *DocumentRepository) ForEachDocument(ctx context.Context, batchSize int, fn func([]*core.Document) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	prefix := []byte(documentPrefix)
	var after []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		batch := make([]*core.Document, 0, batchSize)
		err := r.backend.View(ctx, func(tx *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			iter := tx.NewIterator(opts)
			defer iter.Close()

			if after == nil {
				iter.Rewind()
			} else {
				iter.Seek(after)
				if iter.Valid() && bytes.Equal(iter.Item().Key(), after) {
					iter.Next()
				}
			}
			for ; iter.Valid() && len(batch) < batchSize; iter.Next() {
				item := iter.Item()
				err := item.Value(func(val []byte) error {
					doc, err := storage.UnmarshalDocument(val)
					if err != nil {
						return err
					}
					batch = append(batch, doc)
					return nil
				})
				if err != nil {
					return err
				}
				after = item.KeyCopy(nil)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
	}
}

// readDocument reads a document, returning nil if the key is absent.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var err error
		doc, err = storage.UnmarshalDocument(val)
		return err
	})
	return doc, err
}
