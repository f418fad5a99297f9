package storage

import (
	"context"
	"time"

	"github.com/poiesic/attest/core"
)

// DocumentRepository stores the canonical copy of every indexed document.
type DocumentRepository interface {
	// AddDocuments inserts or replaces documents keyed by ID.
	AddDocuments(ctx context.Context, docs ...*core.Document) error

	// GetDocument retrieves a single document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id string) (*core.Document, error)

	// GetDocuments retrieves multiple documents by their IDs.
	// Returns only the documents that exist, in the order requested.
	GetDocuments(ctx context.Context, ids ...string) ([]*core.Document, error)

	// CountDocuments returns the number of stored documents.
	CountDocuments(ctx context.Context) (int, error)

	// ForEachDocument calls fn with every stored document in ID order, in
	// batches of at most batchSize. Iteration stops at the first error fn
	// returns.
	ForEachDocument(ctx context.Context, batchSize int, fn func([]*core.Document) error) error
}

// GraphRepository stores the knowledge graph: entities, the edges between
// them, and which documents mention each entity.
type GraphRepository interface {
	// UpsertEntities adds entities that do not exist yet. Entity IDs are
	// derived from their normalized names; existing entities keep their type.
	// Returns the stored entities.
	UpsertEntities(ctx context.Context, entities ...*core.Entity) ([]*core.Entity, error)

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.Entity, error)

	// FindEntitiesByName returns the entities whose normalized name equals one
	// of names. Unknown names are ignored.
	FindEntitiesByName(ctx context.Context, names ...string) ([]*core.Entity, error)

	// AddEdges stores edges. Each edge is reachable from both endpoints.
	AddEdges(ctx context.Context, edges ...*core.Edge) error

	// Neighbors returns every edge touching id.
	Neighbors(ctx context.Context, id core.ID) ([]*core.Edge, error)

	// AddMentions records that the documents mention the entity.
	AddMentions(ctx context.Context, entityID core.ID, docIDs ...string) error

	// GetMentions returns the IDs of documents mentioning the entity.
	GetMentions(ctx context.Context, entityID core.ID) ([]string, error)
}

// Cache stores opaque values for a limited time. A miss is not an error.
type Cache interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl of zero stores without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
