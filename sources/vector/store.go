// Package vector implements a semantic search source on an embedded
// chromem-go collection.
package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
)

const (
	DefaultID         = "vector"
	defaultCollection = "documents"
	persistFileName   = "chromem.gob"

	metaTitle     = "title"
	metaURL       = "url"
	metaTimestamp = "timestamp"
)

// ErrEmbedderRequired indicates that no embedder was supplied.
var ErrEmbedderRequired = errors.New("vector store requires an embedder")

// Store is a chromem-go collection of document embeddings. It is both an
// ingestion sink and a sources.Adapter.
type Store struct {
	id         string
	db         *chromem.DB
	collection *chromem.Collection
	logger     *slog.Logger
}

var _ sources.Adapter = (*Store)(nil)

type options struct {
	id         string
	persistDir string
	collection string
	logger     *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithID sets the source id. Defaults to "vector".
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithPersistDir stores the collection in dir. Without it the store is
// memory-only.
func WithPersistDir(dir string) Option {
	return func(o *options) { o.persistDir = dir }
}

// WithCollection sets the collection name.
func WithCollection(name string) Option {
	return func(o *options) { o.collection = name }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewStore opens or creates the document collection.
func NewStore(embedder ai.Embedder, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	o := options{id: DefaultID, collection: defaultCollection}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	var db *chromem.DB
	if o.persistDir != "" {
		var err error
		db, err = chromem.NewPersistentDB(filepath.Join(o.persistDir, persistFileName), false)
		if err != nil {
			return nil, fmt.Errorf("create persistent DB: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedText(ctx, text)
	}
	collection, err := db.GetOrCreateCollection(o.collection, nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Store{
		id:         o.id,
		db:         db,
		collection: collection,
		logger:     o.logger.With("component", "vector-store", "source", o.id),
	}, nil
}

func (s *Store) ID() string {
	return s.id
}

func (s *Store) Kind() sources.Kind {
	return sources.KindVector
}

// Name identifies the store as an ingestion sink.
func (s *Store) Name() string {
	return s.id
}

// Index embeds and stores documents. Re-indexing an id replaces it.
func (s *Store) Index(ctx context.Context, docs []*core.Document) error {
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}
		err := s.collection.AddDocument(ctx, chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: documentMetadata(doc),
		})
		if err != nil {
			return fmt.Errorf("add document %s: %w", doc.ID, err)
		}
	}
	s.logger.Debug("indexed documents", "count", len(docs), "total", s.collection.Count())
	return nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Search returns the documents most similar to query. Raw scores are cosine
// similarities.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*core.RawResult, error) {
	n := min(limit, s.collection.Count())
	if n <= 0 || strings.TrimSpace(query) == "" {
		return []*core.RawResult{}, nil
	}

	results, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	out := make([]*core.RawResult, 0, len(results))
	for _, r := range results {
		raw := &core.RawResult{
			SourceID:   s.id,
			DocumentID: r.ID,
			RawScore:   float64(r.Similarity),
			Title:      r.Metadata[metaTitle],
			Content:    r.Content,
			URL:        r.Metadata[metaURL],
		}
		if ts, ok := r.Metadata[metaTimestamp]; ok {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				raw.Timestamp = t
			}
		}
		out = append(out, raw)
	}
	return out, nil
}

func documentMetadata(doc *core.Document) map[string]string {
	meta := make(map[string]string, 3)
	if doc.Title != "" {
		meta[metaTitle] = doc.Title
	}
	if doc.URL != "" {
		meta[metaURL] = doc.URL
	}
	if !doc.Timestamp.IsZero() {
		meta[metaTimestamp] = doc.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	return meta
}
