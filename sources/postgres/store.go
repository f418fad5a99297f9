// Package postgres implements a semantic search source on PostgreSQL with
// the pgvector extension.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
)

const (
	DefaultID    = "postgres"
	DefaultTable = "attest_documents"
)

var (
	ErrEmbedderRequired  = errors.New("postgres store requires an embedder")
	ErrInvalidTable      = errors.New("invalid table name")
	ErrInvalidDimensions = errors.New("embedding dimensions must be positive")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Store keeps document embeddings in a pgvector column. It is both an
// ingestion sink and a sources.Adapter.
type Store struct {
	id         string
	db         *sql.DB
	embedder   ai.Embedder
	table      string
	dimensions int
	logger     *slog.Logger
}

var _ sources.Adapter = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithID sets the source id. Defaults to "postgres".
func WithID(id string) Option {
	return func(s *Store) { s.id = id }
}

// WithTable sets the document table name.
func WithTable(table string) Option {
	return func(s *Store) { s.table = table }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open connects to the database at dsn. dimensions is the embedding size
// of the column.
func Open(dsn string, embedder ai.Embedder, dimensions int, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s, err := New(db, embedder, dimensions, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, embedder ai.Embedder, dimensions int, opts ...Option) (*Store, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if dimensions <= 0 {
		return nil, ErrInvalidDimensions
	}
	s := &Store{
		id:         DefaultID,
		db:         db,
		embedder:   embedder,
		table:      DefaultTable,
		dimensions: dimensions,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !tableNamePattern.MatchString(s.table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, s.table)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "postgres-store", "source", s.id)
	return s, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
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

// Migrate creates the vector extension and the document table.
func (s *Store) Migrate(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			url TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			embedding vector(%d) NOT NULL
		)`, s.table, s.dimensions),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Index embeds and upserts documents in one transaction.
func (s *Store) Index(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}
		texts[i] = doc.Content
	}
	embeddings, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(embeddings) != len(docs) {
		return fmt.Errorf("%w: got %d embeddings for %d documents", ErrDimensionMismatch, len(embeddings), len(docs))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	upsert := fmt.Sprintf(`INSERT INTO %s (id, title, content, url, published_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			url = EXCLUDED.url,
			published_at = EXCLUDED.published_at,
			embedding = EXCLUDED.embedding,
			updated_at = now()`, s.table)

	for i, doc := range docs {
		if len(embeddings[i]) != s.dimensions {
			return fmt.Errorf("%w: document %s has %d, column has %d", ErrDimensionMismatch, doc.ID, len(embeddings[i]), s.dimensions)
		}
		var published sql.NullTime
		if !doc.Timestamp.IsZero() {
			published = sql.NullTime{Time: doc.Timestamp.UTC(), Valid: true}
		}
		_, err := tx.ExecContext(ctx, upsert,
			doc.ID, doc.Title, doc.Content, doc.URL, published, pgvector.NewVector(embeddings[i]))
		if err != nil {
			return fmt.Errorf("upsert document %s: %w", doc.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.logger.Debug("indexed documents", "count", len(docs))
	return nil
}

// Search returns the documents nearest to query by cosine distance. Raw
// scores are 1 - distance.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]*core.RawResult, error) {
	if limit <= 0 {
		return []*core.RawResult{}, nil
	}
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("%w: query has %d, column has %d", ErrDimensionMismatch, len(embedding), s.dimensions)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, title, content, url, published_at, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`, s.table), pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	results := []*core.RawResult{}
	for rows.Next() {
		var (
			r         core.RawResult
			published sql.NullTime
			distance  float64
		)
		if err := rows.Scan(&r.DocumentID, &r.Title, &r.Content, &r.URL, &published, &distance); err != nil {
			return nil, err
		}
		if published.Valid {
			r.Timestamp = published.Time.In(time.UTC)
		}
		r.SourceID = s.id
		r.RawScore = 1 - distance
		results = append(results, &r)
	}
	return results, rows.Err()
}
