// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package keyword implements a full-text search source on an SQLite FTS5
// index ranked with BM25.
package keyword

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	DefaultID = "keyword"

	// MemoryPath opens a private in-memory index.
	MemoryPath = ":memory:"
)

const schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
    doc_id UNINDEXED,
    title,
    content,
    url UNINDEXED,
    timestamp UNINDEXED,
    tokenize = 'porter unicode61'
);`

const searchQuery = `
SELECT doc_id, title, content, url, timestamp, bm25(documents_fts) AS score
FROM documents_fts
WHERE documents_fts MATCH ?
ORDER BY score
LIMIT ?;`

// ErrIndexClosed indicates use of a closed index.
var ErrIndexClosed = errors.New("keyword index is closed")

// Index is an FTS5 document index. It is both an ingestion sink and a
// sources.Adapter.
type Index struct {
	id     string
	db     *sql.DB
	logger *slog.Logger
}

var _ sources.Adapter = (*Index)(nil)

// Option configures an Index.
type Option func(*Index)

// WithID sets the source id. Defaults to "keyword".
func WithID(id string) Option {
	return func(idx *Index) { idx.id = id }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) { idx.logger = logger }
}

// Open opens or creates the index at path. Use MemoryPath for an in-memory
// index.
func Open(path string, opts ...Option) (*Index, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, and an in-memory database
	// exists per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if path != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	idx := &Index{id: DefaultID, db: db}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.logger == nil {
		idx.logger = slog.Default()
	}
	idx.logger = idx.logger.With("component", "keyword-index", "source", idx.id)
	return idx, nil
}

// Close closes the database.
func (idx *Index) Close() error {
	return idx.db.Close()
}

func (idx *Index) ID() string {
	return idx.id
}

func (idx *Index) Kind() sources.Kind {
	return sources.KindLexical
}

// Name identifies the index as an ingestion sink.
func (idx *Index) Name() string {
	return idx.id
}

// Index upserts documents in a single transaction.
func (idx *Index) Index(ctx context.Context, docs []*core.Document) error {
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return idx.wrap(err)
	}
	defer tx.Rollback()

	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE doc_id = ?`, doc.ID); err != nil {
			return fmt.Errorf("delete document %s: %w", doc.ID, err)
		}
		var ts string
		if !doc.Timestamp.IsZero() {
			ts = doc.Timestamp.UTC().Format(time.RFC3339Nano)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents_fts (doc_id, title, content, url, timestamp) VALUES (?, ?, ?, ?, ?)`,
			doc.ID, doc.Title, doc.Content, doc.URL, ts)
		if err != nil {
			return fmt.Errorf("insert document %s: %w", doc.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	idx.logger.Debug("indexed documents", "count", len(docs))
	return nil
}

// Count returns the number of indexed documents.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := idx.db.QueryRowContext(ctx, `SELECT count(*) FROM documents_fts`).Scan(&n)
	return n, idx.wrap(err)
}

// Search returns documents matching any term of query, best first. Raw
// scores are negated bm25 values, so higher is better.
func (idx *Index) Search(ctx context.Context, query string, limit int) ([]*core.RawResult, error) {
	match := MatchExpression(query)
	if match == "" || limit <= 0 {
		return []*core.RawResult{}, nil
	}

	rows, err := idx.db.QueryContext(ctx, searchQuery, match, limit)
	if err != nil {
		return nil, idx.wrap(err)
	}
	defer rows.Close()

	results := []*core.RawResult{}
	for rows.Next() {
		var (
			r     core.RawResult
			ts    string
			score float64
		)
		if err := rows.Scan(&r.DocumentID, &r.Title, &r.Content, &r.URL, &ts, &score); err != nil {
			return nil, err
		}
		if ts != "" {
			if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
				r.Timestamp = t
			}
		}
		r.SourceID = idx.id
		r.RawScore = -score
		results = append(results, &r)
	}
	return results, rows.Err()
}

// MatchExpression builds an FTS5 query matching any word of text. Every
// term is quoted so user input cannot inject FTS syntax.
func MatchExpression(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		terms = append(terms, `"`+w+`"`)
	}
	return strings.Join(terms, " OR ")
}

func (idx *Index) wrap(err error) error {
	if err != nil && strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %v", ErrIndexClosed, err)
	}
	return err
}
