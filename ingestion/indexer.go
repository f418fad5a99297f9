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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/attest/core"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 200 * time.Millisecond
)

// Sink stores documents in one search backend. Index must be idempotent:
// a retried batch replaces what an earlier attempt wrote.
type Sink interface {
	Name() string
	Index(ctx context.Context, docs []*core.Document) error
}

// Indexer writes document batches to every sink.
type Indexer struct {
	sinks       []Sink
	pool        *ants.Pool
	maxAttempts int
	baseDelay   time.Duration
	progress    *ProgressTracker
	logger      *slog.Logger
}

// Option configures an Indexer.
type Option func(*Indexer) error

// WithPoolSize sets the number of sinks written concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(ix *Indexer) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if ix.pool != nil {
			ix.pool.Release()
		}
		ix.pool = pool
		return nil
	}
}

// WithRetry sets how often a failing sink call is attempted and the delay
// before the first retry.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(ix *Indexer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		ix.maxAttempts = maxAttempts
		ix.baseDelay = baseDelay
		return nil
	}
}

// WithProgress reports indexed document counts to w every interval
// documents.
func WithProgress(w io.Writer, interval int) Option {
	return func(ix *Indexer) error {
		if w != nil {
			ix.progress = NewProgressTracker(w, interval)
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) error {
		if logger == nil {
			logger = slog.Default()
		}
		ix.logger = logger
		return nil
	}
}

// NewIndexer creates an Indexer writing to sinks.
func NewIndexer(sinks []Sink, opts ...Option) (*Indexer, error) {
	if len(sinks) == 0 {
		return nil, ErrNoSinks
	}
	for _, s := range sinks {
		if s == nil {
			return nil, ErrNilSink
		}
	}

	pool, err := ants.NewPool(max(1, runtime.NumCPU()/2))
	if err != nil {
		return nil, err
	}
	ix := &Indexer{
		sinks:       append([]Sink(nil), sinks...),
		pool:        pool,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(ix); err != nil {
			ix.Release()
			return nil, err
		}
	}
	ix.logger = ix.logger.With("component", "indexer")
	return ix, nil
}

// Index validates docs and writes them to every sink concurrently. A sink
// that still fails after its retries does not stop the others; the
// returned error joins every sink failure.
func (ix *Indexer) Index(ctx context.Context, docs []*core.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return err
		}
	}

	start := time.Now()
	errs := make([]error, len(ix.sinks))
	var wg sync.WaitGroup
	for i, sink := range ix.sinks {
		wg.Add(1)
		submitErr := ix.pool.Submit(func() {
			defer wg.Done()
			errs[i] = ix.indexSink(ctx, sink, docs)
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("sink %s: %w", sink.Name(), submitErr)
		}
	}
	wg.Wait()

	err := errors.Join(errs...)
	if ix.progress != nil {
		ix.progress.Add(len(docs))
	}
	ix.logger.Debug("batch indexed",
		"documents", len(docs),
		"sinks", len(ix.sinks),
		"elapsed", time.Since(start),
		"err", err)
	return err
}

func (ix *Indexer) indexSink(ctx context.Context, sink Sink, docs []*core.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink %s panicked: %v", sink.Name(), r)
		}
	}()
	err = RetryWithBackoff(ctx, func(ctx context.Context) error {
		return sink.Index(ctx, docs)
	}, ix.maxAttempts, ix.baseDelay)
	if err != nil {
		ix.logger.Warn("sink failed", "sink", sink.Name(), "documents", len(docs), "err", err)
		return fmt.Errorf("sink %s: %w", sink.Name(), err)
	}
	return nil
}

// IndexAll reads a JSONL corpus from r and indexes it in batches of
// batchSize. It stops at the first malformed record or failed batch and
// returns the number of documents indexed before it.
func (ix *Indexer) IndexAll(ctx context.Context, r io.Reader, batchSize int) (int, error) {
	if batchSize <= 0 {
		return 0, ErrInvalidBatchSize
	}

	indexed := 0
	batch := make([]*core.Document, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ix.Index(ctx, batch); err != nil {
			return err
		}
		indexed += len(batch)
		batch = batch[:0]
		return nil
	}

	dec := NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		doc, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return indexed, err
		}
		batch = append(batch, doc)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return indexed, err
			}
		}
	}
	if err := flush(); err != nil {
		return indexed, err
	}
	if ix.progress != nil {
		ix.progress.Finish()
	}
	ix.logger.Info("corpus indexed", "documents", indexed)
	return indexed, nil
}

// Release releases the worker pool. The Indexer should not be used after
// calling Release.
func (ix *Indexer) Release() {
	if ix.pool != nil {
		ix.pool.Release()
	}
}
