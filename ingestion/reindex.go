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
	"fmt"
	"io"
	"time"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
)

// Reindexer replays every stored document through an Indexer. Run it after
// changing the embedding model or enabling a backend so the derived indexes
// match the canonical store again.
type Reindexer struct {
	docs      storage.DocumentRepository
	indexer   *Indexer
	batchSize int
	progress  io.Writer
}

// NewReindexer creates a Reindexer.
// progress: where to write status lines (typically os.Stderr)
func NewReindexer(docs storage.DocumentRepository, indexer *Indexer, batchSize int, progress io.Writer) (*Reindexer, error) {
	if docs == nil {
		return nil, ErrDocumentsRequired
	}
	if indexer == nil {
		return nil, fmt.Errorf("indexer required")
	}
	if batchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Reindexer{docs: docs, indexer: indexer, batchSize: batchSize, progress: progress}, nil
}

// Run reindexes the whole store and returns the number of documents
// processed. It stops at the first batch a sink still rejects after its
// retries.
func (r *Reindexer) Run(ctx context.Context) (int, error) {
	total, err := r.docs.CountDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No documents found in store (0 documents)\n")
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reindex of %d documents (batch size: %d)\n", total, r.batchSize)
	start := time.Now()

	processed := 0
	err = r.docs.ForEachDocument(ctx, r.batchSize, func(batch []*core.Document) error {
		if err := r.indexer.Index(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		processed += len(batch)
		return nil
	})
	if err != nil {
		return processed, err
	}
	if r.indexer.progress != nil {
		r.indexer.progress.Finish()
	}

	elapsed := time.Since(start)
	fmt.Fprintf(r.progress, "Reindex complete. Processed %d documents in %v (%.1f docs/sec)\n",
		processed, elapsed.Round(time.Millisecond), float64(processed)/max(elapsed.Seconds(), 1e-9))
	return processed, nil
}
