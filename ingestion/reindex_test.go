package ingestion

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/poiesic/attest/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReindexer_Validation(t *testing.T) {
	store, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ix := newIndexer(t, []Sink{&recordingSink{name: "a"}})

	_, err = NewReindexer(nil, ix, 10, nil)
	assert.ErrorIs(t, err, ErrDocumentsRequired)

	_, err = NewReindexer(store, nil, 10, nil)
	assert.Error(t, err)

	_, err = NewReindexer(store, ix, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidBatchSize)
}

func TestReindexer_ReplaysStore(t *testing.T) {
	store, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, store.AddDocuments(ctx, docs("c", "a", "b")...))

	sink := &recordingSink{name: "vector"}
	var out bytes.Buffer
	r, err := NewReindexer(store, newIndexer(t, []Sink{sink}), 2, &out)
	require.NoError(t, err)

	n, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"a", "b", "c"}, sink.indexed())
	assert.Equal(t, int32(2), sink.calls.Load())
	assert.Contains(t, out.String(), "Starting reindex of 3 documents (batch size: 2)")
	assert.Contains(t, out.String(), "Reindex complete. Processed 3 documents")
}

func TestReindexer_EmptyStore(t *testing.T) {
	store, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	sink := &recordingSink{name: "vector"}
	var out bytes.Buffer
	r, err := NewReindexer(store, newIndexer(t, []Sink{sink}), 10, &out)
	require.NoError(t, err)

	n, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, sink.calls.Load())
	assert.Equal(t, "No documents found in store (0 documents)\n", out.String())
}

func TestReindexer_StopsOnSinkFailure(t *testing.T) {
	store, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, store.AddDocuments(ctx, docs("a", "b")...))

	boom := errors.New("embedding service down")
	sink := &recordingSink{name: "vector", failures: 100, err: boom}
	r, err := NewReindexer(store, newIndexer(t, []Sink{sink}), 1, nil)
	require.NoError(t, err)

	n, err := r.Run(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, n)
	assert.Equal(t, int32(3), sink.calls.Load())
}
