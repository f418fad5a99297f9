package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRepository_AddAndGet(t *testing.T) {
	docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	doc := &core.Document{
		ID:        "curie-1",
		Title:     "Marie Curie",
		Content:   "Marie Curie discovered polonium and radium.",
		Timestamp: time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC),
		Entities:  []string{"Marie Curie"},
	}
	require.NoError(t, docs.AddDocuments(ctx, doc))

	got, err := docs.GetDocument(ctx, "curie-1")
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	count, err := docs.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocumentRepository_Replace(t *testing.T) {
	docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, docs.AddDocuments(ctx, &core.Document{ID: "a", Content: "first"}))
	require.NoError(t, docs.AddDocuments(ctx, &core.Document{ID: "a", Content: "second"}))

	got, err := docs.GetDocument(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Content)

	count, err := docs.CountDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocumentRepository_NotFound(t *testing.T) {
	docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = docs.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentRepository_GetDocumentsSkipsMissing(t *testing.T) {
	docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, docs.AddDocuments(ctx,
		&core.Document{ID: "a", Content: "alpha"},
		&core.Document{ID: "b", Content: "beta"},
	))

	got, err := docs.GetDocuments(ctx, "b", "missing", "a")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestDocumentRepository_RejectsInvalid(t *testing.T) {
	docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	err = docs.AddDocuments(context.Background(), &core.Document{ID: "", Content: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)

	count, err := docs.CountDocuments(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDocumentRepository_ForEachDocument(t *testing.T) {
	docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	for _, id := range []string{"c", "a", "e", "b", "d"} {
		require.NoError(t, docs.AddDocuments(ctx, &core.Document{ID: id, Content: "content " + id}))
	}

	var batches [][]string
	err = docs.ForEachDocument(ctx, 2, func(batch []*core.Document) error {
		ids := make([]string, len(batch))
		for i, doc := range batch {
			ids[i] = doc.ID
		}
		batches = append(batches, ids)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, batches)
}

func TestDocumentRepository_ForEachDocumentWritesDuringIteration(t *testing.T) {
	docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, docs.AddDocuments(ctx,
		&core.Document{ID: "a", Content: "one"},
		&core.Document{ID: "b", Content: "two"}))

	seen := 0
	err = docs.ForEachDocument(ctx, 1, func(batch []*core.Document) error {
		seen += len(batch)
		return docs.AddDocuments(ctx, batch...)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, seen)
}

func TestDocumentRepository_ForEachDocumentStopsOnError(t *testing.T) {
	docs, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, docs.AddDocuments(ctx,
		&core.Document{ID: "a", Content: "one"},
		&core.Document{ID: "b", Content: "two"}))

	boom := errors.New("boom")
	calls := 0
	err = docs.ForEachDocument(ctx, 1, func([]*core.Document) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	assert.Error(t, docs.ForEachDocument(ctx, 0, func([]*core.Document) error { return nil }))
}
