package vector

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/attest/ai/mock"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() []*core.Document {
	return []*core.Document{
		{
			ID:        "sky",
			Title:     "Sky colour",
			Content:   "The sky appears blue due to Rayleigh scattering of sunlight.",
			URL:       "https://example.org/sky",
			Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		{ID: "go", Title: "Go", Content: "Go is a statically typed compiled programming language."},
		{ID: "curie", Title: "Curie", Content: "Marie Curie discovered radium and polonium."},
	}
}

func TestNewStore_RequiresEmbedder(t *testing.T) {
	_, err := NewStore(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestStore_SearchEmpty(t *testing.T) {
	store, err := NewStore(mock.NewMockEmbedder())
	require.NoError(t, err)

	results, err := store.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, sources.KindVector, store.Kind())
	assert.Equal(t, DefaultID, store.ID())
}

func TestStore_IndexAndSearch(t *testing.T) {
	store, err := NewStore(mock.NewMockEmbedder(), WithID("vec"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, testDocs()))
	assert.Equal(t, 3, store.Count())

	results, err := store.Search(ctx, "why is the sky blue", 10)
	require.NoError(t, err)
	require.Len(t, results, 3, "limit is clamped to the collection size")

	top := results[0]
	assert.Equal(t, "sky", top.DocumentID)
	assert.Equal(t, "vec", top.SourceID)
	assert.Equal(t, "Sky colour", top.Title)
	assert.Equal(t, "https://example.org/sky", top.URL)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), top.Timestamp)
	assert.Greater(t, top.RawScore, results[1].RawScore)
}

func TestStore_ReindexReplaces(t *testing.T) {
	store, err := NewStore(mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, []*core.Document{{ID: "a", Content: "first version"}}))
	require.NoError(t, store.Index(ctx, []*core.Document{{ID: "a", Content: "second version"}}))
	assert.Equal(t, 1, store.Count())

	results, err := store.Search(ctx, "version", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second version", results[0].Content)
}

func TestStore_IndexRejectsInvalid(t *testing.T) {
	store, err := NewStore(mock.NewMockEmbedder())
	require.NoError(t, err)

	err = store.Index(context.Background(), []*core.Document{{ID: "a"}})
	assert.ErrorIs(t, err, core.ErrInvalidDocument)
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(mock.NewMockEmbedder(), WithPersistDir(dir))
	require.NoError(t, err)
	require.NoError(t, store.Index(ctx, testDocs()))

	reopened, err := NewStore(mock.NewMockEmbedder(), WithPersistDir(dir))
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Count())
}
