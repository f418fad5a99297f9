package keyword

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func corpus() []*core.Document {
	return []*core.Document{
		{
			ID:        "sky",
			Title:     "Rayleigh scattering",
			Content:   "The sky appears blue due to Rayleigh scattering of sunlight in the atmosphere.",
			URL:       "https://example.org/sky",
			Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
		{ID: "ocean", Title: "Ocean", Content: "The ocean looks blue because water absorbs red light."},
		{ID: "go", Title: "Go", Content: "Go is a compiled programming language with goroutines."},
	}
}

func TestMatchExpression(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Why is the sky blue?", `"why" OR "is" OR "the" OR "sky" OR "blue"`},
		{`title:"drop" AND NOT x*`, `"title" OR "drop" OR "and" OR "not"`},
		{"a ! ?", ""},
		{"blue Blue BLUE", `"blue"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchExpression(tt.input))
		})
	}
}

func TestIndex_SearchRanksByBM25(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, corpus()))

	results, err := idx.Search(ctx, "rayleigh scattering sky", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, "sky", top.DocumentID)
	assert.Equal(t, DefaultID, top.SourceID)
	assert.Equal(t, "https://example.org/sky", top.URL)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), top.Timestamp)
	assert.Greater(t, top.RawScore, 0.0)
	assert.Equal(t, sources.KindLexical, idx.Kind())
}

func TestIndex_SearchStemsTerms(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, corpus()))

	results, err := idx.Search(ctx, "absorbing", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ocean", results[0].DocumentID)
}

func TestIndex_SearchNoMatch(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, corpus()))

	results, err := idx.Search(ctx, "quantum chromodynamics", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(ctx, "?!", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_Upsert(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*core.Document{{ID: "a", Content: "old words"}}))
	require.NoError(t, idx.Index(ctx, []*core.Document{{ID: "a", Content: "new words"}}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := idx.Search(ctx, "old", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_Limit(t *testing.T) {
	idx := openTestIndex(t)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, corpus()))

	results, err := idx.Search(ctx, "blue", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "index.db")
	idx, err := Open(path, WithID("fts"))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, idx.Index(ctx, corpus()))
	require.NoError(t, idx.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
