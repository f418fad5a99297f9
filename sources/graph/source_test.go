package graph

import (
	"context"
	"testing"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/ai/mock"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
	"github.com/poiesic/attest/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedGraph builds: curie-bio mentions Marie Curie and Pierre Curie;
// radium-doc mentions Radium; sorbonne-doc mentions Sorbonne.
// Marie Curie -discovered-> Radium -studied_at-> Sorbonne.
func seedGraph(t *testing.T) (storage.GraphRepository, storage.DocumentRepository) {
	t.Helper()
	docs, graph, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	ctx := context.Background()
	require.NoError(t, docs.AddDocuments(ctx,
		&core.Document{ID: "curie-bio", Title: "Curie biography", Content: "Marie and Pierre Curie worked together."},
		&core.Document{ID: "radium-doc", Title: "Radium", Content: "Radium is a radioactive element."},
		&core.Document{ID: "sorbonne-doc", Title: "Sorbonne", Content: "The Sorbonne is a university in Paris."},
	))

	_, err = graph.UpsertEntities(ctx,
		&core.Entity{Name: "Marie Curie", Type: "person"},
		&core.Entity{Name: "Pierre Curie", Type: "person"},
		&core.Entity{Name: "Radium", Type: "element"},
		&core.Entity{Name: "Sorbonne", Type: "organization"},
	)
	require.NoError(t, err)

	marie := core.EntityID("Marie Curie")
	pierre := core.EntityID("Pierre Curie")
	radium := core.EntityID("Radium")
	sorbonne := core.EntityID("Sorbonne")
	require.NoError(t, graph.AddMentions(ctx, marie, "curie-bio"))
	require.NoError(t, graph.AddMentions(ctx, pierre, "curie-bio"))
	require.NoError(t, graph.AddMentions(ctx, radium, "radium-doc"))
	require.NoError(t, graph.AddMentions(ctx, sorbonne, "sorbonne-doc"))
	require.NoError(t, graph.AddEdges(ctx,
		&core.Edge{From: marie, To: radium, Predicate: "discovered"},
		&core.Edge{From: radium, To: sorbonne, Predicate: "studied_at"},
	))
	return graph, docs
}

func TestQueryGrams(t *testing.T) {
	grams := QueryGrams("Who is Marie Curie?", 2)
	assert.Equal(t, []string{"who is", "is marie", "marie curie", "who", "is", "marie", "curie"}, grams)
	assert.Empty(t, QueryGrams("?!", 4))
}

func TestNewSource_RequiresRepositories(t *testing.T) {
	graph, docs := seedGraph(t)

	_, err := NewSource(nil, docs)
	assert.ErrorIs(t, err, ErrGraphRequired)
	_, err = NewSource(graph, nil)
	assert.ErrorIs(t, err, ErrDocumentsRequired)
}

func TestSource_ScoresByHopDistance(t *testing.T) {
	graph, docs := seedGraph(t)
	src, err := NewSource(graph, docs)
	require.NoError(t, err)

	results, err := src.Search(context.Background(), "What did Marie Curie discover?", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "curie-bio", results[0].DocumentID)
	assert.InDelta(t, 1.0, results[0].RawScore, 1e-9)
	assert.Equal(t, "radium-doc", results[1].DocumentID)
	assert.InDelta(t, 0.5, results[1].RawScore, 1e-9)
	assert.Equal(t, "sorbonne-doc", results[2].DocumentID)
	assert.InDelta(t, 1.0/3, results[2].RawScore, 1e-9)
	assert.Equal(t, DefaultID, results[0].SourceID)
	assert.Equal(t, "Curie biography", results[0].Title)
}

func TestSource_MaxHops(t *testing.T) {
	graph, docs := seedGraph(t)
	src, err := NewSource(graph, docs, WithMaxHops(1))
	require.NoError(t, err)

	results, err := src.Search(context.Background(), "marie curie", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "radium-doc", results[1].DocumentID)
}

func TestSource_MultipleSeedsBonus(t *testing.T) {
	graph, docs := seedGraph(t)
	src, err := NewSource(graph, docs, WithMaxHops(0))
	require.NoError(t, err)

	results, err := src.Search(context.Background(), "relationship between Marie Curie and Pierre Curie", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "curie-bio", results[0].DocumentID)
	assert.InDelta(t, 1.0, results[0].RawScore, 1e-9, "bonus is clamped")
}

func TestSource_NoEntities(t *testing.T) {
	graph, docs := seedGraph(t)
	src, err := NewSource(graph, docs)
	require.NoError(t, err)

	results, err := src.Search(context.Background(), "how do tides work", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSource_Limit(t *testing.T) {
	graph, docs := seedGraph(t)
	src, err := NewSource(graph, docs)
	require.NoError(t, err)

	results, err := src.Search(context.Background(), "marie curie", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "curie-bio", results[0].DocumentID)
}

func TestSource_UsesExtractor(t *testing.T) {
	graph, docs := seedGraph(t)
	extractor := mock.NewMockEntityExtractor()
	extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return []ai.ExtractedEntity{{Name: "sorbonne", Type: "organization", Importance: 9}}, nil
	}
	src, err := NewSource(graph, docs, WithExtractor(extractor), WithMaxHops(0))
	require.NoError(t, err)

	results, err := src.Search(context.Background(), "that famous university", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sorbonne-doc", results[0].DocumentID)
	assert.Equal(t, 1, extractor.CallCount())
}

func TestSource_ExtractorFailureFallsBack(t *testing.T) {
	graph, docs := seedGraph(t)
	extractor := mock.NewMockEntityExtractor()
	extractor.ExtractEntitiesFunc = func(ctx context.Context, text string) ([]ai.ExtractedEntity, error) {
		return nil, assert.AnError
	}
	src, err := NewSource(graph, docs, WithExtractor(extractor), WithMaxHops(0))
	require.NoError(t, err)

	results, err := src.Search(context.Background(), "tell me about radium", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "radium-doc", results[0].DocumentID)
}
