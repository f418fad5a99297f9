package badger

import (
	"context"
	"testing"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphRepository_UpsertEntities(t *testing.T) {
	_, graph, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	stored, err := graph.UpsertEntities(ctx,
		&core.Entity{Name: "Marie Curie", Type: "Person"},
		&core.Entity{Name: "marie  curie", Type: "organization"},
	)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, stored[0].Id, stored[1].Id)
	assert.Equal(t, "person", stored[1].Type, "existing entities keep their type")
	assert.Equal(t, core.EntityID("Marie Curie"), stored[0].Id)

	got, err := graph.GetEntity(ctx, stored[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "Marie Curie", got.Name)
}

func TestGraphRepository_FindEntitiesByName(t *testing.T) {
	_, graph, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	_, err = graph.UpsertEntities(ctx,
		&core.Entity{Name: "Marie Curie"},
		&core.Entity{Name: "Pierre Curie"},
	)
	require.NoError(t, err)

	found, err := graph.FindEntitiesByName(ctx, "MARIE CURIE", "nobody", "marie curie", "Pierre Curie")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Marie Curie", found[0].Name)
	assert.Equal(t, "Pierre Curie", found[1].Name)
}

func TestGraphRepository_GetEntityNotFound(t *testing.T) {
	_, graph, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = graph.GetEntity(context.Background(), core.ID(42))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGraphRepository_EdgesAreBidirectional(t *testing.T) {
	_, graph, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	marie := core.EntityID("Marie Curie")
	pierre := core.EntityID("Pierre Curie")
	nobel := core.EntityID("Nobel Prize")

	require.NoError(t, graph.AddEdges(ctx,
		&core.Edge{From: marie, To: pierre, Predicate: "married", DocumentID: "d1"},
		&core.Edge{From: marie, To: nobel, Predicate: "won"},
		&core.Edge{From: marie, To: marie, Predicate: "self"},
	))

	fromMarie, err := graph.Neighbors(ctx, marie)
	require.NoError(t, err)
	assert.Len(t, fromMarie, 2)

	fromPierre, err := graph.Neighbors(ctx, pierre)
	require.NoError(t, err)
	require.Len(t, fromPierre, 1)
	assert.Equal(t, marie, fromPierre[0].Other(pierre))
	assert.Equal(t, "married", fromPierre[0].Predicate)
	assert.Equal(t, "d1", fromPierre[0].DocumentID)
}

func TestGraphRepository_Mentions(t *testing.T) {
	_, graph, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	id := core.EntityID("Radium")
	require.NoError(t, graph.AddMentions(ctx, id, "doc-b", "doc-a"))
	require.NoError(t, graph.AddMentions(ctx, id, "doc-a"))

	mentions, err := graph.GetMentions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-a", "doc-b"}, mentions)

	none, err := graph.GetMentions(ctx, core.EntityID("Polonium"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
