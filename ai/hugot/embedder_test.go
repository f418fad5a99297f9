package hugot

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping hugot embedder test in short mode (requires model download)")
	}
	if os.Getenv("ATTEST_HUGOT_MODELS") == "" {
		t.Skip("ATTEST_HUGOT_MODELS not set")
	}

	embedder, err := NewEmbedder(DefaultModel, os.Getenv("ATTEST_HUGOT_MODELS"))
	require.NoError(t, err)
	defer embedder.(io.Closer).Close()

	ctx := context.Background()
	vec, err := embedder.EmbedText(ctx, "This is a test sentence.")
	require.NoError(t, err)
	assert.Equal(t, 384, len(vec), "all-MiniLM-L6-v2 produces 384-dimensional embeddings")

	batch, err := embedder.EmbedTexts(ctx, []string{"first", "second"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	empty, err := embedder.EmbedTexts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPrepareModelUsesExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(dir+"/org_model", 0755))

	path, err := PrepareModel("org/model", dir)
	require.NoError(t, err)
	assert.Equal(t, dir+"/org_model", path)
}
