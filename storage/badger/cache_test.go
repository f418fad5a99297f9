package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	cache := NewCache(backend)

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "k", []byte("value"), 0))
	got, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), got)
}

func TestCache_Expiry(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for ttl expiry")
	}
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	cache := NewCache(backend)

	require.NoError(t, cache.Set(ctx, "short", []byte("v"), 2*time.Second))
	_, ok, err := cache.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, ok)

	// Badger TTLs have one-second resolution.
	time.Sleep(3100 * time.Millisecond)
	_, ok, err = cache.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}
