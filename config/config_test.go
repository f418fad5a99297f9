package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/attest/pipeline"
	"github.com/poiesic/attest/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, retrieval.DefaultWeights(), cfg.Retrieval.Weights)
	assert.Equal(t, 20.0, cfg.Retrieval.LexicalCeiling)
	assert.Equal(t, 0.75, cfg.Verification.Threshold)
	assert.Equal(t, pipeline.DefaultConfig(), cfg.Pipeline)
	assert.Less(t, cfg.Retrieval.SourceTimeout+retrieval.DeadlineGrace, cfg.Pipeline.Budgets.Retrieve)
	assert.True(t, cfg.Sources.Vector.Enabled)
	assert.False(t, cfg.Sources.Encyclopedia.Enabled)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/attest
ai:
  provider: mock
  chat_model: gpt-4o-mini
retrieval:
  source_timeout: 1500ms
  weights:
    lexical: 0.5
    vector: 0.3
    graph: 0.15
    auxiliary: 0.05
pipeline:
  budgets:
    verify: 2s
  cache_ttl: 1h
  default_sources: [keyword]
sources:
  encyclopedia:
    enabled: true
    rate_limit: 1
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/attest", cfg.DataDir)
	assert.Equal(t, ProviderMock, cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.ChatModel)
	assert.Equal(t, Default().AI.EmbeddingModel, cfg.AI.EmbeddingModel)
	assert.Equal(t, 1500*time.Millisecond, cfg.Retrieval.SourceTimeout)
	assert.Equal(t, 0.5, cfg.Retrieval.Weights.Lexical)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.Budgets.Verify)
	assert.Equal(t, pipeline.DefaultConfig().Budgets.Retrieve, cfg.Pipeline.Budgets.Retrieve)
	assert.Equal(t, time.Hour, cfg.Pipeline.CacheTTL)
	assert.Equal(t, []string{"keyword"}, cfg.Pipeline.DefaultSources)
	assert.True(t, cfg.Sources.Encyclopedia.Enabled)
	assert.Equal(t, 1.0, cfg.Sources.Encyclopedia.RateLimit)
	assert.Equal(t, Default().Sources.Encyclopedia.Endpoint, cfg.Sources.Encyclopedia.Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "retrieval: [not, a, map]"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(writeConfig(t, "retrieval:\n  source_timeout: soon\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = Load(writeConfig(t, "pipeline:\n  budgets:\n    total: -1s\n"))
	assert.ErrorIs(t, err, pipeline.ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*File)
	}{
		{"no data dir", func(f *File) { f.DataDir = "" }},
		{"unknown provider", func(f *File) { f.AI.Provider = "anthropic-direct" }},
		{"unknown embedder", func(f *File) { f.AI.Embedder = "bert" }},
		{"negative weight", func(f *File) { f.Retrieval.Weights.Graph = -0.1 }},
		{"zero ceiling", func(f *File) { f.Retrieval.LexicalCeiling = 0 }},
		{"zero timeout", func(f *File) { f.Retrieval.SourceTimeout = 0 }},
		{"source timeout reaches retrieve budget", func(f *File) {
			f.Retrieval.SourceTimeout = f.Pipeline.Budgets.Retrieve
		}},
		{"source timeout within grace of retrieve budget", func(f *File) {
			f.Retrieval.SourceTimeout = f.Pipeline.Budgets.Retrieve - retrieval.DeadlineGrace/2
		}},
		{"zero pool", func(f *File) { f.Retrieval.PoolSize = 0 }},
		{"unknown strategy", func(f *File) { f.Retrieval.Strategy = "borda" }},
		{"threshold above one", func(f *File) { f.Verification.Threshold = 1.2 }},
		{"negative fallback threshold", func(f *File) { f.Verification.FallbackThreshold = -0.2 }},
		{"zero chunk size", func(f *File) { f.Verification.ChunkSize = 0 }},
		{"unknown cache", func(f *File) { f.Cache.Backend = "redis" }},
		{"negative hops", func(f *File) { f.Sources.Graph.MaxHops = -1 }},
		{"postgres without dsn", func(f *File) { f.Sources.Postgres.Enabled = true }},
		{"encyclopedia without timeout", func(f *File) {
			f.Sources.Encyclopedia.Enabled = true
			f.Sources.Encyclopedia.Timeout = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	inMemory := Default()
	inMemory.DataDir = ""
	inMemory.InMemory = true
	assert.NoError(t, inMemory.Validate())
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Retrieval.SourceTimeout = 750 * time.Millisecond

	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "source_timeout: 750ms")

	loaded, err := Load(writeConfig(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestAIConfig(t *testing.T) {
	a := Default().AI
	a.ChatHost = "http://models.internal:8080"

	cfg := a.AIConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://models.internal:8080/v1", cfg.ChatHost)
	assert.Equal(t, a.ChatModel, cfg.ChatModel)
	assert.Equal(t, a.MinImportance, cfg.MinImportance)
}
