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

// Package config loads the YAML configuration file of an attest
// installation.
//
// Load overlays the file on Default, so a file only needs the settings it
// changes:
//
//	ai:
//	  chat_model: gpt-4o-mini
//	retrieval:
//	  source_timeout: 1500ms
//	sources:
//	  encyclopedia:
//	    enabled: true
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/ai/hugot"
	"github.com/poiesic/attest/pipeline"
	"github.com/poiesic/attest/retrieval"
	"github.com/poiesic/attest/sources/encyclopedia"
	"github.com/poiesic/attest/sources/graph"
	"github.com/poiesic/attest/sources/postgres"
	"github.com/poiesic/attest/verify"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// AI providers and embedders.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	EmbedderProvider = "provider"
	EmbedderHugot    = "hugot"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheBadger = "badger"
	CacheNone   = "none"
)

// File is the configuration file.
type File struct {
	// DataDir holds the document store, vector collection and keyword index.
	DataDir string `yaml:"data_dir"`

	// InMemory keeps every store in memory. Nothing survives Close.
	InMemory bool `yaml:"in_memory"`

	AI           AI              `yaml:"ai"`
	Retrieval    Retrieval       `yaml:"retrieval"`
	Verification Verification    `yaml:"verification"`
	Pipeline     pipeline.Config `yaml:"pipeline"`
	Cache        Cache           `yaml:"cache"`
	Sources      Sources         `yaml:"sources"`
}

// AI selects the model services.
type AI struct {
	Provider       string  `yaml:"provider"`
	Embedder       string  `yaml:"embedder"`
	EmbeddingHost  string  `yaml:"embedding_host"`
	ChatHost       string  `yaml:"chat_host"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	APIKey         string  `yaml:"api_key"`
	Temperature    float64 `yaml:"temperature"`
	MinImportance  int     `yaml:"min_importance"`

	// HugotModel and HugotModelDir locate the local embedding model used
	// when Embedder is "hugot".
	HugotModel    string `yaml:"hugot_model"`
	HugotModelDir string `yaml:"hugot_model_dir"`
}

// Retrieval tunes the hybrid retrieval engine.
type Retrieval struct {
	Weights        retrieval.Weights `yaml:"weights"`
	LexicalCeiling float64           `yaml:"lexical_ceiling"`
	SourceTimeout  time.Duration     `yaml:"source_timeout"`
	PoolSize       int               `yaml:"pool_size"`
	Strategy       string            `yaml:"strategy"`
}

// Verification tunes the evidence verifier.
type Verification struct {
	Threshold         float64 `yaml:"threshold"`
	FallbackThreshold float64 `yaml:"fallback_threshold"`
	ChunkSize         int     `yaml:"chunk_size"`
	Concurrency       int     `yaml:"concurrency"`
	CacheSize         int     `yaml:"cache_size"`
}

// Cache selects where retrievals and answers are cached.
type Cache struct {
	Backend string `yaml:"backend"`
	Size    int    `yaml:"size"`
}

// Sources enables and configures the search backends.
type Sources struct {
	Vector       Toggle       `yaml:"vector"`
	Keyword      Toggle       `yaml:"keyword"`
	Graph        Graph        `yaml:"graph"`
	Encyclopedia Encyclopedia `yaml:"encyclopedia"`
	Postgres     Postgres     `yaml:"postgres"`
}

// Toggle enables a backend without further settings.
type Toggle struct {
	Enabled bool `yaml:"enabled"`
}

type Graph struct {
	Enabled bool `yaml:"enabled"`
	MaxHops int  `yaml:"max_hops"`
}

type Encyclopedia struct {
	Enabled   bool          `yaml:"enabled"`
	Endpoint  string        `yaml:"endpoint"`
	RateLimit float64       `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Postgres struct {
	Enabled    bool   `yaml:"enabled"`
	DSN        string `yaml:"dsn"`
	Table      string `yaml:"table"`
	Dimensions int    `yaml:"dimensions"`
}

// Default returns the built-in configuration: local OpenAI-compatible
// models, the embedded vector, keyword and graph sources, and an
// in-memory cache.
func Default() File {
	aiDefaults := ai.DefaultConfig()
	return File{
		DataDir: "attest-data",
		AI: AI{
			Provider:       ProviderOpenAI,
			Embedder:       EmbedderProvider,
			EmbeddingHost:  aiDefaults.EmbeddingHost,
			ChatHost:       aiDefaults.ChatHost,
			EmbeddingModel: aiDefaults.EmbeddingModel,
			ChatModel:      aiDefaults.ChatModel,
			APIKey:         aiDefaults.APIKey,
			Temperature:    aiDefaults.Temperature,
			MinImportance:  aiDefaults.MinImportance,
			HugotModel:     hugot.DefaultModel,
			HugotModelDir:  "models",
		},
		Retrieval: Retrieval{
			Weights:        retrieval.DefaultWeights(),
			LexicalCeiling: retrieval.DefaultLexicalCeiling,
			SourceTimeout:  retrieval.DefaultSourceTimeout,
			PoolSize:       retrieval.DefaultPoolSize,
			Strategy:       retrieval.StrategyWeighted,
		},
		Verification: Verification{
			Threshold:         verify.DefaultThreshold,
			FallbackThreshold: verify.DefaultFallbackThreshold,
			ChunkSize:         verify.DefaultChunkSize,
			Concurrency:       verify.DefaultConcurrency,
			CacheSize:         verify.DefaultCacheSize,
		},
		Pipeline: pipeline.DefaultConfig(),
		Cache: Cache{
			Backend: CacheMemory,
			Size:    1024,
		},
		Sources: Sources{
			Vector:  Toggle{Enabled: true},
			Keyword: Toggle{Enabled: true},
			Graph:   Graph{Enabled: true, MaxHops: graph.DefaultMaxHops},
			Encyclopedia: Encyclopedia{
				Endpoint:  encyclopedia.DefaultEndpoint,
				RateLimit: encyclopedia.DefaultRateLimit,
				Timeout:   10 * time.Second,
			},
			Postgres: Postgres{
				Table:      postgres.DefaultTable,
				Dimensions: 768,
			},
		},
	}
}

// Load reads the file at path over Default and validates the result.
// An empty path returns Default.
func Load(path string) (File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return File{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (f File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

// Validate rejects settings no component would accept.
func (f File) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...)
	}

	if !f.InMemory && f.DataDir == "" {
		return invalid("data_dir is required unless in_memory is set")
	}
	switch f.AI.Provider {
	case ProviderOpenAI, ProviderMock:
	default:
		return invalid("unknown ai provider %q", f.AI.Provider)
	}
	switch f.AI.Embedder {
	case EmbedderProvider, EmbedderHugot:
	default:
		return invalid("unknown embedder %q", f.AI.Embedder)
	}

	if err := f.Retrieval.Weights.Validate(); err != nil {
		return invalid("%v", err)
	}
	if f.Retrieval.LexicalCeiling <= 0 {
		return invalid("lexical_ceiling must be positive")
	}
	if f.Retrieval.SourceTimeout <= 0 {
		return invalid("source_timeout must be positive")
	}
	if f.Retrieval.PoolSize < 1 {
		return invalid("pool_size must be positive")
	}
	if _, err := retrieval.ParseStrategy(f.Retrieval.Strategy); err != nil {
		return invalid("%v", err)
	}

	for name, v := range map[string]float64{
		"threshold":          f.Verification.Threshold,
		"fallback_threshold": f.Verification.FallbackThreshold,
	} {
		if v < 0 || v > 1 {
			return invalid("verification %s must be within [0,1]", name)
		}
	}
	if f.Verification.ChunkSize < 1 || f.Verification.Concurrency < 1 || f.Verification.CacheSize < 0 {
		return invalid("verification chunk_size and concurrency must be positive")
	}

	if err := f.Pipeline.Validate(); err != nil {
		return err
	}
	if budget := f.Pipeline.Budgets.Retrieve; f.Retrieval.SourceTimeout+retrieval.DeadlineGrace >= budget {
		return invalid("source_timeout %s plus %s grace must be shorter than the retrieve budget %s",
			f.Retrieval.SourceTimeout, retrieval.DeadlineGrace, budget)
	}

	switch f.Cache.Backend {
	case CacheMemory, CacheBadger, CacheNone:
	default:
		return invalid("unknown cache backend %q", f.Cache.Backend)
	}

	if f.Sources.Graph.MaxHops < 0 {
		return invalid("graph max_hops cannot be negative")
	}
	if f.Sources.Postgres.Enabled {
		if f.Sources.Postgres.DSN == "" {
			return invalid("postgres dsn is required when postgres is enabled")
		}
		if f.Sources.Postgres.Dimensions < 1 {
			return invalid("postgres dimensions must be positive")
		}
	}
	if f.Sources.Encyclopedia.Enabled && f.Sources.Encyclopedia.Timeout <= 0 {
		return invalid("encyclopedia timeout must be positive")
	}
	return nil
}

// AIConfig returns the settings of the OpenAI-compatible provider.
func (a AI) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(a.EmbeddingHost),
		ai.WithChatHost(a.ChatHost),
		ai.WithEmbeddingModel(a.EmbeddingModel),
		ai.WithChatModel(a.ChatModel),
		ai.WithAPIKey(a.APIKey),
		ai.WithTemperature(a.Temperature),
		ai.WithMinImportance(a.MinImportance),
	)
}
