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

// Package attest answers questions from a document collection with
// verified, cited answers.
//
// Open wires the whole system from a configuration: the document store and
// knowledge graph on BadgerDB, the embedded vector and keyword sources,
// optional encyclopedia and postgres sources, the AI provider, the
// retrieval engine, the verifier and the answer pipeline.
//
//	sys, err := attest.Open("attest-data")
//	if err != nil { ... }
//	defer sys.Close()
//
//	_ = sys.Index(ctx, docs)
//	resp, err := sys.Ask(ctx, "Who discovered radium?")
package attest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/ai/hugot"
	aimock "github.com/poiesic/attest/ai/mock"
	"github.com/poiesic/attest/ai/openai"
	"github.com/poiesic/attest/classify"
	"github.com/poiesic/attest/config"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/ingestion"
	"github.com/poiesic/attest/pipeline"
	"github.com/poiesic/attest/retrieval"
	"github.com/poiesic/attest/sources"
	"github.com/poiesic/attest/sources/encyclopedia"
	"github.com/poiesic/attest/sources/graph"
	"github.com/poiesic/attest/sources/keyword"
	"github.com/poiesic/attest/sources/postgres"
	"github.com/poiesic/attest/sources/vector"
	"github.com/poiesic/attest/storage"
	"github.com/poiesic/attest/storage/badger"
	"github.com/poiesic/attest/storage/lru"
	"github.com/poiesic/attest/verify"
	"go.opentelemetry.io/otel/trace"
)

const migrateTimeout = 30 * time.Second

// System is an opened attest installation.
type System struct {
	cfg          config.File
	backend      *badger.Backend
	docs         storage.DocumentRepository
	provider     ai.AIProvider
	registry     *sources.Registry
	engine       *retrieval.Engine
	orchestrator *pipeline.Orchestrator
	indexer      *ingestion.Indexer
	closers      []func() error
	logger       *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	cfg            config.File
	inMemory       bool
	provider       ai.AIProvider
	embedder       ai.Embedder
	extra          []sources.Adapter
	metrics        pipeline.Metrics
	cache          storage.Cache
	tracerProvider trace.TracerProvider
	indexOpts      []ingestion.Option
	logger         *slog.Logger
}

// WithConfig replaces the default configuration.
func WithConfig(cfg config.File) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithInMemory keeps every store in memory.
func WithInMemory() Option {
	return func(o *options) { o.inMemory = true }
}

// WithAIProvider uses provider instead of the one the configuration
// selects. The caller keeps ownership of it.
func WithAIProvider(provider ai.AIProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithEmbedder overrides the provider's embedder for indexing,
// retrieval and verification.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) { o.embedder = embedder }
}

// WithSources registers additional source adapters. Adapters that also
// implement ingestion.Sink receive indexed documents.
func WithSources(adapters ...sources.Adapter) Option {
	return func(o *options) { o.extra = append(o.extra, adapters...) }
}

// WithMetrics sets the pipeline metrics sink.
func WithMetrics(m pipeline.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithCache overrides the configured cache.
func WithCache(c storage.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithIndexOptions passes options to the indexer.
func WithIndexOptions(opts ...ingestion.Option) Option {
	return func(o *options) { o.indexOpts = append(o.indexOpts, opts...) }
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Open opens or creates the installation in dataDir. An empty dataDir
// keeps the configured one.
func Open(dataDir string, opts ...Option) (_ *System, err error) {
	o := &options{cfg: config.Default()}
	for _, opt := range opts {
		opt(o)
	}
	cfg := o.cfg
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if o.inMemory {
		cfg.InMemory = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &System{cfg: cfg, logger: logger.With("component", "attest")}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	s.provider = o.provider
	if s.provider == nil {
		if s.provider, err = NewProvider(cfg.AI); err != nil {
			return nil, err
		}
		s.closers = append(s.closers, s.provider.Close)
	}
	embedder := o.embedder
	if embedder == nil {
		if embedder, err = s.newEmbedder(cfg.AI); err != nil {
			return nil, err
		}
	}

	s.backend, err = badger.OpenBackendWithLogger(s.path("badger"), cfg.InMemory, logger)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, s.backend.Close)
	s.docs = badger.NewDocumentRepository(s.backend)
	graphRepo := badger.NewGraphRepository(s.backend)

	adapters, sinks, err := s.openSources(cfg, embedder, graphRepo, logger)
	if err != nil {
		return nil, err
	}
	builder, err := ingestion.NewGraphBuilder(s.docs, graphRepo,
		ingestion.WithExtractor(s.provider.EntityExtractor()),
		ingestion.WithMinImportance(cfg.AI.MinImportance),
		ingestion.WithGraphLogger(logger))
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, builder)
	for _, a := range o.extra {
		adapters = append(adapters, a)
		if sink, ok := a.(ingestion.Sink); ok {
			sinks = append(sinks, sink)
		}
	}

	if s.registry, err = sources.NewRegistry(adapters...); err != nil {
		return nil, err
	}
	strategy, err := retrieval.ParseStrategy(cfg.Retrieval.Strategy)
	if err != nil {
		return nil, err
	}
	s.engine, err = retrieval.NewEngine(s.registry,
		retrieval.WithWeights(cfg.Retrieval.Weights),
		retrieval.WithLexicalCeiling(cfg.Retrieval.LexicalCeiling),
		retrieval.WithSourceTimeout(cfg.Retrieval.SourceTimeout),
		retrieval.WithPoolSize(cfg.Retrieval.PoolSize),
		retrieval.WithStrategy(strategy),
		retrieval.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	verifier, err := verify.NewVerifier(
		verify.WithEmbedder(embedder),
		verify.WithThreshold(cfg.Verification.Threshold),
		verify.WithFallbackThreshold(cfg.Verification.FallbackThreshold),
		verify.WithChunkSize(cfg.Verification.ChunkSize),
		verify.WithConcurrency(cfg.Verification.Concurrency),
		verify.WithCacheSize(cfg.Verification.CacheSize),
		verify.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	cache := o.cache
	if cache == nil {
		if cache, err = s.newCache(cfg.Cache); err != nil {
			return nil, err
		}
	}
	s.orchestrator, err = pipeline.New(classify.New(), s.engine, verifier, s.provider.Synthesizer(),
		pipeline.WithConfig(cfg.Pipeline),
		pipeline.WithCache(cache),
		pipeline.WithMetrics(o.metrics),
		pipeline.WithTracerProvider(o.tracerProvider),
		pipeline.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	indexOpts := append([]ingestion.Option{ingestion.WithLogger(logger)}, o.indexOpts...)
	if s.indexer, err = ingestion.NewIndexer(sinks, indexOpts...); err != nil {
		return nil, err
	}

	s.logger.Info("attest opened",
		"data_dir", cfg.DataDir,
		"in_memory", cfg.InMemory,
		"sources", s.registry.IDs(),
		"sinks", len(sinks))
	return s, nil
}

// NewProvider creates the AI provider cfg selects.
func NewProvider(cfg config.AI) (ai.AIProvider, error) {
	if cfg.Provider == config.ProviderMock {
		return aimock.NewMockProvider(), nil
	}
	return openai.NewProvider(cfg.AIConfig())
}

func (s *System) newEmbedder(cfg config.AI) (ai.Embedder, error) {
	if cfg.Embedder != config.EmbedderHugot {
		return s.provider.Embedder(), nil
	}
	embedder, err := hugot.NewEmbedder(cfg.HugotModel, cfg.HugotModelDir)
	if err != nil {
		return nil, fmt.Errorf("local embedder: %w", err)
	}
	if c, ok := embedder.(io.Closer); ok {
		s.closers = append(s.closers, c.Close)
	}
	return embedder, nil
}

func (s *System) newCache(cfg config.Cache) (storage.Cache, error) {
	switch cfg.Backend {
	case config.CacheBadger:
		return badger.NewCache(s.backend), nil
	case config.CacheNone:
		return nil, nil
	default:
		return lru.New(cfg.Size)
	}
}

// openSources creates the enabled backends. Each is a search source and,
// except for the encyclopedia and the graph (fed by the graph builder),
// an indexing sink.
func (s *System) openSources(cfg config.File, embedder ai.Embedder, graphRepo storage.GraphRepository, logger *slog.Logger) ([]sources.Adapter, []ingestion.Sink, error) {
	var (
		adapters []sources.Adapter
		sinks    []ingestion.Sink
	)

	if cfg.Sources.Vector.Enabled {
		opts := []vector.Option{vector.WithLogger(logger)}
		if !cfg.InMemory {
			opts = append(opts, vector.WithPersistDir(s.path("vector")))
		}
		store, err := vector.NewStore(embedder, opts...)
		if err != nil {
			return nil, nil, err
		}
		adapters = append(adapters, store)
		sinks = append(sinks, store)
	}

	if cfg.Sources.Keyword.Enabled {
		path := keyword.MemoryPath
		if !cfg.InMemory {
			path = s.path("keyword.db")
		}
		idx, err := keyword.Open(path, keyword.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, idx.Close)
		adapters = append(adapters, idx)
		sinks = append(sinks, idx)
	}

	if cfg.Sources.Graph.Enabled {
		src, err := graph.NewSource(graphRepo, s.docs,
			graph.WithMaxHops(cfg.Sources.Graph.MaxHops),
			graph.WithExtractor(s.provider.EntityExtractor()),
			graph.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		adapters = append(adapters, src)
	}

	if enc := cfg.Sources.Encyclopedia; enc.Enabled {
		client, err := encyclopedia.NewClient(enc.Endpoint,
			encyclopedia.WithRateLimit(enc.RateLimit),
			encyclopedia.WithHTTPClient(&http.Client{Timeout: enc.Timeout}),
			encyclopedia.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		adapters = append(adapters, client)
	}

	if pg := cfg.Sources.Postgres; pg.Enabled {
		store, err := postgres.Open(pg.DSN, embedder, pg.Dimensions,
			postgres.WithTable(pg.Table),
			postgres.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		s.closers = append(s.closers, store.Close)
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()
		if err := store.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		adapters = append(adapters, store)
		sinks = append(sinks, store)
	}

	return adapters, sinks, nil
}

func (s *System) path(name string) string {
	return filepath.Join(s.cfg.DataDir, name)
}

// Ask answers a question with the default query settings.
func (s *System) Ask(ctx context.Context, text string) (*core.FinalResponse, error) {
	q, err := core.NewQuery(text)
	if err != nil {
		return nil, err
	}
	return s.orchestrator.Process(ctx, q)
}

// Process answers q. Only an invalid query is an error; degraded runs are
// reported through the response status and warnings.
func (s *System) Process(ctx context.Context, q core.Query) (*core.FinalResponse, error) {
	return s.orchestrator.Process(ctx, q)
}

// Index adds documents to every backend.
func (s *System) Index(ctx context.Context, docs []*core.Document) error {
	return s.indexer.Index(ctx, docs)
}

// Reindex replays the document store through every backend and returns
// the number of documents processed. Status lines go to progress.
func (s *System) Reindex(ctx context.Context, batchSize int, progress io.Writer) (int, error) {
	r, err := ingestion.NewReindexer(s.docs, s.indexer, batchSize, progress)
	if err != nil {
		return 0, err
	}
	return r.Run(ctx)
}

// Indexer returns the indexer feeding every backend.
func (s *System) Indexer() *ingestion.Indexer {
	return s.indexer
}

// Orchestrator returns the answer pipeline.
func (s *System) Orchestrator() *pipeline.Orchestrator {
	return s.orchestrator
}

// Registry returns the registered sources.
func (s *System) Registry() *sources.Registry {
	return s.registry
}

// Documents returns the canonical document store.
func (s *System) Documents() storage.DocumentRepository {
	return s.docs
}

// Config returns the effective configuration.
func (s *System) Config() config.File {
	return s.cfg
}

// Close releases every resource Open acquired, in reverse order. It is
// safe to call more than once.
func (s *System) Close() error {
	if s.indexer != nil {
		s.indexer.Release()
		s.indexer = nil
	}
	if s.engine != nil {
		s.engine.Close()
		s.engine = nil
	}
	var errs []error
	for _, c := range slices.Backward(s.closers) {
		if err := c(); err != nil {
			s.logger.Error("error closing resource", "err", err)
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
