package retrieval

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
)

const (
	DefaultSourceTimeout = 1800 * time.Millisecond
	DefaultPoolSize      = 32

	// DeadlineGrace is how long the barrier waits past a source deadline
	// for the adapter to report its own cancellation before it is marked
	// as timed out.
	DeadlineGrace = 25 * time.Millisecond

	// The barrier closes this long before the caller's deadline, or a
	// tenth of the remaining time if that is shorter, so the replies that
	// did arrive are fused and returned in time.
	deadlineMargin = 50 * time.Millisecond

	// Each source is asked for more hits than the caller wants so fusion
	// has candidates that only rank well in combination.
	perSourceFactor = 2
)

// Request describes one retrieval.
type Request struct {
	Query      core.Query
	SourceIDs  []string // Empty selects every registered source
	Strategy   Strategy // Nil selects the engine default
	MaxResults int      // Zero selects Query.MaxResults
}

// Engine fans a query out to source adapters and fuses their results.
type Engine struct {
	registry        *sources.Registry
	pool            *ants.Pool
	weights         Weights
	normalizer      Normalizer
	sourceTimeout   time.Duration
	defaultStrategy Strategy
	monitor         Monitor
	logger          *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithWeights sets the per-kind fusion weights.
func WithWeights(w Weights) Option {
	return func(e *Engine) error {
		if err := w.Validate(); err != nil {
			return err
		}
		e.weights = w
		return nil
	}
}

// WithLexicalCeiling sets the BM25 score that normalizes to 1.
func WithLexicalCeiling(ceiling float64) Option {
	return func(e *Engine) error {
		if ceiling <= 0 {
			return fmt.Errorf("%w: lexical ceiling must be positive", ErrInvalidRequest)
		}
		e.normalizer.LexicalCeiling = ceiling
		return nil
	}
}

// WithSourceTimeout bounds every adapter call. A deadline on the retrieval
// context shortens it further.
// Default is 1.8 seconds.
func WithSourceTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d <= 0 {
			d = DefaultSourceTimeout
		}
		e.sourceTimeout = d
		return nil
	}
}

// WithPoolSize sets the number of workers running adapter calls.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		if size < 1 {
			size = 1
		}
		if e.pool != nil {
			e.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		e.pool = pool
		return nil
	}
}

// WithStrategy sets the fusion strategy used when a request names none.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) error {
		if s != nil {
			e.defaultStrategy = s
		}
		return nil
	}
}

// WithMonitor installs retrieval hooks.
func WithMonitor(m Monitor) Option {
	return func(e *Engine) error {
		if m == nil {
			m = &noopMonitor{}
		}
		e.monitor = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates a retrieval engine over the adapters in registry.
func NewEngine(registry *sources.Registry, opts ...Option) (*Engine, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	e := &Engine{
		registry:        registry,
		weights:         DefaultWeights(),
		normalizer:      Normalizer{LexicalCeiling: DefaultLexicalCeiling},
		sourceTimeout:   DefaultSourceTimeout,
		defaultStrategy: WeightedFusion,
		monitor:         &noopMonitor{},
		logger:          slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.Close()
			return nil, err
		}
	}

	if e.pool == nil {
		pool, err := ants.NewPool(DefaultPoolSize)
		if err != nil {
			return nil, err
		}
		e.pool = pool
	}
	e.logger = e.logger.With("component", "retrieval")
	return e, nil
}

// Close releases the worker pool.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Release()
	}
}

// SourceTimeout returns the bound on a single adapter call.
func (e *Engine) SourceTimeout() time.Duration {
	return e.sourceTimeout
}

// Registry returns the engine's source registry.
func (e *Engine) Registry() *sources.Registry {
	return e.registry
}

type sourceReply struct {
	adapter sources.Adapter
	results []*core.RawResult
	err     error
}

// Retrieve runs one hybrid retrieval. Source failures are reported in the
// outcome; an error is returned only for an invalid request.
func (e *Engine) Retrieve(ctx context.Context, req Request) (*core.RetrievalOutcome, error) {
	start := time.Now()

	maxResults, err := e.validate(req)
	if err != nil {
		return nil, err
	}
	strategy := req.Strategy
	if strategy == nil {
		strategy = e.defaultStrategy
	}

	ids := req.SourceIDs
	if len(ids) == 0 {
		ids = e.registry.IDs()
	}
	adapters, unknown := e.registry.Resolve(ids)

	e.monitor.OnRetrievalStart(req.Query.Text, ids)
	outcome := &core.RetrievalOutcome{Query: req.Query}
	for _, id := range unknown {
		e.recordSourceError(outcome, &core.SourceError{
			SourceID: id,
			Err:      fmt.Errorf("%w: %s", sources.ErrUnknownSource, id),
		})
	}

	replies := e.fanOut(ctx, req.Query.Text, adapters, maxResults*perSourceFactor)

	succeeded := make([]sourceReply, 0, len(replies))
	for _, reply := range replies {
		if reply.err != nil {
			e.recordSourceError(outcome, sourceError(reply.adapter.ID(), reply.err))
			continue
		}
		e.monitor.OnSourceComplete(reply.adapter.ID(), len(reply.results))
		succeeded = append(succeeded, reply)
	}

	auxiliary := 0
	for _, a := range adapters {
		if IsAuxiliary(a.Kind()) {
			auxiliary++
		}
	}

	candidates := e.group(succeeded, auxiliary)
	e.monitor.OnFusion(strategy.Name(), len(candidates))
	outcome.Results = e.fuse(candidates, strategy, len(succeeded), req.Query.Text, maxResults)
	outcome.Empty = len(outcome.Results) == 0
	outcome.ConfidenceScore = Confidence(outcome.Results)
	outcome.ProcessingTime = time.Since(start)

	e.logger.Debug("retrieval complete",
		"trace_id", req.Query.TraceID,
		"sources", len(adapters),
		"failed", len(outcome.SourceErrors),
		"candidates", len(candidates),
		"results", len(outcome.Results),
		"confidence", outcome.ConfidenceScore,
		"elapsed", outcome.ProcessingTime)
	e.monitor.OnRetrievalComplete(outcome)
	return outcome, nil
}

func (e *Engine) validate(req Request) (int, error) {
	if strings.TrimSpace(req.Query.Text) == "" {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRequest, core.ErrEmptyQueryText)
	}
	maxResults := req.MaxResults
	if maxResults == 0 {
		maxResults = req.Query.MaxResults
	}
	if maxResults == 0 {
		maxResults = core.DefaultMaxResults
	}
	if maxResults < 0 || maxResults > core.MaxResultsLimit {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRequest, core.ErrInvalidMaxResults)
	}
	return maxResults, nil
}

func (e *Engine) recordSourceError(outcome *core.RetrievalOutcome, serr *core.SourceError) {
	outcome.SourceErrors = append(outcome.SourceErrors, serr)
	e.monitor.OnSourceError(serr)
	e.logger.Warn("source unavailable", "source", serr.SourceID, "timed_out", serr.TimedOut, "err", serr.Err)
}

func sourceError(id string, err error) *core.SourceError {
	timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, core.ErrSourceTimeout)
	return &core.SourceError{SourceID: id, TimedOut: timedOut, Err: err}
}

// fanOut calls every adapter concurrently and waits until each has replied
// or its deadline has passed. Replies are returned in adapter order.
func (e *Engine) fanOut(ctx context.Context, query string, adapters []sources.Adapter, limit int) []sourceReply {
	replies := make([]sourceReply, len(adapters))
	if len(adapters) == 0 {
		return replies
	}

	type indexed struct {
		index int
		reply sourceReply
	}
	callTimeout, barrier := e.sourceBudget(ctx)

	// Buffered so adapters finishing after the barrier never block.
	ch := make(chan indexed, len(adapters))
	pending := make(map[int]struct{}, len(adapters))

	for i, adapter := range adapters {
		pending[i] = struct{}{}
		task := func() {
			callCtx, cancel := context.WithTimeout(ctx, callTimeout)
			defer cancel()
			results, err := searchSafely(callCtx, adapter, query, limit)
			ch <- indexed{index: i, reply: sourceReply{adapter: adapter, results: results, err: err}}
		}
		if err := e.pool.Submit(task); err != nil {
			delete(pending, i)
			replies[i] = sourceReply{adapter: adapter, err: fmt.Errorf("schedule search: %w", err)}
		}
	}

	timer := time.NewTimer(barrier)
	defer timer.Stop()

	for len(pending) > 0 {
		select {
		case r := <-ch:
			replies[r.index] = r.reply
			delete(pending, r.index)
		case <-timer.C:
			for i := range pending {
				replies[i] = sourceReply{adapter: adapters[i], err: core.ErrSourceTimeout}
			}
			return replies
		case <-ctx.Done():
			for i := range pending {
				err := ctx.Err()
				if errors.Is(err, context.DeadlineExceeded) {
					err = core.ErrSourceTimeout
				}
				replies[i] = sourceReply{adapter: adapters[i], err: err}
			}
			return replies
		}
	}
	return replies
}

// sourceBudget returns the timeout of each adapter call and how long the
// barrier waits for replies. Both are clamped to end before ctx's deadline.
func (e *Engine) sourceBudget(ctx context.Context) (call, barrier time.Duration) {
	call, barrier = e.sourceTimeout, e.sourceTimeout+DeadlineGrace
	deadline, ok := ctx.Deadline()
	if !ok {
		return call, barrier
	}
	remaining := time.Until(deadline)
	available := max(0, remaining-min(deadlineMargin, remaining/10))
	return min(call, available), min(barrier, available)
}

// searchSafely calls the adapter and converts a panic into an error.
func searchSafely(ctx context.Context, adapter sources.Adapter, query string, limit int) (results []*core.RawResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	return adapter.Search(ctx, query, limit)
}

// candidate accumulates every source's view of one document.
type candidate struct {
	key    string
	order  int
	first  *core.RawResult
	scores []SourceScore
	meta   map[string]string
}

func (c *candidate) add(s SourceScore, raw *core.RawResult) {
	c.addScore(s)

	if c.first.Title == "" {
		c.first.Title = raw.Title
	}
	if len(raw.Content) > len(c.first.Content) {
		c.first.Content = raw.Content
	}
	if c.first.URL == "" {
		c.first.URL = raw.URL
	}
	if c.first.Timestamp.IsZero() {
		c.first.Timestamp = raw.Timestamp
	}
	for k, v := range raw.Metadata {
		if _, ok := c.meta[k]; !ok {
			c.meta[k] = v
		}
	}
}

func (c *candidate) addScore(s SourceScore) {
	for i := range c.scores {
		if c.scores[i].SourceID == s.SourceID {
			// Duplicate hit within one source: keep the stronger one.
			c.scores[i].Score = max(c.scores[i].Score, s.Score)
			c.scores[i].Rank = min(c.scores[i].Rank, s.Rank)
			return
		}
	}
	c.scores = append(c.scores, s)
}

// group normalizes every hit and groups hits by document identity.
// Candidates keep the order in which they were first seen.
func (e *Engine) group(replies []sourceReply, auxiliary int) []*candidate {
	byKey := make(map[string]*candidate)
	var ordered []*candidate

	for _, reply := range replies {
		kind := reply.adapter.Kind()
		weight := e.weights.For(kind, auxiliary)
		for rank, raw := range reply.results {
			if raw == nil {
				continue
			}
			key := identityKey(raw)
			c, ok := byKey[key]
			if !ok {
				first := *raw
				c = &candidate{key: key, order: len(ordered), first: &first, meta: make(map[string]string)}
				byKey[key] = c
				ordered = append(ordered, c)
			}
			c.add(SourceScore{
				SourceID: reply.adapter.ID(),
				Kind:     kind,
				Score:    e.normalizer.Normalize(kind, raw.RawScore),
				Weight:   weight,
				Rank:     rank,
			}, raw)
		}
	}
	return ordered
}

// fuse scores, ranks and truncates candidates.
func (e *Engine) fuse(candidates []*candidate, strategy Strategy, sourceCount int, query string, maxResults int) []*core.EnhancedResult {
	type scored struct {
		c     *candidate
		score float64
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{c: c, score: clamp01(strategy.Combine(c.scores, sourceCount))}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		if c := cmp.Compare(len(b.c.scores), len(a.c.scores)); c != 0 {
			return c
		}
		return cmp.Compare(a.c.order, b.c.order)
	})
	if len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	results := make([]*core.EnhancedResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, r.c.enhance(r.score, query))
	}
	return results
}

func (c *candidate) enhance(score float64, query string) *core.EnhancedResult {
	scores := make(map[string]float64, len(c.scores))
	var kinds []string
	for _, s := range c.scores {
		scores[s.SourceID] = s.Score
		if !slices.Contains(kinds, string(s.Kind)) {
			kinds = append(kinds, string(s.Kind))
		}
	}
	slices.Sort(kinds)

	var meta map[string]string
	if len(c.meta) > 0 || !c.first.Timestamp.IsZero() {
		meta = make(map[string]string, len(c.meta)+1)
		for k, v := range c.meta {
			meta[k] = v
		}
		if !c.first.Timestamp.IsZero() {
			meta["timestamp"] = c.first.Timestamp.UTC().Format(time.RFC3339)
		}
	}

	return &core.EnhancedResult{
		DocumentID:    documentID(c.key, c.first),
		Title:         c.first.Title,
		Content:       c.first.Content,
		Snippet:       Snippet(c.first.Content, query),
		URL:           c.first.URL,
		CombinedScore: score,
		SourceScores:  scores,
		SourceTypes:   kinds,
		Metadata:      meta,
	}
}
