package retrieval_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/retrieval"
	"github.com/poiesic/attest/sources"
	"github.com/poiesic/attest/sources/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, adapters []sources.Adapter, opts ...retrieval.Option) *retrieval.Engine {
	t.Helper()
	registry, err := sources.NewRegistry(adapters...)
	require.NoError(t, err)
	engine, err := retrieval.NewEngine(registry, opts...)
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func request(text string) retrieval.Request {
	return retrieval.Request{Query: core.Query{Text: text, MaxResults: 10}}
}

func TestNewEngine(t *testing.T) {
	registry, err := sources.NewRegistry()
	require.NoError(t, err)

	t.Run("nil registry", func(t *testing.T) {
		_, err := retrieval.NewEngine(nil)
		assert.Equal(t, retrieval.ErrRegistryRequired, err)
	})

	t.Run("invalid weights", func(t *testing.T) {
		_, err := retrieval.NewEngine(registry, retrieval.WithWeights(retrieval.Weights{}))
		assert.ErrorIs(t, err, retrieval.ErrInvalidWeights)
	})

	t.Run("invalid lexical ceiling", func(t *testing.T) {
		_, err := retrieval.NewEngine(registry, retrieval.WithLexicalCeiling(0))
		assert.ErrorIs(t, err, retrieval.ErrInvalidRequest)
	})

	t.Run("nil options fall back to defaults", func(t *testing.T) {
		engine, err := retrieval.NewEngine(registry,
			retrieval.WithLogger(nil),
			retrieval.WithMonitor(nil),
			retrieval.WithStrategy(nil),
			retrieval.WithPoolSize(4))
		require.NoError(t, err)
		defer engine.Close()
		assert.Same(t, registry, engine.Registry())
	})
}

func TestRetrieve_InvalidRequest(t *testing.T) {
	engine := newEngine(t, nil)

	_, err := engine.Retrieve(context.Background(), request("   "))
	assert.ErrorIs(t, err, retrieval.ErrInvalidRequest)
	assert.ErrorIs(t, err, core.ErrEmptyQueryText)

	req := request("radium")
	req.MaxResults = core.MaxResultsLimit + 1
	_, err = engine.Retrieve(context.Background(), req)
	assert.ErrorIs(t, err, core.ErrInvalidMaxResults)
}

func TestRetrieve_MultiSourceAgreementRanksFirst(t *testing.T) {
	kw := mock.NewAdapter("kw", sources.KindLexical,
		mock.Hit("d2", 8, "Radium was isolated in 1910."),
		mock.Hit("d1", 10, "Marie Curie discovered radium in 1898."),
	)
	vec := mock.NewAdapter("vec", sources.KindVector,
		mock.Hit("d1", 0.5, "Marie Curie discovered radium in 1898."),
	)
	engine := newEngine(t, []sources.Adapter{kw, vec})

	outcome, err := engine.Retrieve(context.Background(), request("who discovered radium"))
	require.NoError(t, err)
	require.Len(t, outcome.Results, 2)
	assert.False(t, outcome.Empty)
	assert.Empty(t, outcome.SourceErrors)

	top := outcome.Results[0]
	assert.Equal(t, "d1", top.DocumentID)
	assert.InDelta(t, 0.7, top.CombinedScore, 1e-9)
	assert.InDelta(t, 0.5, top.SourceScores["kw"], 1e-9)
	assert.InDelta(t, 0.5, top.SourceScores["vec"], 1e-9)
	assert.Equal(t, []string{"lexical", "vector"}, top.SourceTypes)

	assert.Equal(t, "d2", outcome.Results[1].DocumentID)
	assert.InDelta(t, 0.48, outcome.Results[1].CombinedScore, 1e-9)

	assert.Greater(t, outcome.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, outcome.ConfidenceScore, 1.0)
}

func TestRetrieve_SlowSourceIsIsolated(t *testing.T) {
	fast := mock.NewAdapter("fast", sources.KindVector, mock.Hit("d1", 0.9, "fast content"))
	slow := mock.NewSlowAdapter("slow", sources.KindLexical, 2*time.Second, mock.Hit("d2", 15, "slow content"))
	engine := newEngine(t, []sources.Adapter{fast, slow}, retrieval.WithSourceTimeout(50*time.Millisecond))

	start := time.Now()
	outcome, err := engine.Retrieve(context.Background(), request("content"))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, outcome.SourceErrors, 1)
	assert.Equal(t, "slow", outcome.SourceErrors[0].SourceID)
	assert.True(t, outcome.SourceErrors[0].TimedOut)

	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "d1", outcome.Results[0].DocumentID)
	assert.NotContains(t, outcome.Results[0].SourceScores, "slow")
}

func TestRetrieve_CallerDeadlineBoundsSources(t *testing.T) {
	fast := mock.NewAdapter("fast", sources.KindLexical, mock.Hit("d1", 12, "fast content"))
	slow := mock.NewSlowAdapter("slow", sources.KindVector, 10*time.Second, mock.Hit("d2", 0.9, "slow content"))
	engine := newEngine(t, []sources.Adapter{fast, slow})
	require.Equal(t, retrieval.DefaultSourceTimeout, engine.SourceTimeout())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	outcome, err := engine.Retrieve(ctx, request("content"))
	require.NoError(t, err)
	assert.NoError(t, ctx.Err(), "retrieval must return before the caller's deadline")

	require.Len(t, outcome.SourceErrors, 1)
	assert.Equal(t, "slow", outcome.SourceErrors[0].SourceID)
	assert.True(t, outcome.SourceErrors[0].TimedOut)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "d1", outcome.Results[0].DocumentID)
	assert.False(t, outcome.Empty)
}

func TestRetrieve_FailingAndPanickingSources(t *testing.T) {
	good := mock.NewAdapter("good", sources.KindVector, mock.Hit("d1", 0.6, "content"))
	failing := mock.NewFailingAdapter("broken", sources.KindLexical, errors.New("connection refused"))
	panicking := &mock.Adapter{
		SourceID:   "panics",
		SourceKind: sources.KindGraph,
		SearchFunc: func(context.Context, string, int) ([]*core.RawResult, error) {
			panic("boom")
		},
	}
	engine := newEngine(t, []sources.Adapter{good, failing, panicking})

	outcome, err := engine.Retrieve(context.Background(), request("content"))
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)
	require.Len(t, outcome.SourceErrors, 2)

	byID := map[string]*core.SourceError{}
	for _, serr := range outcome.SourceErrors {
		byID[serr.SourceID] = serr
	}
	assert.False(t, byID["broken"].TimedOut)
	assert.Contains(t, byID["broken"].Error(), "connection refused")
	assert.Contains(t, byID["panics"].Err.Error(), "boom")
}

func TestRetrieve_UnknownSource(t *testing.T) {
	kw := mock.NewAdapter("kw", sources.KindLexical, mock.Hit("d1", 5, "content"))
	engine := newEngine(t, []sources.Adapter{kw})

	req := request("content")
	req.SourceIDs = []string{"kw", "missing"}
	outcome, err := engine.Retrieve(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, outcome.SourceErrors, 1)
	assert.Equal(t, "missing", outcome.SourceErrors[0].SourceID)
	assert.ErrorIs(t, outcome.SourceErrors[0], sources.ErrUnknownSource)
	assert.Len(t, outcome.Results, 1)
}

func TestRetrieve_SelectedSourcesOnly(t *testing.T) {
	kw := mock.NewAdapter("kw", sources.KindLexical, mock.Hit("d1", 5, "content"))
	vec := mock.NewAdapter("vec", sources.KindVector, mock.Hit("d2", 0.5, "content"))
	engine := newEngine(t, []sources.Adapter{kw, vec})

	req := request("content")
	req.SourceIDs = []string{"vec"}
	outcome, err := engine.Retrieve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, []string{"d2"}, outcome.DocumentIDs())
	assert.Zero(t, kw.CallCount())
	assert.Equal(t, 1, vec.CallCount())
}

func TestRetrieve_Empty(t *testing.T) {
	engine := newEngine(t, []sources.Adapter{
		mock.NewAdapter("kw", sources.KindLexical),
		mock.NewAdapter("vec", sources.KindVector),
	})

	outcome, err := engine.Retrieve(context.Background(), request("nothing matches"))
	require.NoError(t, err)
	assert.True(t, outcome.Empty)
	assert.Empty(t, outcome.Results)
	assert.Zero(t, outcome.ConfidenceScore)
	assert.Empty(t, outcome.SourceErrors)
}

func TestRetrieve_NoSourcesRegistered(t *testing.T) {
	engine := newEngine(t, nil)

	outcome, err := engine.Retrieve(context.Background(), request("anything"))
	require.NoError(t, err)
	assert.True(t, outcome.Empty)
}

func TestRetrieve_DuplicateHitsWithinSource(t *testing.T) {
	kw := mock.NewAdapter("kw", sources.KindLexical,
		mock.Hit("d1", 4, "short"),
		mock.Hit("d1", 10, "a longer body of content"),
	)
	engine := newEngine(t, []sources.Adapter{kw})

	outcome, err := engine.Retrieve(context.Background(), request("content"))
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)

	r := outcome.Results[0]
	assert.InDelta(t, 0.5, r.SourceScores["kw"], 1e-9)
	assert.Len(t, r.SourceScores, 1)
	assert.Equal(t, "a longer body of content", r.Content)
	assert.InDelta(t, 0.6, r.CombinedScore, 1e-9)
}

func TestRetrieve_GroupsByURLWithoutDocumentID(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	web := mock.NewAdapter("web", sources.KindEncyclopedic, &core.RawResult{
		URL:       "https://www.example.com/radium/",
		Title:     "Radium",
		Content:   "Radium is a chemical element.",
		RawScore:  0.8,
		Timestamp: ts,
		Metadata:  map[string]string{"lang": "en"},
	})
	aux := mock.NewAdapter("aux", sources.KindAuxiliary, &core.RawResult{
		URL:      "http://example.com/radium",
		Content:  "Radium.",
		RawScore: 0.4,
		Metadata: map[string]string{"lang": "fr", "origin": "aux"},
	})
	engine := newEngine(t, []sources.Adapter{web, aux})

	outcome, err := engine.Retrieve(context.Background(), request("radium"))
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)

	r := outcome.Results[0]
	assert.True(t, strings.HasPrefix(r.DocumentID, "url:"))
	assert.Equal(t, "Radium", r.Title)
	assert.Equal(t, "Radium is a chemical element.", r.Content)
	assert.Equal(t, []string{"auxiliary", "encyclopedic"}, r.SourceTypes)
	assert.Equal(t, "en", r.Metadata["lang"])
	assert.Equal(t, "aux", r.Metadata["origin"])
	assert.Equal(t, "2024-03-01T12:00:00Z", r.Metadata["timestamp"])
}

func TestRetrieve_MaxResultsAndPerSourceLimit(t *testing.T) {
	var hits []*core.RawResult
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		hits = append(hits, mock.Hit(id, 0.5, "content "+id))
	}
	vec := mock.NewAdapter("vec", sources.KindVector, hits...)
	var gotLimit int
	vec.SearchFunc = func(_ context.Context, _ string, limit int) ([]*core.RawResult, error) {
		gotLimit = limit
		return hits, nil
	}
	engine := newEngine(t, []sources.Adapter{vec})

	req := request("content")
	req.MaxResults = 3
	outcome, err := engine.Retrieve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 6, gotLimit)
	// Equal scores keep first-seen order.
	assert.Equal(t, []string{"a", "b", "c"}, outcome.DocumentIDs())
}

func TestRetrieve_Strategies(t *testing.T) {
	kw := mock.NewAdapter("kw", sources.KindLexical, mock.Hit("d1", 4, "x"), mock.Hit("d2", 20, "y"))
	vec := mock.NewAdapter("vec", sources.KindVector, mock.Hit("d1", 0.3, "x"))
	engine := newEngine(t, []sources.Adapter{kw, vec})

	t.Run("max score", func(t *testing.T) {
		req := request("query")
		req.Strategy = retrieval.MaxScoreFusion
		outcome, err := engine.Retrieve(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, []string{"d2", "d1"}, outcome.DocumentIDs())
		assert.InDelta(t, 1.0, outcome.Results[0].CombinedScore, 1e-9)
		assert.InDelta(t, 0.3, outcome.Results[1].CombinedScore, 1e-9)
	})

	t.Run("reciprocal rank", func(t *testing.T) {
		req := request("query")
		req.Strategy = retrieval.ReciprocalRankFusion{K: 60}
		outcome, err := engine.Retrieve(context.Background(), req)
		require.NoError(t, err)
		// d1 is ranked by both sources, d2 by one.
		assert.Equal(t, []string{"d1", "d2"}, outcome.DocumentIDs())
	})
}

type recordingMonitor struct {
	mu        sync.Mutex
	started   int
	completed []string
	failed    []string
	fusions   []string
	finished  int
}

func (m *recordingMonitor) OnRetrievalStart(string, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMonitor) OnSourceComplete(id string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, id)
}

func (m *recordingMonitor) OnSourceError(err *core.SourceError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, err.SourceID)
}

func (m *recordingMonitor) OnFusion(strategy string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fusions = append(m.fusions, strategy)
}

func (m *recordingMonitor) OnRetrievalComplete(*core.RetrievalOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished++
}

func TestRetrieve_Monitor(t *testing.T) {
	monitor := &recordingMonitor{}
	engine := newEngine(t, []sources.Adapter{
		mock.NewAdapter("kw", sources.KindLexical, mock.Hit("d1", 5, "x")),
		mock.NewFailingAdapter("vec", sources.KindVector, errors.New("down")),
	}, retrieval.WithMonitor(monitor))

	_, err := engine.Retrieve(context.Background(), request("query"))
	require.NoError(t, err)

	assert.Equal(t, 1, monitor.started)
	assert.Equal(t, []string{"kw"}, monitor.completed)
	assert.Equal(t, []string{"vec"}, monitor.failed)
	assert.Equal(t, []string{retrieval.StrategyWeighted}, monitor.fusions)
	assert.Equal(t, 1, monitor.finished)
}

func TestRetrieve_CancelledContext(t *testing.T) {
	slow := mock.NewSlowAdapter("slow", sources.KindVector, time.Second, mock.Hit("d1", 0.5, "x"))
	engine := newEngine(t, []sources.Adapter{slow})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome, err := engine.Retrieve(ctx, request("query"))
	require.NoError(t, err)
	assert.True(t, outcome.Empty)
	require.Len(t, outcome.SourceErrors, 1)
	assert.ErrorIs(t, outcome.SourceErrors[0], context.Canceled)
}

func TestRetrieveEach(t *testing.T) {
	vec := &mock.Adapter{
		SourceID:   "vec",
		SourceKind: sources.KindVector,
		SearchFunc: func(_ context.Context, query string, _ int) ([]*core.RawResult, error) {
			switch query {
			case "python":
				return []*core.RawResult{
					{DocumentID: "py", RawScore: 0.9, Content: "Python is dynamically typed."},
					{DocumentID: "both", RawScore: 0.3, Content: "Both are popular."},
				}, nil
			case "go":
				return []*core.RawResult{
					{DocumentID: "go", RawScore: 0.8, Content: "Go is statically typed."},
					{DocumentID: "both", RawScore: 0.6, Content: "Both are popular."},
				}, nil
			}
			return nil, nil
		},
	}
	engine := newEngine(t, []sources.Adapter{vec})

	outcome, err := engine.RetrieveEach(context.Background(), request("python vs go"), []string{"python", "go"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"py", "go", "both"}, outcome.DocumentIDs())
	assert.Equal(t, "python vs go", outcome.Query.Text)
	assert.Equal(t, 2, vec.CallCount())

	for _, r := range outcome.Results {
		if r.DocumentID == "both" {
			assert.InDelta(t, 0.6, r.SourceScores["vec"], 1e-9)
			assert.InDelta(t, 0.72, r.CombinedScore, 1e-9)
		}
	}
	for i := 1; i < len(outcome.Results); i++ {
		assert.GreaterOrEqual(t, outcome.Results[i-1].CombinedScore, outcome.Results[i].CombinedScore)
	}

	t.Run("single sub-query falls back to one retrieval", func(t *testing.T) {
		outcome, err := engine.RetrieveEach(context.Background(), request("go"), []string{"go"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"go", "both"}, outcome.DocumentIDs())
	})
}
