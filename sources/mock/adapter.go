// Package mock provides a scripted sources.Adapter for tests.
package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/sources"
)

// Adapter is a mock implementation of sources.Adapter.
//
// Search resolves in this order: wait for Delay (returning ctx.Err() if the
// context ends first), return Err if set, call SearchFunc if set, otherwise
// return Results truncated to limit.
type Adapter struct {
	SourceID   string
	SourceKind sources.Kind
	Results    []*core.RawResult
	Err        error
	Delay      time.Duration
	SearchFunc func(ctx context.Context, query string, limit int) ([]*core.RawResult, error)

	callCount atomic.Int32
}

var _ sources.Adapter = (*Adapter)(nil)

// NewAdapter creates a mock adapter returning results. Each result's
// SourceID is set to id.
func NewAdapter(id string, kind sources.Kind, results ...*core.RawResult) *Adapter {
	for _, r := range results {
		r.SourceID = id
	}
	return &Adapter{SourceID: id, SourceKind: kind, Results: results}
}

// NewFailingAdapter creates a mock adapter whose searches fail with err.
func NewFailingAdapter(id string, kind sources.Kind, err error) *Adapter {
	return &Adapter{SourceID: id, SourceKind: kind, Err: err}
}

// NewSlowAdapter creates a mock adapter that waits delay before answering.
func NewSlowAdapter(id string, kind sources.Kind, delay time.Duration, results ...*core.RawResult) *Adapter {
	a := NewAdapter(id, kind, results...)
	a.Delay = delay
	return a
}

func (a *Adapter) ID() string {
	return a.SourceID
}

func (a *Adapter) Kind() sources.Kind {
	if a.SourceKind == "" {
		return sources.KindAuxiliary
	}
	return a.SourceKind
}

func (a *Adapter) Search(ctx context.Context, query string, limit int) ([]*core.RawResult, error) {
	a.callCount.Add(1)

	if a.Delay > 0 {
		timer := time.NewTimer(a.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if a.Err != nil {
		return nil, a.Err
	}
	if a.SearchFunc != nil {
		return a.SearchFunc(ctx, query, limit)
	}

	results := a.Results
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	out := make([]*core.RawResult, len(results))
	for i, r := range results {
		copied := *r
		out[i] = &copied
	}
	return out, nil
}

// CallCount returns the number of times Search was called.
func (a *Adapter) CallCount() int {
	return int(a.callCount.Load())
}

// Hit builds a raw result for a document.
func Hit(docID string, score float64, content string) *core.RawResult {
	return &core.RawResult{
		DocumentID: docID,
		RawScore:   score,
		Title:      docID,
		Content:    content,
	}
}
