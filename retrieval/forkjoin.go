package retrieval

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/poiesic/attest/core"
	"golang.org/x/sync/errgroup"
)

// RetrieveEach runs one retrieval per sub-query concurrently and merges
// the outcomes. A document returned for several sub-queries keeps its best
// combined score and its best score per source. With fewer than two
// sub-queries it is equivalent to Retrieve.
func (e *Engine) RetrieveEach(ctx context.Context, req Request, subQueries []string) (*core.RetrievalOutcome, error) {
	if len(subQueries) < 2 {
		return e.Retrieve(ctx, req)
	}
	start := time.Now()

	maxResults, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	outcomes := make([]*core.RetrievalOutcome, len(subQueries))
	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subQueries {
		subReq := req
		subReq.Query.Text = sub
		subReq.MaxResults = maxResults
		g.Go(func() error {
			outcome, err := e.Retrieve(gctx, subReq)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeOutcomes(req.Query, outcomes, maxResults)
	merged.ProcessingTime = time.Since(start)
	e.logger.Debug("fork-join retrieval complete",
		"trace_id", req.Query.TraceID,
		"sub_queries", len(subQueries),
		"results", len(merged.Results))
	return merged, nil
}

func mergeOutcomes(query core.Query, outcomes []*core.RetrievalOutcome, maxResults int) *core.RetrievalOutcome {
	merged := &core.RetrievalOutcome{Query: query}
	byID := make(map[string]*core.EnhancedResult)
	var order []string
	seenErr := make(map[string]struct{})

	for _, outcome := range outcomes {
		for _, serr := range outcome.SourceErrors {
			key := serr.SourceID + "\x00" + serr.Error()
			if _, dup := seenErr[key]; dup {
				continue
			}
			seenErr[key] = struct{}{}
			merged.SourceErrors = append(merged.SourceErrors, serr)
		}
		for _, r := range outcome.Results {
			existing, ok := byID[r.DocumentID]
			if !ok {
				copied := *r
				copied.SourceScores = make(map[string]float64, len(r.SourceScores))
				for k, v := range r.SourceScores {
					copied.SourceScores[k] = v
				}
				copied.SourceTypes = slices.Clone(r.SourceTypes)
				byID[r.DocumentID] = &copied
				order = append(order, r.DocumentID)
				continue
			}
			if r.CombinedScore > existing.CombinedScore {
				existing.CombinedScore = r.CombinedScore
				existing.Snippet = r.Snippet
			}
			for k, v := range r.SourceScores {
				existing.SourceScores[k] = max(existing.SourceScores[k], v)
			}
			for _, kind := range r.SourceTypes {
				if !slices.Contains(existing.SourceTypes, kind) {
					existing.SourceTypes = append(existing.SourceTypes, kind)
				}
			}
			slices.Sort(existing.SourceTypes)
		}
	}

	results := make([]*core.EnhancedResult, 0, len(order))
	for _, id := range order {
		results = append(results, byID[id])
	}
	slices.SortStableFunc(results, func(a, b *core.EnhancedResult) int {
		return cmp.Compare(b.CombinedScore, a.CombinedScore)
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	merged.Results = results
	merged.Empty = len(results) == 0
	merged.ConfidenceScore = Confidence(results)
	return merged
}
