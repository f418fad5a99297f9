package retrieval

import "github.com/poiesic/attest/core"

// Confidence rates a fused result list. The top score dominates; results
// corroborated by several distinct sources and larger result sets raise
// it. An empty list has zero confidence.
func Confidence(results []*core.EnhancedResult) float64 {
	if len(results) == 0 {
		return 0
	}
	distinct := make(map[string]struct{})
	for _, r := range results {
		for id := range r.SourceScores {
			distinct[id] = struct{}{}
		}
	}
	top := clamp01(results[0].CombinedScore)
	sourceFactor := min(1, float64(len(distinct))/3)
	sizeFactor := min(1, float64(len(results))/5)
	return clamp01(top*0.6 + sourceFactor*0.25 + sizeFactor*0.15)
}
