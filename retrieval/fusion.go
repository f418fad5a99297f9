package retrieval

import (
	"fmt"
	"strings"

	"github.com/poiesic/attest/sources"
)

// SourceScore is one source's contribution to a fused document.
type SourceScore struct {
	SourceID string
	Kind     sources.Kind
	Score    float64 // Normalized to [0,1]
	Weight   float64
	Rank     int // Zero-based position in the source's result list
}

// Strategy combines the per-source scores of one document into a single
// score in [0,1].
type Strategy interface {
	Name() string

	// Combine scores one document. sourceCount is the number of sources
	// that answered the retrieval, whether or not they returned this
	// document.
	Combine(scores []SourceScore, sourceCount int) float64
}

const (
	StrategyWeighted = "weighted"
	StrategyMaxScore = "max_score"
	StrategyRRF      = "rrf"

	// DefaultRRFK is the conventional reciprocal rank fusion constant.
	DefaultRRFK = 60

	boostPerSource = 0.2
)

var (
	// WeightedFusion is the default strategy: a weighted average over the
	// contributing sources, scaled up by 20% per contributing source
	// (at most doubled). The result is never below the score the best
	// contributing source would have earned on its own.
	WeightedFusion Strategy = weightedFusion{}

	// MaxScoreFusion keeps the best single-source score.
	MaxScoreFusion Strategy = maxScoreFusion{}
)

// ParseStrategy resolves a strategy by name. The empty name selects
// WeightedFusion.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyWeighted:
		return WeightedFusion, nil
	case StrategyMaxScore:
		return MaxScoreFusion, nil
	case StrategyRRF:
		return ReciprocalRankFusion{K: DefaultRRFK}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// MultiSourceBoost returns the boost earned by agreement between n sources.
func MultiSourceBoost(n int) float64 {
	return min(1, boostPerSource*float64(n))
}

type weightedFusion struct{}

func (weightedFusion) Name() string { return StrategyWeighted }

func (weightedFusion) Combine(scores []SourceScore, _ int) float64 {
	if len(scores) == 0 {
		return 0
	}
	var weighted, totalWeight, plain, best float64
	for _, s := range scores {
		score := clamp01(s.Score)
		weighted += score * s.Weight
		totalWeight += s.Weight
		plain += score
		best = max(best, score)
	}

	var avg float64
	if totalWeight > 0 {
		avg = weighted / totalWeight
	} else {
		avg = plain / float64(len(scores))
	}

	combined := min(1, avg*(1+MultiSourceBoost(len(scores))))
	single := min(1, best*(1+MultiSourceBoost(1)))
	return clamp01(max(combined, single))
}

type maxScoreFusion struct{}

func (maxScoreFusion) Name() string { return StrategyMaxScore }

func (maxScoreFusion) Combine(scores []SourceScore, _ int) float64 {
	var best float64
	for _, s := range scores {
		best = max(best, clamp01(s.Score))
	}
	return best
}

// ReciprocalRankFusion scores a document by the sum of 1/(K+rank) over the
// sources that returned it, divided by the best achievable sum so the
// result stays in [0,1]. Raw scores are ignored.
type ReciprocalRankFusion struct {
	K int
}

func (ReciprocalRankFusion) Name() string { return StrategyRRF }

func (f ReciprocalRankFusion) Combine(scores []SourceScore, sourceCount int) float64 {
	if len(scores) == 0 {
		return 0
	}
	k := f.K
	if k <= 0 {
		k = DefaultRRFK
	}
	var sum float64
	for _, s := range scores {
		sum += 1 / float64(k+s.Rank+1)
	}
	sourceCount = max(sourceCount, len(scores))
	return clamp01(sum / (float64(sourceCount) / float64(k+1)))
}
