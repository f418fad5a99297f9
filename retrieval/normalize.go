package retrieval

import (
	"math"

	"github.com/poiesic/attest/sources"
)

// DefaultLexicalCeiling is the BM25 score treated as a perfect lexical match.
const DefaultLexicalCeiling = 20.0

// Normalizer maps raw adapter scores onto [0,1].
type Normalizer struct {
	LexicalCeiling float64
}

// Normalize converts a raw score from a source of the given kind. Vector,
// graph and auxiliary scores are assumed to already be in [0,1] and are
// clamped; lexical scores are divided by the ceiling first. NaN maps to 0.
func (n Normalizer) Normalize(kind sources.Kind, raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	if kind == sources.KindLexical {
		ceiling := n.LexicalCeiling
		if ceiling <= 0 {
			ceiling = DefaultLexicalCeiling
		}
		raw /= ceiling
	}
	return clamp01(raw)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
