package retrieval

import (
	"fmt"

	"github.com/poiesic/attest/sources"
)

// Weights are the static per-kind fusion weights. Encyclopedic and
// auxiliary sources share the Auxiliary weight evenly.
type Weights struct {
	Lexical   float64 `yaml:"lexical"`
	Vector    float64 `yaml:"vector"`
	Graph     float64 `yaml:"graph"`
	Auxiliary float64 `yaml:"auxiliary"`
}

// DefaultWeights returns the default fusion weights.
func DefaultWeights() Weights {
	return Weights{
		Lexical:   0.40,
		Vector:    0.40,
		Graph:     0.15,
		Auxiliary: 0.05,
	}
}

// Validate rejects negative weights and weights that are all zero.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"lexical":   w.Lexical,
		"vector":    w.Vector,
		"graph":     w.Graph,
		"auxiliary": w.Auxiliary,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s weight is negative", ErrInvalidWeights, name)
		}
	}
	if w.Lexical+w.Vector+w.Graph+w.Auxiliary == 0 {
		return fmt.Errorf("%w: all weights are zero", ErrInvalidWeights)
	}
	return nil
}

// IsAuxiliary reports whether sources of kind share the auxiliary weight.
func IsAuxiliary(kind sources.Kind) bool {
	return kind == sources.KindEncyclopedic || kind == sources.KindAuxiliary
}

// For returns the weight of one source of kind when auxiliaryCount
// auxiliary sources take part in the retrieval.
func (w Weights) For(kind sources.Kind, auxiliaryCount int) float64 {
	switch kind {
	case sources.KindLexical:
		return w.Lexical
	case sources.KindVector:
		return w.Vector
	case sources.KindGraph:
		return w.Graph
	default:
		if auxiliaryCount < 1 {
			auxiliaryCount = 1
		}
		return w.Auxiliary / float64(auxiliaryCount)
	}
}
