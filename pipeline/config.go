package pipeline

import (
	"fmt"
	"time"
)

// Budgets bound the time each stage may take.
type Budgets struct {
	Classify time.Duration `yaml:"classify"`
	Retrieve time.Duration `yaml:"retrieve"`

	// The verify stage first composes a draft answer under Draft, then
	// checks it under Verify. The stage budget is their sum.
	Draft  time.Duration `yaml:"draft"`
	Verify time.Duration `yaml:"verify"`
	Cite   time.Duration `yaml:"cite"`

	// Cache bounds each cache read or write. A slow cache reads as a miss.
	Cache time.Duration `yaml:"cache"`

	// Total is the end-to-end target. Synthesis gets whatever remains of
	// it, but never less than MinSynthesize.
	Total         time.Duration `yaml:"total"`
	MinSynthesize time.Duration `yaml:"min_synthesize"`
}

// Config tunes the orchestrator.
type Config struct {
	Budgets Budgets `yaml:"budgets"`

	// DegradationFactor scales confidence when a run partially failed.
	DegradationFactor float64 `yaml:"degradation_factor"`

	// EmptyRetrievalCap bounds confidence when no documents were found.
	EmptyRetrievalCap float64 `yaml:"empty_retrieval_cap"`

	// FallbackFactor scales the confidence of answers composed from
	// unverified documents.
	FallbackFactor float64 `yaml:"fallback_factor"`

	// CacheTTL is how long cached retrievals and answers live. Zero
	// disables caching even when a cache is configured.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// DefaultSources are queried when the classification maps to no
	// registered source. Empty selects every registered source.
	DefaultSources []string `yaml:"default_sources,omitempty"`

	// ExtractiveSnippets is the number of snippets an extractive fallback
	// answer quotes.
	ExtractiveSnippets int `yaml:"extractive_snippets"`
}

// DefaultConfig returns the default orchestrator configuration.
//
// Total is a target, not a hard limit. The verified path makes two model
// calls, the draft and the final answer, so with a remote model a run
// usually exceeds it: synthesis is always granted MinSynthesize even when
// retrieval and verification used up the total. Lower Draft, or raise
// Total, to trade verification coverage against latency.
func DefaultConfig() Config {
	return Config{
		Budgets: Budgets{
			Classify:      100 * time.Millisecond,
			Retrieve:      2 * time.Second,
			Draft:         1500 * time.Millisecond,
			Verify:        1500 * time.Millisecond,
			Cite:          250 * time.Millisecond,
			Cache:         100 * time.Millisecond,
			Total:         3 * time.Second,
			MinSynthesize: 500 * time.Millisecond,
		},
		DegradationFactor:  0.8,
		EmptyRetrievalCap:  0.5,
		FallbackFactor:     0.5,
		CacheTTL:           10 * time.Minute,
		ExtractiveSnippets: 3,
	}
}

// Validate checks budgets and factors.
func (c Config) Validate() error {
	budgets := map[string]time.Duration{
		"classify":       c.Budgets.Classify,
		"retrieve":       c.Budgets.Retrieve,
		"draft":          c.Budgets.Draft,
		"verify":         c.Budgets.Verify,
		"cite":           c.Budgets.Cite,
		"cache":          c.Budgets.Cache,
		"total":          c.Budgets.Total,
		"min_synthesize": c.Budgets.MinSynthesize,
	}
	for name, d := range budgets {
		if d <= 0 {
			return fmt.Errorf("%w: %s budget must be positive", ErrInvalidConfig, name)
		}
	}
	factors := map[string]float64{
		"degradation_factor":  c.DegradationFactor,
		"empty_retrieval_cap": c.EmptyRetrievalCap,
		"fallback_factor":     c.FallbackFactor,
	}
	for name, f := range factors {
		if f < 0 || f > 1 {
			return fmt.Errorf("%w: %s must be within [0,1]", ErrInvalidConfig, name)
		}
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("%w: cache ttl cannot be negative", ErrInvalidConfig)
	}
	if c.ExtractiveSnippets < 1 {
		return fmt.Errorf("%w: extractive snippets must be positive", ErrInvalidConfig)
	}
	return nil
}
