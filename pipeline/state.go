package pipeline

import (
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/core"
)

// State accumulates everything one request produces. It is owned by a
// single Process call and never shared.
type State struct {
	Query          core.Query
	Classification core.QueryClassification
	StageResults   map[core.Stage]*core.StageResult
	Warnings       []string
	EmptyRetrieval bool
	Sources        []string

	Retrieval    *core.RetrievalOutcome
	Verification *core.VerificationOutcome
	Synthesis    *ai.Synthesis
	Citations    []core.Citation
	Answer       string
	CacheHits    int

	Response *core.FinalResponse

	started time.Time
}

func newState(q core.Query) *State {
	return &State{
		Query:        q,
		StageResults: make(map[core.Stage]*core.StageResult, len(core.Stages)),
		started:      time.Now(),
	}
}

// Stage returns the recorded result of stage, or nil if it never ran.
func (s *State) Stage(stage core.Stage) *core.StageResult {
	return s.StageResults[stage]
}

func (s *State) warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

func (s *State) succeeded(stage core.Stage) bool {
	r := s.StageResults[stage]
	return r != nil && r.Success && !r.Skipped()
}

// documents returns the retrieved results, if any.
func (s *State) documents() []*core.EnhancedResult {
	if s.Retrieval == nil {
		return nil
	}
	return s.Retrieval.Results
}
