package retrieval

import (
	"github.com/poiesic/attest/core"
)

// Monitor provides hooks to observe a retrieval.
// Implement this interface to track intermediate steps and results.
// Hooks may be called concurrently when sub-queries are retrieved in
// parallel.
type Monitor interface {
	OnRetrievalStart(query string, sourceIDs []string)
	OnSourceComplete(sourceID string, hits int)
	OnSourceError(err *core.SourceError)
	OnFusion(strategy string, candidates int)
	OnRetrievalComplete(outcome *core.RetrievalOutcome)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) OnRetrievalStart(_ string, _ []string)        {}
func (n *noopMonitor) OnSourceComplete(_ string, _ int)             {}
func (n *noopMonitor) OnSourceError(_ *core.SourceError)            {}
func (n *noopMonitor) OnFusion(_ string, _ int)                     {}
func (n *noopMonitor) OnRetrievalComplete(_ *core.RetrievalOutcome) {}
