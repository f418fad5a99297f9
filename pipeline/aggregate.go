package pipeline

import (
	"time"

	"github.com/poiesic/attest/core"
)

// aggregate builds the final response from the request state.
//
// A run failed when it produced no answer at all, which happens only when
// retrieval found nothing and synthesis failed. It partially failed when any
// stage failed or was skipped. Confidence starts from the synthesis
// confidence, is capped after an empty retrieval and is scaled down after a
// partial failure.
func (o *Orchestrator) aggregate(st *State) *core.FinalResponse {
	status := core.StatusCompleted
	switch {
	case st.Answer == "":
		status = core.StatusFailed
	default:
		for _, stage := range core.Stages {
			if !st.succeeded(stage) {
				status = core.StatusPartialFailure
				break
			}
		}
	}

	var confidence float64
	if status != core.StatusFailed && st.Synthesis != nil {
		confidence = clamp01(st.Synthesis.Confidence)
		if st.EmptyRetrieval {
			confidence = min(confidence, o.config.EmptyRetrievalCap)
		}
		if status == core.StatusPartialFailure {
			confidence *= o.config.DegradationFactor
		}
	}

	o.metrics.IncRequest(string(status))
	return &core.FinalResponse{
		Answer:     st.Answer,
		Confidence: confidence,
		Citations:  st.Citations,
		Status:     status,
		Warnings:   append([]string(nil), st.Warnings...),
		Metadata:   o.metadata(st),
		TraceID:    st.Query.TraceID,
	}
}

func (o *Orchestrator) metadata(st *State) map[string]any {
	timings := make(map[string]int64, len(st.StageResults))
	for stage, r := range st.StageResults {
		timings[string(stage)] = r.ExecutionTimeMs()
	}

	method := string(core.MethodSkipped)
	switch {
	case st.Verification != nil:
		method = string(st.Verification.Method)
	case st.CacheHits > 0 && st.succeeded(core.StageVerify):
		method = "cached"
	case !st.succeeded(core.StageVerify) && !st.EmptyRetrieval:
		method = "failed"
	}

	meta := map[string]any{
		"trace_id":            st.Query.TraceID,
		"category":            string(st.Classification.Category),
		"complexity":          string(st.Classification.Complexity),
		"execution_pattern":   string(st.Classification.ExecutionPattern),
		"sources":             append([]string(nil), st.Sources...),
		"verification_method": method,
		"stage_timings_ms":    timings,
		"cache_hits":          st.CacheHits,
		"processing_time_ms":  time.Since(st.started).Milliseconds(),
	}
	if st.Retrieval != nil {
		meta["retrieval_confidence"] = st.Retrieval.ConfidenceScore
		meta["documents"] = len(st.Retrieval.Results)
	}
	if st.Synthesis != nil {
		meta["synthesis_mode"] = string(st.Synthesis.Mode)
	}
	return meta
}
