package pipeline

import (
	"context"

	"github.com/poiesic/attest/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	traceScope = "attest.pipeline"

	traceSpanProcess = "attest.process"
	traceSpanStage   = "pipeline."

	traceAttrTraceID  = "attest.trace_id"
	traceAttrStage    = "attest.stage"
	traceAttrStatus   = "attest.status"
	traceAttrCategory = "attest.category"
	traceAttrSkip     = "attest.skip_reason"
)

func (o *Orchestrator) startStageSpan(ctx context.Context, stage core.Stage, traceID string) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, traceSpanStage+string(stage), trace.WithAttributes(
		attribute.String(traceAttrTraceID, traceID),
		attribute.String(traceAttrStage, string(stage)),
	))
}

func markSpanResult(span trace.Span, result *core.StageResult) {
	switch {
	case result.Skipped():
		span.SetAttributes(
			attribute.String(traceAttrStatus, stageStatusSkipped),
			attribute.String(traceAttrSkip, result.SkipReason))
	case !result.Success:
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Err.Error())
		}
		span.SetAttributes(attribute.String(traceAttrStatus, stageStatusFailure))
	default:
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.String(traceAttrStatus, stageStatusSuccess))
	}
}

func stageStatus(result *core.StageResult) string {
	switch {
	case result.Skipped():
		return stageStatusSkipped
	case !result.Success:
		return stageStatusFailure
	default:
		return stageStatusSuccess
	}
}
