// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/cite"
	"github.com/poiesic/attest/core"
	"github.com/poiesic/attest/retrieval"
	"github.com/poiesic/attest/sources"
	"github.com/poiesic/attest/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Classifier derives routing hints from query text. It must not fail.
type Classifier interface {
	Classify(text string) core.QueryClassification
}

// Retriever runs hybrid retrievals. *retrieval.Engine implements it.
type Retriever interface {
	Retrieve(ctx context.Context, req retrieval.Request) (*core.RetrievalOutcome, error)
	RetrieveEach(ctx context.Context, req retrieval.Request, subQueries []string) (*core.RetrievalOutcome, error)
	Registry() *sources.Registry
}

// Verifier checks an answer against evidence. *verify.Verifier implements it.
type Verifier interface {
	Verify(ctx context.Context, answer string, evidence []*core.EnhancedResult) (*core.VerificationOutcome, error)
}

// Orchestrator runs the answer pipeline. It holds no per-request state and
// is safe for concurrent use.
type Orchestrator struct {
	classifier  Classifier
	retriever   Retriever
	verifier    Verifier
	synthesizer ai.Synthesizer
	formatter   cite.Formatter
	cache       storage.Cache
	metrics     Metrics
	config      Config
	tracer      trace.Tracer
	logger      *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// WithFormatter sets the citation formatter.
// Default is cite.NumberedFormatter.
func WithFormatter(f cite.Formatter) Option {
	return func(o *Orchestrator) error {
		if f != nil {
			o.formatter = f
		}
		return nil
	}
}

// WithCache enables caching of retrievals and verified answers.
func WithCache(c storage.Cache) Option {
	return func(o *Orchestrator) error {
		o.cache = c
		return nil
	}
}

// WithMetrics sets the metrics sink.
// Default discards metrics.
func WithMetrics(m Metrics) Option {
	return func(o *Orchestrator) error {
		if m == nil {
			m = NoopMetrics()
		}
		o.metrics = m
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// Default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) error {
		if tp != nil {
			o.tracer = tp.Tracer(traceScope)
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// New creates an Orchestrator.
func New(classifier Classifier, retriever Retriever, verifier Verifier, synthesizer ai.Synthesizer, opts ...Option) (*Orchestrator, error) {
	if classifier == nil {
		return nil, ErrClassifierRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if verifier == nil {
		return nil, ErrVerifierRequired
	}
	if synthesizer == nil {
		return nil, ErrSynthesizerRequired
	}

	o := &Orchestrator{
		classifier:  classifier,
		retriever:   retriever,
		verifier:    verifier,
		synthesizer: synthesizer,
		formatter:   cite.NumberedFormatter{},
		metrics:     NoopMetrics(),
		config:      DefaultConfig(),
		tracer:      otel.Tracer(traceScope),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.logger.With("component", "pipeline")

	if t, ok := retriever.(interface{ SourceTimeout() time.Duration }); ok {
		if timeout := t.SourceTimeout(); timeout+retrieval.DeadlineGrace >= o.config.Budgets.Retrieve {
			o.logger.Warn("source timeout does not fit the retrieve budget; source calls will be cut at the stage deadline",
				"source_timeout", timeout,
				"retrieve_budget", o.config.Budgets.Retrieve)
		}
	}
	return o, nil
}

// Config returns the orchestrator's configuration.
func (o *Orchestrator) Config() Config {
	return o.config
}

// Process answers q. Partial failures are reported through the response's
// Status and Warnings; an error is returned only for an invalid query.
func (o *Orchestrator) Process(ctx context.Context, q core.Query) (*core.FinalResponse, error) {
	st, err := o.Run(ctx, q)
	if err != nil {
		return nil, err
	}
	return st.Response, nil
}

// Run is Process returning the full request state, including every stage
// result.
func (o *Orchestrator) Run(ctx context.Context, q core.Query) (*State, error) {
	if err := core.ValidateQuery(q); err != nil {
		return nil, err
	}
	if q.TraceID == "" {
		q.TraceID = uuid.NewString()
	}

	ctx, span := o.tracer.Start(ctx, traceSpanProcess, trace.WithAttributes(
		attribute.String(traceAttrTraceID, q.TraceID)))
	defer span.End()

	st := newState(q)
	deadline := st.started.Add(o.config.Budgets.Total)

	o.classify(ctx, st)
	span.SetAttributes(attribute.String(traceAttrCategory, string(st.Classification.Category)))
	o.retrieve(ctx, st)
	o.verify(ctx, st)
	o.synthesize(ctx, st, deadline)
	o.cite(ctx, st)

	st.Response = o.aggregate(st)
	span.SetAttributes(attribute.String(traceAttrStatus, string(st.Response.Status)))

	o.logger.Info("query processed",
		"trace_id", q.TraceID,
		"status", st.Response.Status,
		"confidence", st.Response.Confidence,
		"warnings", len(st.Warnings),
		"elapsed", time.Since(st.started))
	return st, nil
}

// runStage runs fn under budget in its own goroutine and records the result
// on st. fn must not touch st; its output travels in the result's Data. A
// stage that panics or outlives its budget is recorded as failed and its
// late output is discarded.
func (o *Orchestrator) runStage(ctx context.Context, st *State, stage core.Stage, budget time.Duration, fn func(ctx context.Context) *core.StageResult) *core.StageResult {
	start := time.Now()
	ctx, span := o.startStageSpan(ctx, stage, st.Query.TraceID)
	defer span.End()

	stageCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan *core.StageResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &core.StageResult{Err: fmt.Errorf("%w: %v", ErrStagePanic, r)}
			}
		}()
		done <- fn(stageCtx)
	}()

	var result *core.StageResult
	select {
	case result = <-done:
		if result == nil {
			result = &core.StageResult{Success: true}
		}
		if !result.Success && errors.Is(result.Err, context.DeadlineExceeded) {
			result.Err = fmt.Errorf("%w: %w", ErrStageTimeout, result.Err)
		}
	case <-stageCtx.Done():
		result = &core.StageResult{Err: fmt.Errorf("%w: %s after %s", ErrStageTimeout, stage, budget)}
	}

	result.Stage = stage
	result.ExecutionTime = time.Since(start)
	if !result.Success && result.Err != nil {
		result.Data = nil
		result.Err = &core.StageError{Stage: stage, Err: result.Err}
	}
	st.StageResults[stage] = result

	markSpanResult(span, result)
	o.metrics.ObserveStage(string(stage), stageStatus(result), result.ExecutionTime)
	o.logger.Debug("stage finished",
		"trace_id", st.Query.TraceID,
		"stage", stage,
		"status", stageStatus(result),
		"elapsed", result.ExecutionTime,
		"err", result.Err)
	return result
}

// skipStage records stage as skipped without running it.
func (o *Orchestrator) skipStage(ctx context.Context, st *State, stage core.Stage, reason string) *core.StageResult {
	return o.runStage(ctx, st, stage, time.Second, func(context.Context) *core.StageResult {
		return &core.StageResult{SkipReason: reason}
	})
}

func failed(err error) *core.StageResult {
	return &core.StageResult{Err: err}
}
