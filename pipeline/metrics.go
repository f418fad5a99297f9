package pipeline

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives cross-request aggregates. Implementations must be safe
// for concurrent use.
type Metrics interface {
	ObserveStage(stage, status string, duration time.Duration)
	IncRequest(status string)
	IncSourceError(sourceID string)
}

// Stage status labels.
const (
	stageStatusSuccess = "success"
	stageStatusFailure = "failure"
	stageStatusSkipped = "skipped"
)

type noopMetrics struct{}

func (noopMetrics) ObserveStage(string, string, time.Duration) {}
func (noopMetrics) IncRequest(string)                          {}
func (noopMetrics) IncSourceError(string)                      {}

// NoopMetrics returns a Metrics sink that discards everything.
func NoopMetrics() Metrics {
	return noopMetrics{}
}

// PrometheusMetrics exports pipeline activity as Prometheus collectors.
type PrometheusMetrics struct {
	stageDuration *prometheus.HistogramVec
	requests      *prometheus.CounterVec
	sourceErrors  *prometheus.CounterVec
}

var _ Metrics = (*PrometheusMetrics)(nil)

// MustNewPrometheusMetrics registers the pipeline collectors with reg, or
// with the default registerer when reg is nil. Collectors that are already
// registered are reused. Any other registration error panics.
func MustNewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &PrometheusMetrics{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "attest",
				Name:      "stage_duration_seconds",
				Help:      "Duration spent in each pipeline stage.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"stage", "status"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "attest",
				Name:      "requests_total",
				Help:      "Processed queries by final status.",
			},
			[]string{"status"},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "attest",
				Name:      "source_errors_total",
				Help:      "Source adapters that failed or timed out during retrieval.",
			},
			[]string{"source"},
		),
	}

	m.stageDuration = register(reg, m.stageDuration)
	m.requests = register(reg, m.requests)
	m.sourceErrors = register(reg, m.sourceErrors)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *PrometheusMetrics) ObserveStage(stage, status string, duration time.Duration) {
	m.stageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) IncRequest(status string) {
	m.requests.WithLabelValues(status).Inc()
}

func (m *PrometheusMetrics) IncSourceError(sourceID string) {
	m.sourceErrors.WithLabelValues(sourceID).Inc()
}
