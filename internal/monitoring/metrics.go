package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's prometheus collectors. All metrics use the
// "weaklabel_" prefix.
type Metrics struct {
	DocumentsLabeled  prometheus.Counter
	Evaluations       *prometheus.CounterVec
	EvaluationFailure *prometheus.CounterVec
	TrainingIterations prometheus.Histogram
	TrainingDuration   prometheus.Histogram
	TrainingRuns       *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics on the given
// registerer. Pass prometheus.DefaultRegisterer in binaries; tests use a
// fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsLabeled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weaklabel_documents_labeled_total",
			Help: "Total documents that received a weak label record.",
		}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weaklabel_lf_evaluations_total",
			Help: "Labeling function evaluations by outcome (vote, abstain).",
		}, []string{"function", "outcome"}),
		EvaluationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weaklabel_lf_failures_total",
			Help: "Labeling function failures recovered as abstentions.",
		}, []string{"function"}),
		TrainingIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weaklabel_training_iterations",
			Help:    "EM iterations per training run.",
			Buckets: prometheus.LinearBuckets(1, 10, 10),
		}),
		TrainingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weaklabel_training_duration_seconds",
			Help:    "Training run duration in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weaklabel_training_runs_total",
			Help: "Training runs by terminal state (converged, exhausted).",
		}, []string{"state"}),
	}

	reg.MustRegister(
		m.DocumentsLabeled,
		m.Evaluations,
		m.EvaluationFailure,
		m.TrainingIterations,
		m.TrainingDuration,
		m.TrainingRuns,
	)

	return m
}

// NopMetrics returns metrics backed by an unexported registry, for callers
// that do not export metrics (the CLI, tests).
func NopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
