package model

import (
	"context"
	"math"
	"time"

	"github.com/kestrelml/weaklabel/internal/monitoring"
	"github.com/kestrelml/weaklabel/internal/types"
	"github.com/kestrelml/weaklabel/internal/votes"
)

// State is a terminal training state. Training always terminates: either
// the log-likelihood delta dropped below the threshold, or the iteration
// budget ran out. Neither is an error.
type State string

const (
	StateConverged State = "converged"
	StateExhausted State = "exhausted"
)

// Result carries the final parameters and the posteriors computed in the
// last completed iteration's E-step. The output assembler reuses these
// posteriors; they are never recomputed after training.
type Result struct {
	State         State
	Iterations    int
	LogLikelihood float64
	Delta         float64
	Posteriors    []map[string]float64
	Parameters    *Parameters
	Duration      time.Duration
}

// Trainer drives E/M iterations to convergence or budget exhaustion.
type Trainer struct {
	model   *Model
	cfg     types.EngineConfig
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
}

// NewTrainer creates a trainer over a model. The config's LearningRate is
// carried but unused by the parameter update; it is reserved.
func NewTrainer(m *Model, cfg types.EngineConfig, logger *monitoring.Logger, metrics *monitoring.Metrics) *Trainer {
	return &Trainer{model: m, cfg: cfg, logger: logger, metrics: metrics}
}

// Train iterates E-step, M-step, log-likelihood until the delta falls below
// the convergence threshold or maxIterations is reached. The delta check is
// deliberately one-sided: a decrease also counts as convergence, because
// the approximate E-step does not guarantee monotonic improvement.
//
// Cancellation is checked only at iteration boundaries; a cancelled run
// returns the valid state reached so far, marked exhausted.
func (t *Trainer) Train(ctx context.Context, mx *votes.Matrix) *Result {
	start := time.Now()

	prev := math.Inf(-1)
	state := StateExhausted
	var posteriors []map[string]float64
	var ll, delta float64

	iterations := 0
	for i := 0; i < t.cfg.MaxIterations; i++ {
		posteriors = t.model.EstimatePosteriors(mx)
		t.model.UpdateParameters(mx, posteriors, t.cfg.Regularization)
		ll = LogLikelihood(posteriors)
		delta = ll - prev
		prev = ll
		iterations = i + 1

		t.logger.IterationLogger(iterations, ll, delta)

		if delta < t.cfg.ConvergenceThreshold {
			state = StateConverged
			break
		}
		if ctx.Err() != nil {
			t.logger.Warn("Training Cancelled", "iterations", iterations)
			break
		}
	}

	duration := time.Since(start)
	t.logger.TrainingLogger(string(state), iterations, ll, duration)
	t.metrics.TrainingIterations.Observe(float64(iterations))
	t.metrics.TrainingDuration.Observe(duration.Seconds())
	t.metrics.TrainingRuns.WithLabelValues(string(state)).Inc()

	return &Result{
		State:         state,
		Iterations:    iterations,
		LogLikelihood: ll,
		Delta:         delta,
		Posteriors:    posteriors,
		Parameters:    t.model.Parameters(),
		Duration:      duration,
	}
}
