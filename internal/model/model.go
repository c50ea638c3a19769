// Package model implements the generative label model: per-label class
// priors and a reliability scalar per labeling function, fit by alternating
// posterior estimation and parameter updates.
//
// The E-step is a weighted-voting approximation of a true Bayesian label
// model, not an exact generative-model inversion: each vote contributes
// confidence × accuracy to its label, and the result is normalized. That
// simplification is what keeps the engine tractable without a numerical
// optimizer.
package model

import (
	"math"

	"github.com/kestrelml/weaklabel/internal/votes"
)

const (
	// Accuracy clamp bounds. Keeping accuracies away from 0 and 1
	// prevents a function from self-reinforcing to certainty or
	// collapsing to irrelevance across E-steps.
	accuracyFloor = 0.1
	accuracyCeil  = 0.9

	initialAccuracy = 0.7
)

// Parameters holds the model's mutable state: class priors summing to 1
// over the observed labels, and one accuracy scalar per labeling function.
// Owned exclusively by the Model; mutated in place each M-step.
type Parameters struct {
	Priors     map[string]float64 `json:"priors"`
	Accuracies []float64          `json:"accuracies"`
}

// NewParameters initializes uniform priors over the label set and a
// moderate fixed accuracy per function.
func NewParameters(labels []string, functions int) *Parameters {
	priors := make(map[string]float64, len(labels))
	if len(labels) > 0 {
		uniform := 1.0 / float64(len(labels))
		for _, label := range labels {
			priors[label] = uniform
		}
	}

	accuracies := make([]float64, functions)
	for i := range accuracies {
		accuracies[i] = initialAccuracy
	}

	return &Parameters{Priors: priors, Accuracies: accuracies}
}

// Model exposes posterior estimation (E-step), parameter updates (M-step),
// and the log-likelihood proxy used for convergence checks.
type Model struct {
	params *Parameters
}

// New creates a model over the matrix's observed labels and functions.
func New(labels []string, functions int) *Model {
	return &Model{params: NewParameters(labels, functions)}
}

// Parameters returns the model's parameter state. Callers must not mutate
// it outside the M-step.
func (m *Model) Parameters() *Parameters {
	return m.params
}

func (m *Model) accuracy(lf int) float64 {
	if lf < 0 || lf >= len(m.params.Accuracies) {
		return initialAccuracy
	}
	return m.params.Accuracies[lf]
}

// EstimatePosteriors runs the E-step: for each document, start from the
// class priors, add confidence × accuracy for every vote, then normalize.
// Documents with no votes keep the raw priors, unnormalized by evidence.
// Pure function of the matrix and current parameters.
func (m *Model) EstimatePosteriors(mx *votes.Matrix) []map[string]float64 {
	docs := mx.Documents()
	out := make([]map[string]float64, docs)

	for d := 0; d < docs; d++ {
		post := make(map[string]float64, len(m.params.Priors))
		for label, p := range m.params.Priors {
			post[label] = p
		}

		voted := false
		for _, v := range mx.VotesFor(d) {
			post[v.Label] += v.Confidence * m.accuracy(v.LF)
			voted = true
		}

		if voted {
			total := 0.0
			for _, p := range post {
				total += p
			}
			if total > 0 {
				for label := range post {
					post[label] /= total
				}
			}
		}
		out[d] = post
	}

	return out
}

// UpdateParameters runs the M-step against posteriors from the current
// E-step. Class priors become the mean posterior mass per label; each
// function's accuracy becomes (correct + λ)/(total + 2λ) over its votes,
// clamped. A function that never voted keeps its accuracy unchanged, as
// does every prior when the corpus is empty; no value may become NaN.
func (m *Model) UpdateParameters(mx *votes.Matrix, posteriors []map[string]float64, regularization float64) {
	docs := len(posteriors)
	if docs > 0 {
		sums := make(map[string]float64, len(m.params.Priors))
		for _, post := range posteriors {
			for label, p := range post {
				sums[label] += p
			}
		}
		for label := range m.params.Priors {
			m.params.Priors[label] = sums[label] / float64(docs)
		}
	}

	functions := len(m.params.Accuracies)
	correct := make([]float64, functions)
	total := make([]float64, functions)
	for d := 0; d < docs; d++ {
		for _, v := range mx.VotesFor(d) {
			if v.LF < 0 || v.LF >= functions {
				continue
			}
			correct[v.LF] += posteriors[d][v.Label] * v.Confidence
			total[v.LF] += v.Confidence
		}
	}

	for lf := 0; lf < functions; lf++ {
		if total[lf] <= 0 {
			continue // never voted; leave unchanged rather than divide by zero
		}
		acc := (correct[lf] + regularization) / (total[lf] + 2*regularization)
		m.params.Accuracies[lf] = clamp(acc, accuracyFloor, accuracyCeil)
	}
}

// LogLikelihood computes the entropy-based fit proxy: the sum over
// documents of Σ posterior × log(posterior). Not a true data
// log-likelihood; used only as a convergence heuristic.
func LogLikelihood(posteriors []map[string]float64) float64 {
	ll := 0.0
	for _, post := range posteriors {
		for _, p := range post {
			if p > 0 {
				ll += p * math.Log(p)
			}
		}
	}
	return ll
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
