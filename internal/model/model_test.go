package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelml/weaklabel/internal/votes"
)

func buildMatrix(record func(m *votes.Matrix)) *votes.Matrix {
	m := votes.NewMatrix()
	record(m)
	m.Freeze()
	return m
}

func TestNewParameters(t *testing.T) {
	p := NewParameters([]string{"a", "b", "c", "d"}, 3)

	for _, label := range []string{"a", "b", "c", "d"} {
		assert.InDelta(t, 0.25, p.Priors[label], 1e-12)
	}
	require.Len(t, p.Accuracies, 3)
	for _, acc := range p.Accuracies {
		assert.Equal(t, initialAccuracy, acc)
	}
}

func TestEstimatePosteriors_NoVotesKeepsPriors(t *testing.T) {
	mx := buildMatrix(func(m *votes.Matrix) {
		m.RecordVote(0, 0, "fear_framing", 0.8)
		m.RecordVote(0, 1, "loaded_language", 0.6)
		m.RecordAbstain(1, 0)
		m.RecordAbstain(1, 1)
	})
	mdl := New(mx.Labels(), mx.Functions())

	post := mdl.EstimatePosteriors(mx)
	require.Len(t, post, 2)

	// Document 1 received no votes: posterior equals the priors exactly.
	assert.Equal(t, mdl.Parameters().Priors, post[1])
}

func TestEstimatePosteriors_NormalizesWithVotes(t *testing.T) {
	mx := buildMatrix(func(m *votes.Matrix) {
		m.RecordVote(0, 0, "fear_framing", 0.8)
		m.RecordVote(0, 1, "loaded_language", 0.6)
	})
	mdl := New(mx.Labels(), mx.Functions())

	post := mdl.EstimatePosteriors(mx)
	require.Len(t, post, 1)

	sum := 0.0
	for _, p := range post[0] {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// The higher-confidence vote dominates with equal accuracies.
	assert.Greater(t, post[0]["fear_framing"], post[0]["loaded_language"])
}

func TestEstimatePosteriors_Idempotent(t *testing.T) {
	mx := buildMatrix(func(m *votes.Matrix) {
		m.RecordVote(0, 0, "fear_framing", 0.8)
		m.RecordVote(1, 1, "loaded_language", 0.4)
		m.RecordAbstain(2, 0)
		m.RecordAbstain(2, 1)
	})
	mdl := New(mx.Labels(), mx.Functions())

	first := mdl.EstimatePosteriors(mx)
	second := mdl.EstimatePosteriors(mx)
	assert.Equal(t, first, second, "E-step is a pure function of matrix and parameters")
}

func TestUpdateParameters_AccuracyStaysClamped(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
	}{
		{name: "extreme confident agreement", confidence: 1.0},
		{name: "minimal confidence", confidence: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mx := buildMatrix(func(m *votes.Matrix) {
				for d := 0; d < 20; d++ {
					m.RecordVote(d, 0, "fear_framing", tt.confidence)
				}
			})
			mdl := New(mx.Labels(), mx.Functions())

			for i := 0; i < 10; i++ {
				post := mdl.EstimatePosteriors(mx)
				mdl.UpdateParameters(mx, post, 0.01)
			}

			for _, acc := range mdl.Parameters().Accuracies {
				assert.GreaterOrEqual(t, acc, accuracyFloor)
				assert.LessOrEqual(t, acc, accuracyCeil)
			}
		})
	}
}

func TestUpdateParameters_NonVotingFunctionUnchanged(t *testing.T) {
	mx := buildMatrix(func(m *votes.Matrix) {
		m.RecordVote(0, 0, "fear_framing", 0.8)
		m.RecordAbstain(0, 1) // function 1 never votes
	})
	mdl := New(mx.Labels(), mx.Functions())

	post := mdl.EstimatePosteriors(mx)
	mdl.UpdateParameters(mx, post, 0.01)

	assert.Equal(t, initialAccuracy, mdl.Parameters().Accuracies[1])
	assert.False(t, anyNaN(mdl.Parameters()))
}

func TestUpdateParameters_PriorsAreMeanPosteriorMass(t *testing.T) {
	mx := buildMatrix(func(m *votes.Matrix) {
		m.RecordVote(0, 0, "fear_framing", 1.0)
		m.RecordVote(1, 0, "loaded_language", 1.0)
	})
	mdl := New(mx.Labels(), mx.Functions())

	post := mdl.EstimatePosteriors(mx)
	mdl.UpdateParameters(mx, post, 0.01)

	sum := 0.0
	for _, p := range mdl.Parameters().Priors {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestUpdateParameters_ZeroRegularization(t *testing.T) {
	mx := buildMatrix(func(m *votes.Matrix) {
		m.RecordVote(0, 0, "fear_framing", 0.5)
	})
	mdl := New(mx.Labels(), mx.Functions())

	post := mdl.EstimatePosteriors(mx)
	mdl.UpdateParameters(mx, post, 0)

	assert.False(t, anyNaN(mdl.Parameters()))
}

func TestLogLikelihood(t *testing.T) {
	tests := []struct {
		name       string
		posteriors []map[string]float64
		want       func(t *testing.T, ll float64)
	}{
		{
			name:       "empty corpus is zero",
			posteriors: nil,
			want: func(t *testing.T, ll float64) {
				assert.Equal(t, 0.0, ll)
			},
		},
		{
			name:       "certain posterior is zero entropy",
			posteriors: []map[string]float64{{"a": 1.0, "b": 0.0}},
			want: func(t *testing.T, ll float64) {
				assert.Equal(t, 0.0, ll, "zero terms are skipped, log(1) is 0")
			},
		},
		{
			name:       "uncertain posterior is negative",
			posteriors: []map[string]float64{{"a": 0.5, "b": 0.5}},
			want: func(t *testing.T, ll float64) {
				assert.Less(t, ll, 0.0)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, LogLikelihood(tt.posteriors))
		})
	}
}

func anyNaN(p *Parameters) bool {
	for _, v := range p.Priors {
		if v != v {
			return true
		}
	}
	for _, v := range p.Accuracies {
		if v != v {
			return true
		}
	}
	return false
}
