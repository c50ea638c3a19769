package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kestrelml/weaklabel/internal/errors"
	"github.com/kestrelml/weaklabel/internal/labelfn"
	"github.com/kestrelml/weaklabel/internal/monitoring"
	"github.com/kestrelml/weaklabel/internal/types"
)

type fakeFunction struct {
	name     string
	evaluate func(doc types.Document) ([]labelfn.Vote, error)
}

func (f *fakeFunction) Name() string { return f.name }

func (f *fakeFunction) Evaluate(doc types.Document) ([]labelfn.Vote, error) {
	return f.evaluate(doc)
}

func alwaysVote(name, label string, confidence float64) labelfn.LabelingFunction {
	return &fakeFunction{name: name, evaluate: func(types.Document) ([]labelfn.Vote, error) {
		return []labelfn.Vote{{Label: label, Confidence: confidence}}, nil
	}}
}

func testCorpus(n int) []types.Document {
	docs := make([]types.Document, n)
	for i := range docs {
		docs[i] = types.Document{ID: fmt.Sprintf("doc-%d", i), Text: "text", WordCount: 1}
	}
	return docs
}

func newTestEngine(cfg types.EngineConfig, fns ...labelfn.LabelingFunction) *Engine {
	registry := labelfn.NewRegistry()
	for _, fn := range fns {
		if err := registry.Register(fn); err != nil {
			panic(err)
		}
	}
	return NewEngine(registry, cfg, monitoring.NewLogger(slog.LevelError), monitoring.NopMetrics())
}

func TestEngine_DegenerateCorpus(t *testing.T) {
	cfg := types.DefaultEngineConfig()

	tests := []struct {
		name string
		docs []types.Document
		fns  []labelfn.LabelingFunction
	}{
		{name: "no documents", docs: nil, fns: []labelfn.LabelingFunction{alwaysVote("f", "x", 1)}},
		{name: "no labeling functions", docs: testCorpus(3), fns: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(cfg, tt.fns...)
			res, err := e.Label(context.Background(), tt.docs)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, apperrors.IsDegenerateCorpus(err))
		})
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	// 10 documents, 3 labeling functions, one abstaining on half of them.
	halfAbstainer := &fakeFunction{name: "half", evaluate: func(doc types.Document) ([]labelfn.Vote, error) {
		if doc.WordCount%2 == 0 {
			return nil, nil
		}
		return []labelfn.Vote{{Label: "fear_framing", Confidence: 0.6}}, nil
	}}

	docs := make([]types.Document, 10)
	for i := range docs {
		docs[i] = types.Document{ID: fmt.Sprintf("doc-%d", i), Text: "text", WordCount: i}
	}

	cfg := types.EngineConfig{
		MaxIterations:        50,
		ConvergenceThreshold: 0.001,
		Regularization:       0.01,
	}
	e := newTestEngine(cfg,
		alwaysVote("steady", "fear_framing", 0.9),
		alwaysVote("contrarian", "loaded_language", 0.4),
		halfAbstainer,
	)

	res, err := e.Label(context.Background(), docs)
	require.NoError(t, err)

	assert.Len(t, res.Records, 10)
	assert.Equal(t, 3, res.Diagnostics.TotalLabelingFunctions)
	assert.Equal(t, 10, res.Diagnostics.TotalDocuments)
	assert.Contains(t, []string{"converged", "exhausted"}, res.Diagnostics.TerminalState)
	assert.Greater(t, res.Diagnostics.Iterations, 0)

	for _, rec := range res.Records {
		sum := 0.0
		for _, p := range rec.Labels {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "document %s has coverage, posterior must normalize", rec.DocumentID)
		assert.NotEmpty(t, rec.Conflicts, "steady and contrarian always compete")
	}
}

func TestEngine_FailingFunctionIsIsolated(t *testing.T) {
	failing := &fakeFunction{name: "broken", evaluate: func(types.Document) ([]labelfn.Vote, error) {
		return nil, errors.New("heuristic error")
	}}

	cfg := types.DefaultEngineConfig()
	e := newTestEngine(cfg, alwaysVote("steady", "fear_framing", 0.8), failing)

	res, err := e.Label(context.Background(), testCorpus(6))
	require.NoError(t, err, "labeling function failures never abort the run")
	require.Len(t, res.Records, 6)

	for _, rec := range res.Records {
		assert.Equal(t, []string{"steady"}, rec.ContributingFunctions)
		assert.InDelta(t, 0.5, rec.Coverage, 1e-12)
	}
}

func TestEngine_UncoveredDocumentKeepsPriors(t *testing.T) {
	selective := &fakeFunction{name: "first_only", evaluate: func(doc types.Document) ([]labelfn.Vote, error) {
		if doc.ID != "doc-0" {
			return nil, nil
		}
		return []labelfn.Vote{
			{Label: "fear_framing", Confidence: 0.9},
			{Label: "loaded_language", Confidence: 0.2},
		}, nil
	}}

	cfg := types.DefaultEngineConfig()
	e := newTestEngine(cfg, selective)

	res, err := e.Label(context.Background(), testCorpus(3))
	require.NoError(t, err)

	uncovered := res.Records[1]
	assert.Zero(t, uncovered.Coverage)
	assert.Empty(t, uncovered.ContributingFunctions)
	// No evidence: uncovered documents all carry the same class priors.
	assert.Equal(t, res.Records[2].Labels, uncovered.Labels)
	sum := 0.0
	for _, p := range uncovered.Labels {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9, "priors themselves sum to one")
}

func TestEngine_ResultsAreDeterministic(t *testing.T) {
	cfg := types.DefaultEngineConfig()
	cfg.Workers = 4

	build := func() (*Result, error) {
		e := newTestEngine(cfg,
			alwaysVote("a", "fear_framing", 0.8),
			alwaysVote("b", "loaded_language", 0.6),
		)
		return e.Label(context.Background(), testCorpus(20))
	}

	first, err := build()
	require.NoError(t, err)
	second, err := build()
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, first.Diagnostics.LabelDistribution, second.Diagnostics.LabelDistribution)
	assert.Equal(t, first.Diagnostics.LabelingFunctionAgreement, second.Diagnostics.LabelingFunctionAgreement)
	assert.Equal(t, first.Diagnostics.Iterations, second.Diagnostics.Iterations)
}
