package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelml/weaklabel/internal/types"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db)
}

func sampleDiagnostics() types.CorpusDiagnostics {
	return types.CorpusDiagnostics{
		TotalDocuments:         3,
		TotalLabelingFunctions: 2,
		Coverage:               0.66,
		ConflictRate:           0.33,
		LabelDistribution:      map[string]float64{"fear_framing": 0.66},
		TerminalState:          "converged",
		Iterations:             8,
		FinalLogLikelihood:     -1.2,
	}
}

func sampleRecords() []types.WeakLabel {
	return []types.WeakLabel{
		{
			DocumentID:            "doc-1",
			Labels:                map[string]float64{"fear_framing": 0.9, "loaded_language": 0.1},
			ContributingFunctions: []string{"fear_lexicon", "loaded_terms"},
			Coverage:              1,
		},
		{
			DocumentID: "doc-2",
			Labels:     map[string]float64{"fear_framing": 0.5, "loaded_language": 0.5},
			Coverage:   0,
		},
	}
}

func TestRepository_SaveAndGetRun(t *testing.T) {
	repo := newTestRepo(t)

	run := NewRun(types.DefaultEngineConfig(), sampleDiagnostics())
	require.NoError(t, repo.SaveRun(run, sampleRecords()))

	got, err := repo.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "converged", got.TerminalState)
	assert.Equal(t, 8, got.Iterations)
	assert.Equal(t, map[string]float64{"fear_framing": 0.66}, got.Diagnostics.LabelDistribution)
	assert.Equal(t, types.DefaultEngineConfig(), got.Config)
}

func TestRepository_GetRecordsPreservesOrder(t *testing.T) {
	repo := newTestRepo(t)

	run := NewRun(types.DefaultEngineConfig(), sampleDiagnostics())
	records := sampleRecords()
	require.NoError(t, repo.SaveRun(run, records))

	got, err := repo.GetRecords(run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "doc-1", got[0].DocumentID)
	assert.Equal(t, "doc-2", got[1].DocumentID)
	assert.Equal(t, records[0].Labels, got[0].Labels)
	assert.Equal(t, records[0].ContributingFunctions, got[0].ContributingFunctions)
}

func TestRepository_GetRunNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetRun("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRepository_ListRuns(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.SaveRun(NewRun(types.DefaultEngineConfig(), sampleDiagnostics()), nil))
	}

	runs, err := repo.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunService_RecordAndGet(t *testing.T) {
	repo := newTestRepo(t)
	svc := NewRunService(repo)

	id, err := svc.RecordRun(types.DefaultEngineConfig(), sampleDiagnostics(), sampleRecords())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, records, err := svc.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, 3, run.DocumentCount)
	assert.Len(t, records, 2)
}
