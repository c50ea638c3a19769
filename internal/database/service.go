package database

import (
	"fmt"

	"github.com/kestrelml/weaklabel/internal/types"
)

// RunService provides business logic around stored labeling runs.
type RunService struct {
	repo *Repository
}

// NewRunService creates a new run service.
func NewRunService(repo *Repository) *RunService {
	return &RunService{repo: repo}
}

// RecordRun persists a completed labeling run and returns its ID.
func (s *RunService) RecordRun(cfg types.EngineConfig, diag types.CorpusDiagnostics, records []types.WeakLabel) (string, error) {
	run := NewRun(cfg, diag)
	if err := s.repo.SaveRun(run, records); err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}
	return run.ID, nil
}

// GetRun returns a stored run with its records.
func (s *RunService) GetRun(id string) (*Run, []types.WeakLabel, error) {
	run, err := s.repo.GetRun(id)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.repo.GetRecords(id)
	if err != nil {
		return nil, nil, err
	}
	return run, records, nil
}

// ListRuns returns recent runs without their records.
func (s *RunService) ListRuns(limit int) ([]Run, error) {
	return s.repo.ListRuns(limit)
}
