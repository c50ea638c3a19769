package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/kestrelml/weaklabel/internal/types"
)

// Run is a stored labeling run, including the engine configuration it
// ran with.
type Run struct {
	ID            string                  `json:"id"`
	DocumentCount int                     `json:"document_count"`
	FunctionCount int                     `json:"function_count"`
	TerminalState string                  `json:"terminal_state"`
	Iterations    int                     `json:"iterations"`
	LogLikelihood float64                 `json:"log_likelihood"`
	Coverage      float64                 `json:"coverage"`
	ConflictRate  float64                 `json:"conflict_rate"`
	Config        types.EngineConfig      `json:"config"`
	Diagnostics   types.CorpusDiagnostics `json:"diagnostics"`
	CreatedAt     time.Time               `json:"created_at"`
}

// NewRun builds a Run row from the engine configuration and corpus
// diagnostics.
func NewRun(cfg types.EngineConfig, diag types.CorpusDiagnostics) *Run {
	return &Run{
		ID:            uuid.New().String(),
		DocumentCount: diag.TotalDocuments,
		FunctionCount: diag.TotalLabelingFunctions,
		TerminalState: diag.TerminalState,
		Iterations:    diag.Iterations,
		LogLikelihood: diag.FinalLogLikelihood,
		Coverage:      diag.Coverage,
		ConflictRate:  diag.ConflictRate,
		Config:        cfg,
		Diagnostics:   diag,
		CreatedAt:     time.Now(),
	}
}
