package types

import "time"

// Document is a cleaned corpus entry handed to the engine. The engine never
// mutates it; identity is the ID.
type Document struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

// Conflict records one competing label on a document: the label, the
// labeling functions that voted for it, and their mean confidence.
type Conflict struct {
	Label      string   `json:"label"`
	Functions  []string `json:"functions"`
	Confidence float64  `json:"confidence"`
}

// WeakLabel is the per-document output record: the final posterior over
// labels plus provenance. Immutable once assembled.
type WeakLabel struct {
	DocumentID            string             `json:"document_id"`
	Labels                map[string]float64 `json:"labels"`
	ContributingFunctions []string           `json:"contributing_functions"`
	Coverage              float64            `json:"coverage"`
	Conflicts             []Conflict         `json:"conflicts"`
}

// CorpusDiagnostics summarizes a labeling run across the whole corpus.
// LabelDistribution is the fraction of documents whose posterior for a
// label exceeds 0.5; agreement keys are formatted "(fnA,fnB)".
type CorpusDiagnostics struct {
	TotalDocuments            int                `json:"total_documents"`
	TotalLabelingFunctions    int                `json:"total_labeling_functions"`
	Coverage                  float64            `json:"coverage"`
	ConflictRate              float64            `json:"conflict_rate"`
	LabelDistribution         map[string]float64 `json:"label_distribution"`
	LabelingFunctionAgreement map[string]float64 `json:"labeling_function_agreement"`
	TerminalState             string             `json:"terminal_state"`
	Iterations                int                `json:"iterations"`
	FinalLogLikelihood        float64            `json:"final_log_likelihood"`
	TrainingDuration          time.Duration      `json:"training_duration_ns"`
}

// EngineConfig controls the training loop. LearningRate is accepted but
// currently unused by the parameter update; it is reserved.
type EngineConfig struct {
	MaxIterations        int     `json:"max_iterations" yaml:"max_iterations"`
	ConvergenceThreshold float64 `json:"convergence_threshold" yaml:"convergence_threshold"`
	LearningRate         float64 `json:"learning_rate" yaml:"learning_rate"`
	Regularization       float64 `json:"regularization" yaml:"regularization"`
	Workers              int     `json:"workers" yaml:"workers"`
}

// DefaultEngineConfig returns the defaults used by the CLI and server when
// no config file overrides them.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxIterations:        50,
		ConvergenceThreshold: 0.001,
		LearningRate:         0.1,
		Regularization:       0.01,
		Workers:              0, // 0 means GOMAXPROCS
	}
}

// LabelRequest is the request body for the label endpoint.
type LabelRequest struct {
	Documents []Document `json:"documents" binding:"required"`
}

// LabelResponse is the response body for the label endpoint.
type LabelResponse struct {
	RunID       string            `json:"run_id"`
	Records     []WeakLabel       `json:"records"`
	Diagnostics CorpusDiagnostics `json:"diagnostics"`
}
