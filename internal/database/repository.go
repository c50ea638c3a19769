package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kestrelml/weaklabel/internal/types"
)

// Repository handles run and weak label persistence.
type Repository struct {
	db *DB
}

// NewRepository creates a new repository.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// SaveRun stores a run and its weak label records in one transaction.
func (r *Repository) SaveRun(run *Run, records []types.WeakLabel) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	diagJSON, err := json.Marshal(run.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, document_count, function_count, terminal_state, iterations, log_likelihood, coverage, conflict_rate, config, diagnostics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.DocumentCount, run.FunctionCount, run.TerminalState, run.Iterations,
		run.LogLikelihood, run.Coverage, run.ConflictRate, string(cfgJSON), string(diagJSON), run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO weak_labels (id, run_id, document_id, labels, contributing_functions, coverage, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, rec := range records {
		labelsJSON, err := json.Marshal(rec.Labels)
		if err != nil {
			return fmt.Errorf("failed to marshal labels for %s: %w", rec.DocumentID, err)
		}
		fnsJSON, err := json.Marshal(rec.ContributingFunctions)
		if err != nil {
			return fmt.Errorf("failed to marshal functions for %s: %w", rec.DocumentID, err)
		}
		if _, err := stmt.Exec(uuid.New().String(), run.ID, rec.DocumentID,
			string(labelsJSON), string(fnsJSON), rec.Coverage, now); err != nil {
			return fmt.Errorf("failed to insert weak label for %s: %w", rec.DocumentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun fetches a single run by ID.
func (r *Repository) GetRun(id string) (*Run, error) {
	var run Run
	var cfgJSON, diagJSON string
	err := r.db.QueryRow(`
		SELECT id, document_count, function_count, terminal_state, iterations, log_likelihood, coverage, conflict_rate, config, diagnostics, created_at
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.DocumentCount, &run.FunctionCount, &run.TerminalState,
		&run.Iterations, &run.LogLikelihood, &run.Coverage, &run.ConflictRate, &cfgJSON, &diagJSON, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := json.Unmarshal([]byte(diagJSON), &run.Diagnostics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(`
		SELECT id, document_count, function_count, terminal_state, iterations, log_likelihood, coverage, conflict_rate, config, diagnostics, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var cfgJSON, diagJSON string
		if err := rows.Scan(&run.ID, &run.DocumentCount, &run.FunctionCount, &run.TerminalState,
			&run.Iterations, &run.LogLikelihood, &run.Coverage, &run.ConflictRate, &cfgJSON, &diagJSON, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if err := json.Unmarshal([]byte(diagJSON), &run.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRecords fetches the weak label records for a run.
func (r *Repository) GetRecords(runID string) ([]types.WeakLabel, error) {
	rows, err := r.db.Query(`
		SELECT document_id, labels, contributing_functions, coverage
		FROM weak_labels
		WHERE run_id = ?
		ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query weak labels: %w", err)
	}
	defer rows.Close()

	var records []types.WeakLabel
	for rows.Next() {
		var rec types.WeakLabel
		var labelsJSON, fnsJSON string
		if err := rows.Scan(&rec.DocumentID, &labelsJSON, &fnsJSON, &rec.Coverage); err != nil {
			return nil, fmt.Errorf("failed to scan weak label: %w", err)
		}
		if err := json.Unmarshal([]byte(labelsJSON), &rec.Labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
		if err := json.Unmarshal([]byte(fnsJSON), &rec.ContributingFunctions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal functions: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
