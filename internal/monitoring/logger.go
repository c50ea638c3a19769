package monitoring

import (
	"log/slog"
	"os"
	"time"
)

// Logger provides structured logging with engine-specific helpers.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a JSON logger writing to stdout.
func NewLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})

	return &Logger{Logger: slog.New(handler)}
}

// PopulationLogger logs completion of the vote matrix population pass.
func (l *Logger) PopulationLogger(documents, functions, failures int, duration time.Duration) {
	l.Info("Population Pass Completed",
		"documents", documents,
		"labeling_functions", functions,
		"failures", failures,
		"duration_ms", duration.Milliseconds(),
	)
}

// IterationLogger logs one E/M iteration.
func (l *Logger) IterationLogger(iteration int, logLikelihood, delta float64) {
	l.Debug("EM Iteration",
		"iteration", iteration,
		"log_likelihood", logLikelihood,
		"delta", delta,
	)
}

// TrainingLogger logs training termination.
func (l *Logger) TrainingLogger(state string, iterations int, logLikelihood float64, duration time.Duration) {
	l.Info("Training Completed",
		"terminal_state", state,
		"iterations", iterations,
		"log_likelihood", logLikelihood,
		"duration_ms", duration.Milliseconds(),
	)
}

// LabelingFunctionLogger logs a recovered labeling function failure.
func (l *Logger) LabelingFunctionLogger(function, documentID string, err error) {
	l.Warn("Labeling Function Failure",
		"function", function,
		"document_id", documentID,
		"error", err.Error(),
	)
}

// RequestLogger logs HTTP request details for the API binary.
func (l *Logger) RequestLogger(method, path, ip string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}
