// Package errors defines the engine's error taxonomy on top of
// errbuilder-go. Per-document and per-function failures are recoverable and
// only logged; corpus-level preconditions are fatal.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory classifies an error for handling and logging.
type ErrorCategory string

const (
	CategoryValidation       ErrorCategory = "validation"
	CategoryCorpus           ErrorCategory = "corpus"
	CategoryLabelingFunction ErrorCategory = "labeling_function"
	CategoryConfiguration    ErrorCategory = "configuration"
	CategoryInternal         ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with the category and HTTP status the
// API binary uses when surfacing it.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Category, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from an errbuilder with category context.
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewDegenerateCorpusError reports an empty corpus or an empty labeling
// function set. This is the one fatal precondition: there is no meaningful
// posterior to compute, so it must surface before any training attempt.
func NewDegenerateCorpusError(documents, functions int) *AppError {
	errMap := errbuilder.ErrorMap{}
	errMap.Set("documents", fmt.Errorf("%d", documents))
	errMap.Set("labeling_functions", fmt.Errorf("%d", functions))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("degenerate corpus: need at least one document and one labeling function").
		WithDetails(errbuilder.NewErrDetails(errMap))

	return NewAppError(builder, CategoryCorpus, http.StatusUnprocessableEntity)
}

// NewLabelingFunctionError records a labeling function failure during
// evaluation. The adapter converts these to abstentions; they are surfaced
// only for logging and never abort the population pass.
func NewLabelingFunctionError(function, documentID string, cause error) *AppError {
	errMap := errbuilder.ErrorMap{}
	errMap.Set("function", errors.New(function))
	errMap.Set("document_id", errors.New(documentID))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("labeling function %q failed", function)).
		WithDetails(errbuilder.NewErrDetails(errMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryLabelingFunction, http.StatusInternalServerError)
}

// NewMalformedVoteError records a vote with an empty label. Confidence out
// of range is clamped rather than reported; an empty label drops the vote.
func NewMalformedVoteError(function, documentID string) *AppError {
	errMap := errbuilder.ErrorMap{}
	errMap.Set("function", errors.New(function))
	errMap.Set("document_id", errors.New(documentID))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("labeling function %q emitted a vote with an empty label", function)).
		WithDetails(errbuilder.NewErrDetails(errMap))

	return NewAppError(builder, CategoryLabelingFunction, http.StatusInternalServerError)
}

// NewValidationError creates a request validation error.
func NewValidationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError)
}

// NewInternalError creates an internal error.
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryInternal, http.StatusInternalServerError)
}

// IsDegenerateCorpus reports whether err is the fatal corpus precondition.
func IsDegenerateCorpus(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == CategoryCorpus
	}
	return false
}

// ToAppError converts any error to an AppError.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	return NewInternalError("unexpected error", err)
}

// LogError logs an AppError at the level its category warrants. Recoverable
// labeling function failures log as warnings, everything else as errors.
func LogError(logger *slog.Logger, err *AppError) {
	entry := logger.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
	)

	switch err.Category {
	case CategoryLabelingFunction, CategoryValidation:
		if cause := err.Unwrap(); cause != nil {
			entry.Warn(err.ErrBuilder.Msg, "cause", cause)
		} else {
			entry.Warn(err.ErrBuilder.Msg)
		}
	default:
		if cause := err.Unwrap(); cause != nil {
			entry.Error(err.ErrBuilder.Msg, "cause", cause)
		} else {
			entry.Error(err.ErrBuilder.Msg)
		}
	}
}

// ErrorHandler is a gin middleware that converts accumulated errors into a
// structured JSON response.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			appErr := ToAppError(c.Errors.Last().Err)
			LogError(slog.Default(), appErr)
			c.JSON(appErr.HTTPStatus, gin.H{
				"error":    appErr.Error(),
				"category": appErr.Category,
			})
		}
	}
}
