package labelfn

import (
	"fmt"
	"sync"

	apperrors "github.com/kestrelml/weaklabel/internal/errors"
	"github.com/kestrelml/weaklabel/internal/monitoring"
	"github.com/kestrelml/weaklabel/internal/types"
	"github.com/kestrelml/weaklabel/internal/votes"
)

// breaker trips a labeling function that keeps failing so the rest of the
// population pass skips it instead of re-failing on every document. Votes
// reset the failure streak.
type breaker struct {
	mu        sync.Mutex
	threshold int
	failures  map[int]int
	tripped   map[int]bool
}

func newBreaker(threshold int) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	return &breaker{
		threshold: threshold,
		failures:  make(map[int]int),
		tripped:   make(map[int]bool),
	}
}

func (b *breaker) allow(lf int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.tripped[lf]
}

func (b *breaker) onFailure(lf int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[lf]++
	if b.failures[lf] >= b.threshold {
		b.tripped[lf] = true
	}
	return b.tripped[lf]
}

func (b *breaker) onSuccess(lf int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[lf] = 0
}

// Adapter evaluates one labeling function against one document and
// translates the result into vote matrix calls, isolating failures: panics
// and returned errors become explicit abstentions, reported to the caller
// for logging but never aborting the population pass. After Evaluate
// returns, the (document, function) cell always has a defined outcome.
type Adapter struct {
	logger  *monitoring.Logger
	metrics *monitoring.Metrics
	breaker *breaker
}

// NewAdapter creates an adapter. failureThreshold trips a function after
// that many consecutive failures; zero uses a default of 5.
func NewAdapter(logger *monitoring.Logger, metrics *monitoring.Metrics, failureThreshold int) *Adapter {
	return &Adapter{
		logger:  logger,
		metrics: metrics,
		breaker: newBreaker(failureThreshold),
	}
}

// Evaluate runs fn on doc and records the outcome into the matrix. The
// returned error, if any, is the recovered failure for logging; the matrix
// has already been given an abstention in that case.
func (a *Adapter) Evaluate(m *votes.Matrix, docIdx, lfIdx int, fn LabelingFunction, doc types.Document) (err error) {
	if !a.breaker.allow(lfIdx) {
		m.RecordAbstain(docIdx, lfIdx)
		a.metrics.Evaluations.WithLabelValues(fn.Name(), "abstain").Inc()
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			m.RecordAbstain(docIdx, lfIdx)
			err = a.onFailure(lfIdx, fn.Name(), doc.ID, fmt.Errorf("panic: %v", r))
		}
	}()

	results, evalErr := fn.Evaluate(doc)
	if evalErr != nil {
		m.RecordAbstain(docIdx, lfIdx)
		return a.onFailure(lfIdx, fn.Name(), doc.ID, evalErr)
	}
	a.breaker.onSuccess(lfIdx)

	voted := false
	for _, v := range results {
		if v.Label == "" {
			malformed := apperrors.NewMalformedVoteError(fn.Name(), doc.ID)
			apperrors.LogError(a.logger.Logger, malformed)
			continue
		}
		// Matrix clamps out-of-range confidence.
		m.RecordVote(docIdx, lfIdx, v.Label, v.Confidence)
		voted = true
	}

	if !voted {
		m.RecordAbstain(docIdx, lfIdx)
		a.metrics.Evaluations.WithLabelValues(fn.Name(), "abstain").Inc()
		return nil
	}
	a.metrics.Evaluations.WithLabelValues(fn.Name(), "vote").Inc()
	return nil
}

func (a *Adapter) onFailure(lfIdx int, name, docID string, cause error) error {
	a.metrics.Evaluations.WithLabelValues(name, "abstain").Inc()
	a.metrics.EvaluationFailure.WithLabelValues(name).Inc()

	if tripped := a.breaker.onFailure(lfIdx); tripped {
		a.logger.Warn("Labeling Function Tripped",
			"function", name,
			"threshold", a.breaker.threshold,
		)
	}
	return apperrors.NewLabelingFunctionError(name, docID, cause)
}
