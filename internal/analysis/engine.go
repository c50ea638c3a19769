package analysis

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/kestrelml/weaklabel/internal/errors"
	"github.com/kestrelml/weaklabel/internal/labelfn"
	"github.com/kestrelml/weaklabel/internal/model"
	"github.com/kestrelml/weaklabel/internal/monitoring"
	"github.com/kestrelml/weaklabel/internal/types"
	"github.com/kestrelml/weaklabel/internal/votes"
)

// Result is a completed labeling run: one weak label record per document,
// corpus diagnostics, and the fitted parameters.
type Result struct {
	Records     []types.WeakLabel
	Diagnostics types.CorpusDiagnostics
	Parameters  *model.Parameters
}

// Engine orchestrates the full pipeline: populate the vote matrix through
// the adapter, train the generative model, analyze, assemble.
type Engine struct {
	registry *labelfn.Registry
	adapter  *labelfn.Adapter
	cfg      types.EngineConfig
	logger   *monitoring.Logger
	metrics  *monitoring.Metrics
}

// NewEngine creates an engine over a populated registry with the default
// failure threshold.
func NewEngine(registry *labelfn.Registry, cfg types.EngineConfig, logger *monitoring.Logger, metrics *monitoring.Metrics) *Engine {
	return NewEngineWithThreshold(registry, cfg, logger, metrics, 0)
}

// NewEngineWithThreshold creates an engine whose adapter trips a labeling
// function after failureThreshold consecutive failures. Zero selects the
// default.
func NewEngineWithThreshold(registry *labelfn.Registry, cfg types.EngineConfig, logger *monitoring.Logger, metrics *monitoring.Metrics, failureThreshold int) *Engine {
	return &Engine{
		registry: registry,
		adapter:  labelfn.NewAdapter(logger, metrics, failureThreshold),
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Label runs the engine over the corpus. The only fatal condition is a
// degenerate corpus (no documents or no labeling functions); individual
// labeling function failures are recovered as abstentions.
//
// Cancellation takes effect between training iterations; a cancelled run
// still returns a valid, if not fully converged, result.
func (e *Engine) Label(ctx context.Context, docs []types.Document) (*Result, error) {
	if len(docs) == 0 || e.registry.Len() == 0 {
		return nil, apperrors.NewDegenerateCorpusError(len(docs), e.registry.Len())
	}

	mx := e.populate(docs)
	mx.Freeze()

	mdl := model.New(mx.Labels(), mx.Functions())
	trainer := model.NewTrainer(mdl, e.cfg, e.logger, e.metrics)
	trainRes := trainer.Train(ctx, mx)

	records, diag := Assemble(mx, docs, e.registry.Names(), trainRes)
	e.metrics.DocumentsLabeled.Add(float64(len(records)))

	return &Result{
		Records:     records,
		Diagnostics: diag,
		Parameters:  trainRes.Parameters,
	}, nil
}

// populate evaluates every (document, labeling function) pair over a
// bounded worker pool. Documents are partitioned across workers, so each
// cell is written by exactly one goroutine; the matrix serializes the rest.
func (e *Engine) populate(docs []types.Document) *votes.Matrix {
	start := time.Now()
	mx := votes.NewMatrix()
	fns := e.registry.Functions()

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	var failures atomic.Int64
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				for lf, fn := range fns {
					if err := e.adapter.Evaluate(mx, d, lf, fn, docs[d]); err != nil {
						failures.Add(1)
						e.logger.LabelingFunctionLogger(fn.Name(), docs[d].ID, err)
					}
				}
			}
		}()
	}

	for d := range docs {
		jobs <- d
	}
	close(jobs)
	wg.Wait()

	e.logger.PopulationLogger(len(docs), len(fns), int(failures.Load()), time.Since(start))
	return mx
}
