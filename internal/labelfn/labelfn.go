// Package labelfn defines the labeling function contract the engine
// consumes: a named heuristic that inspects a document and casts zero or
// more (label, confidence) votes, or abstains.
package labelfn

import (
	"fmt"

	"github.com/kestrelml/weaklabel/internal/types"
)

// Vote is one (label, confidence) assertion from a labeling function.
type Vote struct {
	Label      string
	Confidence float64
}

// LabelingFunction is an independent heuristic voter. Identity is the name;
// two functions with the same name are the same voter. Implementations must
// not mutate the document and must be safe to call from multiple
// goroutines.
type LabelingFunction interface {
	Name() string

	// Evaluate inspects the document and returns zero or more votes. An
	// empty result is an abstention. A returned error (or a panic) is
	// recovered by the adapter as an abstention.
	Evaluate(doc types.Document) ([]Vote, error)
}

// Registry holds labeling functions in registration order so that indices
// and report iteration stay reproducible across runs.
type Registry struct {
	ordered []LabelingFunction
	byName  map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a labeling function. Registering a name that already exists
// replaces the earlier function at its original index, since same-named
// functions are the same voter.
func (r *Registry) Register(fn LabelingFunction) error {
	if fn == nil {
		return fmt.Errorf("nil labeling function")
	}
	if fn.Name() == "" {
		return fmt.Errorf("labeling function with empty name")
	}

	if idx, ok := r.byName[fn.Name()]; ok {
		r.ordered[idx] = fn
		return nil
	}
	r.byName[fn.Name()] = len(r.ordered)
	r.ordered = append(r.ordered, fn)
	return nil
}

// Functions returns the registered functions in registration order.
func (r *Registry) Functions() []LabelingFunction {
	out := make([]LabelingFunction, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Names returns the registered function names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.ordered))
	for i, fn := range r.ordered {
		out[i] = fn.Name()
	}
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	return len(r.ordered)
}
