package analysis

import (
	"github.com/kestrelml/weaklabel/internal/model"
	"github.com/kestrelml/weaklabel/internal/types"
	"github.com/kestrelml/weaklabel/internal/votes"
)

// Assemble produces one weak label record per document plus the corpus
// diagnostics. It is pure aggregation: the posteriors come from the
// trainer's final E-step and are never recomputed here, so the reported
// distributions stay consistent with the parameters that produced them.
func Assemble(mx *votes.Matrix, docs []types.Document, names []string, res *model.Result) ([]types.WeakLabel, types.CorpusDiagnostics) {
	records := make([]types.WeakLabel, len(docs))
	labelHits := make(map[string]int)

	for d, doc := range docs {
		var posterior map[string]float64
		if d < len(res.Posteriors) {
			posterior = res.Posteriors[d]
		}

		labels := make(map[string]float64, len(posterior))
		for label, p := range posterior {
			labels[label] = p
			if p > 0.5 {
				labelHits[label]++
			}
		}

		records[d] = types.WeakLabel{
			DocumentID:            doc.ID,
			Labels:                labels,
			ContributingFunctions: ContributingFunctions(mx, d, names),
			Coverage:              DocumentCoverage(mx, d),
			Conflicts:             DocumentConflicts(mx, d, names),
		}
	}

	distribution := make(map[string]float64, len(labelHits))
	if len(docs) > 0 {
		for label, hits := range labelHits {
			distribution[label] = float64(hits) / float64(len(docs))
		}
	}

	diag := types.CorpusDiagnostics{
		TotalDocuments:            len(docs),
		TotalLabelingFunctions:    len(names),
		Coverage:                  CorpusCoverage(mx),
		ConflictRate:              ConflictRate(mx, names),
		LabelDistribution:         distribution,
		LabelingFunctionAgreement: PairwiseAgreement(mx, names),
		TerminalState:             string(res.State),
		Iterations:                res.Iterations,
		FinalLogLikelihood:        res.LogLikelihood,
		TrainingDuration:          res.Duration,
	}

	return records, diag
}
