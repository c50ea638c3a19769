// Package analysis derives statistics over the vote matrix and posteriors
// (coverage, conflicts, pairwise agreement) and assembles the final weak
// label records. The Engine in this package orchestrates the full pipeline.
package analysis

import (
	"fmt"
	"sort"

	"github.com/kestrelml/weaklabel/internal/types"
	"github.com/kestrelml/weaklabel/internal/votes"
)

// DocumentCoverage is the fraction of registered labeling functions that
// cast a non-abstaining vote on the document.
func DocumentCoverage(mx *votes.Matrix, doc int) float64 {
	total := mx.Functions()
	if total == 0 {
		return 0
	}
	return float64(mx.VoterCount(doc)) / float64(total)
}

// CorpusCoverage is the mean per-document coverage.
func CorpusCoverage(mx *votes.Matrix) float64 {
	docs := mx.Documents()
	if docs == 0 {
		return 0
	}
	sum := 0.0
	for d := 0; d < docs; d++ {
		sum += DocumentCoverage(mx, d)
	}
	return sum / float64(docs)
}

// DocumentConflicts groups a document's votes by label. If more than one
// distinct label received votes, each label group is reported as one
// conflict entry with the contributing function names and their mean
// confidence. A single voted label, however many functions agree on it, is
// zero conflicts: conflict means competing label assertions, not
// disagreement in confidence.
func DocumentConflicts(mx *votes.Matrix, doc int, names []string) []types.Conflict {
	votesFor := mx.VotesFor(doc)

	byLabel := make(map[string][]votes.Vote)
	order := make([]string, 0, 2)
	for _, v := range votesFor {
		if _, ok := byLabel[v.Label]; !ok {
			order = append(order, v.Label)
		}
		byLabel[v.Label] = append(byLabel[v.Label], v)
	}

	if len(byLabel) < 2 {
		return nil
	}

	out := make([]types.Conflict, 0, len(order))
	for _, label := range order {
		group := byLabel[label]
		fns := make([]string, 0, len(group))
		sum := 0.0
		for _, v := range group {
			fns = append(fns, functionName(names, v.LF))
			sum += v.Confidence
		}
		out = append(out, types.Conflict{
			Label:      label,
			Functions:  fns,
			Confidence: sum / float64(len(group)),
		})
	}
	return out
}

// ConflictRate is the fraction of documents with at least one conflict.
func ConflictRate(mx *votes.Matrix, names []string) float64 {
	docs := mx.Documents()
	if docs == 0 {
		return 0
	}
	conflicted := 0
	for d := 0; d < docs; d++ {
		if len(DocumentConflicts(mx, d, names)) > 0 {
			conflicted++
		}
	}
	return float64(conflicted) / float64(docs)
}

// PairwiseAgreement computes, for every unordered function pair with at
// least one common non-abstaining document, the fraction of those common
// documents where both voted the same label. Pairs that never co-vote are
// omitted rather than reported as zero.
func PairwiseAgreement(mx *votes.Matrix, names []string) map[string]float64 {
	functions := mx.Functions()
	docs := mx.Documents()

	// Per document, the voted label set per function.
	labelSets := make([]map[int]map[string]struct{}, docs)
	for d := 0; d < docs; d++ {
		sets := make(map[int]map[string]struct{})
		for _, v := range mx.VotesFor(d) {
			if sets[v.LF] == nil {
				sets[v.LF] = make(map[string]struct{})
			}
			sets[v.LF][v.Label] = struct{}{}
		}
		labelSets[d] = sets
	}

	out := make(map[string]float64)
	for a := 0; a < functions; a++ {
		for b := a + 1; b < functions; b++ {
			common, same := 0, 0
			for d := 0; d < docs; d++ {
				sa, sb := labelSets[d][a], labelSets[d][b]
				if len(sa) == 0 || len(sb) == 0 {
					continue
				}
				common++
				if sharesLabel(sa, sb) {
					same++
				}
			}
			if common == 0 {
				continue
			}
			key := fmt.Sprintf("(%s,%s)", functionName(names, a), functionName(names, b))
			out[key] = float64(same) / float64(common)
		}
	}
	return out
}

// ContributingFunctions returns the sorted names of functions that voted on
// the document.
func ContributingFunctions(mx *votes.Matrix, doc int, names []string) []string {
	seen := make(map[int]struct{})
	out := make([]string, 0, 2)
	for _, v := range mx.VotesFor(doc) {
		if _, ok := seen[v.LF]; ok {
			continue
		}
		seen[v.LF] = struct{}{}
		out = append(out, functionName(names, v.LF))
	}
	sort.Strings(out)
	return out
}

func sharesLabel(a, b map[string]struct{}) bool {
	for label := range a {
		if _, ok := b[label]; ok {
			return true
		}
	}
	return false
}

func functionName(names []string, lf int) string {
	if lf >= 0 && lf < len(names) {
		return names[lf]
	}
	return fmt.Sprintf("lf_%d", lf)
}
