package labelfn

import (
	"regexp"

	"github.com/kestrelml/weaklabel/internal/types"
)

// Rule pairs a compiled pattern with the label it votes for and the
// confidence of that vote.
type Rule struct {
	Pattern    *regexp.Regexp
	Label      string
	Confidence float64
}

// RuleFunction is a labeling function driven by a pattern table. Every
// matching rule casts one vote; no match is an abstention.
type RuleFunction struct {
	name  string
	rules []Rule
}

// NewRuleFunction creates a rule-table labeling function.
func NewRuleFunction(name string, rules ...Rule) *RuleFunction {
	return &RuleFunction{name: name, rules: rules}
}

// Name returns the function's identity.
func (f *RuleFunction) Name() string { return f.name }

// Evaluate casts one vote per matching rule, deduplicated by label with the
// highest confidence kept.
func (f *RuleFunction) Evaluate(doc types.Document) ([]Vote, error) {
	best := make(map[string]float64)
	order := make([]string, 0, 2)
	for _, r := range f.rules {
		if !r.Pattern.MatchString(doc.Text) {
			continue
		}
		if c, ok := best[r.Label]; !ok {
			best[r.Label] = r.Confidence
			order = append(order, r.Label)
		} else if r.Confidence > c {
			best[r.Label] = r.Confidence
		}
	}

	out := make([]Vote, 0, len(order))
	for _, label := range order {
		out = append(out, Vote{Label: label, Confidence: best[label]})
	}
	return out, nil
}

var _ LabelingFunction = (*RuleFunction)(nil)

// Built-in framing heuristics. Patterns use word boundaries and
// case-insensitive matching to reduce false positives; confidences reflect
// how specific each cue is.
var (
	fearRules = []Rule{
		{regexp.MustCompile(`(?i)\b(catastrophe|catastrophic|disaster|devastat\w*)\b`), "fear_framing", 0.8},
		{regexp.MustCompile(`(?i)\b(threat(en(s|ed|ing)?)?|menace|peril|danger(ous)?)\b`), "fear_framing", 0.7},
		{regexp.MustCompile(`(?i)\b(crisis|collapse|chaos|panic)\b`), "fear_framing", 0.6},
		{regexp.MustCompile(`(?i)\bbefore it'?s too late\b`), "fear_framing", 0.85},
	}

	loadedRules = []Rule{
		{regexp.MustCompile(`(?i)\b(regime|cronies|puppet|stooge)\b`), "loaded_language", 0.8},
		{regexp.MustCompile(`(?i)\b(outrageous|disgraceful|shameless|sickening)\b`), "loaded_language", 0.7},
		{regexp.MustCompile(`(?i)\b(so-called|self-styled)\b`), "loaded_language", 0.6},
	}

	nameCallingRules = []Rule{
		{regexp.MustCompile(`(?i)\b(traitor(s)?|coward(s)?|liar(s)?)\b`), "name_calling", 0.8},
		{regexp.MustCompile(`(?i)\b(extremist(s)?|radical(s)?|fanatic(s)?)\b`), "name_calling", 0.65},
	}

	exaggerationRules = []Rule{
		{regexp.MustCompile(`(?i)\b(always|never|everyone|no one|nobody)\b`), "exaggeration", 0.5},
		{regexp.MustCompile(`(?i)\b(unprecedented|historic|greatest|worst)( in history)?\b`), "exaggeration", 0.6},
		{regexp.MustCompile(`(?i)\b(millions|billions) of\b`), "exaggeration", 0.45},
	}
)

// DefaultFunctions returns the built-in heuristic voters the CLI and server
// register when the caller supplies none. The engine itself is agnostic to
// where functions come from.
func DefaultFunctions() []LabelingFunction {
	return []LabelingFunction{
		NewRuleFunction("fear_lexicon", fearRules...),
		NewRuleFunction("loaded_terms", loadedRules...),
		NewRuleFunction("name_calling_lexicon", nameCallingRules...),
		NewRuleFunction("absolutist_claims", exaggerationRules...),
	}
}
