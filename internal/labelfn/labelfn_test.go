package labelfn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelml/weaklabel/internal/types"
)

type stubFunction struct {
	name  string
	votes []Vote
	err   error
}

func (s *stubFunction) Name() string { return s.name }

func (s *stubFunction) Evaluate(types.Document) ([]Vote, error) {
	return s.votes, s.err
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name      string
		functions []LabelingFunction
		wantNames []string
		wantErr   bool
	}{
		{
			name: "preserves registration order",
			functions: []LabelingFunction{
				&stubFunction{name: "b"},
				&stubFunction{name: "a"},
				&stubFunction{name: "c"},
			},
			wantNames: []string{"b", "a", "c"},
		},
		{
			name: "same name replaces at original index",
			functions: []LabelingFunction{
				&stubFunction{name: "a"},
				&stubFunction{name: "b"},
				&stubFunction{name: "a", votes: []Vote{{Label: "x", Confidence: 1}}},
			},
			wantNames: []string{"a", "b"},
		},
		{
			name:      "rejects empty name",
			functions: []LabelingFunction{&stubFunction{name: ""}},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			var lastErr error
			for _, fn := range tt.functions {
				lastErr = r.Register(fn)
			}
			if tt.wantErr {
				assert.Error(t, lastErr)
				return
			}
			require.NoError(t, lastErr)
			assert.Equal(t, tt.wantNames, r.Names())
			assert.Equal(t, len(tt.wantNames), r.Len())
		})
	}
}

func TestRuleFunction_Evaluate(t *testing.T) {
	fn := NewRuleFunction("fear_lexicon", fearRules...)

	tests := []struct {
		name       string
		text       string
		wantLabels []string
	}{
		{
			name:       "matches fear cue",
			text:       "Experts warn the policy is a looming catastrophe for the region.",
			wantLabels: []string{"fear_framing"},
		},
		{
			name:       "abstains on neutral text",
			text:       "The committee published its quarterly budget review on Tuesday.",
			wantLabels: nil,
		},
		{
			name:       "multiple cues still one vote per label",
			text:       "A dangerous crisis threatens to become a disaster.",
			wantLabels: []string{"fear_framing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fn.Evaluate(types.Document{ID: "d", Text: tt.text})
			require.NoError(t, err)

			labels := make([]string, 0, len(got))
			for _, v := range got {
				labels = append(labels, v.Label)
			}
			if tt.wantLabels == nil {
				assert.Empty(t, labels)
			} else {
				assert.Equal(t, tt.wantLabels, labels)
			}
		})
	}
}

func TestRuleFunction_KeepsHighestConfidencePerLabel(t *testing.T) {
	fn := NewRuleFunction("fear_lexicon", fearRules...)

	got, err := fn.Evaluate(types.Document{
		ID:   "d",
		Text: "Act before it's too late, the crisis is here.",
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fear_framing", got[0].Label)
	assert.Equal(t, 0.85, got[0].Confidence)
}

func TestDefaultFunctions_DistinctNames(t *testing.T) {
	fns := DefaultFunctions()
	require.NotEmpty(t, fns)

	seen := make(map[string]bool)
	for _, fn := range fns {
		assert.False(t, seen[fn.Name()], "duplicate name %q", fn.Name())
		seen[fn.Name()] = true
	}
}
