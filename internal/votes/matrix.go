// Package votes holds the sparse vote matrix: every (document, labeling
// function) cell ends up with either recorded votes or an explicit
// abstention after the population pass.
package votes

import "sync"

// Vote is one non-abstaining outcome for a (document, function, label)
// triple. Confidence is always inside [0,1] once stored.
type Vote struct {
	LF         int     `json:"lf"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Matrix indexes votes for two access patterns: all votes for a document,
// and the label/function sets observed across the corpus. Label and
// function indices are append-only; dimensions only grow.
type Matrix struct {
	mu sync.Mutex

	docs int
	lfs  int

	labels     []string
	labelIndex map[string]int

	// Per document, in insertion order. Re-recording the same
	// (doc, lf, label) triple overwrites in place so iteration order
	// stays reproducible.
	votes [][]Vote

	// Per document: functions that voted at least one label, and
	// functions that explicitly abstained.
	voted     []map[int]struct{}
	abstained []map[int]struct{}

	frozen bool
}

// NewMatrix creates an empty matrix. Dimensions grow as votes arrive.
func NewMatrix() *Matrix {
	return &Matrix{labelIndex: make(map[string]int)}
}

// Freeze marks the matrix immutable. Training assumes a frozen matrix;
// writes after Freeze are ignored.
func (m *Matrix) Freeze() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frozen = true
}

// RecordVote stores a vote for the (doc, lf, label) triple, growing backing
// storage for out-of-range indices. Confidence outside [0,1] is clamped.
// Last write wins for the same triple.
func (m *Matrix) RecordVote(doc, lf int, label string, confidence float64) {
	if doc < 0 || lf < 0 || label == "" {
		return
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return
	}

	m.grow(doc, lf)
	if _, ok := m.labelIndex[label]; !ok {
		m.labelIndex[label] = len(m.labels)
		m.labels = append(m.labels, label)
	}

	for i := range m.votes[doc] {
		if m.votes[doc][i].LF == lf && m.votes[doc][i].Label == label {
			m.votes[doc][i].Confidence = confidence
			return
		}
	}
	m.votes[doc] = append(m.votes[doc], Vote{LF: lf, Label: label, Confidence: confidence})
	m.voted[doc][lf] = struct{}{}
	delete(m.abstained[doc], lf)
}

// RecordAbstain marks an explicit abstention for the (doc, lf) cell. A cell
// that already holds votes keeps them.
func (m *Matrix) RecordAbstain(doc, lf int) {
	if doc < 0 || lf < 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.frozen {
		return
	}

	m.grow(doc, lf)
	if _, ok := m.voted[doc][lf]; !ok {
		m.abstained[doc][lf] = struct{}{}
	}
}

func (m *Matrix) grow(doc, lf int) {
	for len(m.votes) <= doc {
		m.votes = append(m.votes, nil)
		m.voted = append(m.voted, make(map[int]struct{}))
		m.abstained = append(m.abstained, make(map[int]struct{}))
	}
	if doc+1 > m.docs {
		m.docs = doc + 1
	}
	if lf+1 > m.lfs {
		m.lfs = lf + 1
	}
}

// VotesFor returns the votes recorded for a document in insertion order.
// The returned slice is a copy.
func (m *Matrix) VotesFor(doc int) []Vote {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc < 0 || doc >= len(m.votes) {
		return nil
	}
	out := make([]Vote, len(m.votes[doc]))
	copy(out, m.votes[doc])
	return out
}

// Voted reports whether a function cast at least one non-abstaining vote on
// a document.
func (m *Matrix) Voted(doc, lf int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc < 0 || doc >= len(m.voted) {
		return false
	}
	_, ok := m.voted[doc][lf]
	return ok
}

// VoterCount returns the number of distinct functions that voted on a
// document.
func (m *Matrix) VoterCount(doc int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc < 0 || doc >= len(m.voted) {
		return 0
	}
	return len(m.voted[doc])
}

// Outcomes reports whether the (doc, lf) cell has a defined outcome, i.e.
// either votes or an explicit abstention. The population pass guarantees
// this for every cell; a false here indicates a bug upstream.
func (m *Matrix) Outcomes(doc, lf int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc < 0 || doc >= len(m.voted) {
		return false
	}
	if _, ok := m.voted[doc][lf]; ok {
		return true
	}
	_, ok := m.abstained[doc][lf]
	return ok
}

// Documents returns the number of documents observed so far.
func (m *Matrix) Documents() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs
}

// Functions returns the number of labeling functions observed so far.
func (m *Matrix) Functions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lfs
}

// Labels returns the observed label set in first-seen order. The returned
// slice is a copy.
func (m *Matrix) Labels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}
