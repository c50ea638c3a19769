// Package encoding writes weak label output: one JSON record per line so
// every record is independently parseable by downstream training
// pipelines, plus a sidecar diagnostics document.
package encoding

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kestrelml/weaklabel/internal/types"
)

// RecordWriter streams weak label records as line-delimited JSON.
type RecordWriter struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
}

// NewRecordWriter wraps w with buffered JSONL encoding.
func NewRecordWriter(w io.Writer) *RecordWriter {
	buf := bufio.NewWriter(w)
	return &RecordWriter{
		buf: buf,
		enc: json.NewEncoder(buf), // Encode appends the newline
	}
}

// Write appends one record as a single JSON line.
func (w *RecordWriter) Write(record types.WeakLabel) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(record); err != nil {
		return fmt.Errorf("failed to encode weak label record: %w", err)
	}
	return nil
}

// Flush writes buffered output through to the underlying writer.
func (w *RecordWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Flush()
}

// WriteRecordsFile writes all records to path as JSONL.
func WriteRecordsFile(path string, records []types.WeakLabel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := NewRecordWriter(f)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WriteDiagnosticsFile writes the corpus diagnostics sidecar as indented
// JSON.
func WriteDiagnosticsFile(path string, diag types.CorpusDiagnostics) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create diagnostics file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(diag); err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}
	return nil
}

// ReadDocumentsFile reads a JSONL corpus: one document per line. Blank
// lines are skipped. Documents missing a word count get one derived from
// the text.
func ReadDocumentsFile(path string) ([]types.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	return ReadDocuments(f)
}

// ReadDocuments decodes JSONL documents from r.
func ReadDocuments(r io.Reader) ([]types.Document, error) {
	var docs []types.Document
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var doc types.Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document on line %d: %w", line, err)
		}
		if doc.WordCount == 0 {
			doc.WordCount = countWords(doc.Text)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return docs, nil
}

func countWords(text string) int {
	words := 0
	inWord := false
	for _, r := range text {
		switch r {
		case ' ', '\t', '\n', '\r':
			inWord = false
		default:
			if !inWord {
				words++
			}
			inWord = true
		}
	}
	return words
}
