// Package dataset reads and writes the per-stage CSV tables.
// Every write replaces the whole file atomically.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/soothsayer/internal/model"
)

// Dataset file names inside the data directory.
const (
	RawPostsFile    = "raw_posts.csv"
	CandidatesFile  = "candidates.csv"
	PredictionsFile = "structured_predictions.csv"
	ScoredFile      = "analyzed_predictions.csv"
	ReviewsFile     = "manual_reviews.csv"
)

// MissingDatasetError reports an input file that does not exist yet.
type MissingDatasetError struct {
	Path     string
	Producer model.Stage
}

func (e *MissingDatasetError) Error() string {
	return fmt.Sprintf("dataset %s not found: run the %s stage first", e.Path, e.Producer)
}

// SchemaError reports an input file whose columns or cells do not match the
// expected layout.
type SchemaError struct {
	Path     string
	Producer model.Stage
	Reason   string
	Missing  []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("dataset %s is missing columns %s: re-run the %s stage",
			e.Path, strings.Join(e.Missing, ", "), e.Producer)
	}
	return fmt.Sprintf("dataset %s is not valid %s output: %s", e.Path, e.Producer, e.Reason)
}

// Table is a header plus rows of string cells.
type Table struct {
	index  map[string]int
	Header []string
	Rows   [][]string
}

// NewTable builds a table with the given header.
func NewTable(header []string) *Table {
	t := &Table{Header: header}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		t.index[strings.TrimSpace(h)] = i
	}
}

// Cell returns the value of column in row, or "" when the column is absent.
func (t *Table) Cell(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Has reports whether the table has the column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Append adds a row.
func (t *Table) Append(row []string) {
	t.Rows = append(t.Rows, row)
}

// ReadTable loads a CSV file and checks that the required columns are present.
// producer names the stage that writes the file, for diagnostics.
func ReadTable(path string, producer model.Stage, required ...string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingDatasetError{Path: path, Producer: producer}
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Path: path, Producer: producer, Missing: required, Reason: "empty file"}
	}
	if err != nil {
		return nil, &SchemaError{Path: path, Producer: producer, Reason: err.Error()}
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	t := NewTable(header)

	var missing []string
	for _, col := range required {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Path: path, Producer: producer, Missing: missing}
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &SchemaError{Path: path, Producer: producer, Reason: err.Error()}
		}
		t.Append(row)
	}

	return t, nil
}

// WriteTable writes t to path by way of a temporary file in the same
// directory, so readers never observe a partial dataset.
func WriteTable(path string, t *Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync dataset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close dataset: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace dataset: %w", err)
	}
	committed = true

	return nil
}
