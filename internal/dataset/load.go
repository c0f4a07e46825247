package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Load failure causes. They are matched with errors.Is through LoadError.
var (
	ErrSourceNotFound    = errors.New("source not found")
	ErrInvalidCSV        = errors.New("invalid csv")
	ErrEmptySource       = errors.New("empty file")
	ErrMissingIdentifier = errors.New("missing identifier column")
)

// LoadError reports why a source could not become a Table.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Options tune how a source is interpreted.
type Options struct {
	// IDColumn names the identifier column explicitly. Empty means detect.
	IDColumn string

	// RegionColumn names the region column explicitly. Empty means detect.
	RegionColumn string

	// Comma is the field delimiter. Zero means ',' (or tab for .tsv files).
	Comma rune
}

// LoadFile reads the CSV file at path.
func LoadFile(path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Source: path, Err: ErrSourceNotFound}
		}
		return nil, &LoadError{Source: path, Err: fmt.Errorf("%w: %v", ErrInvalidCSV, err)}
	}
	defer f.Close()

	if opts.Comma == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Comma = '\t'
	}
	return LoadReader(path, f, opts)
}

// LoadReader parses CSV from r. name identifies the source in errors.
func LoadReader(name string, r io.Reader, opts Options) (*Table, error) {
	if r == nil {
		return nil, &LoadError{Source: name, Err: ErrSourceNotFound}
	}

	counter := NewCountingReader(r)
	cr := csv.NewReader(Sanitize(counter))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &LoadError{Source: name, Err: ErrEmptySource}
	}
	if err != nil {
		return nil, &LoadError{Source: name, Err: fmt.Errorf("%w: %v", ErrInvalidCSV, err)}
	}

	columns, err := parseHeader(header)
	if err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &LoadError{Source: name, Err: fmt.Errorf("%w: %v", ErrInvalidCSV, err)}
		}
		row, err := fitRow(rec, len(columns))
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, &LoadError{Source: name, Err: fmt.Errorf("%w: line %d: %v", ErrInvalidCSV, line, err)}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &LoadError{Source: name, Err: ErrEmptySource}
	}

	t := build(name, columns, rows)
	t.size = counter.BytesRead

	layout, err := resolveLayout(t, opts)
	if err != nil {
		return nil, &LoadError{Source: name, Err: err}
	}
	t.layout = layout
	return t, nil
}

// parseHeader cleans header names and rejects duplicates.
func parseHeader(header []string) ([]Column, error) {
	columns := make([]Column, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := CleanCell(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidCSV, name)
		}
		seen[name] = true
		columns[i] = Column{Name: name}
	}
	return columns, nil
}

// fitRow pads short records and trims empty trailing cells from long ones.
func fitRow(rec []string, width int) ([]string, error) {
	if len(rec) == width {
		return rec, nil
	}
	if len(rec) < width {
		row := make([]string, width)
		copy(row, rec)
		return row, nil
	}
	for _, extra := range rec[width:] {
		if strings.TrimSpace(extra) != "" {
			return nil, fmt.Errorf("expected %d fields, got %d", width, len(rec))
		}
	}
	return rec[:width], nil
}

// build infers column kinds and parses numeric columns.
func build(source string, columns []Column, rows [][]string) *Table {
	t := &Table{
		source:  source,
		columns: columns,
		index:   make(map[string]int, len(columns)),
		folded:  make(map[string]int, len(columns)),
		rows:    rows,
		numeric: make(map[int][]float64),
	}

	for i := range columns {
		t.index[columns[i].Name] = i
		folded := strings.ToLower(columns[i].Name)
		if _, dup := t.folded[folded]; !dup {
			t.folded[folded] = i
		}

		if vals, ok := parseColumn(rows, i); ok {
			columns[i].Kind = KindNumeric
			t.numeric[i] = vals
		}
	}
	return t
}

// parseColumn returns the column's values when it has at least one value and
// every non-missing cell is a number.
func parseColumn(rows [][]string, col int) ([]float64, bool) {
	vals := make([]float64, len(rows))
	present := 0
	for r, row := range rows {
		cell := row[col]
		if isMissing(cell) {
			vals[r] = nan
			continue
		}
		f, ok := parseNumber(cell)
		if !ok {
			return nil, false
		}
		vals[r] = f
		present++
	}
	return vals, present > 0
}

// resolveLayout applies explicit column choices or detects them.
func resolveLayout(t *Table, opts Options) (Layout, error) {
	var layout Layout

	if opts.IDColumn != "" {
		col, ok := t.Lookup(opts.IDColumn)
		if !ok {
			return Layout{}, fmt.Errorf("%w: %q not in header", ErrMissingIdentifier, opts.IDColumn)
		}
		layout.ID = col.Name
	} else {
		layout.ID = detectColumn(t.columns, idCandidates, "")
		if layout.ID == "" {
			return Layout{}, fmt.Errorf("%w: expected one of %s", ErrMissingIdentifier, strings.Join(idCandidates, ", "))
		}
	}

	if opts.RegionColumn != "" {
		col, ok := t.Lookup(opts.RegionColumn)
		if !ok {
			return Layout{}, fmt.Errorf("%w: region %q", ErrUnknownColumn, opts.RegionColumn)
		}
		if col.Name != layout.ID {
			layout.Region = col.Name
		}
	} else {
		layout.Region = detectColumn(t.columns, regionCandidates, layout.ID)
	}

	layout.Metrics = detectMetrics(t.columns, layout)
	return layout, nil
}
