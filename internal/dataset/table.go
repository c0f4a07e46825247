// Package dataset loads solar measurement CSV files into immutable tables and
// runs the metrics pipeline over them.
//
// The pipeline has three stages, each a pure function of its inputs:
//
//	Filter            -> narrow rows to selected group keys
//	SummaryStatistics -> mean/median/stddev/min/max of one metric
//	TopRegions        -> group means ranked descending
//
// Tables are never modified after Load returns. Filter and Search produce new
// tables that share no mutable state with their input, so a *Table may be read
// from any number of goroutines.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrUnknownColumn is returned when an operation names a column the table does not have.
var ErrUnknownColumn = errors.New("column not found")

// ErrNotNumeric is returned when a metric operation targets a text column.
var ErrNotNumeric = errors.New("column is not numeric")

// Kind classifies a column by the values it holds.
type Kind int

const (
	KindText Kind = iota
	KindNumeric
)

func (k Kind) String() string {
	if k == KindNumeric {
		return "numeric"
	}
	return "text"
}

// MarshalText renders the kind as "text" or "numeric" in JSON and YAML.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the output of MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "numeric":
		*k = KindNumeric
	case "text":
		*k = KindText
	default:
		return fmt.Errorf("unknown column kind %q", b)
	}
	return nil
}

// Column describes one header entry.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Kind Kind   `json:"kind" yaml:"kind"`
}

// Layout records which columns play which role in the dashboard.
type Layout struct {
	// ID is the required identifier column (country or location).
	ID string `json:"id" yaml:"id"`

	// Region is the optional finer-grained grouping column. Empty when absent.
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Metrics lists the numeric columns offered for analysis, preferred solar
	// metrics first.
	Metrics []string `json:"metrics" yaml:"metrics"`
}

// GroupColumn returns the column used for ranking: Region when present, else ID.
func (l Layout) GroupColumn() string {
	if l.Region != "" {
		return l.Region
	}
	return l.ID
}

// Table is an immutable, row-ordered CSV dataset.
//
// Raw cell text is kept verbatim so WriteCSV reproduces the input. Numeric
// columns also carry parsed values with NaN standing in for missing cells.
type Table struct {
	source  string
	columns []Column
	index   map[string]int
	folded  map[string]int
	rows    [][]string
	numeric map[int][]float64
	layout  Layout
	size    int64
}

// Source returns the name the table was loaded from.
func (t *Table) Source() string { return t.source }

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// SizeBytes returns the number of input bytes consumed while loading.
func (t *Table) SizeBytes() int64 { return t.size }

// Layout returns the detected column roles.
func (t *Table) Layout() Layout { return t.layout }

// Columns returns a copy of the header description.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Header returns the column names in file order.
func (t *Table) Header() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.Name
	}
	return out
}

// NumericColumns returns the names of all numeric columns in header order.
func (t *Table) NumericColumns() []string {
	var out []string
	for _, c := range t.columns {
		if c.Kind == KindNumeric {
			out = append(out, c.Name)
		}
	}
	return out
}

// Row returns a copy of the raw cells of row i.
func (t *Table) Row(i int) []string {
	out := make([]string, len(t.rows[i]))
	copy(out, t.rows[i])
	return out
}

// Rows returns copies of the raw cells of rows [from, to), clamped to the table.
func (t *Table) Rows(from, to int) [][]string {
	if from < 0 {
		from = 0
	}
	if to > len(t.rows) {
		to = len(t.rows)
	}
	if from >= to {
		return nil
	}
	out := make([][]string, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, t.Row(i))
	}
	return out
}

// Lookup resolves a column name. Exact matches win over case-insensitive ones.
func (t *Table) Lookup(name string) (Column, bool) {
	i, ok := t.position(name)
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

func (t *Table) position(name string) (int, bool) {
	if i, ok := t.index[name]; ok {
		return i, true
	}
	i, ok := t.folded[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// Values returns the parsed values of a numeric column, NaN marking missing cells.
// The returned slice must not be modified.
func (t *Table) Values(name string) ([]float64, error) {
	i, ok := t.position(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	vals, ok := t.numeric[i]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, name)
	}
	return vals, nil
}

// Keys returns the trimmed group key of every row for column name.
// Missing tokens yield an empty key.
func (t *Table) Keys(name string) ([]string, error) {
	i, ok := t.position(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	keys := make([]string, len(t.rows))
	for r, row := range t.rows {
		keys[r] = groupKey(row[i])
	}
	return keys, nil
}

// subset builds a new table holding the rows at idx, in that order.
func (t *Table) subset(idx []int) *Table {
	out := &Table{
		source:  t.source,
		columns: t.columns,
		index:   t.index,
		folded:  t.folded,
		rows:    make([][]string, len(idx)),
		numeric: make(map[int][]float64, len(t.numeric)),
		layout:  t.layout,
		size:    t.size,
	}
	for j, i := range idx {
		out.rows[j] = t.rows[i]
	}
	for col, vals := range t.numeric {
		sub := make([]float64, len(idx))
		for j, i := range idx {
			sub[j] = vals[i]
		}
		out.numeric[col] = sub
	}
	return out
}

// groupKey normalises a cell for grouping and selection.
func groupKey(cell string) string {
	cell = strings.TrimSpace(cell)
	if isMissing(cell) {
		return ""
	}
	return cell
}

// nullable converts NaN to nil so results encode as JSON null.
func nullable(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
