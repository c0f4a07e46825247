package dashboard

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/solardash/internal/dataset"
)

// Top-N slider bounds.
const (
	MinTopN     = 3
	DefaultTopN = 5
	MaxTopN     = 20

	// DefaultSelectionSize is how many identifier values are pre-selected
	// when the request makes no choice.
	DefaultSelectionSize = 3

	// PreviewRows is the number of rows shown when the raw table is hidden.
	PreviewRows = 5
)

// Query is one request's selections. Zero values pick defaults.
type Query struct {
	Dataset string   // upload id; empty for the default table
	Keys    []string // selected identifier values
	All     bool     // select every identifier value
	Metric  string
	Top     int
	Search  string
	Raw     bool // show the full paged table instead of a preview
	Page    int  // 1-based
}

// Share describes how much of the dataset the selection covers.
type Share struct {
	SelectedKeys int     `json:"selected_keys" yaml:"selected_keys"`
	TotalKeys    int     `json:"total_keys" yaml:"total_keys"`
	KeyPercent   float64 `json:"key_percent" yaml:"key_percent"`
	Rows         int     `json:"rows" yaml:"rows"`
	TotalRows    int     `json:"total_rows" yaml:"total_rows"`
	RowPercent   float64 `json:"row_percent" yaml:"row_percent"`
}

// View is the result of running a Query against a table. Every sink
// (chart, statistics panel, data table, downloads) reads from it.
type View struct {
	Name  string
	Table *dataset.Table

	IDColumn    string
	GroupColumn string
	Metric      string
	Metrics     []string

	AllKeys  []string
	Selected []string
	All      bool

	// Requested is the explicit key list of the query, unknown keys included.
	Requested []string

	// Filtered holds the rows of the selected keys. Display additionally
	// applies the search term and is what downloads contain.
	Filtered *dataset.Table
	Display  *dataset.Table
	Search   string

	Summary    dataset.Summary
	Ranking    []dataset.RankingEntry
	Insight    dataset.Insight
	HasInsight bool

	Top    int
	TopMin int
	TopMax int

	Share Share

	Raw       bool
	Page      int
	PageCount int
	PageSize  int
}

// Rows returns the rows the data table shows: the current page in raw mode,
// otherwise a short preview of the filtered rows.
func (v *View) Rows() [][]string {
	if !v.Raw {
		return v.Filtered.Rows(0, PreviewRows)
	}
	from := (v.Page - 1) * v.PageSize
	return v.Display.Rows(from, from+v.PageSize)
}

// BuildView runs filter, statistics, ranking and search for q over t.
// Statistics cover the selected rows. The ranking covers the whole table,
// grouped by the region column when the table has one, otherwise by the
// identifier.
func (s *Service) BuildView(t *dataset.Table, name string, q Query) (*View, error) {
	layout := t.Layout()
	v := &View{
		Name:        name,
		Table:       t,
		IDColumn:    layout.ID,
		GroupColumn: layout.GroupColumn(),
		Metrics:     layout.Metrics,
		All:         q.All,
		Requested:   q.Keys,
		Search:      q.Search,
		Raw:         q.Raw,
	}

	metric, err := resolveMetric(t, q.Metric)
	if err != nil {
		return nil, err
	}
	v.Metric = metric

	v.AllKeys, err = dataset.DistinctValues(t, layout.ID)
	if err != nil {
		return nil, err
	}
	v.Selected = selection(v.AllKeys, q)

	// Selecting every key is the identity filter. Explicit keys filter as
	// requested so a selection of only unknown keys matches nothing.
	filterKeys := v.Selected
	switch {
	case q.All:
		filterKeys = nil
	case len(q.Keys) > 0:
		filterKeys = q.Keys
	}
	v.Filtered, err = dataset.Filter(t, layout.ID, filterKeys)
	if err != nil {
		return nil, err
	}
	v.Display = dataset.Search(v.Filtered, q.Search)

	v.Summary, err = dataset.SummaryStatistics(v.Filtered, metric)
	if err != nil {
		return nil, err
	}

	v.TopMin, v.TopMax = s.topBounds(len(v.AllKeys))
	v.Top = clamp(q.Top, s.defaultTop(), v.TopMin, v.TopMax)

	v.Ranking, err = dataset.TopRegions(t, v.GroupColumn, metric, v.Top)
	if err != nil {
		return nil, err
	}
	v.Insight, v.HasInsight = dataset.Insights(v.Ranking)

	v.Share = share(len(v.Selected), len(v.AllKeys), v.Filtered.Len(), t.Len())

	v.PageSize = s.cfg.PageSize
	if v.PageSize <= 0 {
		v.PageSize = 100
	}
	v.PageCount = (v.Display.Len() + v.PageSize - 1) / v.PageSize
	if v.PageCount < 1 {
		v.PageCount = 1
	}
	v.Page = q.Page
	if v.Page < 1 {
		v.Page = 1
	}
	if v.Page > v.PageCount {
		v.Page = v.PageCount
	}
	return v, nil
}

// resolveMetric validates the requested metric or picks the first offered one.
func resolveMetric(t *dataset.Table, requested string) (string, error) {
	if requested == "" {
		metrics := t.Layout().Metrics
		if len(metrics) == 0 {
			return "", fmt.Errorf("%w: no metric columns in %s", dataset.ErrNotNumeric, t.Source())
		}
		return metrics[0], nil
	}

	col, ok := t.Lookup(requested)
	if !ok {
		return "", fmt.Errorf("metric: %w: %q", dataset.ErrUnknownColumn, requested)
	}
	if col.Kind != dataset.KindNumeric {
		return "", fmt.Errorf("metric %q: %w", col.Name, dataset.ErrNotNumeric)
	}
	return col.Name, nil
}

// selection resolves which keys the request covers. Explicit keys are kept
// in request order when they exist in all. Without an explicit choice the
// first few keys in sorted order are selected.
func selection(all []string, q Query) []string {
	if q.All {
		return all
	}
	if len(q.Keys) > 0 {
		known := make(map[string]bool, len(all))
		for _, k := range all {
			known[k] = true
		}
		picked := make([]string, 0, len(q.Keys))
		seen := make(map[string]bool, len(q.Keys))
		for _, k := range q.Keys {
			k = strings.TrimSpace(k)
			if known[k] && !seen[k] {
				seen[k] = true
				picked = append(picked, k)
			}
		}
		return picked
	}
	n := DefaultSelectionSize
	if len(all) < n {
		n = len(all)
	}
	return all[:n]
}

func (s *Service) defaultTop() int {
	if s.cfg.TopNDefault > 0 {
		return s.cfg.TopNDefault
	}
	return DefaultTopN
}

// topBounds returns the slider range for a table with keys distinct keys.
func (s *Service) topBounds(keys int) (lo, hi int) {
	hi = s.cfg.TopNMax
	if hi <= 0 {
		hi = MaxTopN
	}
	if keys < hi {
		hi = keys
	}
	lo = MinTopN
	if hi < lo {
		lo = 1
		if hi < 1 {
			hi = 1
		}
	}
	return lo, hi
}

func clamp(n, def, lo, hi int) int {
	if n <= 0 {
		n = def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func share(selected, totalKeys, rows, totalRows int) Share {
	sh := Share{SelectedKeys: selected, TotalKeys: totalKeys, Rows: rows, TotalRows: totalRows}
	if totalKeys > 0 {
		sh.KeyPercent = 100 * float64(selected) / float64(totalKeys)
	}
	if totalRows > 0 {
		sh.RowPercent = 100 * float64(rows) / float64(totalRows)
	}
	return sh
}
