package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Filter returns the rows of t whose key in column is one of selected.
// An empty selection means "all" and returns t itself.
func Filter(t *Table, column string, selected []string) (*Table, error) {
	if _, ok := t.Lookup(column); !ok {
		return nil, fmt.Errorf("filter: %w: %q", ErrUnknownColumn, column)
	}
	if len(selected) == 0 {
		return t, nil
	}

	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		want[strings.TrimSpace(s)] = true
	}

	keys, err := t.Keys(column)
	if err != nil {
		return nil, err
	}
	idx := make([]int, 0, len(keys))
	for i, k := range keys {
		if k != "" && want[k] {
			idx = append(idx, i)
		}
	}
	return t.subset(idx), nil
}

// Search returns the rows of t where any cell contains term, ignoring case.
// An empty term returns t itself.
func Search(t *Table, term string) *Table {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return t
	}

	var idx []int
	for i, row := range t.rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), term) {
				idx = append(idx, i)
				break
			}
		}
	}
	return t.subset(idx)
}

// DistinctValues returns the sorted unique non-missing keys of column.
func DistinctValues(t *Table, column string) ([]string, error) {
	keys, err := t.Keys(column)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []string
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}
