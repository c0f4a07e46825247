package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/series"
)

// RankingEntry is one group's mean of a metric.
type RankingEntry struct {
	Key   string  `json:"key" yaml:"key"`
	Mean  float64 `json:"mean" yaml:"mean"`
	Count int     `json:"count" yaml:"count"`
}

// Group holds the non-missing metric values of one group key.
type Group struct {
	Key    string
	Values []float64
}

// GroupValues splits metric by key. Groups appear in order of first
// appearance. Rows with an empty key are skipped, and groups without a single
// metric value are dropped.
func GroupValues(t *Table, key, metric string) ([]Group, error) {
	keys, err := t.Keys(key)
	if err != nil {
		return nil, err
	}
	vals, err := t.Values(metric)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int)
	var groups []Group
	for i, k := range keys {
		if k == "" || math.IsNaN(vals[i]) {
			continue
		}
		p, ok := pos[k]
		if !ok {
			p = len(groups)
			pos[k] = p
			groups = append(groups, Group{Key: k})
		}
		groups[p].Values = append(groups[p].Values, vals[i])
	}
	return groups, nil
}

// GroupMeans returns the mean of metric per key in first-appearance order.
func GroupMeans(t *Table, key, metric string) ([]RankingEntry, error) {
	groups, err := GroupValues(t, key, metric)
	if err != nil {
		return nil, err
	}
	out := make([]RankingEntry, len(groups))
	for i, g := range groups {
		out[i] = RankingEntry{Key: g.Key, Mean: series.Floats(g.Values).Mean(), Count: len(g.Values)}
	}
	return out, nil
}

// TopRegions ranks groups of key by their mean metric, highest first, and
// keeps at most n. Equal means keep first-appearance order. n <= 0 yields an
// empty ranking.
func TopRegions(t *Table, key, metric string, n int) ([]RankingEntry, error) {
	means, err := GroupMeans(t, key, metric)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []RankingEntry{}, nil
	}
	sort.SliceStable(means, func(i, j int) bool {
		return means[i].Mean > means[j].Mean
	})
	if len(means) > n {
		means = means[:n]
	}
	return means, nil
}

// Insight summarises a ranking for display.
type Insight struct {
	Best RankingEntry `json:"best" yaml:"best"`

	// RunnerUp is nil when the ranking has a single entry.
	RunnerUp *RankingEntry `json:"runner_up,omitempty" yaml:"runner_up,omitempty"`

	// Lead is Best.Mean minus RunnerUp.Mean, zero without a runner-up.
	Lead float64 `json:"lead" yaml:"lead"`
}

// Insights reports the best performer of a ranking and its lead over the
// second. ok is false for an empty ranking.
func Insights(ranking []RankingEntry) (insight Insight, ok bool) {
	if len(ranking) == 0 {
		return Insight{}, false
	}
	insight.Best = ranking[0]
	if len(ranking) > 1 {
		second := ranking[1]
		insight.RunnerUp = &second
		insight.Lead = ranking[0].Mean - second.Mean
	}
	return insight, true
}

// BoxStats is the five-number summary of one group, with Tukey whiskers.
type BoxStats struct {
	Key          string
	Count        int
	Min          float64
	Q1           float64
	Median       float64
	Q3           float64
	Max          float64
	LowerWhisker float64
	UpperWhisker float64
	Outliers     int
}

// MarshalJSON encodes the box with snake_case keys.
func (b BoxStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key          string  `json:"key"`
		Count        int     `json:"count"`
		Min          float64 `json:"min"`
		Q1           float64 `json:"q1"`
		Median       float64 `json:"median"`
		Q3           float64 `json:"q3"`
		Max          float64 `json:"max"`
		LowerWhisker float64 `json:"lower_whisker"`
		UpperWhisker float64 `json:"upper_whisker"`
		Outliers     int     `json:"outliers"`
	}(b))
}

// GroupBoxStats computes a BoxStats per group of key, in first-appearance order.
// Quartiles follow Quartiles. Whiskers reach the most extreme values within
// 1.5 IQR of the quartiles.
func GroupBoxStats(t *Table, key, metric string) ([]BoxStats, error) {
	groups, err := GroupValues(t, key, metric)
	if err != nil {
		return nil, err
	}
	out := make([]BoxStats, len(groups))
	for i, g := range groups {
		box, err := fiveNumbers(g.Values)
		if err != nil {
			return nil, fmt.Errorf("box %s: %w", g.Key, err)
		}
		out[i] = BoxStats{
			Key:          g.Key,
			Count:        len(g.Values),
			Min:          box.Min,
			Q1:           box.Quartile1,
			Median:       box.Median,
			Q3:           box.Quartile3,
			Max:          box.Max,
			LowerWhisker: box.AdjLow,
			UpperWhisker: box.AdjHigh,
			Outliers:     len(box.Outside),
		}
	}
	return out, nil
}
