package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// DefaultZThreshold flags values more than three standard deviations from the mean.
const DefaultZThreshold = 3.0

// Outlier marks a row holding at least one extreme value. Column, Value and Z
// describe the most extreme of them.
type Outlier struct {
	Row    int     `json:"row" yaml:"row"`
	Column string  `json:"column" yaml:"column"`
	Value  float64 `json:"value" yaml:"value"`
	Z      float64 `json:"z" yaml:"z"`
}

// DetectOutliers flags rows where any of columns has |z| > threshold. z-scores
// use the population mean and standard deviation of the column's non-missing
// values. A constant column never produces outliers. A threshold <= 0 uses
// DefaultZThreshold.
func DetectOutliers(t *Table, columns []string, threshold float64) ([]Outlier, error) {
	if threshold <= 0 {
		threshold = DefaultZThreshold
	}

	type colStats struct {
		name      string
		vals      []float64
		mean, std float64
	}
	stats := make([]colStats, 0, len(columns))
	for _, name := range columns {
		vals, err := t.Values(name)
		if err != nil {
			return nil, fmt.Errorf("outliers: %w", err)
		}
		mean, std := populationMoments(vals)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		col, _ := t.Lookup(name)
		stats = append(stats, colStats{name: col.Name, vals: vals, mean: mean, std: std})
	}

	var out []Outlier
	for row := 0; row < t.Len(); row++ {
		var worst *Outlier
		for _, cs := range stats {
			x := cs.vals[row]
			if math.IsNaN(x) {
				continue
			}
			z := (x - cs.mean) / cs.std
			if math.Abs(z) <= threshold {
				continue
			}
			if worst == nil || math.Abs(z) > math.Abs(worst.Z) {
				worst = &Outlier{Row: row, Column: cs.name, Value: x, Z: z}
			}
		}
		if worst != nil {
			out = append(out, *worst)
		}
	}
	return out, nil
}

// populationMoments returns the mean and population standard deviation of the
// non-missing values. Both are NaN when there are none.
func populationMoments(vals []float64) (mean, std float64) {
	present := presentValues(vals)
	if len(present) == 0 {
		return nan, nan
	}
	return stat.PopMeanStdDev(present, nil)
}
