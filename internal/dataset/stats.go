package dataset

import (
	"encoding/json"
	"math"

	"github.com/go-gota/gota/series"
	"gonum.org/v1/plot/plotter"
)

var nan = math.NaN()

// Summary describes one metric over the non-missing values of a table.
// Every float field is NaN when Count is zero; StdDev is also NaN for a single value.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
}

// Empty reports whether the summary was computed over no values.
func (s Summary) Empty() bool { return s.Count == 0 }

// summaryDoc is the wire form of Summary; undefined statistics are nil.
type summaryDoc struct {
	Count  int      `json:"count" yaml:"count"`
	Mean   *float64 `json:"mean" yaml:"mean"`
	Median *float64 `json:"median" yaml:"median"`
	StdDev *float64 `json:"stddev" yaml:"stddev"`
	Min    *float64 `json:"min" yaml:"min"`
	Max    *float64 `json:"max" yaml:"max"`
}

func (s Summary) doc() summaryDoc {
	return summaryDoc{s.Count, nullable(s.Mean), nullable(s.Median), nullable(s.StdDev), nullable(s.Min), nullable(s.Max)}
}

// MarshalJSON encodes undefined statistics as null.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.doc())
}

// MarshalYAML encodes undefined statistics as null.
func (s Summary) MarshalYAML() (any, error) {
	return s.doc(), nil
}

// SummaryStatistics summarises metric over t, ignoring missing values.
func SummaryStatistics(t *Table, metric string) (Summary, error) {
	vals, err := t.Values(metric)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(vals), nil
}

// Summarize computes a Summary over vals, skipping NaN. The standard
// deviation is the sample (n-1) estimate.
func Summarize(vals []float64) Summary {
	present := presentValues(vals)
	if len(present) == 0 {
		return Summary{Mean: nan, Median: nan, StdDev: nan, Min: nan, Max: nan}
	}

	s := series.Floats(present)
	return Summary{
		Count:  len(present),
		Mean:   s.Mean(),
		Median: s.Median(),
		StdDev: s.StdDev(),
		Min:    s.Min(),
		Max:    s.Max(),
	}
}

// Quartiles returns the first quartile, median and third quartile of vals,
// skipping NaN. The quartiles are the medians of the lower and upper halves
// of the sorted values, which is how the boxplot chart draws its boxes.
func Quartiles(vals []float64) (q1, median, q3 float64) {
	box, err := fiveNumbers(presentValues(vals))
	if err != nil {
		return nan, nan, nan
	}
	return box.Quartile1, box.Median, box.Quartile3
}

// fiveNumbers computes gonum's box statistics for vals.
func fiveNumbers(vals []float64) (*plotter.BoxPlot, error) {
	return plotter.NewBoxPlot(0, 0, plotter.Values(vals))
}

// presentValues returns the non-NaN values of vals.
func presentValues(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
