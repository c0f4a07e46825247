package dataset

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// describeRows labels the rows of Describe's output.
var describeRows = []string{"count", "mean", "median", "stddev", "min", "25%", "50%", "75%", "max"}

// Describe returns a dataframe with one row per statistic and one column per
// numeric column of t. Missing values are excluded column by column, unlike
// dataframe.Describe which propagates NaN. The statistics are the same ones
// Summarize and Quartiles report, so the median and 50% rows agree.
func Describe(t *Table) dataframe.DataFrame {
	labels := series.Strings(describeRows)
	labels.Name = "statistic"
	cols := []series.Series{labels}

	for _, name := range t.NumericColumns() {
		vals, _ := t.Values(name)

		sum := Summarize(vals)
		q1, median, q3 := Quartiles(vals)
		stats := []float64{
			float64(sum.Count), sum.Mean, sum.Median, sum.StdDev, sum.Min,
			q1, median, q3, sum.Max,
		}

		col := series.Floats(stats)
		col.Name = name
		cols = append(cols, col)
	}
	return dataframe.New(cols...)
}
