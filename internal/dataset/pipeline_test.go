package dataset

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kenyaTogo = `Country,GHI
Kenya,500
Kenya,600
Togo,300
`

func TestTopRegions_KenyaTogo(t *testing.T) {
	tbl := mustLoad(t, kenyaTogo)

	got, err := TopRegions(tbl, "Country", "GHI", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kenya", got[0].Key)
	assert.InDelta(t, 550, got[0].Mean, 1e-9)
	assert.Equal(t, 2, got[0].Count)
}

func TestFilterThenSummary_Togo(t *testing.T) {
	tbl := mustLoad(t, kenyaTogo)

	togo, err := Filter(tbl, "Country", []string{"Togo"})
	require.NoError(t, err)
	require.Equal(t, 1, togo.Len())

	s, err := SummaryStatistics(togo, "GHI")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 300.0, s.Mean)
	assert.Equal(t, 300.0, s.Min)
	assert.Equal(t, 300.0, s.Max)
	assert.Equal(t, 300.0, s.Median)
	assert.True(t, math.IsNaN(s.StdDev), "sample stddev of one value is undefined")
}

func TestFilter_EmptySelectionIsIdentity(t *testing.T) {
	tbl := mustLoad(t, solarCSV)

	got, err := Filter(tbl, "Country", nil)
	require.NoError(t, err)
	assert.Same(t, tbl, got)

	got, err = Filter(tbl, "Country", []string{})
	require.NoError(t, err)
	assert.Equal(t, tbl.Rows(0, tbl.Len()), got.Rows(0, got.Len()))
}

func TestFilter_KeepsOrderAndColumns(t *testing.T) {
	tbl := mustLoad(t, solarCSV)

	got, err := Filter(tbl, "Country", []string{" Benin ", "Kenya", "Atlantis"})
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	assert.Equal(t, "Nairobi", got.Row(0)[1])
	assert.Equal(t, "Mombasa", got.Row(1)[1])
	assert.Equal(t, "Cotonou", got.Row(2)[1])
	assert.Equal(t, tbl.Header(), got.Header())
	assert.Equal(t, tbl.Layout(), got.Layout())

	ghi, err := got.Values("GHI")
	require.NoError(t, err)
	assert.Equal(t, 500.0, ghi[0])
	assert.True(t, math.IsNaN(ghi[2]))
}

func TestFilter_UnknownColumn(t *testing.T) {
	tbl := mustLoad(t, solarCSV)

	_, err := Filter(tbl, "Planet", []string{"Earth"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestFilter_NoMatches(t *testing.T) {
	tbl := mustLoad(t, solarCSV)

	got, err := Filter(tbl, "Country", []string{"Atlantis"})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())

	s, err := SummaryStatistics(got, "GHI")
	require.NoError(t, err)
	assert.True(t, s.Empty())

	top, err := TopRegions(got, "Country", "GHI", 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestSummaryStatistics(t *testing.T) {
	tbl := mustLoad(t, solarCSV)

	s, err := SummaryStatistics(tbl, "GHI")
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count, "missing values are excluded")
	assert.InDelta(t, 466.6667, s.Mean, 1e-4)
	assert.Equal(t, 500.0, s.Median)
	assert.InDelta(t, 152.7525, s.StdDev, 1e-4)
	assert.Equal(t, 300.0, s.Min)
	assert.Equal(t, 600.0, s.Max)

	_, err = SummaryStatistics(tbl, "Comments")
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestSummarize_EmptyIsNaN(t *testing.T) {
	s := Summarize([]float64{math.NaN(), math.NaN()})

	assert.True(t, s.Empty())
	for name, v := range map[string]float64{
		"mean": s.Mean, "median": s.Median, "stddev": s.StdDev, "min": s.Min, "max": s.Max,
	} {
		assert.True(t, math.IsNaN(v), "%s should be NaN", name)
	}

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":0,"mean":null,"median":null,"stddev":null,"min":null,"max":null}`, string(b))
}

func TestSummarize_Ordering(t *testing.T) {
	inputs := [][]float64{
		{1},
		{3, 1, 2},
		{10, -4, 7, 7, math.NaN(), 0.5},
		{2, 2, 2, 2},
	}
	for _, vals := range inputs {
		s := Summarize(vals)
		assert.LessOrEqual(t, s.Min, s.Median, "%v", vals)
		assert.LessOrEqual(t, s.Median, s.Max, "%v", vals)
	}
}

func TestSummarize_EvenMedian(t *testing.T) {
	s := Summarize([]float64{4, 1, 3, 2})
	assert.Equal(t, 2.5, s.Median)
}

func TestQuartiles(t *testing.T) {
	tests := []struct {
		name        string
		vals        []float64
		q1, med, q3 float64
	}{
		{"even", []float64{4, 1, 3, 2}, 1.5, 2.5, 3.5},
		{"odd", []float64{1, 2, 3, 4, 100}, 1.5, 3, 4},
		{"single", []float64{7}, 7, 7, 7},
		{"missing skipped", []float64{math.NaN(), 2, 1}, 1, 1.5, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q1, med, q3 := Quartiles(tt.vals)
			assert.Equal(t, tt.q1, q1)
			assert.Equal(t, tt.med, med)
			assert.Equal(t, tt.q3, q3)
			assert.Equal(t, Summarize(tt.vals).Median, med)
		})
	}

	q1, med, q3 := Quartiles([]float64{math.NaN()})
	assert.True(t, math.IsNaN(q1) && math.IsNaN(med) && math.IsNaN(q3))
}

func TestTopRegions_OrderingAndBounds(t *testing.T) {
	tbl := mustLoad(t, `Country,Region,GHI
A,r1,10
B,r2,30
C,r3,20
D,r4,30
E,r5,
,r6,99
`)

	for _, n := range []int{1, 2, 3, 4, 10} {
		got, err := TopRegions(tbl, "Country", "GHI", n)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), n)
		for i := 1; i < len(got); i++ {
			assert.GreaterOrEqual(t, got[i-1].Mean, got[i].Mean)
		}
	}

	all, err := TopRegions(tbl, "Country", "GHI", 10)
	require.NoError(t, err)
	keys := make([]string, len(all))
	for i, e := range all {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"B", "D", "C", "A"}, keys, "ties keep first appearance; empty keys and groups are skipped")

	for _, n := range []int{0, -3} {
		got, err := TopRegions(tbl, "Country", "GHI", n)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestTopRegions_UnknownColumns(t *testing.T) {
	tbl := mustLoad(t, kenyaTogo)

	_, err := TopRegions(tbl, "Region", "GHI", 3)
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = TopRegions(tbl, "Country", "Country", 3)
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestInsights(t *testing.T) {
	_, ok := Insights(nil)
	assert.False(t, ok)

	single, ok := Insights([]RankingEntry{{Key: "Kenya", Mean: 550}})
	require.True(t, ok)
	assert.Nil(t, single.RunnerUp)
	assert.Zero(t, single.Lead)

	in, ok := Insights([]RankingEntry{{Key: "Kenya", Mean: 550}, {Key: "Togo", Mean: 300}})
	require.True(t, ok)
	assert.Equal(t, "Kenya", in.Best.Key)
	require.NotNil(t, in.RunnerUp)
	assert.Equal(t, "Togo", in.RunnerUp.Key)
	assert.InDelta(t, 250, in.Lead, 1e-9)
}

func TestSearch(t *testing.T) {
	tbl := mustLoad(t, solarCSV)

	assert.Same(t, tbl, Search(tbl, "  "))

	got := Search(tbl, "WIND")
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "Mombasa", got.Row(0)[1])

	assert.Equal(t, 2, Search(tbl, "kenya").Len())
	assert.Equal(t, 0, Search(tbl, "sahara").Len())
}

func TestDistinctValues(t *testing.T) {
	tbl := mustLoad(t, "Country,GHI\nTogo,1\nKenya,2\nTogo,3\nNA,4\n,5\n")

	got, err := DistinctValues(tbl, "Country")
	require.NoError(t, err)
	assert.Equal(t, []string{"Kenya", "Togo"}, got)
}

func TestGroupBoxStats(t *testing.T) {
	tbl := mustLoad(t, `Country,GHI
A,1
A,2
A,3
A,4
A,100
B,5
`)

	boxes, err := GroupBoxStats(tbl, "Country", "GHI")
	require.NoError(t, err)
	require.Len(t, boxes, 2)

	a := boxes[0]
	assert.Equal(t, "A", a.Key)
	assert.Equal(t, 5, a.Count)
	assert.Equal(t, 1.5, a.Q1)
	assert.Equal(t, 3.0, a.Median)
	assert.Equal(t, 4.0, a.Q3)
	assert.Equal(t, 1.0, a.LowerWhisker)
	assert.Equal(t, 4.0, a.UpperWhisker)
	assert.Equal(t, 1, a.Outliers)
	assert.Equal(t, 100.0, a.Max)

	b := boxes[1]
	assert.Equal(t, 5.0, b.Min)
	assert.Equal(t, 5.0, b.Max)
	assert.Zero(t, b.Outliers)
}

func TestDetectOutliers(t *testing.T) {
	csv := "Country,GHI,DNI\n"
	for i := 0; i < 20; i++ {
		csv += "A,100,50\n"
	}
	csv += "B,1000,50\nC,NA,51\n"
	tbl := mustLoad(t, csv)

	got, err := DetectOutliers(tbl, []string{"GHI", "DNI"}, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 20, got[0].Row)
	assert.Equal(t, "GHI", got[0].Column)
	assert.Equal(t, 1000.0, got[0].Value)
	assert.Greater(t, got[0].Z, DefaultZThreshold)

	assert.Equal(t, 21, got[1].Row)
	assert.Equal(t, "DNI", got[1].Column)

	_, err = DetectOutliers(tbl, []string{"Country"}, 3)
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestDetectOutliers_ConstantColumn(t *testing.T) {
	tbl := mustLoad(t, "Country,GHI\nA,5\nB,5\nC,5\n")

	got, err := DetectOutliers(tbl, []string{"GHI"}, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}
