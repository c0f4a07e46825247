package chart

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/solardash/internal/dataset"
)

const sample = `Country,GHI,DNI
Benin,510,300
Benin,530,310
Togo,300,
Togo,320,150
Sierra Leone,,
`

func load(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.LoadReader("sample.csv", strings.NewReader(sample), dataset.Options{})
	require.NoError(t, err)
	return tbl
}

func TestBoxPlot_SVG(t *testing.T) {
	wt, err := BoxPlot(load(t), "Country", "GHI", Options{})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = wt.WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "<svg")
	assert.Contains(t, out, "Benin")
	assert.Contains(t, out, "Togo")
	assert.NotContains(t, out, "Sierra Leone", "groups without values are not drawn")
}

func TestBoxPlot_PNG(t *testing.T) {
	wt, err := BoxPlot(load(t), "Country", "DNI", Options{Format: "PNG"})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = wt.WriteTo(&buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestBoxPlot_Errors(t *testing.T) {
	tbl := load(t)

	_, err := BoxPlot(tbl, "Country", "GHI", Options{Order: []string{"Mali"}})
	assert.True(t, errors.Is(err, ErrNoData))

	_, err = BoxPlot(tbl, "Country", "Nope", Options{})
	assert.True(t, errors.Is(err, dataset.ErrUnknownColumn))

	_, err = BoxPlot(tbl, "Country", "GHI", Options{Format: "gif"})
	assert.Error(t, err)
}

func TestOrdered(t *testing.T) {
	groups := []dataset.Group{{Key: "A"}, {Key: "B"}, {Key: "C"}}

	assert.Equal(t, groups, ordered(groups, nil))

	got := ordered(groups, []string{"C", "X", "A", "C"})
	require.Len(t, got, 2)
	assert.Equal(t, "C", got[0].Key)
	assert.Equal(t, "A", got[1].Key)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "GHI Distribution by Country", Title("Country", "GHI"))
}
