package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/solardash/internal/dataset"
)

const solarCSV = `Country,Region,GHI,DNI,Comments
Benin,Malanville,510,300,clear
Benin,Kandi,530,310,
Togo,Dapaong,300,,dusty
Togo,Dapaong,320,150,
Sierra Leone,Bumbuna,,120,
Sierra Leone,Kabala,410,200,haze
Kenya,Turkana,600,420,
`

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "solar.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errb bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errb)
	cmd.SetArgs(args)
	err = cmd.ExecuteContext(context.Background())
	return out.String(), errb.String(), err
}

func TestSummary_JSON(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "summary", "--file", file, "--select", "Togo", "-o", "json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "GHI", report["metric"])
	assert.Equal(t, []any{"Togo"}, report["selected"])

	summary := report["summary"].(map[string]any)
	assert.Equal(t, float64(2), summary["count"])
	assert.InDelta(t, 310, summary["mean"], 1e-9)
	assert.InDelta(t, 300, summary["min"], 1e-9)
	assert.InDelta(t, 320, summary["max"], 1e-9)
}

func TestSummary_Table(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "summary", "-f", file, "-m", "DNI")
	require.NoError(t, err)
	assert.Contains(t, out, "DNI for 4 of 4 countrys (7 of 7 records)")
	assert.Contains(t, out, "Mean")
	assert.Contains(t, out, "250.00")
}

func TestSummary_NoData(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "summary", "-f", file, "--select", "Atlantis")
	require.NoError(t, err)
	assert.Contains(t, out, "No data available")

	out, _, err = run(t, "summary", "-f", file, "--select", "Atlantis", "-o", "yaml")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	summary := report["summary"].(map[string]any)
	assert.Equal(t, 0, summary["count"])
	assert.Nil(t, summary["mean"])
}

func TestTop_SingleKeyGroups(t *testing.T) {
	file := writeCSV(t, "Country,GHI\nKenya,500\nKenya,600\nTogo,300\n")

	out, _, err := run(t, "top", "-f", file, "--n", "1", "-o", "json")
	require.NoError(t, err)

	var report TopReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "Country", report.GroupColumn)
	require.Len(t, report.Ranking, 1)
	assert.Equal(t, "Kenya", report.Ranking[0].Key)
	assert.InDelta(t, 550, report.Ranking[0].Mean, 1e-9)
	require.NotNil(t, report.Insight)
	assert.Nil(t, report.Insight.RunnerUp)
}

func TestTop_Table(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "top", "-f", file, "--n", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Top 2 Regions by Average GHI")
	assert.Contains(t, out, "Turkana")
	assert.Contains(t, out, "Kandi")
	assert.NotContains(t, out, "Malanville")
	assert.Contains(t, out, "Lead over 2nd: 70.00")
}

func TestTop_IgnoresSelection(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "top", "-f", file, "--select", "Togo", "--n", "3", "-o", "json")
	require.NoError(t, err)

	var report TopReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Ranking, 3)
	assert.Equal(t, "Turkana", report.Ranking[0].Key)
}

func TestTop_ZeroIsEmpty(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "top", "-f", file, "--n", "0", "-o", "json")
	require.NoError(t, err)

	var report TopReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Empty(t, report.Ranking)
	assert.Nil(t, report.Insight)
}

func TestExport_CSVToStdout(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "export", "-f", file, "--select", "Benin,Kenya")
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Country", "Region", "GHI", "DNI", "Comments"}, records[0])
}

func TestExport_RoundTrip(t *testing.T) {
	file := writeCSV(t, solarCSV)
	dest := filepath.Join(t.TempDir(), "out.csv")

	_, stderr, err := run(t, "export", "-f", file, "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote 7 rows")

	orig, err := dataset.LoadFile(file, dataset.Options{})
	require.NoError(t, err)
	back, err := dataset.LoadFile(dest, dataset.Options{})
	require.NoError(t, err)
	assert.Equal(t, orig.Rows(0, orig.Len()), back.Rows(0, back.Len()))
}

func TestExport_XLSXAndSearch(t *testing.T) {
	file := writeCSV(t, solarCSV)
	dest := filepath.Join(t.TempDir(), "out.xlsx")

	_, stderr, err := run(t, "export", "-f", file, "--search", "haze", "--out", dest)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote 1 rows")

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestExport_BadFormat(t *testing.T) {
	file := writeCSV(t, solarCSV)
	_, _, err := run(t, "export", "-f", file, "--format", "pdf")
	require.Error(t, err)
}

func TestChart(t *testing.T) {
	file := writeCSV(t, solarCSV)
	dest := filepath.Join(t.TempDir(), "box.svg")

	_, _, err := run(t, "chart", "-f", file, "--out", dest)
	require.NoError(t, err)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")

	_, _, err = run(t, "chart", "-f", file)
	require.Error(t, err)
}

func TestDescribe(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "describe", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Statistics over 7 records")
	assert.Contains(t, out, "statistic")
	assert.Contains(t, out, "GHI")

	out, _, err = run(t, "describe", "-f", file, "-o", "json")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 9)
	assert.Equal(t, "count", rows[0]["statistic"])
	assert.Equal(t, float64(6), rows[0]["GHI"])
}

func TestColumns(t *testing.T) {
	file := writeCSV(t, solarCSV)

	out, _, err := run(t, "columns", "-f", file, "-o", "json")
	require.NoError(t, err)

	var infos []ColumnInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Equal(t, []ColumnInfo{
		{Name: "Country", Kind: "text", Role: "identifier"},
		{Name: "Region", Kind: "text", Role: "region"},
		{Name: "GHI", Kind: "numeric", Role: "metric"},
		{Name: "DNI", Kind: "numeric", Role: "metric"},
		{Name: "Comments", Kind: "text"},
	}, infos)
}

func TestConfig_EnvAndFile(t *testing.T) {
	file := writeCSV(t, solarCSV)

	t.Run("env", func(t *testing.T) {
		t.Setenv("SOLAR_METRIC", "DNI")
		t.Setenv("SOLAR_OUTPUT", "json")

		out, _, err := run(t, "summary", "-f", file)
		require.NoError(t, err)
		assert.Contains(t, out, `"metric": "DNI"`)
	})

	t.Run("file", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "solarctl.yaml")
		require.NoError(t, os.WriteFile(cfgPath, []byte(
			"file: "+file+"\nmetric: DNI\nselect:\n  - Sierra Leone\noutput: json\n"), 0o644))

		out, _, err := run(t, "summary", "--config", cfgPath)
		require.NoError(t, err)

		var report map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, []any{"Sierra Leone"}, report["selected"])
		assert.InDelta(t, 160, report["summary"].(map[string]any)["mean"], 1e-9)
	})

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv("SOLAR_METRIC", "DNI")
		out, _, err := run(t, "summary", "-f", file, "-m", "GHI", "-o", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"metric": "GHI"`)
	})
}

func TestErrors(t *testing.T) {
	file := writeCSV(t, solarCSV)

	_, _, err := run(t, "summary", "-f", file, "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")

	_, _, err = run(t, "summary", "-f", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrSourceNotFound))

	var buf bytes.Buffer
	printError(&buf, err)
	assert.Contains(t, buf.String(), "(Code: LOAD001). ")
	assert.Contains(t, buf.String(), "missing.csv")

	buf.Reset()
	printError(&buf, errors.New("segfault in module 7"))
	assert.Equal(t, "✗ Error: segfault in module 7\n", buf.String())

	_, _, err = run(t, "summary", "-f", file, "-m", "Comments")
	require.ErrorIs(t, err, dataset.ErrNotNumeric)
}
