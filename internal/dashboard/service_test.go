package dashboard

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/solardash/internal/config"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/history"
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

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Dataset: config.DatasetConfig{
			DefaultPath: filepath.Join(t.TempDir(), "missing.csv"),
			TopNDefault: 5,
			TopNMax:     20,
			PageSize:    2,
		},
		Upload:  config.UploadConfig{MaxConcurrent: 2, MaxWaitTime: time.Second},
		Session: config.SessionConfig{TTL: time.Hour, MaxDatasets: 8},
	}
}

func newTestService(t *testing.T) (*Service, *history.MemoryLog) {
	t.Helper()
	hist := history.NewMemoryLog(0)
	return NewService(testConfig(t), hist), hist
}

func loadSolar(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.LoadReader("solar.csv", strings.NewReader(solarCSV), dataset.Options{})
	require.NoError(t, err)
	return tbl
}

func TestService_DefaultMissing(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.LoadDefault(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrSourceNotFound))
	assert.False(t, svc.HasDefault())

	_, _, err = svc.Table("")
	require.Error(t, err)
	assert.Equal(t, "LOAD001", MapError(err).Code)
}

func TestService_DefaultLoaded(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dataset.DefaultPath = filepath.Join(t.TempDir(), "solar_data.csv")
	require.NoError(t, os.WriteFile(cfg.Dataset.DefaultPath, []byte(solarCSV), 0o644))

	hist := history.NewMemoryLog(0)
	svc := NewService(cfg, hist)
	require.NoError(t, svc.LoadDefault(context.Background()))
	assert.True(t, svc.HasDefault())

	tbl, name, err := svc.Table("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDatasetName, name)
	assert.Equal(t, 7, tbl.Len())

	recent, err := hist.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Country", recent[0].IDColumn)
	assert.Empty(t, recent[0].ID, "default dataset is recorded without an upload id")
}

func TestService_LoadUpload(t *testing.T) {
	svc, hist := newTestService(t)
	ctx := context.Background()

	id, tbl, err := svc.LoadUpload(ctx, "upload.csv", strings.NewReader(solarCSV))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, name, err := svc.Table(id)
	require.NoError(t, err)
	assert.Same(t, tbl, got)
	assert.Equal(t, "upload.csv", name)

	recent, err := hist.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, id, recent[0].ID)
	assert.Equal(t, 7, recent[0].Rows)
	assert.Equal(t, 5, recent[0].Columns)

	require.Len(t, svc.Sessions(), 1)
	assert.Equal(t, 0, svc.UploadLimiterStatus().Active)
}

func TestService_LoadUploadErrors(t *testing.T) {
	svc, hist := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.LoadUpload(ctx, "empty.csv", strings.NewReader(""))
	assert.True(t, errors.Is(err, dataset.ErrEmptySource))

	_, _, err = svc.LoadUpload(ctx, "noid.csv", strings.NewReader("Site,GHI\nA,1\n"))
	assert.True(t, errors.Is(err, dataset.ErrMissingIdentifier))

	recent, err := hist.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent, "failed uploads are not recorded")
}

func TestService_PreviewAndDrop(t *testing.T) {
	svc, hist := newTestService(t)
	ctx := context.Background()

	tbl, err := svc.PreviewUpload(ctx, "peek.csv", strings.NewReader(solarCSV))
	require.NoError(t, err)
	assert.Equal(t, 7, tbl.Len())
	assert.Empty(t, svc.Sessions())
	recent, err := hist.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)

	id, _, err := svc.LoadUpload(ctx, "keep.csv", strings.NewReader(solarCSV))
	require.NoError(t, err)
	require.NoError(t, svc.DropUpload(id))
	assert.ErrorIs(t, svc.DropUpload(id), ErrDatasetNotFound)

	_, _, err = svc.Table(id)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestService_UnknownDataset(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Table("0b0e6a52-5e43-4c4d-9a36-3c3b1c0e0000")
	assert.True(t, errors.Is(err, ErrDatasetNotFound))
}

func TestBuildView_Defaults(t *testing.T) {
	svc, _ := newTestService(t)
	tbl := loadSolar(t)

	v, err := svc.BuildView(tbl, "solar.csv", Query{})
	require.NoError(t, err)

	assert.Equal(t, "Country", v.IDColumn)
	assert.Equal(t, "Region", v.GroupColumn)
	assert.Equal(t, "GHI", v.Metric)
	assert.Equal(t, []string{"GHI", "DNI"}, v.Metrics)
	assert.Equal(t, []string{"Benin", "Kenya", "Sierra Leone", "Togo"}, v.AllKeys)
	assert.Equal(t, []string{"Benin", "Kenya", "Sierra Leone"}, v.Selected)

	// 4 distinct keys: slider runs 3..4, default 5 clamps to 4.
	assert.Equal(t, 3, v.TopMin)
	assert.Equal(t, 4, v.TopMax)
	assert.Equal(t, 4, v.Top)

	assert.Equal(t, 5, v.Filtered.Len())
	assert.Equal(t, 4, v.Summary.Count)
	assert.InDelta(t, 512.5, v.Summary.Mean, 1e-9)

	require.Len(t, v.Ranking, 4)
	assert.Equal(t, "Turkana", v.Ranking[0].Key)
	assert.True(t, v.HasInsight)
	assert.Equal(t, "Turkana", v.Insight.Best.Key)
	assert.InDelta(t, 70, v.Insight.Lead, 1e-9)

	assert.Equal(t, 3, v.Share.SelectedKeys)
	assert.InDelta(t, 75, v.Share.KeyPercent, 1e-9)
	assert.InDelta(t, 100*5.0/7.0, v.Share.RowPercent, 1e-9)
}

func TestBuildView_AllAndExplicitKeys(t *testing.T) {
	svc, _ := newTestService(t)
	tbl := loadSolar(t)

	v, err := svc.BuildView(tbl, "solar.csv", Query{All: true, Metric: "dni"})
	require.NoError(t, err)
	assert.Same(t, tbl, v.Filtered, "all keys is the identity filter")
	assert.Equal(t, "DNI", v.Metric)
	assert.Len(t, v.Selected, 4)

	v, err = svc.BuildView(tbl, "solar.csv", Query{Keys: []string{"Togo"}})
	require.NoError(t, err)
	assert.Equal(t, 2, v.Filtered.Len())
	assert.InDelta(t, 310, v.Summary.Mean, 1e-9)
	require.Len(t, v.Ranking, 4, "ranking is not narrowed by the selection")
	assert.Equal(t, "Turkana", v.Ranking[0].Key)
}

func TestBuildView_RankingCoversWholeTable(t *testing.T) {
	svc, _ := newTestService(t)
	tbl, err := dataset.LoadReader("countries.csv", strings.NewReader(
		"Country,GHI\nBenin,500\nChad,400\nEgypt,450\nZambia,900\nTogo,300\n"), dataset.Options{})
	require.NoError(t, err)

	v, err := svc.BuildView(tbl, "countries.csv", Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Benin", "Chad", "Egypt"}, v.Selected)
	assert.Equal(t, 5, v.Top)
	assert.InDelta(t, 450, v.Summary.Mean, 1e-9, "statistics stay on the selection")

	keys := make([]string, len(v.Ranking))
	for i, e := range v.Ranking {
		keys[i] = e.Key
	}
	assert.Equal(t, []string{"Zambia", "Benin", "Egypt", "Chad", "Togo"}, keys)
	assert.Equal(t, "Zambia", v.Insight.Best.Key)
}

func TestBuildView_NoMatches(t *testing.T) {
	svc, _ := newTestService(t)

	v, err := svc.BuildView(loadSolar(t), "solar.csv", Query{Keys: []string{"Atlantis"}})
	require.NoError(t, err)
	assert.Equal(t, 0, v.Filtered.Len())
	assert.True(t, v.Summary.Empty())
	assert.True(t, math.IsNaN(v.Summary.Mean))
	assert.NotEmpty(t, v.Ranking)
	assert.Equal(t, 1, v.PageCount)

	assert.Empty(t, v.Selected, "unknown keys are not counted as selected")
	assert.Equal(t, []string{"Atlantis"}, v.Requested)
	assert.Equal(t, 0, v.Share.SelectedKeys)
	assert.Zero(t, v.Share.KeyPercent)
}

func TestBuildView_SelectionDropsUnknownKeys(t *testing.T) {
	svc, _ := newTestService(t)

	v, err := svc.BuildView(loadSolar(t), "solar.csv", Query{Keys: []string{"Atlantis", " Togo", "Togo"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Togo"}, v.Selected)
	assert.Equal(t, 2, v.Filtered.Len())
	assert.Equal(t, 1, v.Share.SelectedKeys)
	assert.InDelta(t, 25, v.Share.KeyPercent, 1e-9)
}

func TestBuildView_SearchAndPaging(t *testing.T) {
	svc, _ := newTestService(t)
	tbl := loadSolar(t)

	v, err := svc.BuildView(tbl, "solar.csv", Query{All: true, Raw: true, Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 4, v.PageCount)
	assert.Equal(t, 4, v.Page, "page clamps to the last one")
	assert.Len(t, v.Rows(), 1)

	v, err = svc.BuildView(tbl, "solar.csv", Query{All: true, Raw: true, Search: "DUST"})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Display.Len())
	assert.Equal(t, 7, v.Filtered.Len(), "search does not change statistics input")

	v, err = svc.BuildView(tbl, "solar.csv", Query{All: true})
	require.NoError(t, err)
	assert.Len(t, v.Rows(), PreviewRows)
}

func TestBuildView_MetricErrors(t *testing.T) {
	svc, _ := newTestService(t)
	tbl := loadSolar(t)

	_, err := svc.BuildView(tbl, "solar.csv", Query{Metric: "XYZ"})
	assert.True(t, errors.Is(err, dataset.ErrUnknownColumn))
	assert.Equal(t, "VAL001", MapError(err).Code)

	_, err = svc.BuildView(tbl, "solar.csv", Query{Metric: "Comments"})
	assert.True(t, errors.Is(err, dataset.ErrNotNumeric))
	assert.Equal(t, "VAL002", MapError(err).Code)
}

func TestTopBounds(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		keys   int
		lo, hi int
	}{
		{0, 1, 1},
		{2, 1, 2},
		{3, 3, 3},
		{12, 3, 12},
		{50, 3, 20},
	}
	for _, tt := range tests {
		lo, hi := svc.topBounds(tt.keys)
		assert.Equal(t, tt.lo, lo, "keys=%d", tt.keys)
		assert.Equal(t, tt.hi, hi, "keys=%d", tt.keys)
	}

	assert.Equal(t, 5, clamp(0, 5, 3, 20))
	assert.Equal(t, 3, clamp(1, 5, 3, 20))
	assert.Equal(t, 20, clamp(99, 5, 3, 20))
}

func TestRunMaintenance(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.TTL = time.Nanosecond
	hist := history.NewMemoryLog(0)
	svc := NewService(cfg, hist)
	ctx := context.Background()

	_, _, err := svc.LoadUpload(ctx, "a.csv", strings.NewReader(solarCSV))
	require.NoError(t, err)
	require.NoError(t, hist.Record(ctx, history.Entry{Name: "ancient.csv", LoadedAt: time.Now().Add(-48 * time.Hour)}))

	time.Sleep(time.Millisecond)
	svc.runMaintenance(ctx, MaintenanceConfig{Retention: 24 * time.Hour}.withDefaults())

	assert.Empty(t, svc.Sessions())
	recent, err := hist.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "a.csv", recent[0].Name)
}

func TestStartMaintenance_StopsOnCancel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.StartMaintenance(ctx, MaintenanceConfig{Interval: 10 * time.Millisecond})
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("maintenance did not stop")
	}
}
