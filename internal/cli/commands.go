package cli

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/JonMunkholm/solardash/internal/chart"
	"github.com/JonMunkholm/solardash/internal/dashboard"
	"github.com/JonMunkholm/solardash/internal/dataset"
)

func (a *app) printer(cmd *cobra.Command) printer {
	return printer{w: cmd.OutOrStdout(), format: a.opts.Output}
}

// SummaryReport is the summary command's result.
type SummaryReport struct {
	File     string          `json:"file" yaml:"file"`
	Metric   string          `json:"metric" yaml:"metric"`
	Selected []string        `json:"selected" yaml:"selected"`
	Summary  dataset.Summary `json:"summary" yaml:"summary"`
	Share    dashboard.Share `json:"share" yaml:"share"`
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Mean, median, std dev, min and max of a metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.view(cmd.Context())
			if err != nil {
				return err
			}
			report := SummaryReport{
				File:     a.opts.File,
				Metric:   v.Metric,
				Selected: v.Selected,
				Summary:  v.Summary,
				Share:    v.Share,
			}

			p := a.printer(cmd)
			return p.emit(report, func() {
				p.heading("%s for %d of %d %ss (%d of %d records)",
					v.Metric, v.Share.SelectedKeys, v.Share.TotalKeys, strings.ToLower(v.IDColumn),
					v.Share.Rows, v.Share.TotalRows)
				if v.Summary.Empty() {
					p.note("No data available for the selected %ss.", strings.ToLower(v.IDColumn))
					return
				}
				s := v.Summary
				p.table([]string{"Statistic", "Value"}, [][]string{
					{"Count", strconv.Itoa(s.Count)},
					{"Mean", num(s.Mean)},
					{"Median", num(s.Median)},
					{"Std Dev", num(s.StdDev)},
					{"Min", num(s.Min)},
					{"Max", num(s.Max)},
				})
			})
		},
	}
}

// TopReport is the top command's result.
type TopReport struct {
	GroupColumn string                 `json:"group_column" yaml:"group_column"`
	Metric      string                 `json:"metric" yaml:"metric"`
	N           int                    `json:"n" yaml:"n"`
	Ranking     []dataset.RankingEntry `json:"ranking" yaml:"ranking"`
	Insight     *dataset.Insight       `json:"insight,omitempty" yaml:"insight,omitempty"`
}

func (a *app) topCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank regions of the whole file by their average metric",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.view(cmd.Context())
			if err != nil {
				return err
			}
			ranking, err := dataset.TopRegions(v.Table, v.GroupColumn, v.Metric, n)
			if err != nil {
				return err
			}
			report := TopReport{GroupColumn: v.GroupColumn, Metric: v.Metric, N: n, Ranking: ranking}
			if insight, ok := dataset.Insights(ranking); ok {
				report.Insight = &insight
			}

			p := a.printer(cmd)
			return p.emit(report, func() {
				p.heading("Top %d %ss by Average %s", n, v.GroupColumn, v.Metric)
				if len(ranking) == 0 {
					p.note("No data available for ranking by %s.", v.GroupColumn)
					return
				}
				rows := make([][]string, len(ranking))
				for i, e := range ranking {
					rows[i] = []string{strconv.Itoa(i + 1), e.Key, num(e.Mean), strconv.Itoa(e.Count)}
				}
				p.table([]string{"#", v.GroupColumn, "Avg " + v.Metric, "Records"}, rows)
				if in := report.Insight; in != nil {
					p.note("Best performing: %s (%s)", in.Best.Key, num(in.Best.Mean))
					if in.RunnerUp != nil {
						p.note("Lead over 2nd: %s", num(in.Lead))
					}
				}
			})
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", dashboard.DefaultTopN, "number of regions to show")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the filtered rows as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = exportFormat(format, out)
			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("unknown export format %q (want csv or xlsx)", format)
			}

			v, err := a.view(cmd.Context())
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				if format == "xlsx" {
					return dataset.WriteXLSX(w, v.Display, "solar_data")
				}
				return dataset.WriteCSV(w, v.Display)
			}, func() {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", v.Display.Len(), out)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "csv or xlsx (default from --out extension, else csv)")
	cmd.Flags().StringVar(&out, "out", "", "output file (stdout when empty)")
	return cmd
}

func exportFormat(format, out string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	if strings.EqualFold(filepath.Ext(out), ".xlsx") {
		return "xlsx"
	}
	return "csv"
}

func (a *app) chartCmd() *cobra.Command {
	var (
		out, format   string
		width, height float64
	)
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Render a boxplot of the metric by identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(out)), ".")
			}

			v, err := a.view(cmd.Context())
			if err != nil {
				return err
			}
			wt, err := chart.BoxPlot(v.Filtered, v.IDColumn, v.Metric, chart.Options{
				Format: format,
				Width:  vg.Length(width) * vg.Inch,
				Height: vg.Length(height) * vg.Inch,
				Order:  v.Selected,
			})
			if err != nil {
				return err
			}

			return writeOutput(cmd.OutOrStdout(), out, func(w io.Writer) error {
				_, err := wt.WriteTo(w)
				return err
			}, func() {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", out)
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "image file, .png or .svg")
	cmd.Flags().StringVar(&format, "format", "", "png or svg (default from --out extension)")
	cmd.Flags().Float64Var(&width, "width", 8, "width in inches")
	cmd.Flags().Float64Var(&height, "height", 4.5, "height in inches")
	return cmd
}

func (a *app) describeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "Descriptive statistics for every numeric column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := a.view(cmd.Context())
			if err != nil {
				return err
			}
			df := dataset.Describe(v.Filtered)
			if df.Err != nil {
				return df.Err
			}

			p := a.printer(cmd)
			return p.emit(describeMaps(df.Maps()), func() {
				p.heading("Statistics over %d records", v.Filtered.Len())
				records := df.Records()
				if len(records) == 0 {
					return
				}
				p.table(records[0], records[1:])
			})
		},
	}
}

// describeMaps replaces NaN, which JSON cannot encode, with nil.
func describeMaps(rows []map[string]any) []map[string]any {
	for _, row := range rows {
		for k, val := range row {
			if f, ok := val.(float64); ok && math.IsNaN(f) {
				row[k] = nil
			}
		}
	}
	return rows
}

// ColumnInfo describes one column for the columns command.
type ColumnInfo struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
	Role string `json:"role,omitempty" yaml:"role,omitempty"`
}

func (a *app) columnsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List columns and the roles detected for them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, t, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			infos := columnInfos(t)

			p := a.printer(cmd)
			return p.emit(infos, func() {
				p.heading("%s: %d rows, %d columns", a.opts.File, t.Len(), len(infos))
				rows := make([][]string, len(infos))
				for i, c := range infos {
					rows[i] = []string{c.Name, c.Kind, c.Role}
				}
				p.table([]string{"Column", "Kind", "Role"}, rows)
			})
		},
	}
}

func columnInfos(t *dataset.Table) []ColumnInfo {
	layout := t.Layout()
	metrics := make(map[string]bool, len(layout.Metrics))
	for _, m := range layout.Metrics {
		metrics[m] = true
	}

	cols := t.Columns()
	infos := make([]ColumnInfo, len(cols))
	for i, c := range cols {
		info := ColumnInfo{Name: c.Name, Kind: c.Kind.String()}
		switch {
		case c.Name == layout.ID:
			info.Role = "identifier"
		case c.Name == layout.Region:
			info.Role = "region"
		case metrics[c.Name]:
			info.Role = "metric"
		}
		infos[i] = info
	}
	return infos
}

// writeOutput streams to stdout when path is empty or "-", else to a file.
// done runs after a successful file write.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error, done func()) error {
	if path == "" || path == "-" {
		return write(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	done()
	return nil
}
