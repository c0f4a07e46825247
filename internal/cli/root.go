// Package cli implements solarctl, the offline companion to the dashboard.
// It runs the same load and metrics pipeline over a CSV file and prints the
// results as tables, JSON or YAML.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JonMunkholm/solardash/internal/config"
	"github.com/JonMunkholm/solardash/internal/dashboard"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/logging"
)

// EnvPrefix namespaces environment overrides, e.g. SOLAR_FILE.
const EnvPrefix = "SOLAR"

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Options are the settings shared by every command. Precedence is
// flags > env > config file > defaults.
type Options struct {
	File         string   `mapstructure:"file" yaml:"file"`
	IDColumn     string   `mapstructure:"key" yaml:"key"`
	RegionColumn string   `mapstructure:"region" yaml:"region"`
	Metric       string   `mapstructure:"metric" yaml:"metric"`
	Select       []string `mapstructure:"select" yaml:"select"`
	Search       string   `mapstructure:"search" yaml:"search"`
	Output       string   `mapstructure:"output" yaml:"output"`
	LogLevel     string   `mapstructure:"log-level" yaml:"log-level"`
}

type app struct {
	v       *viper.Viper
	cfgFile string
	opts    Options
}

// NewRootCmd builds the solarctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "solarctl",
		Short: "Summarise and rank solar irradiance CSV data",
		Long: `solarctl loads a solar measurement CSV, filters it by country or location,
and reports statistics, regional rankings, charts and exports from the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./solarctl.yaml or ~/.solardash/solarctl.yaml)")
	pf.StringP("file", "f", "data/solar_data.csv", "CSV file to analyse")
	pf.String("key", "", "identifier column (detected when empty)")
	pf.String("region", "", "region column used for ranking (detected when empty)")
	pf.StringP("metric", "m", "", "metric column (first preferred metric when empty)")
	pf.StringSlice("select", nil, "identifier values to keep (all when empty)")
	pf.StringP("search", "s", "", "case-insensitive text filter applied to exported rows")
	pf.StringP("output", "o", OutputTable, "output format: table, json or yaml")
	pf.String("log-level", "warn", "log level written to stderr")
	_ = a.v.BindPFlags(pf)

	root.AddCommand(
		a.summaryCmd(),
		a.topCmd(),
		a.exportCmd(),
		a.chartCmd(),
		a.describeCmd(),
		a.columnsCmd(),
	)
	return root
}

// Execute runs solarctl with os.Args and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(cmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

// printError shows a catalogued message when one matches, else the raw error.
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	if dashboard.IsUserFacing(err) {
		red.Fprintf(w, "✗ %s\n", dashboard.FormatUserError(err))
		fmt.Fprintf(w, "  %v\n", err)
		return
	}
	red.Fprintf(w, "✗ Error: %v\n", err)
}

// init resolves configuration before any command runs.
func (a *app) init(cmd *cobra.Command) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	if err := a.v.Unmarshal(&a.opts); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	a.opts.Output = strings.ToLower(a.opts.Output)
	switch a.opts.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unknown output format %q (want table, json or yaml)", a.opts.Output)
	}

	slog.SetDefault(logging.New(cmd.ErrOrStderr(), a.opts.LogLevel, "text"))
	return nil
}

func (a *app) loadConfig() error {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
		return nil
	}

	a.v.SetConfigName("solarctl")
	a.v.SetConfigType("yaml")
	a.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".solardash"))
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// service wires a dashboard service around the configured file, so the CLI
// loads and filters exactly like the web server.
func (a *app) service(ctx context.Context) (*dashboard.Service, *dataset.Table, error) {
	svc := dashboard.NewService(&config.Config{
		Dataset: config.DatasetConfig{
			DefaultPath:  a.opts.File,
			IDColumn:     a.opts.IDColumn,
			RegionColumn: a.opts.RegionColumn,
			TopNDefault:  dashboard.DefaultTopN,
			TopNMax:      dashboard.MaxTopN,
		},
	}, nil)
	if err := svc.LoadDefault(ctx); err != nil {
		return nil, nil, err
	}
	t, _, err := svc.Table("")
	return svc, t, err
}

// view runs the pipeline for the configured selection. No selection means
// every key.
func (a *app) view(ctx context.Context) (*dashboard.View, error) {
	svc, t, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	return svc.BuildView(t, a.opts.File, dashboard.Query{
		Keys:   a.opts.Select,
		All:    len(a.opts.Select) == 0,
		Metric: a.opts.Metric,
		Search: a.opts.Search,
	})
}
