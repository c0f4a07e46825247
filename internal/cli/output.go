package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// printer writes command results in the selected format.
type printer struct {
	w      io.Writer
	format string
}

// emit writes v as JSON or YAML, or calls table for the table format.
func (p printer) emit(v any, table func()) error {
	switch p.format {
	case OutputJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case OutputYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		table()
		return nil
	}
}

func (p printer) heading(format string, args ...any) {
	color.New(color.FgYellow, color.Bold).Fprintf(p.w, format+"\n", args...)
}

func (p printer) note(format string, args ...any) {
	color.New(color.FgCyan).Fprintf(p.w, format+"\n", args...)
}

func (p printer) table(header []string, rows [][]string) {
	t := tablewriter.NewWriter(p.w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.AppendBulk(rows)
	t.Render()
}

// num formats a statistic; NaN prints as n/a.
func num(f float64) string {
	if f != f {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", f)
}
