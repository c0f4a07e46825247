// Package chart renders dataset charts with gonum/plot.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/JonMunkholm/solardash/internal/dataset"
)

// ErrNoData is returned when no group has a value for the metric.
var ErrNoData = errors.New("no data to plot")

// Formats accepted by Options.Format.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
)

var boxFill = color.RGBA{R: 70, G: 130, B: 180, A: 255}

// Options controls rendering. Zero values pick defaults.
type Options struct {
	Format string    // "svg" (default) or "png"
	Width  vg.Length // default 8in
	Height vg.Length // default 4.5in
	// Order lists group keys in the order the boxes are drawn. Keys without
	// data are skipped. When empty, groups appear in first-seen order.
	Order []string
}

func (o Options) withDefaults() (Options, error) {
	o.Format = strings.ToLower(o.Format)
	switch o.Format {
	case "":
		o.Format = FormatSVG
	case FormatSVG, FormatPNG:
	default:
		return o, fmt.Errorf("unsupported chart format %q", o.Format)
	}
	if o.Width <= 0 {
		o.Width = 8 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 4.5 * vg.Inch
	}
	return o, nil
}

// Title is the heading drawn above a boxplot of metric grouped by key.
func Title(key, metric string) string {
	return fmt.Sprintf("%s Distribution by %s", metric, key)
}

// BoxPlot draws one box of metric per group of key. The returned WriterTo
// emits the encoded image.
func BoxPlot(t *dataset.Table, key, metric string, opts Options) (io.WriterTo, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	groups, err := dataset.GroupValues(t, key, metric)
	if err != nil {
		return nil, err
	}
	groups = ordered(groups, opts.Order)
	if len(groups) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = Title(key, metric)
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = key
	p.Y.Label.Text = metric

	width := boxWidth(opts.Width, len(groups))
	names := make([]string, len(groups))
	for i, g := range groups {
		box, err := plotter.NewBoxPlot(width, float64(i), plotter.Values(g.Values))
		if err != nil {
			return nil, fmt.Errorf("box %q: %w", g.Key, err)
		}
		box.FillColor = boxFill
		p.Add(box)
		names[i] = g.Key
	}
	p.NominalX(names...)
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(opts.Width, opts.Height, opts.Format)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", opts.Format, err)
	}
	return wt, nil
}

// ordered arranges groups by order, dropping keys not listed.
func ordered(groups []dataset.Group, order []string) []dataset.Group {
	if len(order) == 0 {
		return groups
	}
	byKey := make(map[string]dataset.Group, len(groups))
	for _, g := range groups {
		byKey[g.Key] = g
	}
	out := make([]dataset.Group, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		g, ok := byKey[k]
		if !ok || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, g)
	}
	return out
}

// boxWidth keeps boxes readable as the group count grows.
func boxWidth(total vg.Length, n int) vg.Length {
	w := total / vg.Length(2*n+2)
	if w > vg.Points(60) {
		w = vg.Points(60)
	}
	if w < vg.Points(6) {
		w = vg.Points(6)
	}
	return w
}
