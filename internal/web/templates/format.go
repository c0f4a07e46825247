// Package templates renders the dashboard's HTML as templ components.
//
// The *.templ files are the source of truth. Run `go generate` after editing
// them and commit the *_templ.go output alongside.
package templates

//go:generate templ generate -path .

import (
	"fmt"
	"math"
	"strconv"

	"github.com/JonMunkholm/solardash/internal/dashboard"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/history"
)

// DashboardData is everything the dashboard page shows.
type DashboardData struct {
	// View is nil until a dataset is available.
	View      *dashboard.View
	DatasetID string
	Notice    string
	Error     *dashboard.UserMessage
	Uploads   []history.Entry

	MaxUploadBytes int64
	Links          Links
}

// Links are the URLs derived from the current selection.
type Links struct {
	Chart string
	CSV   string
	XLSX  string
	// Page returns the URL of data table page n.
	Page func(n int) string
}

type statRow struct {
	Name  string
	Value float64
}

func summaryRows(s dataset.Summary) []statRow {
	return []statRow{
		{"Mean", s.Mean},
		{"Median", s.Median},
		{"Std Dev", s.StdDev},
		{"Min", s.Min},
		{"Max", s.Max},
	}
}

// keySelected reports whether k shows as picked in the selection list.
// Nothing is individually picked while "Select All" is on.
func keySelected(v *dashboard.View, k string) bool {
	if v.All {
		return false
	}
	for _, s := range v.Selected {
		if s == k {
			return true
		}
	}
	return false
}

func hasPager(v *dashboard.View, l Links) bool {
	return v.PageCount > 1 && l.Page != nil
}

// number formats a statistic with two decimals. NaN reads as "n/a".
func number(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func percent(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64) + "%"
}

// count formats n with thousands separators.
func count(n int) string {
	if n < 0 {
		return "-" + count(-n)
	}
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

// byteSize renders a byte count for humans.
func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
