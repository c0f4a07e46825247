package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/solardash/internal/chart"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/logging"
)

const placeholderSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="640" height="120" viewBox="0 0 640 120">` +
	`<rect width="640" height="120" fill="#fafafa" stroke="#e3e3e3"/>` +
	`<text x="320" y="66" font-family="sans-serif" font-size="16" fill="#666" text-anchor="middle">No data to plot</text></svg>`

// handleChart renders the boxplot of the current selection. An empty
// selection yields a placeholder image for SVG so the page still lays out.
func (s *Server) handleChart(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, _, err := s.view(r)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}

		wt, err := chart.BoxPlot(v.Filtered, v.IDColumn, v.Metric, chart.Options{
			Format: format,
			Order:  v.Selected,
		})
		if errors.Is(err, chart.ErrNoData) && format == chart.FormatSVG {
			w.Header().Set("Content-Type", "image/svg+xml")
			_, _ = w.Write([]byte(placeholderSVG))
			return
		}
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}

		// Render fully before writing so encoding errors still get a status.
		var buf bytes.Buffer
		if _, err := wt.WriteTo(&buf); err != nil {
			s.respondError(w, r, fmt.Errorf("render chart: %w", err), http.StatusInternalServerError)
			return
		}

		contentType := "image/svg+xml"
		if format == chart.FormatPNG {
			contentType = "image/png"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-store")
		_, _ = buf.WriteTo(w)
	}
}

// handleDownloadCSV streams the filtered and searched rows as CSV.
func (s *Server) handleDownloadCSV(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.view(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(v.Metric, "csv")))

	if err := dataset.WriteCSV(w, v.Display); err != nil {
		// Headers are sent; all we can do is log.
		logging.FromContext(r.Context()).Error("csv download failed", "error", err)
	}
}

// handleDownloadXLSX writes the filtered and searched rows as a workbook.
func (s *Server) handleDownloadXLSX(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.view(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	var buf bytes.Buffer
	if err := dataset.WriteXLSX(&buf, v.Display, "solar_data"); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(v.Metric, "xlsx")))
	_, _ = buf.WriteTo(w)
}
