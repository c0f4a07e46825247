package web

import (
	"encoding/csv"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/solardash/internal/dataset"
)

// templateRows are example measurements shipped with the upload template.
var templateRows = [][]string{
	{"Benin", "Malanville", "512.4", "301.2", "221.0", "28.1", "35.2", "34.9", "2.1", "3.4", "54.0"},
	{"Togo", "Dapaong", "478.9", "266.7", "230.5", "27.4", "33.8", "33.1", "1.8", "2.9", "61.5"},
}

// handleTemplateCSV serves a CSV in the expected upload format: an
// identifier column, a region column and the preferred solar metrics.
func (s *Server) handleTemplateCSV(w http.ResponseWriter, r *http.Request) {
	header := append([]string{"Country", "Region"}, dataset.PreferredMetrics...)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="solar_data_template.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write(header)
	if r.URL.Query().Get("empty") == "" {
		_ = cw.WriteAll(templateRows)
	}
	cw.Flush()
}

// handleDropDataset forgets an uploaded dataset before its TTL runs out.
func (s *Server) handleDropDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.DropUpload(id); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, map[string]string{"status": "deleted", "dataset_id": id})
}
