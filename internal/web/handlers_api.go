package web

import (
	"net/http"
	"strconv"

	"github.com/JonMunkholm/solardash/internal/dashboard"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/history"
	"github.com/JonMunkholm/solardash/internal/session"
)

// ColumnsResponse describes a dataset's shape.
type ColumnsResponse struct {
	Dataset string           `json:"dataset"`
	Name    string           `json:"name"`
	Rows    int              `json:"rows"`
	Columns []dataset.Column `json:"columns"`
	Layout  dataset.Layout   `json:"layout"`
	Keys    []string         `json:"keys"`
}

// SummaryResponse is the statistics panel.
type SummaryResponse struct {
	Metric   string          `json:"metric"`
	Selected []string        `json:"selected"`
	All      bool            `json:"all"`
	Summary  dataset.Summary `json:"summary"`
	Share    dashboard.Share `json:"share"`
}

// TopResponse is the ranking panel.
type TopResponse struct {
	GroupColumn string                 `json:"group_column"`
	Metric      string                 `json:"metric"`
	Top         int                    `json:"top"`
	Ranking     []dataset.RankingEntry `json:"ranking"`
	Insight     *dataset.Insight       `json:"insight,omitempty"`
}

// RowsResponse is one page of the data table.
type RowsResponse struct {
	Header    []string   `json:"header"`
	Rows      [][]string `json:"rows"`
	Total     int        `json:"total"`
	Page      int        `json:"page"`
	PageCount int        `json:"page_count"`
}

// UploadsResponse lists upload history and live uploaded datasets.
type UploadsResponse struct {
	Uploads  []history.Entry `json:"uploads"`
	Sessions []session.Info  `json:"sessions"`
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	v, q, err := s.view(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, ColumnsResponse{
		Dataset: q.Dataset,
		Name:    v.Name,
		Rows:    v.Table.Len(),
		Columns: v.Table.Columns(),
		Layout:  v.Table.Layout(),
		Keys:    v.AllKeys,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.view(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, SummaryResponse{
		Metric:   v.Metric,
		Selected: v.Selected,
		All:      v.All,
		Summary:  v.Summary,
		Share:    v.Share,
	})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.view(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	resp := TopResponse{
		GroupColumn: v.GroupColumn,
		Metric:      v.Metric,
		Top:         v.Top,
		Ranking:     v.Ranking,
	}
	if resp.Ranking == nil {
		resp.Ranking = []dataset.RankingEntry{}
	}
	if v.HasInsight {
		insight := v.Insight
		resp.Insight = &insight
	}
	writeJSON(w, resp)
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.view(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	rows := pageRows(v)
	if rows == nil {
		rows = [][]string{}
	}
	writeJSON(w, RowsResponse{
		Header:    v.Table.Header(),
		Rows:      rows,
		Total:     v.Display.Len(),
		Page:      v.Page,
		PageCount: v.PageCount,
	})
}

// handleBoxStats returns the numbers behind the boxplot.
func (s *Server) handleBoxStats(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.view(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	boxes, err := dataset.GroupBoxStats(v.Filtered, v.IDColumn, v.Metric)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if boxes == nil {
		boxes = []dataset.BoxStats{}
	}
	writeJSON(w, map[string]any{
		"key":    v.IDColumn,
		"metric": v.Metric,
		"boxes":  boxes,
	})
}

// handleOutliers flags filtered rows whose metric lies more than z standard
// deviations from the mean (query parameter z, default 3).
func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	v, _, err := s.view(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	threshold := dataset.DefaultZThreshold
	if z, err := strconv.ParseFloat(r.URL.Query().Get("z"), 64); err == nil && z > 0 {
		threshold = z
	}

	outliers, err := dataset.DetectOutliers(v.Filtered, []string{v.Metric}, threshold)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if outliers == nil {
		outliers = []dataset.Outlier{}
	}
	writeJSON(w, map[string]any{
		"metric":    v.Metric,
		"threshold": threshold,
		"outliers":  outliers,
	})
}

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.service.RecentUploads(r.Context(), parseIntParam(r, "limit", history.DefaultRecentLimit))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if uploads == nil {
		uploads = []history.Entry{}
	}
	writeJSON(w, UploadsResponse{
		Uploads:  uploads,
		Sessions: s.service.Sessions(),
	})
}

// handleUploadQueueStatus reports upload slot usage, so clients can check
// whether another upload would be admitted.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.UploadLimiterStatus())
}
