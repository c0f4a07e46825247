package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/solardash/internal/dashboard"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/logging"
	"github.com/JonMunkholm/solardash/internal/web/templates"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// recentUploadsShown is the number of history rows on the dashboard.
const recentUploadsShown = 10

// view resolves the request's dataset and selection.
func (s *Server) view(r *http.Request) (*dashboard.View, dashboard.Query, error) {
	q := parseQuery(r)
	t, name, err := s.service.Table(q.Dataset)
	if err != nil {
		return nil, q, err
	}
	v, err := s.service.BuildView(t, name, q)
	return v, q, err
}

// handleDashboard renders the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := parseQuery(r)
	logger := logging.FromContext(ctx)

	data := templates.DashboardData{
		DatasetID:      q.Dataset,
		MaxUploadBytes: s.cfg.Upload.MaxFileSize,
	}
	if uploads, err := s.service.RecentUploads(ctx, recentUploadsShown); err != nil {
		logger.Warn("load upload history failed", "error", err)
	} else {
		data.Uploads = uploads
	}

	t, name, err := s.service.Table(q.Dataset)
	if err != nil {
		// No bundled file: show the upload form without an error.
		if q.Dataset == "" && errors.Is(err, dataset.ErrSourceNotFound) {
			render(w, r, templates.Dashboard(data))
			return
		}
		msg := dashboard.MapError(err)
		data.Error = &msg
		logger.Warn("dataset unavailable", "dataset", q.Dataset, "error", err, "code", msg.Code)
		templ.Handler(templates.Dashboard(data), templ.WithStatus(statusFor(err))).ServeHTTP(w, r)
		return
	}

	v, err := s.service.BuildView(t, name, q)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	data.View = v
	if q.Dataset != "" {
		data.Notice = fmt.Sprintf("Successfully loaded %d records from %s!", t.Len(), name)
	} else {
		data.Notice = fmt.Sprintf("Successfully loaded %d records from the dataset!", t.Len())
	}

	vals := viewValues(q.Dataset, v)
	data.Links = templates.Links{
		Chart: withPath("/chart/boxplot.svg", vals),
		CSV:   withPath("/download.csv", vals),
		XLSX:  withPath("/download.xlsx", vals),
		Page: func(n int) string {
			pv := url.Values{}
			for k, vs := range vals {
				pv[k] = vs
			}
			pv.Set("page", fmt.Sprint(n))
			return withPath("/", pv)
		},
	}

	render(w, r, templates.Dashboard(data))
}

// uploadedFile reads the "file" part of a size-limited multipart form.
// The caller closes the file and cleans up r.MultipartForm.
func (s *Server) uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if !tooLarge(err) {
			err = fmt.Errorf("%w: %v", errNoFile, err)
		}
		return nil, "", err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return nil, "", fmt.Errorf("%w: %v", errNoFile, err)
	}
	return file, filepath.Base(header.Filename), nil
}

// handleUpload loads a multipart CSV upload into a new dataset.
// Browsers are redirected to the dashboard for it; JSON clients get its id.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, name, err := s.uploadedFile(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	defer file.Close()

	id, t, err := s.service.LoadUpload(r.Context(), name, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	if wantsJSON(r) {
		writeJSONStatus(w, http.StatusCreated, map[string]any{
			"dataset_id": id,
			"name":       name,
			"rows":       t.Len(),
			"columns":    t.Columns(),
			"layout":     t.Layout(),
		})
		return
	}
	http.Redirect(w, r, "/?dataset="+url.QueryEscape(id), http.StatusSeeOther)
}

// handlePreview reports how an upload would be read: its columns, the
// detected layout and the first rows. Nothing is stored.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	file, name, err := s.uploadedFile(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	defer file.Close()

	t, err := s.service.PreviewUpload(r.Context(), name, file)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	rows := t.Rows(0, dashboard.PreviewRows)
	if rows == nil {
		rows = [][]string{}
	}
	writeJSON(w, map[string]any{
		"name":    name,
		"rows":    t.Len(),
		"columns": t.Columns(),
		"layout":  t.Layout(),
		"preview": rows,
	})
}

// handleHealth reports liveness and upload slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":          "ok",
		"default_dataset": s.service.HasDefault(),
		"sessions":        len(s.service.Sessions()),
		"uploads":         s.service.UploadLimiterStatus(),
	})
}
