package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with its technical detail and request ID, then mapped
// through dashboard.MapError to a user message with an action and a code.
// API routes and JSON clients get ErrorResponse; browsers get an HTML page.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/solardash/internal/chart"
	"github.com/JonMunkholm/solardash/internal/dashboard"
	"github.com/JonMunkholm/solardash/internal/dataset"
	"github.com/JonMunkholm/solardash/internal/web/templates"
)

// errNoFile is reported when an upload form carries no file part.
var errNoFile = errors.New("no file provided")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes a user-facing response. A zero status
// derives one from the error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	userMsg := dashboard.MapError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if wantsJSON(r) {
		respondErrorJSON(w, userMsg, status)
		return
	}
	respondErrorHTML(r.Context(), w, userMsg, status)
}

// statusFor picks the HTTP status for a domain error.
func statusFor(err error) int {
	switch {
	case tooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, dashboard.ErrDatasetNotFound),
		errors.Is(err, dataset.ErrSourceNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, dataset.ErrNotNumeric),
		errors.Is(err, chart.ErrNoData),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	}
	var loadErr *dataset.LoadError
	if errors.As(err, &loadErr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// tooLarge reports whether err came from http.MaxBytesReader. The multipart
// reader does not always keep the typed error in the chain.
func tooLarge(err error) bool {
	var maxBytes *http.MaxBytesError
	return errors.As(err, &maxBytes) || strings.Contains(err.Error(), "request body too large")
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg dashboard.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML renders the error page.
func respondErrorHTML(ctx context.Context, w http.ResponseWriter, msg dashboard.UserMessage, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page := templates.ErrorPage(msg.Message, msg.Action, msg.Code)
	if err := page.Render(ctx, w); err != nil {
		slog.Error("render error page", "error", err)
	}
}

// render writes a component as a 200 HTML response.
func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	templ.Handler(c).ServeHTTP(w, r)
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
