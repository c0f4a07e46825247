package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/solardash/internal/config"
)

func echoRemote() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.RemoteAddr))
	})
}

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		headers map[string]string
		want    string
	}{
		{
			name:    "no trusted proxies ignores headers",
			remote:  "10.0.0.5:4000",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			want:    "10.0.0.5:4000",
		},
		{
			name:    "trusted CIDR uses X-Real-IP",
			trusted: []string{"10.0.0.0/8"},
			remote:  "10.0.0.5:4000",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			want:    "203.0.113.9",
		},
		{
			name:    "trusted address uses first forwarded hop",
			trusted: []string{"10.0.0.5"},
			remote:  "10.0.0.5:4000",
			headers: map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.5"},
			want:    "198.51.100.7",
		},
		{
			name:    "untrusted peer is not rewritten",
			trusted: []string{"10.0.0.0/8"},
			remote:  "192.0.2.1:4000",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			want:    "192.0.2.1:4000",
		},
		{
			name:    "garbage header is ignored",
			trusted: []string{"10.0.0.0/8", "not-an-ip"},
			remote:  "10.0.0.5:4000",
			headers: map[string]string{"X-Real-IP": "nope"},
			want:    "10.0.0.5:4000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			TrustedRealIP(tt.trusted)(echoRemote()).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := &config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{" alpha ", "beta"}}
	h := APIKeyAuth(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(target, key string) int {
		req := httptest.NewRequest(http.MethodPost, target, nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve("/upload", ""))
	assert.Equal(t, http.StatusForbidden, serve("/upload", "gamma"))
	assert.Equal(t, http.StatusNoContent, serve("/upload", "alpha"))
	assert.Equal(t, http.StatusNoContent, serve("/upload", "beta"))
	assert.Equal(t, http.StatusNoContent, serve("/upload?api_key=beta", ""))
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	h := APIKeyAuth(&config.SecurityConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/upload", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogger_RecordsStatusAndBytes(t *testing.T) {
	var seen *responseWriter
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.(*responseWriter)
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?dataset=x", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, http.StatusTeapot, seen.status)
	assert.Equal(t, 5, seen.bytes)
}
