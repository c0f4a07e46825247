// Package config provides centralized configuration management for the dashboard.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Upload   UploadConfig
	Session  SessionConfig
	Database DatabaseConfig
	History  HistoryConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatasetConfig controls how the bundled dataset is located and interpreted.
type DatasetConfig struct {
	// DefaultPath is loaded at startup when the file exists.
	DefaultPath string `env:"DATASET_DEFAULT_PATH" default:"data/solar_data.csv"`

	// IDColumn overrides identifier column detection when set.
	IDColumn string `env:"DATASET_ID_COLUMN"`

	// RegionColumn overrides region column detection when set.
	RegionColumn string `env:"DATASET_REGION_COLUMN"`

	// TopNDefault is the initial "top regions" count (default: 5)
	TopNDefault int `env:"DATASET_TOP_N_DEFAULT" default:"5"`

	// TopNMax caps the "top regions" count (default: 20)
	TopNMax int `env:"DATASET_TOP_N_MAX" default:"20"`

	// PageSize is the number of data table rows rendered per page (default: 100)
	PageSize int `env:"DATASET_PAGE_SIZE" default:"100"`
}

// UploadConfig holds CSV upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 50MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of parallel uploads (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// SessionConfig bounds the in-memory store of uploaded datasets.
type SessionConfig struct {
	// TTL is how long an uploaded dataset survives without being viewed (default: 2h)
	TTL time.Duration `env:"SESSION_TTL" default:"2h"`

	// MaxDatasets caps the number of uploaded datasets held at once (default: 64)
	MaxDatasets int `env:"SESSION_MAX_DATASETS" default:"64"`
}

// DatabaseConfig holds database connection settings.
// The database is optional and only stores upload history.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Empty keeps history in memory.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"5"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database was configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// HistoryConfig holds upload history retention settings.
type HistoryConfig struct {
	// Retention is how long upload history entries are kept (default: 720h)
	Retention time.Duration `env:"HISTORY_RETENTION" default:"720h"`

	// MaintenanceInterval is how often sessions are evicted and history purged (default: 5m)
	MaintenanceInterval time.Duration `env:"MAINTENANCE_INTERVAL" default:"5m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is requests per minute for the upload endpoint (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the upload endpoint with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
