// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Importer ImporterConfig
	Search   SearchConfig
	Rate     RateLimitConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 0 for SSE)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// TrustedProxies lists proxy CIDRs whose forwarding headers are trusted.
	// Empty means client IPs come straight from the connection.
	TrustedProxies []string `env:"SERVER_TRUSTED_PROXIES"`

	// APIKeys guards /api routes via the X-API-Key header. Empty disables auth.
	APIKeys []string `env:"SERVER_API_KEYS"`
}

// DatabaseConfig holds database connection settings. The database is
// optional: with no URL configured, parsed batches are reported but never
// executed.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImporterConfig holds dump ingestion settings.
type ImporterConfig struct {
	// WatchDir is the directory scanned for .sql dump files (default: ./dumps)
	WatchDir string `env:"IMPORT_WATCH_DIR" default:"./dumps"`

	// ScanInterval is how often the watcher rescans WatchDir (default: 10s)
	ScanInterval time.Duration `env:"IMPORT_SCAN_INTERVAL" default:"10s"`

	// BatchSize caps records per executed INSERT batch (default: 1000)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"1000"`

	// MaxFileSize is the maximum dump size read into memory (default: 256MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"268435456"`

	// MaxConcurrent is the number of files processed in parallel (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// Timeout is the maximum duration for a single file import (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`

	// Encodings overrides the candidate decode order. Empty keeps the
	// built-in order.
	Encodings []string `env:"IMPORT_ENCODINGS"`

	// DisableComments leaves SQL comments in the dump text (default: false)
	DisableComments bool `env:"IMPORT_DISABLE_COMMENTS" default:"false"`

	// DoneSuffix is appended to fully processed files (default: .done)
	DoneSuffix string `env:"IMPORT_DONE_SUFFIX" default:".done"`
}

// SearchConfig holds search index settings. Indexing is optional: with no
// URL configured, records are never projected into documents.
type SearchConfig struct {
	// URL is the Elasticsearch base URL, e.g. http://localhost:9200
	URL string `env:"SEARCH_URL"`

	// User is the basic-auth username.
	User string `env:"SEARCH_USER"`

	// Pass is the basic-auth password.
	Pass string `env:"SEARCH_PASS"`

	// BulkSize is documents per bulk request (default: 500)
	BulkSize int `env:"SEARCH_BULK_SIZE" default:"500"`

	// Timeout is the per-request HTTP timeout (default: 30s)
	Timeout time.Duration `env:"SEARCH_TIMEOUT" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ScanLimit is requests per minute for scan-triggering endpoints (default: 10)
	ScanLimit int `env:"RATE_LIMIT_SCAN" default:"10"`
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
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
