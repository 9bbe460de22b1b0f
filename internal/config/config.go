// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Source   SourceConfig
	Batch    BatchConfig
	Schedule ScheduleConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response (default: 0, no limit)
	// A triggered run answers only when it finishes.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// RunsPerMinute limits POST /api/runs per client address (default: 6)
	RunsPerMinute int `env:"SERVER_RUNS_PER_MINUTE" default:"6"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds persisted store settings for incremental mode.
type DatabaseConfig struct {
	// Driver selects the store: postgres or sqlite (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is the connection string: a PostgreSQL URL or a SQLite file path.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	// Only commands that open the store require it.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate applies pending migrations when the store is opened (default: false)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"false"`
}

// SourceConfig holds the sign-in sheet settings for incremental mode.
type SourceConfig struct {
	// SpreadsheetID is the Google Sheets document id of the form responses
	SpreadsheetID string `env:"SHEET_ID" envAlt:"SPREADSHEET_ID"`

	// SheetGID selects a tab within the spreadsheet (default: first tab)
	SheetGID string `env:"SHEET_GID"`

	// ExportURL overrides the CSV export URL built from SpreadsheetID
	ExportURL string `env:"SHEET_EXPORT_URL"`

	// FetchTimeout bounds the sheet download (default: 30s)
	FetchTimeout time.Duration `env:"SHEET_FETCH_TIMEOUT" default:"30s"`

	// LayoutFile is an optional YAML file overriding the column labels
	LayoutFile string `env:"LAYOUT_FILE"`

	// DefaultService is used for submissions that name no service (default: First Service)
	DefaultService string `env:"DEFAULT_SERVICE" default:"First Service"`
}

// BatchConfig holds settings for the one-time workbook load.
type BatchConfig struct {
	// OutputDir receives the three CSV files (default: current directory)
	OutputDir string `env:"BATCH_OUTPUT_DIR" default:"."`

	// AttendanceDate is the YYYY-MM-DD date for rows without a timestamp
	// (default: the day the batch runs)
	AttendanceDate string `env:"BATCH_ATTENDANCE_DATE"`
}

// ScheduleConfig holds the serve-mode scheduler settings.
type ScheduleConfig struct {
	// Enabled starts the incremental scheduler in serve mode (default: false)
	Enabled bool `env:"SCHEDULE_ENABLED" default:"false"`

	// Interval is the time between scheduled incremental runs (default: 1h)
	Interval time.Duration `env:"SCHEDULE_INTERVAL" default:"1h"`
}

// SecurityConfig holds serve-mode access settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP and X-Forwarded-For headers are honoured
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey guards POST /api/runs with an X-API-Key header (default: false)
	RequireAPIKey bool `env:"API_KEY_REQUIRED" default:"false"`

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
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
