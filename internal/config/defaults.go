package config

import (
	"time"

	"github.com/rickgao/trendgame/internal/pricefeed"
)

// Default values for optional configuration fields.
const (
	DefaultStage           = "local"
	DefaultServerPort      = 4099
	DefaultShutdownTimeout = 10 * time.Second
	DefaultDriver          = DriverPostgres
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 10
	DefaultMinConns        = 2
	DefaultSQLitePath      = "data/trendgame.db"
	DefaultFeedBaseURL     = pricefeed.DefaultBaseURL
	DefaultFeedSymbol      = "BTCUSDT"
	DefaultFeedTimeout     = 10 * time.Second
	DefaultFeedMaxRetries  = 2
	DefaultIngestInterval  = 60 * time.Second
	DefaultFetchTimeout    = 15 * time.Second
	DefaultCooldown        = 60 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultLogMaxSizeMB    = 100
	DefaultLogMaxBackups   = 5
	DefaultLogMaxAgeDays   = 30
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DefaultAllowedOrigins is the CORS allowlist for local development.
var DefaultAllowedOrigins = []string{"http://localhost:3000"}

func (c *Config) applyDefaults() {
	if c.Instance.Stage == "" {
		c.Instance.Stage = DefaultStage
	}

	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.AllowedOrigins == nil {
		c.Server.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	applyDBDefaults(&c.Database.Postgres)
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	// Feed defaults
	if c.Feed.BaseURL == "" {
		c.Feed.BaseURL = DefaultFeedBaseURL
	}
	if c.Feed.Symbol == "" {
		c.Feed.Symbol = DefaultFeedSymbol
	}
	if c.Feed.Timeout == 0 {
		c.Feed.Timeout = DefaultFeedTimeout
	}
	if c.Feed.MaxRetries == 0 {
		c.Feed.MaxRetries = DefaultFeedMaxRetries
	}

	// Ingest defaults
	if c.Ingest.Interval == 0 {
		c.Ingest.Interval = DefaultIngestInterval
	}
	if c.Ingest.FetchTimeout == 0 {
		c.Ingest.FetchTimeout = DefaultFetchTimeout
	}

	// Game defaults
	if c.Game.Cooldown == 0 {
		c.Game.Cooldown = DefaultCooldown
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = DefaultLogMaxBackups
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = DefaultLogMaxAgeDays
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
