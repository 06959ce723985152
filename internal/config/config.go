package config

import "time"

// Config is the root configuration for the game server.
type Config struct {
	Instance InstanceConfig `yaml:"instance"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Feed     FeedConfig     `yaml:"feed"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Game     GameConfig     `yaml:"game"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies the deployment.
type InstanceConfig struct {
	Stage string `yaml:"stage"` // Reported by /health (e.g. "local", "prod")
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"` // CORS allowlist
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	Driver   string       `yaml:"driver"` // postgres, sqlite or memory
	Postgres DBConfig     `yaml:"postgres"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLiteConfig holds the embedded database file location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// FeedConfig holds external price feed settings.
type FeedConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Symbol     string        `yaml:"symbol"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// IngestConfig holds price poller settings.
type IngestConfig struct {
	Interval     time.Duration `yaml:"interval"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	FetchOnStart bool          `yaml:"fetch_on_start"`
}

// GameConfig holds gameplay rules.
type GameConfig struct {
	Cooldown time.Duration `yaml:"cooldown"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	File       string `yaml:"file"`   // Optional; rotated when set
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}
