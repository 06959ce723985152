package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	for i, origin := range c.Server.AllowedOrigins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("server.allowed_origins[%d] must start with http:// or https://, got %q", i, origin)
		}
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of postgres, sqlite, memory, got %q", c.Database.Driver)
	}

	if u, err := url.Parse(c.Feed.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("feed.base_url must be an absolute URL, got %q", c.Feed.BaseURL)
	}
	if c.Feed.Symbol == "" {
		return errors.New("feed.symbol is required")
	}
	if c.Feed.MaxRetries < 0 {
		return errors.New("feed.max_retries must be >= 0")
	}

	if c.Ingest.Interval <= 0 {
		return errors.New("ingest.interval must be > 0")
	}
	if c.Ingest.FetchTimeout <= 0 {
		return errors.New("ingest.fetch_timeout must be > 0")
	}

	if c.Game.Cooldown <= 0 {
		return errors.New("game.cooldown must be > 0")
	}

	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// ParseLogLevel maps a level name to a slog.Level. Matching ignores case and
// accepts "warning" for warn; empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error, got %q", s)
	}
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
