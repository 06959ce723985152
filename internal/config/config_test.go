package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	DotEnvPath = ""
	yaml := `
instance:
  stage: prod
server:
  port: 8080
  allowed_origins: [https://game.example.com]
database:
  driver: postgres
  postgres:
    host: localhost
    port: 5432
    name: game
    user: testuser
    password: testpass
feed:
  base_url: https://api.binance.com/api/v3
  symbol: ETHUSDT
game:
  cooldown: 30s
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.Stage != "prod" {
		t.Errorf("Instance.Stage = %q, want %q", cfg.Instance.Stage, "prod")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 8080)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://game.example.com" {
		t.Errorf("Server.AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Database.Postgres.Host != "localhost" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "localhost")
	}
	if cfg.Feed.Symbol != "ETHUSDT" {
		t.Errorf("Feed.Symbol = %q, want %q", cfg.Feed.Symbol, "ETHUSDT")
	}
	if cfg.Game.Cooldown != 30*time.Second {
		t.Errorf("Game.Cooldown = %v, want %v", cfg.Game.Cooldown, 30*time.Second)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	DotEnvPath = ""
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
database:
  postgres:
    host: localhost
    name: game
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.Password != "secret123" {
		t.Errorf("Database.Postgres.Password = %q, want %q", cfg.Database.Postgres.Password, "secret123")
	}
}

func TestLoadWithDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("TRENDGAME_TEST_DOTENV_USER=fromdotenv\nTRENDGAME_TEST_DOTENV_HOST=ignored\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	DotEnvPath = envPath
	t.Cleanup(func() {
		DotEnvPath = ""
		os.Unsetenv("TRENDGAME_TEST_DOTENV_USER")
	})

	// Process environment wins over .env.
	t.Setenv("TRENDGAME_TEST_DOTENV_HOST", "fromenv")

	yaml := `
database:
  postgres:
    host: ${TRENDGAME_TEST_DOTENV_HOST}
    user: ${TRENDGAME_TEST_DOTENV_USER}
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Postgres.User != "fromdotenv" {
		t.Errorf("Database.Postgres.User = %q, want %q", cfg.Database.Postgres.User, "fromdotenv")
	}
	if cfg.Database.Postgres.Host != "fromenv" {
		t.Errorf("Database.Postgres.Host = %q, want %q", cfg.Database.Postgres.Host, "fromenv")
	}
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	DotEnvPath = filepath.Join(t.TempDir(), "does-not-exist.env")
	t.Cleanup(func() { DotEnvPath = "" })

	path := writeTempFile(t, "config.yaml", "instance:\n  stage: test\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	DotEnvPath = ""

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeTempFile(t, "config.yaml", "server: [not, a, map")
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	DotEnvPath = ""
	yaml := `
database:
  postgres:
    host: localhost
    name: game
    user: testuser
    password: testpass
`
	path := writeTempFile(t, "config.yaml", yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Instance.Stage != DefaultStage {
		t.Errorf("Instance.Stage = %q, want default %q", cfg.Instance.Stage, DefaultStage)
	}
	if cfg.Server.Port != DefaultServerPort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServerPort)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Server.AllowedOrigins = %v, want default %v", cfg.Server.AllowedOrigins, DefaultAllowedOrigins)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Database.Driver = %q, want default %q", cfg.Database.Driver, DriverPostgres)
	}
	if cfg.Database.Postgres.Port != DefaultDBPort {
		t.Errorf("Database.Postgres.Port = %d, want default %d", cfg.Database.Postgres.Port, DefaultDBPort)
	}
	if cfg.Database.Postgres.MaxConns != DefaultMaxConns {
		t.Errorf("Database.Postgres.MaxConns = %d, want default %d", cfg.Database.Postgres.MaxConns, DefaultMaxConns)
	}
	if cfg.Feed.BaseURL != DefaultFeedBaseURL {
		t.Errorf("Feed.BaseURL = %q, want default %q", cfg.Feed.BaseURL, DefaultFeedBaseURL)
	}
	if cfg.Feed.Symbol != DefaultFeedSymbol {
		t.Errorf("Feed.Symbol = %q, want default %q", cfg.Feed.Symbol, DefaultFeedSymbol)
	}
	if cfg.Ingest.Interval != DefaultIngestInterval {
		t.Errorf("Ingest.Interval = %v, want default %v", cfg.Ingest.Interval, DefaultIngestInterval)
	}
	if cfg.Game.Cooldown != DefaultCooldown {
		t.Errorf("Game.Cooldown = %v, want default %v", cfg.Game.Cooldown, DefaultCooldown)
	}
	if cfg.Log.Level != DefaultLogLevel {
		t.Errorf("Log.Level = %q, want default %q", cfg.Log.Level, DefaultLogLevel)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{
			Database: DatabaseConfig{
				Postgres: DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass"},
			},
		}
		cfg.applyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "origin without scheme",
			mutate:  func(c *Config) { c.Server.AllowedOrigins = []string{"http://localhost:3000", "game.example.com"} },
			wantErr: `server.allowed_origins[1] must start with http:// or https://, got "game.example.com"`,
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: `database.driver must be one of postgres, sqlite, memory, got "mysql"`,
		},
		{
			name:    "missing postgres password",
			mutate:  func(c *Config) { c.Database.Postgres.Password = "" },
			wantErr: "database.postgres.password is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *Config) { c.Database.Postgres.MinConns = 20 },
			wantErr: "database.postgres.min_conns (20) cannot exceed max_conns (10)",
		},
		{
			name: "sqlite needs no postgres settings",
			mutate: func(c *Config) {
				c.Database.Driver = DriverSQLite
				c.Database.Postgres = DBConfig{}
			},
			wantErr: "",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Database.Driver = DriverSQLite
				c.Database.SQLite.Path = ""
			},
			wantErr: "database.sqlite.path is required",
		},
		{
			name:    "relative feed url",
			mutate:  func(c *Config) { c.Feed.BaseURL = "api.binance.com" },
			wantErr: `feed.base_url must be an absolute URL, got "api.binance.com"`,
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Config) { c.Game.Cooldown = -time.Second },
			wantErr: "game.cooldown must be > 0",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: `log.level must be one of debug, info, warn, error, got "verbose"`,
		},
		{
			name:    "upper case log level",
			mutate:  func(c *Config) { c.Log.Level = "WARN" },
			wantErr: "",
		},
		{
			name:    "warning alias",
			mutate:  func(c *Config) { c.Log.Level = "warning" },
			wantErr: "",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"Info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("ParseLogLevel(\"verbose\") expected error")
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
