package database

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/trendgame/internal/config"
)

// ApplicationName is reported to PostgreSQL in pg_stat_activity.
const ApplicationName = "trendgame"

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	query.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     fmt.Sprintf("/%s", cfg.Name),
		RawQuery: query.Encode(),
	}
	return u.String()
}
