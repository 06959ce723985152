package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/trendgame/internal/config"
	"github.com/rickgao/trendgame/internal/database"
	"github.com/rickgao/trendgame/internal/gate"
	"github.com/rickgao/trendgame/internal/httpapi"
	"github.com/rickgao/trendgame/internal/ingest"
	"github.com/rickgao/trendgame/internal/logging"
	"github.com/rickgao/trendgame/internal/pricefeed"
	"github.com/rickgao/trendgame/internal/score"
	"github.com/rickgao/trendgame/internal/store"
	"github.com/rickgao/trendgame/internal/store/memory"
	"github.com/rickgao/trendgame/internal/store/postgres"
	"github.com/rickgao/trendgame/internal/store/sqlite"
	"github.com/rickgao/trendgame/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/server.local.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadAndValidate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting server",
		"version", version.Version,
		"commit", version.CommitSHA(),
		"stage", cfg.Instance.Stage,
		"config", configPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	feed := pricefeed.NewClient(
		cfg.Feed.BaseURL,
		pricefeed.WithLogger(logger),
		pricefeed.WithTimeout(cfg.Feed.Timeout),
		pricefeed.WithRetries(cfg.Feed.MaxRetries, 500*time.Millisecond),
	)

	poller := ingest.New(ingest.Config{
		Symbol:       cfg.Feed.Symbol,
		Interval:     cfg.Ingest.Interval,
		FetchTimeout: cfg.Ingest.FetchTimeout,
		FetchOnStart: cfg.Ingest.FetchOnStart,
	}, feed, st, logger)

	g := gate.New(st, gate.WithCooldown(cfg.Game.Cooldown), gate.WithLogger(logger))
	api := httpapi.New(httpapi.Config{
		Stage:          cfg.Instance.Stage,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, g, score.New(st, st), st, st, logger)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("start poller: %w", err)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egCtx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
		if err := poller.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("stop poller: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := eg.Wait(); err != nil {
		return err
	}

	stats := poller.Stats()
	logger.Info("server stopped",
		"poll_cycles", stats.Cycles,
		"prices_appended", stats.Appended,
		"fetch_failures", stats.FetchFailures,
		"store_failures", stats.StoreFailures,
	)
	return nil
}

// openStore connects the configured backend and makes sure its schema exists.
func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		logger.Info("connecting to database",
			"host", cfg.Postgres.Host,
			"port", cfg.Postgres.Port,
			"database", cfg.Postgres.Name,
		)
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		st := postgres.New(pool)
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected")
		return st, nil

	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		logger.Info("sqlite database opened", "path", cfg.SQLite.Path)
		return st, nil

	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on exit")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
