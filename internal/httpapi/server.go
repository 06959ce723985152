package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/rickgao/trendgame/internal/gate"
	"github.com/rickgao/trendgame/internal/score"
	"github.com/rickgao/trendgame/internal/store"
)

// Config holds transport settings.
type Config struct {
	Stage string
	// AllowedOrigins is the CORS allowlist. Requests from other origins are
	// refused with 403. Empty disables CORS handling.
	AllowedOrigins []string
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires the game components to HTTP handlers.
type Server struct {
	cfg    Config
	gate   *gate.Gate
	scores *score.Evaluator
	prices store.PriceStore
	health Pinger
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Server.
func New(cfg Config, g *gate.Gate, scores *score.Evaluator, prices store.PriceStore, health Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		gate:   g,
		scores: scores,
		prices: prices,
		health: health,
		logger: logger,
		now:    time.Now,
	}
}

// Router builds the gin engine. The caller owns gin.SetMode.
func (s *Server) Router() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}))
	}

	r.GET("/health", s.handleHealth)

	guesses := r.Group("/guesses")
	guesses.POST("/submit/:uid", s.handleSubmit)
	guesses.GET("/score/:uid", s.handleScore)

	btc := r.Group("/btc")
	btc.GET("/current", s.handleCurrentPrice)

	return r
}
