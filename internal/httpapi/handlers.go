package httpapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rickgao/trendgame/internal/gate"
	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store"
	"github.com/rickgao/trendgame/internal/version"
)

const internalErrorMessage = "Internal Server error"

type submitRequest struct {
	Guess string `json:"guess"`
}

type submitResponse struct {
	GuessID string `json:"guessId"`
}

// scoreResponse carries the net score twice: score is the transport-neutral
// name, correctGuesses the one existing web clients read.
type scoreResponse struct {
	Score          int `json:"score"`
	CorrectGuesses int `json:"correctGuesses"`
	Wins           int `json:"wins"`
	Losses         int `json:"losses"`
}

type priceResponse struct {
	Price     string    `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error             string `json:"error"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func (s *Server) handleSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "request body must be JSON like {\"guess\":\"higher\"}"})
		return
	}

	guess, err := s.gate.TryAccept(c.Request.Context(), c.Param("uid"), req.Guess, s.now())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, submitResponse{GuessID: guess.ID.String()})
}

func (s *Server) handleScore(c *gin.Context) {
	r, err := s.scores.Evaluate(c.Request.Context(), c.Param("uid"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, scoreResponse{
		Score:          r.Net,
		CorrectGuesses: r.Net,
		Wins:           r.Wins,
		Losses:         r.Losses,
	})
}

func (s *Server) handleCurrentPrice(c *gin.Context) {
	latest, err := s.prices.LatestPrice(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, priceResponse{
		Price:     latest.Price.String(),
		Timestamp: latest.Timestamp,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	resp := gin.H{
		"status":  "ok",
		"stage":   s.cfg.Stage,
		"commit":  version.CommitSHA(),
		"version": version.Version,
	}

	if err := s.health.Ping(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		resp["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// writeError maps domain errors to precise responses and everything else to a
// generic 500 whose cause is only logged.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		verr *model.ValidationError
		cerr *gate.CooldownError
	)

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Error()})
	case errors.As(err, &cerr):
		secs := int(math.Ceil(cerr.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
		c.JSON(http.StatusTooManyRequests, errorResponse{
			Error:             fmt.Sprintf("Already submitted a guess! Please wait %ds before guessing again.", secs),
			RetryAfterSeconds: secs,
		})
	case errors.Is(err, store.ErrNoPrices):
		c.JSON(http.StatusNotFound, errorResponse{Error: "no price available yet"})
	default:
		s.logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: internalErrorMessage})
	}
}
