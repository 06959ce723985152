// Package gate decides whether a player's guess may be accepted.
//
// A player may hold at most one accepted guess in any sliding cooldown window
// anchored to their own last guess, not to the wall-clock minute. The check and
// the insert are a single atomic store operation, so concurrent submissions
// from one player cannot both pass.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store"
)

// DefaultCooldown is the minimum spacing between a player's accepted guesses.
const DefaultCooldown = 60 * time.Second

// ErrCooldownActive matches any *CooldownError.
var ErrCooldownActive = errors.New("cooldown active")

// CooldownError is returned when the player guessed too recently.
type CooldownError struct {
	LastGuess  time.Time     // Timestamp of the blocking guess
	RetryAfter time.Duration // Time until a new guess would be accepted
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, retry after %s", e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrCooldownActive) succeed.
func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// Gate accepts or rejects guesses.
type Gate struct {
	guesses  store.GuessStore
	cooldown time.Duration
	newID    func() uuid.UUID
	logger   *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithCooldown overrides DefaultCooldown.
func WithCooldown(d time.Duration) Option {
	return func(g *Gate) {
		g.cooldown = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// New creates a Gate writing to guesses.
func New(guesses store.GuessStore, opts ...Option) *Gate {
	g := &Gate{
		guesses:  guesses,
		cooldown: DefaultCooldown,
		newID:    uuid.New,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Cooldown returns the configured cooldown.
func (g *Gate) Cooldown() time.Duration {
	return g.cooldown
}

// TryAccept validates the input and appends a guess unless the player has one
// with timestamp after now-cooldown. Invalid input never touches the store.
func (g *Gate) TryAccept(ctx context.Context, playerID, direction string, now time.Time) (model.Guess, error) {
	if strings.TrimSpace(playerID) == "" {
		return model.Guess{}, &model.ValidationError{Field: "player id", Reason: "is required"}
	}
	dir, err := model.ParseDirection(direction)
	if err != nil {
		return model.Guess{}, err
	}

	now = now.UTC()
	guess := model.Guess{
		ID:        g.newID(),
		PlayerID:  playerID,
		Direction: dir,
		Timestamp: now,
	}

	last, ok, err := g.guesses.AppendGuessIfIdle(ctx, guess, now.Add(-g.cooldown))
	if err != nil {
		return model.Guess{}, fmt.Errorf("append guess: %w", err)
	}
	if !ok {
		retry := last.Add(g.cooldown).Sub(now)
		if retry < 0 {
			retry = 0
		}
		g.logger.Debug("guess rejected, cooldown active",
			"player", playerID,
			"last_guess", last,
			"retry_after", retry,
		)
		return model.Guess{}, &CooldownError{LastGuess: last, RetryAfter: retry}
	}

	g.logger.Info("guess submitted",
		"player", playerID,
		"guess_id", guess.ID,
		"direction", dir,
	)
	return guess, nil
}
