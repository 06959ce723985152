package store

import (
	"context"
	"errors"
	"time"

	"github.com/rickgao/trendgame/internal/model"
)

var (
	// ErrNoPrices is returned by LatestPrice when no sample has been recorded.
	ErrNoPrices = errors.New("no price samples recorded")

	// ErrDuplicatePrice is returned by AppendPrice when a sample already
	// exists for the timestamp. Timestamps compare at microsecond precision.
	ErrDuplicatePrice = errors.New("price sample already recorded for timestamp")
)

// PriceStore is the append-only price series.
type PriceStore interface {
	// AppendPrice stores a sample. The sample is either fully written or not at all.
	// A second sample for the same timestamp fails with ErrDuplicatePrice.
	AppendPrice(ctx context.Context, s model.PriceSample) error

	// Prices returns the full series ordered by timestamp.
	Prices(ctx context.Context) ([]model.PriceSample, error)

	// LatestPrice returns the most recent sample, or ErrNoPrices.
	LatestPrice(ctx context.Context) (model.PriceSample, error)
}

// GuessStore is the append-only guess log.
type GuessStore interface {
	// AppendGuessIfIdle atomically stores g unless the player already has a
	// guess with timestamp strictly after since. When it refuses, it returns
	// the blocking guess's timestamp and ok=false.
	AppendGuessIfIdle(ctx context.Context, g model.Guess, since time.Time) (last time.Time, ok bool, err error)

	// GuessesFor returns all guesses of a player ordered by timestamp.
	GuessesFor(ctx context.Context, playerID string) ([]model.Guess, error)

	// LatestGuessFor returns the player's most recent guess, ok=false if none.
	LatestGuessFor(ctx context.Context, playerID string) (g model.Guess, ok bool, err error)
}

// Store bundles both contracts with lifecycle hooks.
type Store interface {
	PriceStore
	GuessStore
	Ping(ctx context.Context) error
	Close() error
}
