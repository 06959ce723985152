// Package score computes a player's net score on demand.
//
// Nothing is cached or persisted: every evaluation re-derives the trend facts
// from the full price series and joins them with the player's guesses by
// anchor minute. The result is a pure function of the two stores' contents.
package score

import (
	"context"
	"fmt"

	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store"
	"github.com/rickgao/trendgame/internal/trend"
)

// Result breaks a score down. Net = Wins - Losses.
type Result struct {
	Wins    int
	Losses  int
	Ignored int // No fact for the anchor minute, or the fact was undecidable
	Net     int
}

// Evaluator reads both stores; it never writes.
type Evaluator struct {
	prices  store.PriceStore
	guesses store.GuessStore
}

// New creates an Evaluator.
func New(prices store.PriceStore, guesses store.GuessStore) *Evaluator {
	return &Evaluator{prices: prices, guesses: guesses}
}

// ScoreFor returns the player's net score. Unknown players score 0.
func (e *Evaluator) ScoreFor(ctx context.Context, playerID string) (int, error) {
	r, err := e.Evaluate(ctx, playerID)
	if err != nil {
		return 0, err
	}
	return r.Net, nil
}

// Evaluate returns the full breakdown for playerID.
func (e *Evaluator) Evaluate(ctx context.Context, playerID string) (Result, error) {
	guesses, err := e.guesses.GuessesFor(ctx, playerID)
	if err != nil {
		return Result{}, fmt.Errorf("load guesses: %w", err)
	}
	if len(guesses) == 0 {
		return Result{}, nil
	}

	samples, err := e.prices.Prices(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load prices: %w", err)
	}

	return Tally(trend.Index(trend.Derive(samples)), guesses), nil
}

// Tally classifies each guess against the fact anchored at its minute.
func Tally(facts map[int64]model.Trend, guesses []model.Guess) Result {
	var r Result
	for _, g := range guesses {
		t, ok := facts[model.AnchorMinute(g.Timestamp).Unix()]
		switch {
		case !ok || t == model.TrendUndecidable:
			r.Ignored++
		case t.Matches(g.Direction):
			r.Wins++
		default:
			r.Losses++
		}
	}
	r.Net = r.Wins - r.Losses
	return r
}
