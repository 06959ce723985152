// Package storetest provides a conformance suite for store.Store implementations.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store"
)

// Factory returns a fresh, empty store. Cleanup is the factory's job.
type Factory func(t *testing.T) store.Store

var base = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// Run exercises every store.Store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("LatestPriceEmpty", func(t *testing.T) {
		s := newStore(t)
		_, err := s.LatestPrice(context.Background())
		assert.ErrorIs(t, err, store.ErrNoPrices)
	})

	t.Run("PricesOrdered", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		// Out-of-order arrival must not change series order.
		for _, off := range []time.Duration{2 * time.Minute, 0, time.Minute} {
			require.NoError(t, s.AppendPrice(ctx, model.PriceSample{
				Timestamp: base.Add(off),
				Price:     decimal.NewFromInt(int64(100 + off/time.Minute)),
			}))
		}

		prices, err := s.Prices(ctx)
		require.NoError(t, err)
		require.Len(t, prices, 3)
		for i, p := range prices {
			assert.True(t, p.Timestamp.Equal(base.Add(time.Duration(i)*time.Minute)), "prices[%d].Timestamp = %v", i, p.Timestamp)
		}

		latest, err := s.LatestPrice(ctx)
		require.NoError(t, err)
		assert.True(t, latest.Timestamp.Equal(base.Add(2*time.Minute)))
		assert.True(t, latest.Price.Equal(decimal.NewFromInt(102)), "latest price = %s", latest.Price)
	})

	t.Run("PricePrecisionPreserved", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		price := decimal.RequireFromString("97123.45678901")

		require.NoError(t, s.AppendPrice(ctx, model.PriceSample{Timestamp: base, Price: price}))

		latest, err := s.LatestPrice(ctx)
		require.NoError(t, err)
		assert.True(t, latest.Price.Equal(price), "price = %s, want %s", latest.Price, price)
	})

	t.Run("AppendPriceRejectsNegative", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.AppendPrice(ctx, model.PriceSample{Timestamp: base, Price: decimal.NewFromInt(-1)})
		assert.Error(t, err)

		prices, err := s.Prices(ctx)
		require.NoError(t, err)
		assert.Empty(t, prices)
	})

	t.Run("DuplicateTimestamp", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.AppendPrice(ctx, model.PriceSample{Timestamp: base, Price: decimal.NewFromInt(100)}))
		err := s.AppendPrice(ctx, model.PriceSample{Timestamp: base, Price: decimal.NewFromInt(200)})
		assert.ErrorIs(t, err, store.ErrDuplicatePrice)

		prices, err := s.Prices(ctx)
		require.NoError(t, err)
		require.Len(t, prices, 1)
		assert.True(t, prices[0].Price.Equal(decimal.NewFromInt(100)), "price = %s, want first sample kept", prices[0].Price)
	})

	t.Run("GuessesUnknownPlayer", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		guesses, err := s.GuessesFor(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, guesses)

		_, ok, err := s.LatestGuessFor(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("AppendGuessIfIdle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := newGuess("p1", model.Higher, base.Add(5*time.Second))
		_, ok, err := s.AppendGuessIfIdle(ctx, first, first.Timestamp.Add(-time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		second := newGuess("p1", model.Lower, base.Add(50*time.Second))
		last, ok, err := s.AppendGuessIfIdle(ctx, second, second.Timestamp.Add(-time.Minute))
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, last.Equal(first.Timestamp), "last = %v, want %v", last, first.Timestamp)

		// Other players are unaffected.
		other := newGuess("p2", model.Lower, base.Add(50*time.Second))
		_, ok, err = s.AppendGuessIfIdle(ctx, other, other.Timestamp.Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, ok)

		// The boundary is exclusive: a guess exactly at since does not block.
		third := newGuess("p1", model.Lower, base.Add(65*time.Second))
		_, ok, err = s.AppendGuessIfIdle(ctx, third, first.Timestamp)
		require.NoError(t, err)
		assert.True(t, ok)

		guesses, err := s.GuessesFor(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, guesses, 2)
		assert.Equal(t, first.ID, guesses[0].ID)
		assert.Equal(t, model.Higher, guesses[0].Direction)
		assert.Equal(t, "p1", guesses[0].PlayerID)
		assert.True(t, guesses[0].Timestamp.Equal(first.Timestamp))
		assert.Equal(t, third.ID, guesses[1].ID)

		latest, ok, err := s.LatestGuessFor(ctx, "p1")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, third.ID, latest.ID)
	})

	t.Run("AppendGuessIfIdleConcurrent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := base.Add(10 * time.Second)

		const attempts = 16
		var accepted atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				g := newGuess("racer", model.Higher, now)
				_, ok, err := s.AppendGuessIfIdle(ctx, g, now.Add(-time.Minute))
				if err == nil && ok {
					accepted.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), accepted.Load())

		guesses, err := s.GuessesFor(ctx, "racer")
		require.NoError(t, err)
		assert.Len(t, guesses, 1)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func newGuess(player string, dir model.Direction, ts time.Time) model.Guess {
	return model.Guess{ID: uuid.New(), PlayerID: player, Direction: dir, Timestamp: ts}
}
