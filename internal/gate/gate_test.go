package gate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store/memory"
)

var base = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

// countingStore records how often the gate reaches storage.
type countingStore struct {
	*memory.Store
	calls int
	err   error
}

func (c *countingStore) AppendGuessIfIdle(ctx context.Context, g model.Guess, since time.Time) (time.Time, bool, error) {
	c.calls++
	if c.err != nil {
		return time.Time{}, false, c.err
	}
	return c.Store.AppendGuessIfIdle(ctx, g, since)
}

func TestTryAccept_RejectsWithinCooldown(t *testing.T) {
	ctx := context.Background()
	g := New(memory.New())

	first, err := g.TryAccept(ctx, "player-1", "higher", base.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "player-1", first.PlayerID)
	assert.Equal(t, model.Higher, first.Direction)
	assert.NotEqual(t, uuid.Nil, first.ID)

	_, err = g.TryAccept(ctx, "player-1", "lower", base.Add(50*time.Second))
	require.ErrorIs(t, err, ErrCooldownActive)
	var cerr *CooldownError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 15*time.Second, cerr.RetryAfter)
	assert.True(t, cerr.LastGuess.Equal(first.Timestamp))

	third, err := g.TryAccept(ctx, "player-1", "lower", base.Add(66*time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestTryAccept_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	g := New(memory.New())

	_, err := g.TryAccept(ctx, "p", "higher", base.Add(17*time.Second))
	require.NoError(t, err)

	// Crossing the minute boundary is not enough.
	_, err = g.TryAccept(ctx, "p", "higher", base.Add(time.Minute+16*time.Second))
	assert.ErrorIs(t, err, ErrCooldownActive)

	// Exactly one cooldown later is accepted.
	_, err = g.TryAccept(ctx, "p", "higher", base.Add(time.Minute+17*time.Second))
	assert.NoError(t, err)
}

func TestTryAccept_PlayersIndependent(t *testing.T) {
	ctx := context.Background()
	g := New(memory.New())

	_, err := g.TryAccept(ctx, "alice", "higher", base)
	require.NoError(t, err)
	_, err = g.TryAccept(ctx, "bob", "lower", base.Add(time.Second))
	assert.NoError(t, err)
}

func TestTryAccept_Validation(t *testing.T) {
	tests := []struct {
		name      string
		player    string
		direction string
	}{
		{"unknown direction", "p", "sideways"},
		{"empty direction", "p", ""},
		{"missing player", "", "higher"},
		{"blank player", "   ", "lower"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &countingStore{Store: memory.New()}
			g := New(s)

			_, err := g.TryAccept(context.Background(), tt.player, tt.direction, base)

			var verr *model.ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.NotErrorIs(t, err, ErrCooldownActive)
			assert.Zero(t, s.calls, "store must not be consulted")
		})
	}
}

func TestTryAccept_StorageFailure(t *testing.T) {
	boom := errors.New("connection refused")
	g := New(&countingStore{Store: memory.New(), err: boom})

	_, err := g.TryAccept(context.Background(), "p", "higher", base)

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCooldownActive)
}

func TestTryAccept_CustomCooldown(t *testing.T) {
	ctx := context.Background()
	g := New(memory.New(), WithCooldown(10*time.Second))
	assert.Equal(t, 10*time.Second, g.Cooldown())

	_, err := g.TryAccept(ctx, "p", "higher", base)
	require.NoError(t, err)
	_, err = g.TryAccept(ctx, "p", "higher", base.Add(10*time.Second))
	assert.NoError(t, err)
}

func TestTryAccept_ConcurrentSamePlayer(t *testing.T) {
	g := New(memory.New())

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.TryAccept(context.Background(), "racer", "higher", base)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var accepted, rejected int
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrCooldownActive):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 19, rejected)
}

func TestCooldownInvariant(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	g := New(s)

	// Attempt every 7 seconds for ten minutes.
	for off := time.Duration(0); off < 10*time.Minute; off += 7 * time.Second {
		_, _ = g.TryAccept(ctx, "p", "higher", base.Add(off))
	}

	guesses, err := s.GuessesFor(ctx, "p")
	require.NoError(t, err)
	require.NotEmpty(t, guesses)
	for i := 1; i < len(guesses); i++ {
		gap := guesses[i].Timestamp.Sub(guesses[i-1].Timestamp)
		assert.GreaterOrEqual(t, gap, DefaultCooldown, "guesses %d and %d are %s apart", i-1, i, gap)
	}
}
