// Package memory implements store.Store with in-process slices.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps samples and guesses in memory.
type Store struct {
	mu      sync.RWMutex
	prices  []model.PriceSample
	guesses map[string][]model.Guess
}

// New creates an empty Store.
func New() *Store {
	return &Store{guesses: make(map[string][]model.Guess)}
}

// AppendPrice inserts s keeping the series ordered by timestamp.
func (s *Store) AppendPrice(ctx context.Context, sample model.PriceSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Ingestion appends in order, so this is almost always len(s.prices).
	i := sort.Search(len(s.prices), func(i int) bool {
		return s.prices[i].Timestamp.After(sample.Timestamp)
	})
	dup := i > 0 && sameInstant(s.prices[i-1].Timestamp, sample.Timestamp) ||
		i < len(s.prices) && sameInstant(s.prices[i].Timestamp, sample.Timestamp)
	if dup {
		return fmt.Errorf("%w: %s", store.ErrDuplicatePrice, sample.Timestamp.Format(time.RFC3339Nano))
	}
	s.prices = append(s.prices, model.PriceSample{})
	copy(s.prices[i+1:], s.prices[i:])
	s.prices[i] = sample
	return nil
}

// Prices returns a copy of the series.
func (s *Store) Prices(ctx context.Context) ([]model.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.PriceSample, len(s.prices))
	copy(out, s.prices)
	return out, nil
}

// LatestPrice returns the last sample.
func (s *Store) LatestPrice(ctx context.Context) (model.PriceSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.prices) == 0 {
		return model.PriceSample{}, store.ErrNoPrices
	}
	return s.prices[len(s.prices)-1], nil
}

// AppendGuessIfIdle holds the write lock across the check and the insert.
func (s *Store) AppendGuessIfIdle(ctx context.Context, g model.Guess, since time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.guesses[g.PlayerID]
	var last time.Time
	for _, e := range existing {
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	if last.After(since) {
		return last, false, nil
	}

	i := sort.Search(len(existing), func(i int) bool {
		return existing[i].Timestamp.After(g.Timestamp)
	})
	existing = append(existing, model.Guess{})
	copy(existing[i+1:], existing[i:])
	existing[i] = g
	s.guesses[g.PlayerID] = existing
	return time.Time{}, true, nil
}

// GuessesFor returns a copy of the player's guesses.
func (s *Store) GuessesFor(ctx context.Context, playerID string) ([]model.Guess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := s.guesses[playerID]
	out := make([]model.Guess, len(existing))
	copy(out, existing)
	return out, nil
}

// LatestGuessFor returns the player's last guess.
func (s *Store) LatestGuessFor(ctx context.Context, playerID string) (model.Guess, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := s.guesses[playerID]
	if len(existing) == 0 {
		return model.Guess{}, false, nil
	}
	return existing[len(existing)-1], true, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// sameInstant matches the microsecond resolution of the SQL backends.
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}
