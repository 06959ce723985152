package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store"
	"github.com/rickgao/trendgame/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(context.Background(), filepath.Join(t.TempDir(), "game.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "game.db")
	ts := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.AppendPrice(ctx, model.PriceSample{Timestamp: ts, Price: decimal.RequireFromString("42.5")}))
	require.NoError(t, s.Close())

	// Migrations are idempotent and data survives.
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	latest, err := s.LatestPrice(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Timestamp.Equal(ts))
	assert.Equal(t, "42.5", latest.Price.String())
}
