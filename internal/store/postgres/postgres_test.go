package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/trendgame/internal/store"
	"github.com/rickgao/trendgame/internal/store/storetest"
)

// Set TRENDGAME_TEST_POSTGRES_URL to a disposable database to run these.
func TestStore(t *testing.T) {
	url := os.Getenv("TRENDGAME_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TRENDGAME_TEST_POSTGRES_URL not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, url)
		require.NoError(t, err)
		t.Cleanup(pool.Close)

		s := New(pool)
		require.NoError(t, s.Migrate(ctx))
		_, err = pool.Exec(ctx, `TRUNCATE btc_price, guesses`)
		require.NoError(t, err)
		return s
	})
}
