// Package postgres implements store.Store on PostgreSQL via pgx.
//
// Tables mirror the game's original schema:
//   - btc_price(timestamp PK, price numeric)
//   - guesses(guess_id uuid PK, player_uid text, guess text, timestamp), indexed by player_uid
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store"
)

var _ store.Store = (*Store)(nil)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS btc_price (
		timestamp TIMESTAMPTZ PRIMARY KEY DEFAULT now(),
		price     NUMERIC NOT NULL CHECK (price >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS guesses (
		guess_id   UUID PRIMARY KEY,
		player_uid TEXT NOT NULL,
		guess      TEXT NOT NULL CHECK (guess IN ('higher', 'lower')),
		timestamp  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS player_uid_idx ON guesses (player_uid, timestamp)`,
}

// Store reads and writes the price series and guess log in PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// New wraps an existing pool. The pool is owned by the caller unless Close is called.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// AppendPrice inserts one sample in a single statement.
func (s *Store) AppendPrice(ctx context.Context, sample model.PriceSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	// Price travels as text so numeric precision is never routed through float64.
	tag, err := s.db.Exec(ctx,
		`INSERT INTO btc_price (timestamp, price) VALUES ($1, $2::text::numeric)
		 ON CONFLICT (timestamp) DO NOTHING`,
		sample.Timestamp.UTC(), sample.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrDuplicatePrice, sample.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	return nil
}

// Prices returns the full series ordered by timestamp.
func (s *Store) Prices(ctx context.Context) ([]model.PriceSample, error) {
	rows, err := s.db.Query(ctx, `SELECT timestamp, price::text FROM btc_price ORDER BY timestamp`)
	if err != nil {
		return nil, fmt.Errorf("query prices: %w", err)
	}
	defer rows.Close()

	var out []model.PriceSample
	for rows.Next() {
		sample, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}
	return out, nil
}

// LatestPrice returns the newest sample.
func (s *Store) LatestPrice(ctx context.Context) (model.PriceSample, error) {
	row := s.db.QueryRow(ctx, `SELECT timestamp, price::text FROM btc_price ORDER BY timestamp DESC LIMIT 1`)
	sample, err := scanPrice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PriceSample{}, store.ErrNoPrices
	}
	return sample, err
}

// AppendGuessIfIdle serializes per-player submissions with a transaction-scoped
// advisory lock so the cooldown check and the insert cannot interleave.
func (s *Store) AppendGuessIfIdle(ctx context.Context, g model.Guess, since time.Time) (time.Time, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, g.PlayerID); err != nil {
		return time.Time{}, false, fmt.Errorf("lock player: %w", err)
	}

	var last *time.Time
	err = tx.QueryRow(ctx,
		`SELECT max(timestamp) FROM guesses WHERE player_uid = $1 AND timestamp > $2`,
		g.PlayerID, since.UTC(),
	).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last guess: %w", err)
	}
	if last != nil {
		return last.UTC(), false, nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO guesses (guess_id, player_uid, guess, timestamp) VALUES ($1, $2, $3, $4)`,
		g.ID, g.PlayerID, string(g.Direction), g.Timestamp.UTC(),
	)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("insert guess: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return time.Time{}, false, fmt.Errorf("commit: %w", err)
	}
	return time.Time{}, true, nil
}

// GuessesFor returns a player's guesses ordered by timestamp.
func (s *Store) GuessesFor(ctx context.Context, playerID string) ([]model.Guess, error) {
	rows, err := s.db.Query(ctx,
		`SELECT guess_id, player_uid, guess, timestamp FROM guesses WHERE player_uid = $1 ORDER BY timestamp`,
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query guesses: %w", err)
	}
	defer rows.Close()

	var out []model.Guess
	for rows.Next() {
		g, err := scanGuess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate guesses: %w", err)
	}
	return out, nil
}

// LatestGuessFor returns the player's newest guess.
func (s *Store) LatestGuessFor(ctx context.Context, playerID string) (model.Guess, bool, error) {
	row := s.db.QueryRow(ctx,
		`SELECT guess_id, player_uid, guess, timestamp FROM guesses WHERE player_uid = $1 ORDER BY timestamp DESC LIMIT 1`,
		playerID,
	)
	g, err := scanGuess(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Guess{}, false, nil
	}
	if err != nil {
		return model.Guess{}, false, err
	}
	return g, true, nil
}

// Ping checks the pool.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func scanPrice(row pgx.Row) (model.PriceSample, error) {
	var (
		ts    time.Time
		price string
	)
	if err := row.Scan(&ts, &price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PriceSample{}, err
		}
		return model.PriceSample{}, fmt.Errorf("scan price: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return model.PriceSample{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return model.PriceSample{Timestamp: ts.UTC(), Price: d}, nil
}

func scanGuess(row pgx.Row) (model.Guess, error) {
	var (
		g   model.Guess
		dir string
	)
	if err := row.Scan(&g.ID, &g.PlayerID, &dir, &g.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Guess{}, err
		}
		return model.Guess{}, fmt.Errorf("scan guess: %w", err)
	}
	g.Direction = model.Direction(dir)
	g.Timestamp = g.Timestamp.UTC()
	return g, nil
}
