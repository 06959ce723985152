// Package sqlite implements store.Store on an embedded SQLite file.
//
// Timestamps are stored as unix microseconds and prices as decimal text, so
// ordering is numeric and precision is exact.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/rickgao/trendgame/internal/model"
	"github.com/rickgao/trendgame/internal/store"
)

var _ store.Store = (*Store)(nil)

var schema = []string{
	`PRAGMA journal_mode=WAL;`,
	`CREATE TABLE IF NOT EXISTS btc_price (
  timestamp INTEGER PRIMARY KEY,
  price TEXT NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS guesses (
  guess_id TEXT PRIMARY KEY,
  player_uid TEXT NOT NULL,
  guess TEXT NOT NULL CHECK (guess IN ('higher', 'lower')),
  timestamp INTEGER NOT NULL
);`,
	`CREATE INDEX IF NOT EXISTS player_uid_idx ON guesses (player_uid, timestamp);`,
}

// Store is a SQLite-backed store.Store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers, which makes AppendGuessIfIdle atomic.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate exec failed: %w", err)
		}
	}
	return nil
}

// AppendPrice inserts one sample.
func (s *Store) AppendPrice(ctx context.Context, sample model.PriceSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO btc_price (timestamp, price) VALUES (?, ?)
		 ON CONFLICT (timestamp) DO NOTHING`,
		sample.Timestamp.UnixMicro(), sample.Price.String(),
	)
	if err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert price: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", store.ErrDuplicatePrice, sample.Timestamp.UTC().Format(time.RFC3339Nano))
	}
	return nil
}

// Prices returns the full series ordered by timestamp.
func (s *Store) Prices(ctx context.Context) ([]model.PriceSample, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT timestamp, price FROM btc_price ORDER BY timestamp`)
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
	row := s.db.QueryRowContext(ctx, `SELECT timestamp, price FROM btc_price ORDER BY timestamp DESC LIMIT 1`)
	sample, err := scanPrice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PriceSample{}, store.ErrNoPrices
	}
	return sample, err
}

// AppendGuessIfIdle checks and inserts inside one transaction.
func (s *Store) AppendGuessIfIdle(ctx context.Context, g model.Guess, since time.Time) (time.Time, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var last sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT max(timestamp) FROM guesses WHERE player_uid = ? AND timestamp > ?`,
		g.PlayerID, since.UnixMicro(),
	).Scan(&last)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("query last guess: %w", err)
	}
	if last.Valid {
		return time.UnixMicro(last.Int64).UTC(), false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO guesses (guess_id, player_uid, guess, timestamp) VALUES (?, ?, ?, ?)`,
		g.ID.String(), g.PlayerID, string(g.Direction), g.Timestamp.UnixMicro(),
	)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("insert guess: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, false, fmt.Errorf("commit: %w", err)
	}
	return time.Time{}, true, nil
}

// GuessesFor returns a player's guesses ordered by timestamp.
func (s *Store) GuessesFor(ctx context.Context, playerID string) ([]model.Guess, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guess_id, player_uid, guess, timestamp FROM guesses WHERE player_uid = ? ORDER BY timestamp`,
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
	row := s.db.QueryRowContext(ctx,
		`SELECT guess_id, player_uid, guess, timestamp FROM guesses WHERE player_uid = ? ORDER BY timestamp DESC LIMIT 1`,
		playerID,
	)
	g, err := scanGuess(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Guess{}, false, nil
	}
	if err != nil {
		return model.Guess{}, false, err
	}
	return g, true, nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrice(row scanner) (model.PriceSample, error) {
	var (
		ts    int64
		price string
	)
	if err := row.Scan(&ts, &price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PriceSample{}, err
		}
		return model.PriceSample{}, fmt.Errorf("scan price: %w", err)
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return model.PriceSample{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return model.PriceSample{Timestamp: time.UnixMicro(ts).UTC(), Price: d}, nil
}

func scanGuess(row scanner) (model.Guess, error) {
	var (
		id, player, dir string
		ts              int64
	)
	if err := row.Scan(&id, &player, &dir, &ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Guess{}, err
		}
		return model.Guess{}, fmt.Errorf("scan guess: %w", err)
	}
	gid, err := uuid.Parse(id)
	if err != nil {
		return model.Guess{}, fmt.Errorf("parse guess id %q: %w", id, err)
	}
	return model.Guess{
		ID:        gid,
		PlayerID:  player,
		Direction: model.Direction(dir),
		Timestamp: time.UnixMicro(ts).UTC(),
	}, nil
}
