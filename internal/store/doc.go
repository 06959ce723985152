// Package store defines the persistence contracts for price samples and guesses.
//
// Both tables are append-only. Implementations:
//   - memory: in-process slices, for tests and throwaway runs
//   - postgres: pgx pool against the btc_price and guesses tables
//   - sqlite: embedded database file for local development
package store
