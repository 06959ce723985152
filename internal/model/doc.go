// Package model defines shared data types used across the trend game.
//
// Conventions:
//   - Prices: shopspring decimal, never float64
//   - Timestamps: time.Time in UTC, aligned to the minute with AnchorMinute
//   - IDs: opaque string for players, uuid.UUID for guesses
package model
