package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction is a player's guess about the next price move.
type Direction string

const (
	Higher Direction = "higher"
	Lower  Direction = "lower"
)

// ParseDirection validates a client-supplied direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Higher, Lower:
		return Direction(s), nil
	case "":
		return "", &ValidationError{Field: "guess", Reason: "is required"}
	default:
		return "", &ValidationError{Field: "guess", Reason: "must be one of higher, lower"}
	}
}

// Trend is the realized direction between two adjacent samples.
type Trend string

const (
	TrendHigher      Trend = "higher"
	TrendLower       Trend = "lower"
	TrendUndecidable Trend = "undecidable"
)

// Matches reports whether a guess in direction d was right about t.
// Undecidable trends match nothing.
func (t Trend) Matches(d Direction) bool {
	return t != TrendUndecidable && string(t) == string(d)
}

// PriceSample is one timestamped price observation.
type PriceSample struct {
	Timestamp time.Time       // When the sample was recorded (UTC)
	Price     decimal.Decimal // Asset price, >= 0
}

// Validate rejects samples that must never reach storage.
func (s PriceSample) Validate() error {
	if s.Timestamp.IsZero() {
		return errors.New("price sample timestamp is zero")
	}
	if s.Price.IsNegative() {
		return errors.New("price sample price is negative")
	}
	return nil
}

// Guess is an accepted directional guess.
type Guess struct {
	ID        uuid.UUID // Primary key
	PlayerID  string    // Client-supplied, trusted as-is
	Direction Direction // higher or lower
	Timestamp time.Time // Acceptance time (UTC)
}

// TrendFact is the derived direction for the minute starting at WindowStart.
type TrendFact struct {
	WindowStart time.Time // Earlier sample's timestamp truncated to the minute
	Trend       Trend
}

// AnchorMinute truncates t to the minute in UTC.
func AnchorMinute(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}
