package trend

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/trendgame/internal/model"
)

var base = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

func sample(offset time.Duration, price string) model.PriceSample {
	return model.PriceSample{Timestamp: base.Add(offset), Price: decimal.RequireFromString(price)}
}

func TestBetween(t *testing.T) {
	tests := []struct {
		name string
		prev string
		curr string
		want model.Trend
	}{
		{"higher", "100", "105", model.TrendHigher},
		{"lower", "105", "103", model.TrendLower},
		{"equal", "100", "100", model.TrendUndecidable},
		{"equal with different scale", "100.00", "100", model.TrendUndecidable},
		// 0.1+0.2 style inputs that binary floats would get wrong.
		{"sub-float precision higher", "97123.450000000000000001", "97123.450000000000000002", model.TrendHigher},
		{"sub-float precision lower", "0.30000000000000000001", "0.3", model.TrendLower},
		{"zero to positive", "0", "0.00000001", model.TrendHigher},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Between(sample(0, tt.prev), sample(time.Minute, tt.curr))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerive_OneFactPerAdjacentPair(t *testing.T) {
	samples := []model.PriceSample{
		sample(0, "100"),
		sample(time.Minute, "105"),
		sample(2*time.Minute, "103"),
	}

	facts := slices.Collect(Derive(samples))

	require.Len(t, facts, 2)
	assert.Equal(t, model.TrendFact{WindowStart: base, Trend: model.TrendHigher}, facts[0])
	assert.Equal(t, model.TrendFact{WindowStart: base.Add(time.Minute), Trend: model.TrendLower}, facts[1])
}

func TestDerive_WindowStartTruncatesEarlierSample(t *testing.T) {
	// Ingestion ticks rarely land on :00.
	samples := []model.PriceSample{
		sample(17*time.Second+250*time.Millisecond, "100"),
		sample(time.Minute+17*time.Second, "101"),
	}

	facts := slices.Collect(Derive(samples))

	require.Len(t, facts, 1)
	assert.True(t, facts[0].WindowStart.Equal(base), "WindowStart = %v, want %v", facts[0].WindowStart, base)
}

func TestDerive_EdgeCases(t *testing.T) {
	assert.Empty(t, slices.Collect(Derive(nil)))
	assert.Empty(t, slices.Collect(Derive([]model.PriceSample{sample(0, "100")})))

	facts := slices.Collect(Derive([]model.PriceSample{sample(0, "100"), sample(time.Minute, "100")}))
	require.Len(t, facts, 1)
	assert.Equal(t, model.TrendUndecidable, facts[0].Trend)
}

func TestDerive_AdjacentOnly(t *testing.T) {
	// A gap in the series (missed fetch) yields a fact spanning the gap,
	// anchored to the earlier sample's minute, and no fact for the missing minute.
	samples := []model.PriceSample{
		sample(0, "100"),
		sample(2*time.Minute, "90"),
	}

	idx := Index(Derive(samples))

	assert.Len(t, idx, 1)
	assert.Equal(t, model.TrendLower, idx[base.Unix()])
	_, ok := idx[base.Add(time.Minute).Unix()]
	assert.False(t, ok)
}

func TestDerive_Lazy(t *testing.T) {
	samples := []model.PriceSample{
		sample(0, "1"),
		sample(time.Minute, "2"),
		sample(2*time.Minute, "3"),
		sample(3*time.Minute, "4"),
	}

	var seen int
	for range Derive(samples) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestDerive_Repeatable(t *testing.T) {
	samples := []model.PriceSample{sample(0, "1"), sample(time.Minute, "2"), sample(2*time.Minute, "1")}
	seq := Derive(samples)

	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
}

func TestIndex_FirstFactPerWindowWins(t *testing.T) {
	samples := []model.PriceSample{
		sample(0, "100"),
		sample(30*time.Second, "110"),
		sample(time.Minute, "90"),
	}

	idx := Index(Derive(samples))

	assert.Equal(t, model.TrendHigher, idx[base.Unix()])
}
