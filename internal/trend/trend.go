package trend

import (
	"iter"

	"github.com/rickgao/trendgame/internal/model"
)

// Between classifies the move from prev to curr using exact decimal comparison.
func Between(prev, curr model.PriceSample) model.Trend {
	switch curr.Price.Cmp(prev.Price) {
	case 1:
		return model.TrendHigher
	case -1:
		return model.TrendLower
	default:
		return model.TrendUndecidable
	}
}

// Derive yields one fact per consecutive pair of samples, in series order.
// The samples must already be ordered by timestamp. A series of n samples
// yields n-1 facts; the first sample has no predecessor and yields none.
func Derive(samples []model.PriceSample) iter.Seq[model.TrendFact] {
	return func(yield func(model.TrendFact) bool) {
		for i := 1; i < len(samples); i++ {
			prev, curr := samples[i-1], samples[i]
			fact := model.TrendFact{
				WindowStart: model.AnchorMinute(prev.Timestamp),
				Trend:       Between(prev, curr),
			}
			if !yield(fact) {
				return
			}
		}
	}
}

// Index maps each fact's WindowStart (unix seconds) to its trend.
// If two facts share a window, the earliest one is kept.
func Index(facts iter.Seq[model.TrendFact]) map[int64]model.Trend {
	idx := make(map[int64]model.Trend)
	for f := range facts {
		key := f.WindowStart.Unix()
		if _, ok := idx[key]; ok {
			continue
		}
		idx[key] = f.Trend
	}
	return idx
}
