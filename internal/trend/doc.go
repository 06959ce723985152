// Package trend derives directional trend facts from an ordered price series.
//
// A fact exists only between temporally adjacent samples. Its WindowStart is the
// earlier sample's timestamp truncated to the minute, which is the minute a guess
// must have been submitted in to be judged against it. Nothing derived here is
// ever persisted; callers re-derive on every evaluation.
package trend
