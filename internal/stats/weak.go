package stats

import (
	"sort"

	"github.com/verte-zerg/kakite/internal/model"
)

// RankWeak orders aggregates by ascending first-try accuracy, then mean
// confidence, and keeps at most top entries. top <= 0 keeps all.
func RankWeak(aggs []model.CharAggregate, top int) []model.CharAggregate {
	if len(aggs) == 0 {
		return nil
	}
	candidates := make([]model.CharAggregate, len(aggs))
	copy(candidates, aggs)
	sort.Slice(candidates, func(i, j int) bool {
		ai, aj := FirstTryAccuracy(candidates[i]), FirstTryAccuracy(candidates[j])
		if ai != aj {
			return ai < aj
		}
		ci, cj := MeanConfidence(candidates[i]), MeanConfidence(candidates[j])
		if ci != cj {
			return ci < cj
		}
		return candidates[i].Char < candidates[j].Char
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	return candidates[:top]
}

// SelectWeakChars returns the characters of the top weakest aggregates.
// A character with perfect first-try accuracy is never weak.
func SelectWeakChars(aggs []model.CharAggregate, top int) map[string]struct{} {
	weakSet := map[string]struct{}{}
	for _, agg := range RankWeak(aggs, top) {
		if FirstTryAccuracy(agg) >= 1 {
			continue
		}
		weakSet[agg.Char] = struct{}{}
	}
	return weakSet
}
