package stats

import (
	"sort"

	"github.com/verte-zerg/kakite/internal/model"
)

// MostPracticed returns the top N characters by completed practices.
func MostPracticed(progress []model.CharacterProgress, n int) []string {
	if n <= 0 || len(progress) == 0 {
		return nil
	}
	items := make([]model.CharacterProgress, 0, len(progress))
	for _, p := range progress {
		if p.Attempts > 0 {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Attempts == items[j].Attempts {
			return items[i].Character < items[j].Character
		}
		return items[i].Attempts > items[j].Attempts
	})
	n = min(n, len(items))
	out := make([]string, 0, n)
	for _, p := range items[:n] {
		out = append(out, p.Character)
	}
	return out
}
