package wordlist

import (
	"strings"

	"github.com/verte-zerg/kakite/internal/chars"
)

// FilterFunc returns true when a word should be kept.
type FilterFunc func(string) bool

// FilterForType returns a filter keeping words whose practiceable
// characters are all of the given writing type. An empty type keeps every
// word with at least one practiceable character.
func FilterForType(typ string) FilterFunc {
	want := chars.Type(strings.ToLower(strings.TrimSpace(typ)))
	if want == "" {
		return func(word string) bool { return len(chars.Practiceable(word)) > 0 }
	}
	return func(word string) bool {
		practiceable := chars.Practiceable(word)
		if len(practiceable) == 0 {
			return false
		}
		for _, c := range practiceable {
			if chars.TypeOf(c) != want {
				return false
			}
		}
		return true
	}
}

// Filter keeps the words accepted by keep.
func Filter(words []string, keep FilterFunc) []string {
	out := words[:0:0]
	for _, w := range words {
		if keep(w) {
			out = append(out, w)
		}
	}
	return out
}
