// Package generator picks the next character to practice.
package generator

import (
	"math/rand"
	"time"
)

// Generator produces a randomized practice order.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Next selects a character uniformly, avoiding prev when another choice exists.
func (g *Generator) Next(chars []string, prev string) string {
	return g.NextWeighted(chars, prev, nil, 0)
}

// NextWeighted selects a character with a bias toward weak characters.
// Each weak character weighs 1+factor, every other character weighs 1.
func (g *Generator) NextWeighted(chars []string, prev string, weakSet map[string]struct{}, factor float64) string {
	if len(chars) == 0 {
		return ""
	}
	if len(chars) == 1 {
		return chars[0]
	}
	weights := make([]float64, len(chars))
	total := 0.0
	for i, c := range chars {
		if c == prev {
			continue
		}
		w := 1.0
		if _, ok := weakSet[c]; ok && factor > 0 {
			w += factor
		}
		weights[i] = w
		total += w
	}
	if total == 0 {
		return chars[g.rnd.Intn(len(chars))]
	}

	r := g.rnd.Float64() * total
	acc := 0.0
	last := 0
	for i, w := range weights {
		if w == 0 {
			continue
		}
		acc += w
		last = i
		if r <= acc {
			return chars[i]
		}
	}
	return chars[last]
}

// Sequence returns count characters, each chosen by NextWeighted.
func (g *Generator) Sequence(chars []string, count int, weakSet map[string]struct{}, factor float64) []string {
	result := make([]string, 0, max(count, 0))
	prev := ""
	for i := 0; i < count && len(chars) > 0; i++ {
		prev = g.NextWeighted(chars, prev, weakSet, factor)
		result = append(result, prev)
	}
	return result
}
