// Package generator picks quiz notes and answer choices.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/staffdrill/internal/model"
)

// ChoiceCount is the number of answer labels offered per question.
const ChoiceCount = 4

// Generator produces randomized note picks and choice sets.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Generator.
func NewWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Weights computes ceiling - mastery for every note in the pool. Weaker notes
// get larger weights.
func Weights(pool []model.NoteState, ceiling float64) []float64 {
	weights := make([]float64, len(pool))
	for i, n := range pool {
		weights[i] = ceiling - n.Mastery
	}
	return weights
}

// PickWeighted draws an index with probability proportional to its weight.
// A non-positive total falls back to a uniform draw. weights must be non-empty.
func PickWeighted(rnd *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return rnd.Intn(len(weights))
	}
	threshold := rnd.Float64() * total
	for i, w := range weights {
		threshold -= w
		if threshold <= 0 {
			return i
		}
	}
	return len(weights) - 1
}

// Pick selects a position in pool biased toward low mastery.
func (g *Generator) Pick(pool []model.NoteState, ceiling float64) int {
	return PickWeighted(g.rnd, Weights(pool, ceiling))
}

// Choices builds ChoiceCount distinct labels containing correct, drawn from
// poolLabels. When the pool cannot supply enough distinct labels, the draw
// uses fallback (the full catalog) instead; if that is also too small the set
// holds every distinct label available. The result is shuffled.
func (g *Generator) Choices(correct string, poolLabels, fallback []string) []string {
	source := poolLabels
	if distinctWith(correct, poolLabels) < ChoiceCount {
		source = fallback
	}
	want := min(ChoiceCount, distinctWith(correct, source))

	seen := map[string]struct{}{correct: {}}
	choices := []string{correct}
	for len(choices) < want {
		label := source[g.rnd.Intn(len(source))]
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		choices = append(choices, label)
	}
	g.rnd.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	return choices
}

// Intn exposes the generator's source for uniform draws.
func (g *Generator) Intn(n int) int {
	return g.rnd.Intn(n)
}

func distinctWith(correct string, labels []string) int {
	set := map[string]struct{}{correct: {}}
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return len(set)
}
