package engine

import (
	"math/rand"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
)

// Belief is a multiplicative-weights posterior over the answers. Each
// observed clue symbol multiplies the weight of every answer consistent
// with it (the answer would have produced that same symbol there) by
// e^(ε/5). Weights are kept in log space and renormalized after every
// update.
//
// A Belief belongs to one episode; it is not safe for concurrent use.
type Belief struct {
	logw []float64
	p    []float64
}

// NewBelief starts uniform over n answers.
func NewBelief(n int) *Belief {
	return &Belief{logw: make([]float64, n), p: uniform(n)}
}

// Update applies one observed clue for guess index g.
func (b *Belief) Update(e *Engine, g int, observed clue.Code, epsilon float64) {
	step := epsilon / clue.Length
	for a, c := range e.table.Row(g) {
		b.logw[a] += step * float64(e.dist.Matches(c, observed))
	}
	p, ok := normalizeLog(b.logw)
	if !ok {
		e.log.Debug("belief degenerate; resetting to uniform")
		for i := range b.logw {
			b.logw[i] = 0
		}
	} else {
		// rebase so the largest log-weight is 0 and nothing drifts
		_, top := argmax(b.logw)
		for i := range b.logw {
			b.logw[i] -= top
		}
	}
	b.p = p
}

// Probs is the current distribution. Callers must not modify it.
func (b *Belief) Probs() []float64 { return b.p }

// Max returns the most probable answer, first index on ties.
func (b *Belief) Max() (int, float64) {
	return argmax(b.p)
}

// Sample draws an answer proportionally to its probability among those not
// excluded. If all remaining weight is zero it draws uniformly among them.
// It reports false if every answer is excluded.
func (b *Belief) Sample(r *rand.Rand, exclude func(a int) bool) (int, bool) {
	total := 0.0
	left := 0
	for a, p := range b.p {
		if exclude != nil && exclude(a) {
			continue
		}
		total += p
		left++
	}
	if left == 0 {
		return 0, false
	}
	if total > 0 {
		x := r.Float64() * total
		last := -1
		for a, p := range b.p {
			if exclude != nil && exclude(a) {
				continue
			}
			if p > 0 {
				last = a
			}
			if x < p {
				return a, true
			}
			x -= p
		}
		// rounding
		if last >= 0 {
			return last, true
		}
	}
	k := r.Intn(left)
	for a := range b.p {
		if exclude != nil && exclude(a) {
			continue
		}
		if k == 0 {
			return a, true
		}
		k--
	}
	return 0, false
}
