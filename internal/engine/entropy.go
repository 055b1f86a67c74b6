package engine

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/bits-and-blooms/bitset"

	"github.com/benjaminjkraft/dp-wordle/internal/channel"
	"github.com/benjaminjkraft/dp-wordle/internal/clue"
)

// clueFloor keeps log(p) finite for clues that cannot be observed.
const clueFloor = 1e-10

type EntropyOptions struct {
	// MonteCarlo, if positive, estimates each clue distribution from this
	// many answers drawn from the belief instead of summing over all of
	// them. Rand must then be set.
	MonteCarlo int
	Rand       *rand.Rand
	// Allowed restricts the guesses considered (by guess index); nil
	// allows every guess. Guesses outside it are never scored.
	Allowed *bitset.BitSet
}

type weighted struct {
	answer int
	weight float64
}

// support returns the answers the clue distributions are summed over, with
// their weights: the belief itself, or the Monte-Carlo draw. A draw of a
// with importance weight 1/(N·p(a)) contributes p(a)/(N·p(a)) = 1/N.
func support(belief []float64, opts EntropyOptions) ([]weighted, error) {
	if opts.MonteCarlo <= 0 {
		ret := make([]weighted, 0, len(belief))
		for a, p := range belief {
			if p > 0 {
				ret = append(ret, weighted{a, p})
			}
		}
		return ret, nil
	}
	if opts.Rand == nil {
		return nil, fmt.Errorf("monte carlo sampling needs a random source")
	}
	cdf := make([]float64, len(belief))
	total := 0.0
	for a, p := range belief {
		total += p
		cdf[a] = total
	}
	counts := map[int]int{}
	order := []int{}
	for i := 0; i < opts.MonteCarlo; i++ {
		a := searchCDF(cdf, opts.Rand.Float64()*total)
		if counts[a] == 0 {
			order = append(order, a)
		}
		counts[a]++
	}
	ret := make([]weighted, 0, len(order))
	for _, a := range order {
		ret = append(ret, weighted{a, float64(counts[a]) / float64(opts.MonteCarlo)})
	}
	return ret, nil
}

// searchCDF returns the first index whose cumulative weight exceeds x.
func searchCDF(cdf []float64, x float64) int {
	lo, hi := 0, len(cdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cdf[mid] > x {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

func (e *Engine) clueDistribution(g int, ch *channel.Channel, sup []weighted, mass, dst *[clue.NumCodes]float64) {
	row := e.table.Row(g)
	*mass = [clue.NumCodes]float64{}
	for _, w := range sup {
		mass[row[w.answer]] += w.weight
	}
	for c := range dst {
		dst[c] = clueFloor
	}
	for t, m := range mass {
		if m == 0 {
			continue
		}
		pr := ch.Row(clue.Code(t))
		for c := range dst {
			dst[c] += m * pr[c]
		}
	}
}

func entropy(p *[clue.NumCodes]float64) float64 {
	h := 0.0
	for _, x := range p {
		h -= x * math.Log(x)
	}
	return h
}

// ClueDistribution is the predicted distribution of the noisy clue for
// guess g under belief, each entry floored at 1e-10.
func (e *Engine) ClueDistribution(belief []float64, epsilon float64, g int) (*[clue.NumCodes]float64, error) {
	ch, err := e.Channel(epsilon)
	if err != nil {
		return nil, err
	}
	sup, _ := support(belief, EntropyOptions{})
	var mass, dst [clue.NumCodes]float64
	e.clueDistribution(g, ch, sup, &mass, &dst)
	return &dst, nil
}

// ClueEntropy is the entropy of ClueDistribution.
func (e *Engine) ClueEntropy(belief []float64, epsilon float64, g int) (float64, error) {
	dst, err := e.ClueDistribution(belief, epsilon, g)
	if err != nil {
		return 0, err
	}
	return entropy(dst), nil
}

// MaxEntropyGuess returns the allowed guess whose predicted clue
// distribution under belief has the highest entropy, and that entropy.
func (e *Engine) MaxEntropyGuess(belief []float64, epsilon float64, opts EntropyOptions) (int, float64, error) {
	if len(belief) != e.vocab.NumAnswers() {
		return 0, 0, fmt.Errorf("belief has %d entries, want %d", len(belief), e.vocab.NumAnswers())
	}
	ch, err := e.Channel(epsilon)
	if err != nil {
		return 0, 0, err
	}
	sup, err := support(belief, opts)
	if err != nil {
		return 0, 0, err
	}

	g, h, ok := e.searchGuesses(func() func(int) (float64, bool) {
		var mass, dst [clue.NumCodes]float64
		return func(g int) (float64, bool) {
			if opts.Allowed != nil && !opts.Allowed.Test(uint(g)) {
				return 0, false
			}
			e.clueDistribution(g, ch, sup, &mass, &dst)
			return entropy(&dst), true
		}
	})
	if !ok {
		return 0, 0, fmt.Errorf("no allowed guess")
	}
	return g, h, nil
}

// AnswerGuesses is the set of guess indices that are also answers, for
// hard mode.
func (e *Engine) AnswerGuesses() *bitset.BitSet {
	set := bitset.New(uint(e.vocab.NumGuesses()))
	for _, a := range e.vocab.Answers() {
		g, _ := e.vocab.GuessIndex(a)
		set.Set(uint(g))
	}
	return set
}
