package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
)

// Posterior returns, for every answer, the probability that it is the
// secret given the history: the channel likelihood of each observed clue,
// accumulated in log space and normalized. If no answer can explain the
// history the uniform distribution is returned.
func (e *Engine) Posterior(history []Observation) ([]float64, error) {
	logL := make([]float64, e.vocab.NumAnswers())
	for _, obs := range history {
		if obs.Guess < 0 || obs.Guess >= e.vocab.NumGuesses() {
			return nil, fmt.Errorf("observation guess index %d out of range", obs.Guess)
		}
		ch, err := e.Channel(obs.Epsilon)
		if err != nil {
			return nil, err
		}
		var byDist [clue.Length + 1]float64
		for d := range byDist {
			byDist[d] = ch.LogProbDist(d)
		}
		dist := &e.dist[obs.Code]
		for a, c := range e.table.Row(obs.Guess) {
			logL[a] += byDist[dist[c]]
		}
	}
	p, ok := normalizeLog(logL)
	if !ok {
		e.log.WithField("turns", len(history)).Debug("no answer explains the clues; using uniform posterior")
	}
	return p, nil
}

// BestFinalGuess is the posterior mode: the answer index with the highest
// probability, first index on ties.
func BestFinalGuess(posterior []float64) int {
	i, _ := argmax(posterior)
	return i
}

type SearchOptions struct {
	// TopFraction of the answers, by posterior mass, considered as
	// possible secrets by the search. Defaults to 0.02.
	TopFraction float64
	// MinCandidates is a floor on the number of answers considered.
	// Defaults to 1.
	MinCandidates int
}

func (o SearchOptions) candidates(n int) int {
	frac := o.TopFraction
	if frac <= 0 {
		frac = 0.02
	}
	k := int(math.Ceil(frac * float64(n)))
	k = max(k, o.MinCandidates, 1)
	return min(k, n)
}

// TopAnswers returns the k answer indices of highest probability, in
// decreasing order, lower index first on ties.
func TopAnswers(p []float64, k int) []int {
	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return p[idx[i]] > p[idx[j]] })
	return idx[:min(k, len(idx))]
}

// BestNextGuess maximizes the expected win probability after one more
// noisy clue: for each guess g it sums, over the clue c that might be
// observed, the largest posterior mass any candidate answer a places on
// seeing c (p(a)·pd[cwa[g][a]][c]). Only the top answers by posterior
// (opts.TopFraction) are candidates. Returns the guess index and its
// score; the first guess index wins ties.
func (e *Engine) BestNextGuess(posterior []float64, epsilon float64, opts SearchOptions) (int, float64, error) {
	if len(posterior) != e.vocab.NumAnswers() {
		return 0, 0, fmt.Errorf("posterior has %d entries, want %d", len(posterior), e.vocab.NumAnswers())
	}
	ch, err := e.Channel(epsilon)
	if err != nil {
		return 0, 0, err
	}
	cands := TopAnswers(posterior, opts.candidates(len(posterior)))
	mass := make([]float64, len(cands))
	for i, a := range cands {
		mass[i] = posterior[a]
	}

	g, score, ok := e.searchGuesses(func() func(int) (float64, bool) {
		// per true clue: the largest candidate mass producing it
		var top [clue.NumCodes]float64
		var best [clue.NumCodes]float64
		used := make([]clue.Code, 0, clue.NumCodes)
		return func(g int) (float64, bool) {
			row := e.table.Row(g)
			used = used[:0]
			for i, a := range cands {
				t := row[a]
				if top[t] == 0 {
					used = append(used, t)
				}
				if mass[i] > top[t] {
					top[t] = mass[i]
				}
			}
			best = [clue.NumCodes]float64{}
			for _, t := range used {
				m := top[t]
				top[t] = 0
				if m == 0 {
					continue
				}
				pr := ch.Row(t)
				for c := range best {
					if v := m * pr[c]; v > best[c] {
						best[c] = v
					}
				}
			}
			sum := 0.0
			for _, v := range best {
				sum += v
			}
			return sum, true
		}
	})
	if !ok {
		return 0, 0, fmt.Errorf("no guess to score")
	}
	return g, score, nil
}
