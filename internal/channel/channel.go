// Package channel models the per-symbol noise applied to clues.
//
// Each of the five symbols is kept with probability pc and otherwise
// replaced by one of the two other symbols, each with probability pi:
//
//	pc = 1 - 2/(2 + e^(ε/5))
//	pi = 1/(2 + e^(ε/5))
//
// so observing c2 when the true clue is c1 has probability pc^(5-d)·pi^d,
// d being the number of differing positions.
package channel

import (
	"fmt"
	"math"
	"sync"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
)

// Channel is the noise matrix for one epsilon. Immutable once built.
type Channel struct {
	epsilon float64
	pc, pi  float64
	// by distance
	logByDist  [clue.Length + 1]float64
	probByDist [clue.Length + 1]float64

	prob [clue.NumCodes][clue.NumCodes]float64
}

// log2PlusExp returns log(2 + e^x) without overflowing for large x.
func log2PlusExp(x float64) float64 {
	if x > 30 {
		return x + math.Log1p(2*math.Exp(-x))
	}
	return math.Log(2 + math.Exp(x))
}

// New builds the channel for epsilon, which must be finite and >= 0.
func New(epsilon float64, d *clue.Distances) (*Channel, error) {
	if math.IsNaN(epsilon) || math.IsInf(epsilon, 0) || epsilon < 0 {
		return nil, fmt.Errorf("unsupported epsilon %v: must be finite and non-negative", epsilon)
	}
	if d == nil {
		d = clue.BuildDistances()
	}

	x := epsilon / 5
	logPi := -log2PlusExp(x)
	// 1 - 2/(2+e^x) = e^x/(2+e^x)
	logPc := x + logPi

	ch := &Channel{
		epsilon: epsilon,
		pc:      math.Exp(logPc),
		pi:      math.Exp(logPi),
	}
	for dist := 0; dist <= clue.Length; dist++ {
		l := float64(clue.Length-dist)*logPc + float64(dist)*logPi
		ch.logByDist[dist] = l
		ch.probByDist[dist] = math.Exp(l)
	}
	for a := 0; a < clue.NumCodes; a++ {
		for b := 0; b < clue.NumCodes; b++ {
			ch.prob[a][b] = ch.probByDist[d[a][b]]
		}
	}
	return ch, nil
}

func (ch *Channel) Epsilon() float64 { return ch.epsilon }

// PerSymbol returns the probability a symbol is kept, and the probability
// it becomes one particular other symbol.
func (ch *Channel) PerSymbol() (pc, pi float64) { return ch.pc, ch.pi }

// Prob is the probability of observing observed when the true clue is
// actual. The matrix is symmetric.
func (ch *Channel) Prob(actual, observed clue.Code) float64 {
	return ch.prob[actual][observed]
}

// LogProb is log(Prob), finite for every finite epsilon.
func (ch *Channel) LogProb(actual, observed clue.Code) float64 {
	return ch.logByDist[clue.Distance(actual, observed)]
}

// LogProbDist is the log-probability of a pair at Hamming distance dist.
func (ch *Channel) LogProbDist(dist int) float64 {
	return ch.logByDist[dist]
}

// Row is the distribution over observed clues for the true clue c. Callers
// must not modify it.
func (ch *Channel) Row(c clue.Code) *[clue.NumCodes]float64 {
	return &ch.prob[c]
}

// Cache memoizes channels by epsilon. It is safe for concurrent use.
type Cache struct {
	dist *clue.Distances

	mu       sync.Mutex
	channels map[float64]*Channel
}

func NewCache(d *clue.Distances) *Cache {
	if d == nil {
		d = clue.BuildDistances()
	}
	return &Cache{dist: d, channels: map[float64]*Channel{}}
}

// Get returns the channel for epsilon, building it on first use.
func (c *Cache) Get(epsilon float64) (*Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := c.channels[epsilon]; ok {
		return ch, nil
	}
	ch, err := New(epsilon, c.dist)
	if err != nil {
		return nil, err
	}
	c.channels[epsilon] = ch
	return ch, nil
}

// Len is the number of distinct channels built so far.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.channels)
}
