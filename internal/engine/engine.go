// Package engine chooses guesses from noisy clue histories.
//
// An Engine bundles the immutable, shared tables (vocabulary, clue table,
// distance table, channel cache). It holds no per-episode state and is safe
// for concurrent use; beliefs and histories live with the caller.
package engine

import (
	"fmt"
	"math"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/benjaminjkraft/dp-wordle/internal/channel"
	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
	"github.com/benjaminjkraft/dp-wordle/internal/table"
	"github.com/benjaminjkraft/dp-wordle/internal/words"
)

type Engine struct {
	vocab    *words.Vocabulary
	table    *table.Table
	dist     *clue.Distances
	channels *channel.Cache
	workers  int
	log      *logrus.Entry
}

type Option func(*Engine)

// Workers bounds the goroutines used per search; <= 0 means GOMAXPROCS.
func Workers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Engine) { e.log = log }
}

// WithChannels shares a channel cache between engines.
func WithChannels(c *channel.Cache) Option {
	return func(e *Engine) { e.channels = c }
}

// New checks that t was built for v.
func New(v *words.Vocabulary, t *table.Table, opts ...Option) (*Engine, error) {
	if err := t.Check(v); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e := &Engine{
		vocab: v,
		table: t,
		dist:  clue.BuildDistances(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers <= 0 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	if e.channels == nil {
		e.channels = channel.NewCache(e.dist)
	}
	if e.log == nil {
		e.log = logging.New("engine")
	}
	return e, nil
}

func (e *Engine) Vocab() *words.Vocabulary   { return e.vocab }
func (e *Engine) Table() *table.Table        { return e.table }
func (e *Engine) Distances() *clue.Distances { return e.dist }
func (e *Engine) Log() *logrus.Entry         { return e.log }

// Channel returns the (cached) noise channel for epsilon.
func (e *Engine) Channel(epsilon float64) (*channel.Channel, error) {
	return e.channels.Get(epsilon)
}

// Observation is one played guess (an index into the guess list) and the
// noisy clue the harness returned for it.
type Observation struct {
	Guess   int
	Code    clue.Code
	Epsilon float64
}

func uniform(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	return p
}

// normalizeLog turns log-weights into probabilities summing to 1. It
// reports false, and returns the uniform distribution, if no weight is
// usable.
func normalizeLog(logw []float64) ([]float64, bool) {
	top := math.Inf(-1)
	for _, l := range logw {
		if l > top {
			top = l
		}
	}
	if math.IsInf(top, 0) || math.IsNaN(top) {
		return uniform(len(logw)), false
	}
	p := make([]float64, len(logw))
	sum := 0.0
	for i, l := range logw {
		p[i] = math.Exp(l - top)
		sum += p[i]
	}
	if !(sum > 0) || math.IsInf(sum, 0) {
		return uniform(len(logw)), false
	}
	for i := range p {
		p[i] /= sum
	}
	return p, true
}

// argmax returns the first index with the largest value.
func argmax(xs []float64) (int, float64) {
	best, bestV := 0, math.Inf(-1)
	for i, x := range xs {
		if x > bestV {
			best, bestV = i, x
		}
	}
	return best, bestV
}

type scored struct {
	index int
	score float64
	ok    bool
}

// searchGuesses scores every guess in parallel and returns the first index
// with the highest score. newScorer is called once per chunk so scorers
// can own scratch space; a scorer returns ok=false to skip a guess.
func (e *Engine) searchGuesses(newScorer func() func(g int) (float64, bool)) (int, float64, bool) {
	n := e.vocab.NumGuesses()
	chunk := max(1, n/(e.workers*8))
	results := make([]scored, (n+chunk-1)/chunk)

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := range results {
		i := i
		g.Go(func() error {
			score := newScorer()
			best := scored{score: math.Inf(-1)}
			for gi := i * chunk; gi < min(n, (i+1)*chunk); gi++ {
				s, ok := score(gi)
				if ok && (!best.ok || s > best.score) {
					best = scored{index: gi, score: s, ok: true}
				}
			}
			results[i] = best
			return nil
		})
	}
	g.Wait()

	best := scored{score: math.Inf(-1)}
	for _, r := range results {
		if r.ok && (!best.ok || r.score > best.score) {
			best = r
		}
	}
	return best.index, best.score, best.ok
}
