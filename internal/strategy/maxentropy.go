package strategy

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/sirupsen/logrus"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/engine"
)

type MaxEntropyParams struct {
	// Turns is the total number of moves; the last is the final guess.
	Turns   int
	Epsilon float64
	// MonteCarlo, if positive, estimates clue distributions from this many
	// answers drawn from the belief each move.
	MonteCarlo int
	// HardMode only plays words from the answer list.
	HardMode bool
	Seed     int64
}

// opening memoizes the first guess, which only depends on the parameters
// when the search is exact.
type opening struct {
	once sync.Once
	word string
	err  error
}

// MaxEntropy plays the guess whose predicted noisy clue has the highest
// entropy under a multiplicative-weights belief, and finally names the
// most likely answer.
type MaxEntropy struct {
	engine  *engine.Engine
	params  MaxEntropyParams
	rng     *rand.Rand
	allowed *bitset.BitSet
	opening *opening
	belief  *engine.Belief
	ep      episode
}

func NewMaxEntropy(e *engine.Engine, p MaxEntropyParams, log *logrus.Entry) (*MaxEntropy, error) {
	return newMaxEntropy(e, p, log, nil)
}

func newMaxEntropy(e *engine.Engine, p MaxEntropyParams, log *logrus.Entry, first *opening) (*MaxEntropy, error) {
	if p.Turns < 2 {
		return nil, fmt.Errorf("max entropy: need at least 2 turns, got %d", p.Turns)
	}
	if !(p.Epsilon > 0) {
		return nil, fmt.Errorf("max entropy: epsilon must be > 0, got %v", p.Epsilon)
	}
	if p.MonteCarlo < 0 {
		return nil, fmt.Errorf("max entropy: monte carlo sample size must be >= 0, got %d", p.MonteCarlo)
	}
	if first == nil {
		first = &opening{}
	}
	s := &MaxEntropy{
		engine:  e,
		params:  p,
		rng:     rand.New(rand.NewSource(p.Seed)),
		opening: first,
		ep:      newEpisode(e, log),
	}
	if p.HardMode {
		s.allowed = e.AnswerGuesses()
	}
	return s, nil
}

func (s *MaxEntropy) FirstMove() (Move, error) {
	s.ep.reset()
	s.belief = engine.NewBelief(s.engine.Vocab().NumAnswers())
	if s.params.MonteCarlo > 0 {
		return s.regularMove()
	}
	s.opening.once.Do(func() {
		s.opening.word, s.opening.err = s.choose()
	})
	if s.opening.err != nil {
		return Move{}, s.opening.err
	}
	return s.ep.play(s.opening.word, s.params.Epsilon)
}

func (s *MaxEntropy) NextMove(prev Move, observed clue.Clue) (Move, error) {
	obs, err := s.ep.observe(prev, observed)
	if err != nil {
		return Move{}, err
	}
	s.belief.Update(s.engine, obs.Guess, obs.Code, obs.Epsilon)
	if s.ep.turn() >= s.params.Turns-1 {
		a, _ := s.belief.Max()
		return s.ep.play(s.engine.Vocab().Answer(a), 0)
	}
	return s.regularMove()
}

func (s *MaxEntropy) choose() (string, error) {
	g, h, err := s.engine.MaxEntropyGuess(s.belief.Probs(), s.params.Epsilon, engine.EntropyOptions{
		MonteCarlo: s.params.MonteCarlo,
		Rand:       s.rng,
		Allowed:    s.allowed,
	})
	if err != nil {
		return "", err
	}
	s.ep.log.WithField("entropy", h).Debug("max entropy search")
	return s.engine.Vocab().Guess(g), nil
}

func (s *MaxEntropy) regularMove() (Move, error) {
	word, err := s.choose()
	if err != nil {
		return Move{}, err
	}
	return s.ep.play(word, s.params.Epsilon)
}

func (s *MaxEntropy) String() string {
	return fmt.Sprintf("MaxEntropy(turns=%d, epsilon=%v, monte_carlo=%d, hard_mode=%t)",
		s.params.Turns, s.params.Epsilon, s.params.MonteCarlo, s.params.HardMode)
}
