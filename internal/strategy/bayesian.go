package strategy

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/engine"
	"github.com/benjaminjkraft/dp-wordle/internal/oracle"
)

// Guess selection modes for Bayesian.
const (
	// Greedy samples an unplayed answer proportionally to its weight.
	Greedy = "greedy"
	// Random plays a uniformly random guess.
	Random = "random"
)

type BayesianParams struct {
	Epsilon float64
	// Certainty is the weight above which the most likely answer is
	// committed as the final guess.
	Certainty float64
	// Turns caps the episode; the last move is always the final guess.
	Turns int
	Mode  string
	// Jitter spends a uniformly random epsilon within 10% of Epsilon on
	// each move.
	Jitter bool
	Seed   int64
}

func (p *BayesianParams) validate(kind string) error {
	if !(p.Epsilon > 0) {
		return fmt.Errorf("%s: epsilon must be > 0, got %v", kind, p.Epsilon)
	}
	if !(p.Certainty > 0 && p.Certainty < 1) {
		return fmt.Errorf("%s: certainty must be in (0, 1), got %v", kind, p.Certainty)
	}
	if p.Turns < 2 {
		return fmt.Errorf("%s: need at least 2 turns, got %d", kind, p.Turns)
	}
	switch p.Mode {
	case "":
		p.Mode = Greedy
	case Greedy, Random:
	default:
		return fmt.Errorf("%s: unknown mode %q", kind, p.Mode)
	}
	return nil
}

// Bayesian keeps a multiplicative-weights belief over the answers and
// commits to the most likely one as soon as its weight passes Certainty.
type Bayesian struct {
	engine *engine.Engine
	params BayesianParams
	rng    *rand.Rand
	// guess index of each answer
	answerGuess []int
	belief      *engine.Belief
	ep          episode
}

func NewBayesian(e *engine.Engine, p BayesianParams, log *logrus.Entry) (*Bayesian, error) {
	if err := p.validate("bayesian"); err != nil {
		return nil, err
	}
	v := e.Vocab()
	answerGuess := make([]int, v.NumAnswers())
	for a, w := range v.Answers() {
		answerGuess[a], _ = v.GuessIndex(w)
	}
	return &Bayesian{
		engine:      e,
		params:      p,
		rng:         rand.New(rand.NewSource(p.Seed)),
		answerGuess: answerGuess,
		ep:          newEpisode(e, log),
	}, nil
}

func (s *Bayesian) epsilon() float64 {
	if !s.params.Jitter {
		return s.params.Epsilon
	}
	return s.params.Epsilon * (0.9 + 0.2*s.rng.Float64())
}

func (s *Bayesian) start() {
	s.ep.reset()
	s.belief = engine.NewBelief(s.engine.Vocab().NumAnswers())
}

// pick chooses a clue-bearing guess by the configured mode.
func (s *Bayesian) pick() string {
	v := s.engine.Vocab()
	if s.params.Mode == Greedy {
		a, ok := s.belief.Sample(s.rng, func(a int) bool { return s.ep.wasPlayed(s.answerGuess[a]) })
		if ok {
			return v.Answer(a)
		}
	}
	return v.Guess(s.rng.Intn(v.NumGuesses()))
}

// update applies the clue and reports the final move if the episode should
// end now.
func (s *Bayesian) update(prev Move, observed clue.Clue) (Move, bool, error) {
	obs, err := s.ep.observe(prev, observed)
	if err != nil {
		return Move{}, true, err
	}
	s.belief.Update(s.engine, obs.Guess, obs.Code, obs.Epsilon)
	a, p := s.belief.Max()
	if p > s.params.Certainty || s.ep.turn() >= s.params.Turns-1 {
		s.ep.log.WithField("weight", p).Debug("committing")
		m, err := s.ep.play(s.engine.Vocab().Answer(a), 0)
		return m, true, err
	}
	return Move{}, false, nil
}

func (s *Bayesian) FirstMove() (Move, error) {
	s.start()
	return s.ep.play(s.pick(), s.epsilon())
}

func (s *Bayesian) NextMove(prev Move, observed clue.Clue) (Move, error) {
	if m, done, err := s.update(prev, observed); done {
		return m, err
	}
	return s.ep.play(s.pick(), s.epsilon())
}

func (s *Bayesian) String() string {
	return fmt.Sprintf("Bayesian(epsilon=%v, certainty=%v, turns=%d, mode=%s, jitter=%t)",
		s.params.Epsilon, s.params.Certainty, s.params.Turns, s.params.Mode, s.params.Jitter)
}

// OracleBayesian plays an oracle's suggestions while the oracle has any,
// falling back to Bayesian sampling when it has none, and commits like
// Bayesian.
type OracleBayesian struct {
	*Bayesian
	newOracle func() oracle.Oracle
	oracle    oracle.Oracle
}

// NewOracleBayesian consults a fresh oracle from newOracle each episode.
func NewOracleBayesian(e *engine.Engine, p BayesianParams, newOracle func() oracle.Oracle, log *logrus.Entry) (*OracleBayesian, error) {
	if err := p.validate("oracle bayesian"); err != nil {
		return nil, err
	}
	b, err := NewBayesian(e, p, log)
	if err != nil {
		return nil, err
	}
	return &OracleBayesian{Bayesian: b, newOracle: newOracle}, nil
}

// suggest returns the oracle's next guess if it is usable.
func (s *OracleBayesian) suggest() (string, bool) {
	if s.oracle == nil {
		return "", false
	}
	w, ok := s.oracle.NextGuess()
	if !ok {
		s.ep.log.Debug("oracle has no suggestion; sampling from belief")
		return "", false
	}
	g, legal := s.engine.Vocab().GuessIndex(w)
	if !legal || s.ep.wasPlayed(g) {
		s.ep.log.WithField("suggestion", w).Warn("ignoring unusable oracle suggestion")
		return "", false
	}
	return w, true
}

func (s *OracleBayesian) FirstMove() (Move, error) {
	s.start()
	s.oracle = s.newOracle()
	w, ok := s.suggest()
	if !ok {
		w = s.pick()
	}
	return s.ep.play(w, s.epsilon())
}

func (s *OracleBayesian) NextMove(prev Move, observed clue.Clue) (Move, error) {
	if m, done, err := s.update(prev, observed); done {
		return m, err
	}
	if s.oracle != nil {
		if err := s.oracle.Observe(prev.Word, oracle.Greens(prev.Word, observed), oracle.Yellows(prev.Word, observed)); err != nil {
			s.ep.log.WithError(err).Warn("oracle rejected clue; no longer consulting it")
			s.oracle = nil
		}
	}
	w, ok := s.suggest()
	if !ok {
		w = s.pick()
	}
	return s.ep.play(w, s.epsilon())
}

func (s *OracleBayesian) String() string {
	return fmt.Sprintf("OracleBayesian(epsilon=%v, certainty=%v, turns=%d, jitter=%t)",
		s.params.Epsilon, s.params.Certainty, s.params.Turns, s.params.Jitter)
}
