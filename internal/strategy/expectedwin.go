package strategy

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/engine"
)

type ExpectedWinParams struct {
	// Turns is the total number of moves; the last is the final guess.
	Turns int
	// Epsilons is spent on each clue-bearing move in order; the last value
	// repeats.
	Epsilons    []float64
	FirstGuess  string
	TopFraction float64
}

// ExpectedWin opens with a fixed word, then plays the guess maximizing the
// expected chance of naming the secret after its clue, and finally names
// the posterior mode.
type ExpectedWin struct {
	engine *engine.Engine
	params ExpectedWinParams
	ep     episode
}

func NewExpectedWin(e *engine.Engine, p ExpectedWinParams, log *logrus.Entry) (*ExpectedWin, error) {
	if p.Turns < 2 {
		return nil, fmt.Errorf("expected win: need at least 2 turns, got %d", p.Turns)
	}
	if len(p.Epsilons) == 0 {
		return nil, fmt.Errorf("expected win: no epsilons")
	}
	for _, eps := range p.Epsilons {
		if !(eps > 0) {
			return nil, fmt.Errorf("expected win: epsilon must be > 0, got %v", eps)
		}
	}
	if p.FirstGuess == "" {
		p.FirstGuess = "salet"
	}
	if _, ok := e.Vocab().GuessIndex(p.FirstGuess); !ok {
		return nil, fmt.Errorf("expected win: %w: first guess %q is not in the guess list", ErrIllegalGuess, p.FirstGuess)
	}
	return &ExpectedWin{engine: e, params: p, ep: newEpisode(e, log)}, nil
}

func (s *ExpectedWin) epsilon(turn int) float64 {
	return s.params.Epsilons[min(turn, len(s.params.Epsilons)-1)]
}

func (s *ExpectedWin) FirstMove() (Move, error) {
	s.ep.reset()
	return s.ep.play(s.params.FirstGuess, s.epsilon(0))
}

func (s *ExpectedWin) NextMove(prev Move, observed clue.Clue) (Move, error) {
	if _, err := s.ep.observe(prev, observed); err != nil {
		return Move{}, err
	}
	posterior, err := s.engine.Posterior(s.ep.history)
	if err != nil {
		return Move{}, err
	}
	turn := s.ep.turn()
	if turn >= s.params.Turns-1 {
		a := engine.BestFinalGuess(posterior)
		return s.ep.play(s.engine.Vocab().Answer(a), 0)
	}
	g, score, err := s.engine.BestNextGuess(posterior, s.epsilon(turn), engine.SearchOptions{TopFraction: s.params.TopFraction})
	if err != nil {
		return Move{}, err
	}
	s.ep.log.WithField("score", score).Debug("expected win search")
	return s.ep.play(s.engine.Vocab().Guess(g), s.epsilon(turn))
}

func (s *ExpectedWin) String() string {
	return fmt.Sprintf("ExpectedWin(turns=%d, epsilons=%v, first=%s, top_fraction=%v)",
		s.params.Turns, s.params.Epsilons, s.params.FirstGuess, s.params.TopFraction)
}
