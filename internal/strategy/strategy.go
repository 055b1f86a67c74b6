// Package strategy wraps the decision engine in the two-call protocol a
// game harness drives: FirstMove, then NextMove with each noisy clue until
// a move with epsilon 0 commits the final answer.
//
// A Strategy value holds the state of one episode at a time and must not
// be shared between concurrent episodes; FirstMove starts a new episode.
package strategy

import (
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/sirupsen/logrus"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/engine"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
)

var (
	// ErrIllegalGuess is returned for a word that is not in the guess list
	// or does not match the move it claims to answer.
	ErrIllegalGuess = errors.New("illegal guess")
	// ErrNotStarted is returned by NextMove before FirstMove.
	ErrNotStarted = errors.New("episode not started")
	// ErrEpisodeOver is returned by NextMove after the final guess.
	ErrEpisodeOver = errors.New("episode over")
)

// Move is a guess and the epsilon spent on its clue. Epsilon 0 marks the
// committed final answer.
type Move struct {
	Word    string
	Epsilon float64
}

func (m Move) Final() bool { return m.Epsilon == 0 }

type Strategy interface {
	FirstMove() (Move, error)
	NextMove(prev Move, observed clue.Clue) (Move, error)
	String() string
}

type phase int

const (
	idle phase = iota
	playing
	terminal
)

// episode is the state machine shared by every strategy:
// idle -> playing (observe, choose)* -> terminal.
type episode struct {
	engine  *engine.Engine
	log     *logrus.Entry
	phase   phase
	last    Move
	history []engine.Observation
	played  *bitset.BitSet
}

func newEpisode(e *engine.Engine, log *logrus.Entry) episode {
	if log == nil {
		log = logging.New("strategy")
	}
	return episode{
		engine: e,
		log:    log,
		played: bitset.New(uint(e.Vocab().NumGuesses())),
	}
}

func (ep *episode) reset() {
	ep.phase = idle
	ep.last = Move{}
	ep.history = ep.history[:0]
	ep.played.ClearAll()
}

// turn is the number of clues observed so far.
func (ep *episode) turn() int { return len(ep.history) }

func (ep *episode) wasPlayed(guess int) bool { return ep.played.Test(uint(guess)) }

// play records the move about to be returned.
func (ep *episode) play(word string, epsilon float64) (Move, error) {
	g, ok := ep.engine.Vocab().GuessIndex(word)
	if !ok {
		return Move{}, fmt.Errorf("%w: %q is not in the guess list", ErrIllegalGuess, word)
	}
	if epsilon < 0 || math.IsNaN(epsilon) || math.IsInf(epsilon, 0) {
		return Move{}, fmt.Errorf("invalid epsilon %v for %q", epsilon, word)
	}
	ep.played.Set(uint(g))
	ep.last = Move{Word: word, Epsilon: epsilon}
	if epsilon == 0 {
		ep.phase = terminal
	} else {
		ep.phase = playing
	}
	ep.log.WithFields(logrus.Fields{"turn": ep.turn() + 1, "guess": word, "epsilon": epsilon}).Debug("move")
	return ep.last, nil
}

// observe checks the harness's report on the previous move and records it.
func (ep *episode) observe(prev Move, observed clue.Clue) (engine.Observation, error) {
	switch ep.phase {
	case idle:
		return engine.Observation{}, ErrNotStarted
	case terminal:
		return engine.Observation{}, ErrEpisodeOver
	}
	g, ok := ep.engine.Vocab().GuessIndex(prev.Word)
	if !ok {
		return engine.Observation{}, fmt.Errorf("%w: %q is not in the guess list", ErrIllegalGuess, prev.Word)
	}
	if prev.Word != ep.last.Word {
		return engine.Observation{}, fmt.Errorf("%w: %q is not the last move %q", ErrIllegalGuess, prev.Word, ep.last.Word)
	}
	if !(prev.Epsilon > 0) {
		return engine.Observation{}, fmt.Errorf("clue for %q reported with epsilon %v", prev.Word, prev.Epsilon)
	}
	for i, s := range observed {
		if s > clue.Absent {
			return engine.Observation{}, fmt.Errorf("clue for %q: bad symbol %d at position %d", prev.Word, s, i+1)
		}
	}
	obs := engine.Observation{Guess: g, Code: observed.Code(), Epsilon: prev.Epsilon}
	ep.history = append(ep.history, obs)
	return obs, nil
}
