package strategy

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/benjaminjkraft/dp-wordle/internal/config"
	"github.com/benjaminjkraft/dp-wordle/internal/engine"
	"github.com/benjaminjkraft/dp-wordle/internal/oracle"
)

// Factory makes independent strategy values sharing one engine, one per
// concurrent episode.
type Factory struct {
	Name string
	New  func(log *logrus.Entry) (Strategy, error)
}

// FromConfig builds a factory for sc. It constructs one strategy up front
// so configuration errors surface here. Each value gets its own seed,
// counting up from sc.Seed (or the clock if unset).
func FromConfig(e *engine.Engine, sc config.StrategyConfig) (Factory, error) {
	base := sc.Seed
	if base == 0 {
		base = time.Now().UnixNano()
	}
	var made atomic.Int64
	seed := func() int64 { return base + made.Add(1) - 1 }

	var newFunc func(log *logrus.Entry) (Strategy, error)
	switch sc.Kind {
	case config.KindExpectedWin:
		p := ExpectedWinParams{
			Turns:       sc.Turns,
			Epsilons:    sc.Epsilons,
			FirstGuess:  sc.FirstGuess,
			TopFraction: sc.TopFraction,
		}
		newFunc = func(log *logrus.Entry) (Strategy, error) { return NewExpectedWin(e, p, log) }
	case config.KindMaxEntropy:
		p := MaxEntropyParams{
			Turns:      sc.Turns,
			Epsilon:    sc.Epsilon,
			MonteCarlo: sc.MonteCarlo,
			HardMode:   sc.HardMode,
		}
		first := &opening{}
		newFunc = func(log *logrus.Entry) (Strategy, error) {
			p := p
			p.Seed = seed()
			return newMaxEntropy(e, p, log, first)
		}
	case config.KindBayesian, config.KindOracleBayesian:
		p := BayesianParams{
			Epsilon:   sc.Epsilon,
			Certainty: sc.Certainty,
			Turns:     sc.Turns,
			Mode:      sc.Mode,
			Jitter:    sc.Jitter,
		}
		if sc.Kind == config.KindBayesian {
			newFunc = func(log *logrus.Entry) (Strategy, error) {
				p := p
				p.Seed = seed()
				return NewBayesian(e, p, log)
			}
			break
		}
		opener := sc.FirstGuess
		if opener == "" {
			opener = "salet"
		}
		if _, ok := e.Vocab().GuessIndex(opener); !ok {
			return Factory{}, fmt.Errorf("strategy %q: %w: opener %q is not in the guess list", sc.Name, ErrIllegalGuess, opener)
		}
		answers := e.Vocab().Answers()
		newOracle := func() oracle.Oracle { return oracle.NewConsistent(answers, opener) }
		newFunc = func(log *logrus.Entry) (Strategy, error) {
			p := p
			p.Seed = seed()
			return NewOracleBayesian(e, p, newOracle, log)
		}
	default:
		return Factory{}, fmt.Errorf("strategy %q: unknown kind %q", sc.Name, sc.Kind)
	}

	if _, err := newFunc(nil); err != nil {
		return Factory{}, fmt.Errorf("strategy %q: %w", sc.Name, err)
	}
	return Factory{Name: sc.Name, New: newFunc}, nil
}
