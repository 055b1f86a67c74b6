// Package arena plays strategies against random secrets with noisy clues
// and summarizes how much epsilon they spend to win.
package arena

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
	"github.com/benjaminjkraft/dp-wordle/internal/strategy"
	"github.com/benjaminjkraft/dp-wordle/internal/words"
)

// maxMoves bounds an episode whose strategy never commits.
const maxMoves = 100

// Trial is one episode.
type Trial struct {
	ID       uuid.UUID
	Answer   string
	Final    string
	Moves    int
	Epsilon  float64 // total spent on clues
	TimedOut bool
	Err      error
}

func (t Trial) Won() bool { return t.Err == nil && !t.TimedOut && t.Final == t.Answer }

// Score is the epsilon spent on a win, and +Inf for anything else.
func (t Trial) Score() float64 {
	if !t.Won() {
		return math.Inf(1)
	}
	return t.Epsilon
}

// Turn is one clue-bearing move, for tracing.
type Turn struct {
	Guess   string
	Epsilon float64
	Real    clue.Clue
	Noisy   clue.Clue
}

type Arena struct {
	vocab   *words.Vocabulary
	trials  int
	timeout time.Duration
	workers int
	seed    int64
	onTrial func(Trial)
	log     *logrus.Entry
}

type Option func(*Arena)

func Trials(n int) Option { return func(a *Arena) { a.trials = n } }

// Timeout bounds each episode. An episode that overruns is scored as
// timed out, but its current move keeps computing in the background until
// it returns, so frequent timeouts slow the episodes still running.
func Timeout(d time.Duration) Option { return func(a *Arena) { a.timeout = d } }

// Workers bounds concurrent episodes; <= 0 means GOMAXPROCS.
func Workers(n int) Option { return func(a *Arena) { a.workers = n } }

// Seed fixes the secrets and noise; 0 seeds from the clock.
func Seed(s int64) Option { return func(a *Arena) { a.seed = s } }

// OnTrial is called after every episode, possibly concurrently.
func OnTrial(f func(Trial)) Option { return func(a *Arena) { a.onTrial = f } }

func WithLogger(log *logrus.Entry) Option { return func(a *Arena) { a.log = log } }

func New(v *words.Vocabulary, opts ...Option) *Arena {
	a := &Arena{vocab: v, trials: 10001, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(a)
	}
	if a.workers <= 0 {
		a.workers = runtime.GOMAXPROCS(0)
	}
	if a.seed == 0 {
		a.seed = time.Now().UnixNano()
	}
	if a.log == nil {
		a.log = logging.New("arena")
	}
	return a
}

// Noise corrupts each symbol of c independently: with probability
// 3/(2+e^(ε/5)) it is replaced by a uniformly random symbol (possibly
// itself), so it ends up wrong with probability 2/(2+e^(ε/5)).
func Noise(c clue.Clue, epsilon float64, r *rand.Rand) clue.Clue {
	p := 3 / (2 + math.Exp(epsilon/clue.Length))
	for i := range c {
		if r.Float64() < p {
			c[i] = clue.Symbol(r.Intn(3))
		}
	}
	return c
}

// Play runs one episode of s against answer, drawing noise from r. trace,
// if non-nil, sees every clue-bearing move.
func (a *Arena) Play(s strategy.Strategy, answer string, r *rand.Rand, trace func(Turn)) Trial {
	t := Trial{Answer: answer}
	m, err := s.FirstMove()
	for ; err == nil && !m.Final(); t.Moves++ {
		if t.Moves >= maxMoves {
			err = fmt.Errorf("no final guess after %d moves", maxMoves)
			break
		}
		if _, ok := a.vocab.GuessIndex(m.Word); !ok {
			err = fmt.Errorf("guess %q is not in the guess list", m.Word)
			break
		}
		if m.Epsilon < 0 || math.IsNaN(m.Epsilon) {
			err = fmt.Errorf("guess %q with invalid epsilon %v", m.Word, m.Epsilon)
			break
		}
		t.Epsilon += m.Epsilon
		truth := clue.Compute(m.Word, answer)
		noisy := Noise(truth, m.Epsilon, r)
		if trace != nil {
			trace(Turn{Guess: m.Word, Epsilon: m.Epsilon, Real: truth, Noisy: noisy})
		}
		m, err = s.NextMove(m, noisy)
	}
	if err != nil {
		t.Err = err
		return t
	}
	t.Moves++
	t.Final = m.Word
	return t
}

// runTrial plays one episode under the per-trial timeout. A strategy that
// overruns is abandoned; its goroutine finishes on its own.
func (a *Arena) runTrial(ctx context.Context, s strategy.Strategy, answer string, r *rand.Rand) (Trial, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	done := make(chan Trial, 1)
	go func() { done <- a.Play(s, answer, r, nil) }()
	select {
	case t := <-done:
		return t, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Trial{Answer: answer, TimedOut: true}, nil
		}
		return Trial{}, ctx.Err()
	}
}

// Evaluate plays the configured number of trials of strategies from f,
// each against an answer drawn uniformly at random.
func (a *Arena) Evaluate(ctx context.Context, f strategy.Factory) (*Result, error) {
	start := time.Now()
	trials := make([]Trial, a.trials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i := range trials {
		i := i
		g.Go(func() error {
			id := uuid.New()
			log := a.log.WithFields(logrus.Fields{"strategy": f.Name, "episode": id})
			s, err := f.New(log)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			r := rand.New(rand.NewSource(a.seed + int64(i)))
			answer := a.vocab.Answer(r.Intn(a.vocab.NumAnswers()))
			t, err := a.runTrial(ctx, s, answer, r)
			if err != nil {
				return err
			}
			t.ID = id
			switch {
			case t.TimedOut:
				log.WithField("answer", answer).Warn("timed out")
			case t.Err != nil:
				log.WithError(t.Err).WithField("answer", answer).Warn("episode failed")
			default:
				log.WithFields(logrus.Fields{"answer": answer, "won": t.Won(), "epsilon": t.Epsilon}).Debug("episode done")
			}
			trials[i] = t
			if a.onTrial != nil {
				a.onTrial(t)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := newResult(f.Name, trials)
	a.log.WithFields(logrus.Fields{
		"strategy": f.Name,
		"trials":   len(trials),
		"p05":      res.P05,
		"p50":      res.P50,
		"p95":      res.P95,
		"timeouts": res.Timeouts,
		"elapsed":  time.Since(start).Round(time.Millisecond),
	}).Info("evaluated")
	return res, nil
}
