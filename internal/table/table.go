// Package table builds and caches the guess×answer clue table: the
// noiseless clue code of every legal guess against every possible answer.
package table

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/words"
)

// Table is dense and row-major: one row per guess, one column per answer,
// both in vocabulary order. Immutable once built or loaded.
type Table struct {
	guesses, answers int
	fingerprint      string
	codes            []clue.Code
}

// FromCodes wraps codes, which must have guesses*answers entries.
func FromCodes(guesses, answers int, fingerprint string, codes []clue.Code) (*Table, error) {
	if guesses <= 0 || answers <= 0 || len(codes) != guesses*answers {
		return nil, fmt.Errorf("clue table %dx%d cannot hold %d codes", guesses, answers, len(codes))
	}
	for i, c := range codes {
		if int(c) >= clue.NumCodes {
			return nil, fmt.Errorf("clue code %d at row %d column %d out of range",
				c, i/answers, i%answers)
		}
	}
	return &Table{guesses: guesses, answers: answers, fingerprint: fingerprint, codes: codes}, nil
}

func (t *Table) At(guess, answer int) clue.Code {
	return t.codes[guess*t.answers+answer]
}

// Row returns the codes of one guess against every answer. Callers must not
// modify it.
func (t *Table) Row(guess int) []clue.Code {
	return t.codes[guess*t.answers : (guess+1)*t.answers]
}

func (t *Table) Dims() (guesses, answers int) { return t.guesses, t.answers }

func (t *Table) Fingerprint() string { return t.fingerprint }

// Codes returns the whole row-major table. Callers must not modify it.
func (t *Table) Codes() []clue.Code { return t.codes }

func (t *Table) Equal(o *Table) bool {
	if t.guesses != o.guesses || t.answers != o.answers {
		return false
	}
	for i, c := range t.codes {
		if o.codes[i] != c {
			return false
		}
	}
	return true
}

// Check returns a *ShapeError unless t was built for v.
func (t *Table) Check(v *words.Vocabulary) error {
	if t.guesses != v.NumGuesses() || t.answers != v.NumAnswers() {
		return &ShapeError{Guesses: t.guesses, Answers: t.answers,
			WantGuesses: v.NumGuesses(), WantAnswers: v.NumAnswers()}
	}
	if t.fingerprint != "" && t.fingerprint != v.Fingerprint() {
		return &ShapeError{Guesses: t.guesses, Answers: t.answers,
			WantGuesses: v.NumGuesses(), WantAnswers: v.NumAnswers(),
			Detail: "vocabulary fingerprint differs"}
	}
	return nil
}

// ErrNotCached is returned by a Store that has no table for a vocabulary.
var ErrNotCached = errors.New("clue table not cached")

// ShapeError reports a cached table that does not fit the live vocabulary.
type ShapeError struct {
	Guesses, Answers         int
	WantGuesses, WantAnswers int
	Detail                   string
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("clue table is %dx%d, vocabulary is %dx%d",
		e.Guesses, e.Answers, e.WantGuesses, e.WantAnswers)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

type buildOptions struct {
	workers  int
	progress func(rows int)
}

type BuildOption func(*buildOptions)

// Workers bounds the number of goroutines; <= 0 means GOMAXPROCS.
func Workers(n int) BuildOption {
	return func(o *buildOptions) { o.workers = n }
}

// Progress is called after each finished chunk of rows, possibly from
// several goroutines at once.
func Progress(f func(rows int)) BuildOption {
	return func(o *buildOptions) { o.progress = f }
}

const chunkRows = 64

// Build computes every entry with clue.Encode.
func Build(ctx context.Context, v *words.Vocabulary, opts ...BuildOption) (*Table, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}

	guesses, answers := v.Guesses(), v.Answers()
	t := &Table{
		guesses:     len(guesses),
		answers:     len(answers),
		fingerprint: v.Fingerprint(),
		codes:       make([]clue.Code, len(guesses)*len(answers)),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for start := 0; start < len(guesses); start += chunkRows {
		start := start
		end := min(start+chunkRows, len(guesses))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for gi := start; gi < end; gi++ {
				row := t.codes[gi*t.answers : (gi+1)*t.answers]
				for ai, a := range answers {
					row[ai] = clue.Encode(guesses[gi], a)
				}
			}
			if o.progress != nil {
				o.progress(end - start)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build clue table: %w", err)
	}
	return t, nil
}

// LoadOrBuild returns the cached table for v if store has one, and
// otherwise builds it and saves it. A cached table of the wrong shape is an
// error, never silently rebuilt. store may be nil.
func LoadOrBuild(ctx context.Context, store Store, v *words.Vocabulary, log *logrus.Entry, opts ...BuildOption) (*Table, error) {
	log = log.WithFields(logrus.Fields{
		"guesses":     v.NumGuesses(),
		"answers":     v.NumAnswers(),
		"fingerprint": v.ShortFingerprint(),
	})
	if store != nil {
		t, err := store.Load(ctx, v)
		switch {
		case err == nil:
			log.WithField("store", store).Info("loaded clue table")
			return t, nil
		case !errors.Is(err, ErrNotCached):
			return nil, fmt.Errorf("load clue table from %v: %w", store, err)
		}
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	var rows atomic.Int64
	opts = append(opts, Progress(func(n int) {
		if o.progress != nil {
			o.progress(n)
		}
		if done := rows.Add(int64(n)); done%(chunkRows*256) < int64(n) {
			log.WithField("rows", done).Debug("building clue table")
		}
	}))
	log.Info("building clue table")
	t, err := Build(ctx, v, opts...)
	if err != nil {
		return nil, err
	}
	if store != nil {
		if err := store.Save(ctx, t); err != nil {
			return nil, fmt.Errorf("save clue table to %v: %w", store, err)
		}
		log.WithField("store", store).Info("saved clue table")
	}
	return t, nil
}
