package engine

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
	"github.com/benjaminjkraft/dp-wordle/internal/table"
	"github.com/benjaminjkraft/dp-wordle/internal/words"
)

var (
	answers = []string{
		"salet", "crane", "trace", "pious", "bumpy", "fight",
		"wordy", "glyph", "knock", "vivid", "jazzy", "mound",
	}
	extras = []string{
		"adieu", "roate", "stomp", "chunk", "blimp", "fjord", "gawky",
		"squib", "nymph", "plumb", "dwarf", "quick", "hertz", "vexed", "zonal",
	}
)

func newEngine(t *testing.T, guesses, answers []string, opts ...Option) *Engine {
	t.Helper()
	v, err := words.New(guesses, answers)
	require.NoError(t, err)
	tab, err := table.Build(context.Background(), v, table.Workers(2))
	require.NoError(t, err)
	e, err := New(v, tab, append([]Option{WithLogger(logging.Discard())}, opts...)...)
	require.NoError(t, err)
	return e
}

func wordEngine(t *testing.T, opts ...Option) *Engine {
	guesses := append(append(append([]string{}, answers[:6]...), extras...), answers[6:]...)
	return newEngine(t, guesses, answers, opts...)
}

// smallEngine has four answers, two of which differ only in the last letter.
func smallEngine(t *testing.T) *Engine {
	return newEngine(t,
		[]string{"zzzzz", "abcde", "abcdf", "abcgh", "qwert"},
		[]string{"abcde", "abcdf", "abcgh", "zzzzz"})
}

func observe(t *testing.T, e *Engine, guess, secret string, epsilon float64) Observation {
	t.Helper()
	g, ok := e.Vocab().GuessIndex(guess)
	require.True(t, ok, guess)
	return Observation{Guess: g, Code: clue.Encode(guess, secret), Epsilon: epsilon}
}

func assertDistribution(t *testing.T, p []float64) {
	t.Helper()
	sum := 0.0
	for _, x := range p {
		require.False(t, math.IsNaN(x))
		require.GreaterOrEqual(t, x, 0.0)
		sum += x
	}
	assert.InDelta(t, 1, sum, 1e-9)
}

func TestNewRejectsMismatchedTable(t *testing.T) {
	e := smallEngine(t)
	v, err := words.New([]string{"abcde", "zzzzz"}, []string{"abcde"})
	require.NoError(t, err)
	_, err = New(v, e.Table())
	var shapeErr *table.ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestPosteriorEmptyHistory(t *testing.T) {
	e := wordEngine(t)
	p, err := e.Posterior(nil)
	require.NoError(t, err)
	require.Len(t, p, len(answers))
	for _, x := range p {
		assert.InDelta(t, 1/float64(len(answers)), x, 1e-12)
	}
}

func TestPosteriorSolved(t *testing.T) {
	e := wordEngine(t)
	p, err := e.Posterior([]Observation{observe(t, e, "salet", "salet", 1000)})
	require.NoError(t, err)
	assertDistribution(t, p)
	a, _ := e.Vocab().AnswerIndex("salet")
	assert.InDelta(t, 1, p[a], 1e-9)
	assert.Equal(t, a, BestFinalGuess(p))
}

func TestPosteriorIgnoresZeroEpsilon(t *testing.T) {
	e := wordEngine(t)
	p, err := e.Posterior([]Observation{
		observe(t, e, "salet", "salet", 0),
		observe(t, e, "crane", "salet", 0),
	})
	require.NoError(t, err)
	for _, x := range p {
		assert.InDelta(t, 1/float64(len(answers)), x, 1e-12)
	}
}

func TestPosteriorLongHistory(t *testing.T) {
	// Hundreds of near-noiseless clues that no answer explains would
	// underflow a product of probabilities.
	e := wordEngine(t)
	var history []Observation
	for i := 0; i < 200; i++ {
		secret := answers[i%len(answers)]
		history = append(history, observe(t, e, "adieu", secret, 1000))
	}
	p, err := e.Posterior(history)
	require.NoError(t, err)
	assertDistribution(t, p)
}

func TestPosteriorBadGuess(t *testing.T) {
	e := wordEngine(t)
	_, err := e.Posterior([]Observation{{Guess: 1000, Epsilon: 1}})
	assert.Error(t, err)
	_, err = e.Posterior([]Observation{{Guess: 0, Epsilon: -1}})
	assert.Error(t, err)
}

func TestNormalizeLog(t *testing.T) {
	p, ok := normalizeLog([]float64{0, math.Log(3)})
	assert.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, p, 1e-12)

	p, ok = normalizeLog([]float64{-1e6, -1e6 + math.Log(3)})
	assert.True(t, ok)
	assert.InDeltaSlice(t, []float64{0.25, 0.75}, p, 1e-12)

	inf := math.Inf(-1)
	p, ok = normalizeLog([]float64{inf, inf, inf, inf})
	assert.False(t, ok)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, p)

	_, ok = normalizeLog([]float64{0, math.NaN()})
	assert.False(t, ok)
	p, ok = normalizeLog([]float64{math.NaN(), math.NaN()})
	assert.False(t, ok)
	assert.Equal(t, []float64{0.5, 0.5}, p)
}

func TestTopAnswers(t *testing.T) {
	p := []float64{0.1, 0.3, 0.1, 0.5}
	assert.Equal(t, []int{3, 1}, TopAnswers(p, 2))
	assert.Equal(t, []int{3, 1, 0, 2}, TopAnswers(p, 10))
}

func TestSearchOptionsCandidates(t *testing.T) {
	assert.Equal(t, 1, SearchOptions{}.candidates(12))
	assert.Equal(t, 47, SearchOptions{}.candidates(2315))
	assert.Equal(t, 6, SearchOptions{TopFraction: 0.5}.candidates(12))
	assert.Equal(t, 4, SearchOptions{MinCandidates: 4}.candidates(12))
	assert.Equal(t, 12, SearchOptions{TopFraction: 2}.candidates(12))
}

func TestSearchGuessesFirstIndexWins(t *testing.T) {
	e := newEngine(t, append(append([]string{}, answers...), extras...), answers, Workers(4))
	g, score, ok := e.searchGuesses(func() func(int) (float64, bool) {
		return func(int) (float64, bool) { return 1, true }
	})
	assert.True(t, ok)
	assert.Equal(t, 0, g)
	assert.Equal(t, 1.0, score)

	g, _, ok = e.searchGuesses(func() func(int) (float64, bool) {
		return func(g int) (float64, bool) { return float64(g % 5), g > 7 }
	})
	assert.True(t, ok)
	assert.Equal(t, 9, g)

	_, _, ok = e.searchGuesses(func() func(int) (float64, bool) {
		return func(int) (float64, bool) { return 0, false }
	})
	assert.False(t, ok)
}

func TestBestNextGuessSplitsCandidates(t *testing.T) {
	e := smallEngine(t)
	p, err := e.Posterior(nil)
	require.NoError(t, err)
	g, score, err := e.BestNextGuess(p, 1000, SearchOptions{TopFraction: 1})
	require.NoError(t, err)
	// only abcde and abcdf separate all four answers
	assert.Contains(t, []string{"abcde", "abcdf"}, e.Vocab().Guess(g))
	assert.InDelta(t, 1, score, 1e-9)

	_, _, err = e.BestNextGuess(p[:2], 1, SearchOptions{})
	assert.Error(t, err)
}

func TestExpectedWinConverges(t *testing.T) {
	e := wordEngine(t, Workers(3))
	for _, secret := range answers {
		var history []Observation
		for turn := 0; turn < 2; turn++ {
			p, err := e.Posterior(history)
			require.NoError(t, err)
			g, _, err := e.BestNextGuess(p, 1000, SearchOptions{TopFraction: 1})
			require.NoError(t, err)
			history = append(history, observe(t, e, e.Vocab().Guess(g), secret, 1000))
		}
		p, err := e.Posterior(history)
		require.NoError(t, err)
		assert.Equal(t, secret, e.Vocab().Answer(BestFinalGuess(p)))
	}
}

func TestBestNextGuessDeterministic(t *testing.T) {
	e := wordEngine(t, Workers(4))
	history := []Observation{observe(t, e, "roate", "knock", 10)}
	p, err := e.Posterior(history)
	require.NoError(t, err)
	g1, s1, err := e.BestNextGuess(p, 10, SearchOptions{TopFraction: 0.5})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		g2, s2, err := e.BestNextGuess(p, 10, SearchOptions{TopFraction: 0.5})
		require.NoError(t, err)
		assert.Equal(t, g1, g2)
		assert.Equal(t, s1, s2)
	}
}

func TestClueDistribution(t *testing.T) {
	e := smallEngine(t)
	belief := NewBelief(4).Probs()

	zi, _ := e.Vocab().GuessIndex("zzzzz")
	d, err := e.ClueDistribution(belief, 1000, zi)
	require.NoError(t, err)
	sum := 0.0
	for _, x := range d {
		assert.GreaterOrEqual(t, x, clueFloor)
		sum += x
	}
	assert.InDelta(t, 1, sum, 1e-6)
	assert.InDelta(t, 0.75, d[clue.Encode("zzzzz", "abcde")], 1e-6)
	assert.InDelta(t, 0.25, d[clue.AllCorrect], 1e-6)

	h, err := e.ClueEntropy(belief, 1000, zi)
	require.NoError(t, err)
	want := -(0.75*math.Log(0.75) + 0.25*math.Log(0.25))
	assert.InDelta(t, want, h, 1e-4)
}

func TestMaxEntropyGuess(t *testing.T) {
	e := smallEngine(t)
	belief := NewBelief(4).Probs()

	g, h, err := e.MaxEntropyGuess(belief, 1000, EntropyOptions{})
	require.NoError(t, err)
	assert.Contains(t, []string{"abcde", "abcdf"}, e.Vocab().Guess(g))
	assert.InDelta(t, math.Log(4), h, 1e-4)

	zi, _ := e.Vocab().GuessIndex("zzzzz")
	hz, err := e.ClueEntropy(belief, 1000, zi)
	require.NoError(t, err)
	assert.Greater(t, h, hz)
}

func TestMaxEntropyGuessNoisy(t *testing.T) {
	// at ε=0 every guess predicts the same uniform clue
	e := smallEngine(t)
	_, h, err := e.MaxEntropyGuess(NewBelief(4).Probs(), 0, EntropyOptions{})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(clue.NumCodes), h, 1e-4)
}

func TestMaxEntropyGuessAllowed(t *testing.T) {
	e := smallEngine(t)
	belief := NewBelief(4).Probs()

	allowed := bitset.New(5)
	for _, w := range []string{"zzzzz", "abcgh"} {
		g, _ := e.Vocab().GuessIndex(w)
		allowed.Set(uint(g))
	}
	g, h, err := e.MaxEntropyGuess(belief, 1000, EntropyOptions{Allowed: allowed})
	require.NoError(t, err)
	assert.Equal(t, "abcgh", e.Vocab().Guess(g))
	assert.InDelta(t, -(0.5*math.Log(0.5) + 2*0.25*math.Log(0.25)), h, 1e-4)

	_, _, err = e.MaxEntropyGuess(belief, 1000, EntropyOptions{Allowed: bitset.New(5)})
	assert.Error(t, err)
}

func TestAnswerGuesses(t *testing.T) {
	e := smallEngine(t)
	set := e.AnswerGuesses()
	assert.Equal(t, uint(4), set.Count())
	qi, _ := e.Vocab().GuessIndex("qwert")
	assert.False(t, set.Test(uint(qi)))
}

func TestMaxEntropyGuessMonteCarlo(t *testing.T) {
	e := smallEngine(t)
	belief := NewBelief(4).Probs()
	opts := EntropyOptions{MonteCarlo: 2000, Rand: rand.New(rand.NewSource(1))}
	g, _, err := e.MaxEntropyGuess(belief, 1000, opts)
	require.NoError(t, err)
	assert.Contains(t, []string{"abcde", "abcdf"}, e.Vocab().Guess(g))

	_, _, err = e.MaxEntropyGuess(belief, 1000, EntropyOptions{MonteCarlo: 10})
	assert.Error(t, err)
	_, _, err = e.MaxEntropyGuess(belief[:3], 1000, EntropyOptions{})
	assert.Error(t, err)
}

func TestSupportMonteCarloWeights(t *testing.T) {
	sup, err := support([]float64{0, 1, 0}, EntropyOptions{MonteCarlo: 50, Rand: rand.New(rand.NewSource(2))})
	require.NoError(t, err)
	require.Len(t, sup, 1)
	assert.Equal(t, weighted{answer: 1, weight: 1}, sup[0])
}

func TestBeliefUpdate(t *testing.T) {
	e := smallEngine(t)
	b := NewBelief(4)
	g, _ := e.Vocab().GuessIndex("abcde")
	b.Update(e, g, clue.AllCorrect, 5)

	// abcde matches all five symbols, abcdf four, abcgh three, zzzzz none
	z := math.Exp(5) + math.Exp(4) + math.Exp(3) + 1
	want := []float64{math.Exp(5) / z, math.Exp(4) / z, math.Exp(3) / z, 1 / z}
	assert.InDeltaSlice(t, want, b.Probs(), 1e-12)
	a, p := b.Max()
	assert.Equal(t, 0, a)
	assert.InDelta(t, want[0], p, 1e-12)
}

func TestBeliefStaysNormalized(t *testing.T) {
	e := wordEngine(t)
	b := NewBelief(len(answers))
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		g := r.Intn(e.Vocab().NumGuesses())
		b.Update(e, g, clue.Code(r.Intn(clue.NumCodes)), 1000)
		assertDistribution(t, b.Probs())
	}
}

func TestBeliefZeroEpsilon(t *testing.T) {
	e := smallEngine(t)
	b := NewBelief(4)
	b.Update(e, 1, clue.AllCorrect, 0)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, b.Probs())
}

func TestBeliefSample(t *testing.T) {
	e := smallEngine(t)
	b := NewBelief(4)
	g, _ := e.Vocab().GuessIndex("zzzzz")
	b.Update(e, g, clue.AllCorrect, 1000)
	r := rand.New(rand.NewSource(4))

	a, ok := b.Sample(r, nil)
	require.True(t, ok)
	assert.Equal(t, 3, a)

	// the rest have (numerically) no weight: draw uniformly among them
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		a, ok := b.Sample(r, func(a int) bool { return a == 3 })
		require.True(t, ok)
		seen[a] = true
	}
	assert.Equal(t, map[int]bool{0: true, 1: true, 2: true}, seen)

	_, ok = b.Sample(r, func(int) bool { return true })
	assert.False(t, ok)
}
