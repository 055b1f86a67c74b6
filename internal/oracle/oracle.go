// Package oracle is the contract for external, non-private solvers that
// suggest guesses from noiseless-style feedback, plus a simple one.
package oracle

import (
	"fmt"
	"strings"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
)

// Oracle suggests guesses. NextGuess reports false when it has no
// suggestion; callers fall back to their own search. Observe feeds back the
// clue for a played guess as a green mask (the guess letter where correct,
// '_' elsewhere) and the yellow letters in guess order.
type Oracle interface {
	NextGuess() (string, bool)
	Observe(guess, greens, yellows string) error
}

// Greens is the correct-position mask of c: the guess letter where the
// symbol is Correct, '_' elsewhere.
func Greens(guess string, c clue.Clue) string {
	b := []byte("_____")
	for i, s := range c {
		if s == clue.Correct {
			b[i] = guess[i]
		}
	}
	return string(b)
}

// Yellows is the guess letters marked Present, in position order.
func Yellows(guess string, c clue.Clue) string {
	var b strings.Builder
	for i, s := range c {
		if s == clue.Present {
			b.WriteByte(guess[i])
		}
	}
	return b.String()
}

// fromFeedback rebuilds the clue for guess from Greens/Yellows output.
// Yellow letters are matched to non-green positions left to right.
func fromFeedback(guess, greens, yellows string) (clue.Clue, error) {
	var c clue.Clue
	if !clue.Valid(guess) {
		return c, fmt.Errorf("invalid guess %q", guess)
	}
	if len(greens) != clue.Length {
		return c, fmt.Errorf("green mask %q: want %d characters", greens, clue.Length)
	}
	var left [26]int
	for _, y := range []byte(yellows) {
		if y < 'a' || y > 'z' {
			return c, fmt.Errorf("yellow letters %q: bad letter %q", yellows, y)
		}
		left[y-'a']++
	}
	for i := 0; i < clue.Length; i++ {
		switch greens[i] {
		case '_':
			l := guess[i] - 'a'
			if left[l] > 0 {
				c[i] = clue.Present
				left[l]--
			} else {
				c[i] = clue.Absent
			}
		case guess[i]:
			c[i] = clue.Correct
		default:
			return c, fmt.Errorf("green mask %q does not match guess %q at letter %d", greens, guess, i+1)
		}
	}
	for l, n := range left {
		if n > 0 {
			return c, fmt.Errorf("yellow letter %c is not in guess %q", 'a'+l, guess)
		}
	}
	return c, nil
}
