package oracle

import (
	"fmt"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
)

const letters = 26

// knowledge is what hard mode lets a player rely on after some clues.
type knowledge struct {
	// high 5 bits: (letter that was green)+1, or 0 if none
	// low 26 bits: bitmask of letters that were yellow/gray
	clues [clue.Length]uint32
	// low 7 bits: max times yellow/green
	// high bit: 1 if exact (i.e. also had gray on that guess)
	counts [letters]uint8
}

func (k *knowledge) record(word string, c clue.Clue) {
	var hits, grays [letters]uint8
	for j := 0; j < clue.Length; j++ {
		i := word[j] - 'a'
		switch c[j] {
		case clue.Correct:
			k.clues[j] &^= 0x1f << (32 - clue.Length)
			k.clues[j] |= uint32(i+1) << (32 - clue.Length)
			hits[i]++
		case clue.Present:
			k.clues[j] |= 1 << i
			hits[i]++
		default:
			k.clues[j] |= 1 << i
			grays[i]++
		}
	}
	for i := range hits {
		switch {
		case grays[i] > 0:
			k.counts[i] = 0x80 | hits[i]
		case k.counts[i]&0x80 == 0 && hits[i] > k.counts[i]:
			k.counts[i] = hits[i]
		}
	}
}

func (k *knowledge) problemInfo(word string) (bool, string, byte, int) {
	var counts [letters]uint8
	for _, c := range []byte(word) {
		counts[c-'a']++
	}
	for i, n := range k.counts {
		want := n & 0x7f
		c := byte(i + 'a')
		if n&0x80 == 0x80 {
			// if prev guess has m copies of a letter, and k < m are
			// yellow/green, must use that letter exactly k times
			if counts[i] != want {
				if want == 0 {
					return false, "can't use %c", c, -1
				}
				return false, "need to use %c exactly %d times", c, int(want)
			}
		} else if counts[i] < want {
			// if prev guess has m copies of a letter, and all are
			// yellow/green, must use that letter at least m times
			return false, "need to use %c at least %d times", c, int(want)
		}
	}

	for j, c := range []byte(word) {
		i := c - 'a'
		cl := k.clues[j]
		// if prev guess has green in a spot, must use that letter in that spot
		green := cl >> (32 - clue.Length)
		if green != 0 && i != byte(green-1) {
			return false, "need %c as letter %d", 'a' + byte(green-1), j + 1
		}
		// if prev guess has yellow or gray in a spot, must NOT use that letter
		// in that spot
		if green == 0 && cl&(1<<i) != 0 {
			return false, "can't use %c as letter %d", c, j + 1
		}
	}
	return true, "", 0, 0
}

func (k *knowledge) problem(word string) error {
	ok, str, b, n := k.problemInfo(word)
	switch {
	case ok:
		return nil
	case n == -1:
		return fmt.Errorf(str, b)
	default:
		return fmt.Errorf(str, b, n)
	}
}

func (k *knowledge) allows(word string) bool {
	ok, _, _, _ := k.problemInfo(word)
	return ok
}

// Consistent is a non-private oracle: it takes every clue it is told at
// face value and suggests the first candidate, in list order, that is
// still a legal hard-mode guess and has not been played. Contradictory
// clues, as noise produces, quickly leave it with no suggestion.
type Consistent struct {
	candidates []string
	opener     string
	known      knowledge
	played     map[string]bool
	observed   int
}

// NewConsistent suggests from candidates. If opener is non-empty it is the
// first suggestion regardless of the list.
func NewConsistent(candidates []string, opener string) *Consistent {
	return &Consistent{
		candidates: candidates,
		opener:     opener,
		played:     map[string]bool{},
	}
}

func (o *Consistent) NextGuess() (string, bool) {
	if o.observed == 0 && o.opener != "" && !o.played[o.opener] {
		return o.opener, true
	}
	for _, w := range o.candidates {
		if !o.played[w] && o.known.allows(w) {
			return w, true
		}
	}
	return "", false
}

func (o *Consistent) Observe(guess, greens, yellows string) error {
	c, err := fromFeedback(guess, greens, yellows)
	if err != nil {
		return err
	}
	o.known.record(guess, c)
	o.played[guess] = true
	o.observed++
	return nil
}

// Problem explains why word is not a legal hard-mode guess given what has
// been observed, or returns nil.
func (o *Consistent) Problem(word string) error {
	if !clue.Valid(word) {
		return fmt.Errorf("invalid word %q", word)
	}
	return o.known.problem(word)
}

// Remaining counts the candidates still consistent with every observation.
func (o *Consistent) Remaining() int {
	n := 0
	for _, w := range o.candidates {
		if o.known.allows(w) {
			n++
		}
	}
	return n
}
