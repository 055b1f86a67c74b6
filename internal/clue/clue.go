// Package clue computes Wordle clues and their compact base-3 codes.
package clue

import (
	"fmt"
	"strings"
)

const (
	Length  = 5
	letters = 26

	// NumCodes is 3^Length.
	NumCodes = 243
)

type Symbol uint8

const (
	Correct Symbol = iota
	Present
	Absent
)

func (s Symbol) Byte() byte {
	switch s {
	case Correct:
		return 'c'
	case Present:
		return 'i'
	case Absent:
		return '.'
	}
	return '?'
}

// Clue is per-position feedback; Code is its base-3 encoding, position i
// contributing symbol*3^i, so the all-correct clue is 0.
type (
	Clue [Length]Symbol
	Code uint8
)

var pow3 = [Length + 1]int{1, 3, 9, 27, 81, 243}

// AllCorrect is the winning code.
const AllCorrect Code = 0

func (c Clue) Code() Code {
	n := 0
	for i, s := range c {
		n += int(s) * pow3[i]
	}
	return Code(n)
}

func (c Code) Clue() Clue {
	var ret Clue
	n := int(c)
	for i := range ret {
		ret[i] = Symbol(n % 3)
		n /= 3
	}
	return ret
}

// Symbol returns the symbol at position i without decoding the whole clue.
func (c Code) Symbol(i int) Symbol {
	return Symbol(int(c) / pow3[i] % 3)
}

func (c Clue) String() string {
	b := make([]byte, Length)
	for i, s := range c {
		b[i] = s.Byte()
	}
	return string(b)
}

func (c Code) String() string {
	return c.Clue().String()
}

// Parse reads a clue in the harness alphabet (c, i, .) or the Wordle
// colour alphabet (G, Y, B).
func Parse(s string) (Clue, error) {
	var ret Clue
	if len(s) != Length {
		return ret, fmt.Errorf("invalid clue %q: want %d symbols", s, Length)
	}
	for i := 0; i < Length; i++ {
		switch s[i] {
		case 'c', 'G', 'g':
			ret[i] = Correct
		case 'i', 'Y', 'y':
			ret[i] = Present
		case '.', 'B', 'b', '_', ' ':
			ret[i] = Absent
		default:
			return ret, fmt.Errorf("invalid clue %q: bad symbol %q at position %d",
				s, s[i], i+1)
		}
	}
	return ret, nil
}

// low 5 bits: bitmask of where the letter is
// high 3 bits: int3 of how many there are
type (
	charIndex uint8
	index     [letters]charIndex
)

func newIndex(word string) index {
	var ret index
	for i, c := range []byte(word) {
		ret[c-'a'] |= 1 << i
		ret[c-'a'] += 1 << Length
	}
	return ret
}

func (ci charIndex) count() uint8 {
	return uint8(ci >> Length)
}

func (ci charIndex) at(i int) bool {
	return ci&(1<<i) != 0
}

// Valid reports whether word is a Length-letter lowercase ascii word.
func Valid(word string) bool {
	if len(word) != Length {
		return false
	}
	for _, c := range []byte(word) {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// Compute returns the noiseless clue for guess against answer.
//
// Repeated letters: exact matches are correct; of the remaining occurrences
// in the guess, the first (count in answer - exact matches), left to right,
// are present and the rest absent.
func Compute(guess, answer string) Clue {
	if !Valid(guess) || !Valid(answer) {
		panic(fmt.Sprintf("invalid clue input: %q vs %q", guess, answer))
	}

	var result Clue
	guessIndex := newIndex(guess)
	answerIndex := newIndex(answer)
	for i, charIndex := range guessIndex {
		answerCharIndex := answerIndex[i]
		switch {
		case charIndex == 0:
			// letter not guessed
			continue
		case answerCharIndex == 0:
			// letter not in answer: all absent
			for j := 0; j < Length; j++ {
				if charIndex.at(j) {
					result[j] = Absent
				}
			}
		case charIndex.count() <= answerCharIndex.count():
			// guessed at most the right number: all correct/present
			for j := 0; j < Length; j++ {
				if charIndex.at(j) {
					if answerCharIndex.at(j) {
						result[j] = Correct
					} else {
						result[j] = Present
					}
				}
			}
		default:
			// guessed too many: correct positions first, then the first n
			// are present to make up the count, rest are absent.
			need := answerCharIndex.count()
			for j := 0; j < Length; j++ {
				if charIndex.at(j) && answerCharIndex.at(j) {
					result[j] = Correct
					need--
				}
			}
			for j := 0; j < Length; j++ {
				if charIndex.at(j) && !answerCharIndex.at(j) {
					if need > 0 {
						result[j] = Present
						need--
					} else {
						result[j] = Absent
					}
				}
			}
		}
	}
	return result
}

func Encode(guess, answer string) Code {
	return Compute(guess, answer).Code()
}

// Distance counts the positions at which a and b differ.
func Distance(a, b Code) int {
	d := 0
	x, y := int(a), int(b)
	for i := 0; i < Length; i++ {
		if x%3 != y%3 {
			d++
		}
		x /= 3
		y /= 3
	}
	return d
}

// Distances is the all-pairs Distance table.
type Distances [NumCodes][NumCodes]uint8

func BuildDistances() *Distances {
	var d Distances
	for a := 0; a < NumCodes; a++ {
		for b := a; b < NumCodes; b++ {
			n := uint8(Distance(Code(a), Code(b)))
			d[a][b] = n
			d[b][a] = n
		}
	}
	return &d
}

func (d *Distances) At(a, b Code) int {
	return int(d[a][b])
}

// Matches counts positions where the symbol in c equals the one in want.
func (d *Distances) Matches(c, want Code) int {
	return Length - int(d[c][want])
}

// Pretty renders a guess with its clue, e.g. "[s]al(e)t": [x] correct,
// (x) present.
func Pretty(guess string, c Clue) string {
	var b strings.Builder
	for i := 0; i < len(guess) && i < Length; i++ {
		switch c[i] {
		case Correct:
			b.WriteByte('[')
			b.WriteByte(guess[i])
			b.WriteByte(']')
		case Present:
			b.WriteByte('(')
			b.WriteByte(guess[i])
			b.WriteByte(')')
		default:
			b.WriteByte(guess[i])
		}
	}
	return b.String()
}
