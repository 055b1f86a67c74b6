// Package words holds the guess and answer vocabularies.
package words

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
)

// Vocabulary is an immutable, index-stable pair of word lists. Every answer
// is also a legal guess.
type Vocabulary struct {
	guesses     []string
	answers     []string
	guessIndex  map[string]int
	answerIndex map[string]int
	fingerprint string
}

func indexOf(kind string, list []string) (map[string]int, error) {
	ret := make(map[string]int, len(list))
	for i, w := range list {
		if !clue.Valid(w) {
			return nil, fmt.Errorf("invalid %s word %q: must be %d lowercase letters",
				kind, w, clue.Length)
		}
		if j, ok := ret[w]; ok {
			return nil, fmt.Errorf("duplicate %s word %q at lines %d and %d", kind, w, j+1, i+1)
		}
		ret[w] = i
	}
	return ret, nil
}

// New validates and indexes the lists. The slices are copied.
func New(guesses, answers []string) (*Vocabulary, error) {
	if len(guesses) == 0 || len(answers) == 0 {
		return nil, fmt.Errorf("empty vocabulary: %d guesses, %d answers", len(guesses), len(answers))
	}
	v := &Vocabulary{
		guesses: append([]string(nil), guesses...),
		answers: append([]string(nil), answers...),
	}
	var err error
	if v.guessIndex, err = indexOf("guess", v.guesses); err != nil {
		return nil, err
	}
	if v.answerIndex, err = indexOf("answer", v.answers); err != nil {
		return nil, err
	}
	for _, a := range v.answers {
		if _, ok := v.guessIndex[a]; !ok {
			return nil, fmt.Errorf("answer %q is not in the guess list", a)
		}
	}

	h := sha256.New()
	for _, w := range v.guesses {
		h.Write([]byte(w))
	}
	h.Write([]byte{'|'})
	for _, w := range v.answers {
		h.Write([]byte(w))
	}
	v.fingerprint = hex.EncodeToString(h.Sum(nil))
	return v, nil
}

// Load reads newline-separated word lists. Blank lines are skipped and
// words are lowercased.
func Load(guessPath, answerPath string) (*Vocabulary, error) {
	guesses, err := readList(guessPath)
	if err != nil {
		return nil, err
	}
	answers, err := readList(answerPath)
	if err != nil {
		return nil, err
	}
	v, err := New(guesses, answers)
	if err != nil {
		return nil, fmt.Errorf("load %s, %s: %w", guessPath, answerPath, err)
	}
	return v, nil
}

func readList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	var ret []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" {
			continue
		}
		ret = append(ret, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ret, nil
}

// Guesses returns the guess list. Callers must not modify it.
func (v *Vocabulary) Guesses() []string { return v.guesses }

// Answers returns the answer list. Callers must not modify it.
func (v *Vocabulary) Answers() []string { return v.answers }

func (v *Vocabulary) NumGuesses() int { return len(v.guesses) }
func (v *Vocabulary) NumAnswers() int { return len(v.answers) }

func (v *Vocabulary) Guess(i int) string  { return v.guesses[i] }
func (v *Vocabulary) Answer(i int) string { return v.answers[i] }

func (v *Vocabulary) GuessIndex(w string) (int, bool) {
	i, ok := v.guessIndex[w]
	return i, ok
}

func (v *Vocabulary) AnswerIndex(w string) (int, bool) {
	i, ok := v.answerIndex[w]
	return i, ok
}

// Fingerprint identifies the exact ordered contents of both lists; caches
// are keyed by it.
func (v *Vocabulary) Fingerprint() string { return v.fingerprint }

// ShortFingerprint is a file-name friendly prefix of Fingerprint.
func (v *Vocabulary) ShortFingerprint() string { return v.fingerprint[:12] }
