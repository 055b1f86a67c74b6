package table

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/words"
)

// Store persists clue tables keyed by vocabulary.
//
// Load returns ErrNotCached if there is nothing stored for v, and a
// *ShapeError if what is stored does not have v's dimensions.
type Store interface {
	Load(ctx context.Context, v *words.Vocabulary) (*Table, error)
	Save(ctx context.Context, t *Table) error
	String() string
}

// FileStore keeps one table in a text file: one line per guess in
// vocabulary order, each holding one space-separated code per answer. The
// vocabulary fingerprint is kept beside it in Path+".fingerprint"; a table
// without one is spot-checked against the vocabulary on load.
type FileStore struct {
	Path string
}

// DefaultPath names the cache file for v inside dir.
func DefaultPath(dir string, v *words.Vocabulary) string {
	return filepath.Join(dir, "cwa-"+v.ShortFingerprint()+".txt")
}

func (s *FileStore) String() string { return "file:" + s.Path }

func (s *FileStore) Load(ctx context.Context, v *words.Vocabulary) (*Table, error) {
	f, err := os.Open(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotCached
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := readText(ctx, f, v.NumGuesses(), v.NumAnswers())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	fp, err := os.ReadFile(s.fingerprintPath())
	switch {
	case err == nil:
		if got := strings.TrimSpace(string(fp)); got != v.Fingerprint() {
			return nil, fmt.Errorf("%s: %w", s.Path, &ShapeError{
				Guesses: t.guesses, Answers: t.answers,
				WantGuesses: v.NumGuesses(), WantAnswers: v.NumAnswers(),
				Detail: "vocabulary fingerprint differs"})
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := spotCheck(t, v); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Path, err)
		}
	default:
		return nil, err
	}
	t.fingerprint = v.Fingerprint()
	return t, nil
}

// fingerprintPath names the file next to the table holding the fingerprint
// of the vocabulary it was built for.
func (s *FileStore) fingerprintPath() string { return s.Path + ".fingerprint" }

// spotCheckRows is how many rows of a table with no recorded fingerprint
// are recomputed before it is trusted.
const spotCheckRows = 16

// spotCheck recomputes a spread of rows of t for v.
func spotCheck(t *Table, v *words.Vocabulary) error {
	step := max(1, t.guesses/spotCheckRows)
	for g := 0; g < t.guesses; g += step {
		guess := v.Guess(g)
		for a, c := range t.Row(g) {
			if clue.Encode(guess, v.Answer(a)) != c {
				return &ShapeError{Guesses: t.guesses, Answers: t.answers,
					WantGuesses: v.NumGuesses(), WantAnswers: v.NumAnswers(),
					Detail: fmt.Sprintf("entry %q/%q does not match the vocabulary", guess, v.Answer(a))}
			}
		}
	}
	return nil
}

func readText(ctx context.Context, r io.Reader, guesses, answers int) (*Table, error) {
	codes := make([]clue.Code, 0, guesses*answers)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	rows := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if rows%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rows++
		if rows > guesses {
			// keep counting so the error reports the real size
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != answers {
			return nil, &ShapeError{Guesses: guesses, Answers: len(fields),
				WantGuesses: guesses, WantAnswers: answers,
				Detail: fmt.Sprintf("row %d has %d columns", rows, len(fields))}
		}
		for j, field := range fields {
			n, err := strconv.ParseUint(field, 10, 8)
			if err != nil || n >= clue.NumCodes {
				return nil, fmt.Errorf("row %d column %d: bad clue code %q", rows, j+1, field)
			}
			codes = append(codes, clue.Code(n))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if rows != guesses {
		return nil, &ShapeError{Guesses: rows, Answers: answers,
			WantGuesses: guesses, WantAnswers: answers}
	}
	return &Table{guesses: guesses, answers: answers, codes: codes}, nil
}

func (s *FileStore) Save(ctx context.Context, t *Table) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := writeText(ctx, tmp, t); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return err
	}
	if t.fingerprint == "" {
		if err := os.Remove(s.fingerprintPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.WriteFile(s.fingerprintPath(), []byte(t.fingerprint+"\n"), 0o644)
}

func writeText(ctx context.Context, w io.Writer, t *Table) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, t.answers*4)
	for g := 0; g < t.guesses; g++ {
		if g%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		buf = buf[:0]
		for a, c := range t.Row(g) {
			if a > 0 {
				buf = append(buf, ' ')
			}
			buf = strconv.AppendUint(buf, uint64(c), 10)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// encodeBlob and decodeBlob are the compact form used by the database
// stores: one byte per code, row-major.
func encodeBlob(t *Table) []byte {
	b := make([]byte, len(t.codes))
	for i, c := range t.codes {
		b[i] = byte(c)
	}
	return b
}

func decodeBlob(b []byte, guesses, answers int, v *words.Vocabulary) (*Table, error) {
	if guesses != v.NumGuesses() || answers != v.NumAnswers() {
		return nil, &ShapeError{Guesses: guesses, Answers: answers,
			WantGuesses: v.NumGuesses(), WantAnswers: v.NumAnswers()}
	}
	codes := make([]clue.Code, len(b))
	for i, c := range b {
		codes[i] = clue.Code(c)
	}
	if len(codes) != guesses*answers {
		return nil, &ShapeError{Guesses: guesses, Answers: answers,
			WantGuesses: v.NumGuesses(), WantAnswers: v.NumAnswers(),
			Detail: fmt.Sprintf("%d codes stored", len(codes))}
	}
	return FromCodes(guesses, answers, v.Fingerprint(), codes)
}
