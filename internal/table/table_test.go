package table

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminjkraft/dp-wordle/internal/clue"
	"github.com/benjaminjkraft/dp-wordle/internal/logging"
	"github.com/benjaminjkraft/dp-wordle/internal/words"
)

var (
	testGuesses = []string{
		"salet", "crane", "trace", "slate", "adieu", "roate", "sassy", "eerie",
		"speed", "abide", "erase", "kebab", "abbey", "lolly", "hello", "class",
	}
	testAnswers = []string{"trace", "crane", "abide", "erase", "hello", "class", "speed"}
)

func testVocab(t *testing.T) *words.Vocabulary {
	t.Helper()
	v, err := words.New(testGuesses, testAnswers)
	require.NoError(t, err)
	return v
}

func otherVocab(t *testing.T) *words.Vocabulary {
	t.Helper()
	v, err := words.New(testGuesses[:10], testAnswers[:3])
	require.NoError(t, err)
	return v
}

func TestBuild(t *testing.T) {
	v := testVocab(t)
	var rows atomic.Int64
	tab, err := Build(context.Background(), v, Workers(3), Progress(func(n int) { rows.Add(int64(n)) }))
	require.NoError(t, err)

	g, a := tab.Dims()
	assert.Equal(t, len(testGuesses), g)
	assert.Equal(t, len(testAnswers), a)
	assert.Equal(t, int64(len(testGuesses)), rows.Load())
	assert.Equal(t, v.Fingerprint(), tab.Fingerprint())
	for gi, guess := range testGuesses {
		for ai, answer := range testAnswers {
			require.Equal(t, clue.Encode(guess, answer), tab.At(gi, ai))
		}
		assert.Len(t, tab.Row(gi), len(testAnswers))
	}
	require.NoError(t, tab.Check(v))
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, testVocab(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckMismatch(t *testing.T) {
	tab, err := Build(context.Background(), testVocab(t))
	require.NoError(t, err)
	var shapeErr *ShapeError
	require.ErrorAs(t, tab.Check(otherVocab(t)), &shapeErr)
	assert.Equal(t, len(testGuesses), shapeErr.Guesses)
	assert.Equal(t, 10, shapeErr.WantGuesses)
}

func TestFromCodes(t *testing.T) {
	_, err := FromCodes(2, 2, "", []clue.Code{0, 1, 2})
	assert.Error(t, err)
	_, err = FromCodes(1, 2, "", []clue.Code{0, 243})
	assert.ErrorContains(t, err, "out of range")
	tab, err := FromCodes(1, 2, "", []clue.Code{0, 242})
	require.NoError(t, err)
	assert.Equal(t, clue.Code(242), tab.At(0, 1))
}

// each store must hand back exactly what a fresh build produces
func testStoreRoundTrip(t *testing.T, s Store) {
	ctx := context.Background()
	v := testVocab(t)

	_, err := s.Load(ctx, v)
	require.ErrorIs(t, err, ErrNotCached)

	built, err := Build(ctx, v)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, built))

	loaded, err := s.Load(ctx, v)
	require.NoError(t, err)
	if diff := cmp.Diff(built.Codes(), loaded.Codes()); diff != "" {
		t.Errorf("cached table differs from rebuilt table (-built +loaded):\n%s", diff)
	}
	assert.True(t, built.Equal(loaded))
	assert.Equal(t, v.Fingerprint(), loaded.Fingerprint())
}

func TestFileStore(t *testing.T) {
	s := &FileStore{Path: filepath.Join(t.TempDir(), "cache", "cwa.txt")}
	testStoreRoundTrip(t, s)

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	assert.Equal(t, len(testGuesses), lines)
	assert.Equal(t, "file:"+s.Path, s.String())
}

func TestFileStoreShapeMismatch(t *testing.T) {
	ctx := context.Background()
	s := &FileStore{Path: filepath.Join(t.TempDir(), "cwa.txt")}
	built, err := Build(ctx, testVocab(t))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, built))

	_, err = s.Load(ctx, otherVocab(t))
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Contains(t, err.Error(), "columns")
}

func TestFileStoreOtherVocabularySameShape(t *testing.T) {
	ctx := context.Background()
	v1, err := words.New([]string{"salet", "crane", "trace"}, []string{"salet", "crane"})
	require.NoError(t, err)
	v2, err := words.New([]string{"hello", "class", "speed"}, []string{"hello", "class"})
	require.NoError(t, err)

	s := &FileStore{Path: filepath.Join(t.TempDir(), "cwa.txt")}
	built, err := Build(ctx, v1)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, built))

	got, err := s.Load(ctx, v1)
	require.NoError(t, err)
	assert.True(t, got.Equal(built))

	_, err = s.Load(ctx, v2)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "vocabulary fingerprint differs", shapeErr.Detail)

	// without the recorded fingerprint the entries themselves give it away
	require.NoError(t, os.Remove(s.Path+".fingerprint"))
	_, err = s.Load(ctx, v2)
	require.ErrorAs(t, err, &shapeErr)
	assert.Contains(t, shapeErr.Detail, "does not match the vocabulary")

	got, err = s.Load(ctx, v1)
	require.NoError(t, err)
	assert.True(t, got.Equal(built))
	require.NoError(t, got.Check(v1))
}

func TestFileStoreTooManyRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cwa.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 1 2\n3 4 5\n6 7 8\n"), 0o644))
	v, err := words.New([]string{"crane", "trace"}, []string{"crane", "trace"})
	require.NoError(t, err)

	_, err = (&FileStore{Path: path}).Load(ctx, v)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)

	require.NoError(t, os.WriteFile(path, []byte("0 1\n3 4\n6 7\n"), 0o644))
	_, err = (&FileStore{Path: path}).Load(ctx, v)
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 3, shapeErr.Guesses)
	assert.Equal(t, 2, shapeErr.WantGuesses)
}

func TestFileStoreBadCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cwa.txt")
	require.NoError(t, os.WriteFile(path, []byte("0 999\n1 2\n"), 0o644))
	v, err := words.New([]string{"crane", "trace"}, []string{"crane", "trace"})
	require.NoError(t, err)
	_, err = (&FileStore{Path: path}).Load(context.Background(), v)
	assert.ErrorContains(t, err, "bad clue code")
}

func TestSQLStore(t *testing.T) {
	s, err := OpenSQL(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	testStoreRoundTrip(t, s)

	// a different vocabulary is simply not cached
	_, err = s.Load(context.Background(), otherVocab(t))
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(&redis.Options{Addr: mr.Addr()}, "")
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Ping(context.Background()))
	testStoreRoundTrip(t, s)

	v := testVocab(t)
	assert.True(t, mr.Exists("dpwordle:cwa:"+v.Fingerprint()))

	// a corrupted entry must fail loudly rather than be truncated
	mr.HSet("dpwordle:cwa:"+v.Fingerprint(), "answers", "3")
	_, err := s.Load(context.Background(), v)
	var shapeErr *ShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

type countingStore struct {
	Store
	loads, saves int
}

func (c *countingStore) Load(ctx context.Context, v *words.Vocabulary) (*Table, error) {
	c.loads++
	return c.Store.Load(ctx, v)
}

func (c *countingStore) Save(ctx context.Context, t *Table) error {
	c.saves++
	return c.Store.Save(ctx, t)
}

func TestLoadOrBuild(t *testing.T) {
	ctx := context.Background()
	v := testVocab(t)
	s := &countingStore{Store: &FileStore{Path: filepath.Join(t.TempDir(), "cwa.txt")}}
	log := logging.Discard()

	var progressed atomic.Int64
	first, err := LoadOrBuild(ctx, s, v, log, Progress(func(n int) { progressed.Add(int64(n)) }))
	require.NoError(t, err)
	assert.Equal(t, 1, s.saves)
	assert.Equal(t, int64(len(testGuesses)), progressed.Load())

	second, err := LoadOrBuild(ctx, s, v, log)
	require.NoError(t, err)
	assert.Equal(t, 1, s.saves)
	assert.Equal(t, 2, s.loads)
	assert.True(t, first.Equal(second))

	// wrong shape is fatal, not rebuilt
	_, err = LoadOrBuild(ctx, s, otherVocab(t), log)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 1, s.saves)

	// no store: just build
	tab, err := LoadOrBuild(ctx, nil, v, log)
	require.NoError(t, err)
	assert.True(t, tab.Equal(first))
}

type failingStore struct{ *FileStore }

func (failingStore) Load(context.Context, *words.Vocabulary) (*Table, error) {
	return nil, errors.New("disk on fire")
}

func TestLoadOrBuildStoreError(t *testing.T) {
	_, err := LoadOrBuild(context.Background(), failingStore{&FileStore{}}, testVocab(t), logging.Discard())
	assert.ErrorContains(t, err, "disk on fire")
}
