package table

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/benjaminjkraft/dp-wordle/internal/words"

	_ "modernc.org/sqlite"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS clue_tables (
	fingerprint TEXT PRIMARY KEY,
	guesses     INTEGER NOT NULL,
	answers     INTEGER NOT NULL,
	codes       BLOB NOT NULL,
	created_at  TEXT NOT NULL DEFAULT (datetime('now'))
)`

// SQLStore keeps tables in a SQLite database, one row per vocabulary
// fingerprint.
type SQLStore struct {
	path string
	db   *sql.DB
}

// OpenSQL opens or creates the database at path.
func OpenSQL(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(sqlSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLStore{path: path, db: db}, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

func (s *SQLStore) String() string { return "sqlite:" + s.path }

func (s *SQLStore) Load(ctx context.Context, v *words.Vocabulary) (*Table, error) {
	var guesses, answers int
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT guesses, answers, codes FROM clue_tables WHERE fingerprint = ?",
		v.Fingerprint(),
	).Scan(&guesses, &answers, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	} else if err != nil {
		return nil, fmt.Errorf("query clue table: %w", err)
	}
	return decodeBlob(blob, guesses, answers, v)
}

func (s *SQLStore) Save(ctx context.Context, t *Table) error {
	if t.fingerprint == "" {
		return fmt.Errorf("clue table has no vocabulary fingerprint")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clue_tables (fingerprint, guesses, answers, codes) VALUES (?, ?, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			guesses = excluded.guesses, answers = excluded.answers, codes = excluded.codes`,
		t.fingerprint, t.guesses, t.answers, encodeBlob(t))
	if err != nil {
		return fmt.Errorf("save clue table: %w", err)
	}
	return nil
}
