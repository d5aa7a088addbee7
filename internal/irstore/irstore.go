// Package irstore keeps a SQLite catalog of captured impulse response files.
//
// The WAV file remains the persisted IR; the catalog only records where it
// lives and how it was captured.
package irstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver registration
)

// Errors returned by the catalog.
var (
	ErrNotFound  = errors.New("irstore: entry not found")
	ErrEmptyName = errors.New("irstore: name must not be empty")
)

// Entry describes one captured IR.
type Entry struct {
	ID             int64
	Name           string
	Path           string
	SampleRate     int
	Length         int
	MinimumPhase   bool
	StartFreq      float64
	EndFreq        float64
	SweepDuration  float64
	Regularization float64
	RT60           float64
	CreatedAt      time.Time
}

// Store is a catalog backed by a SQLite database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS impulse_responses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    path TEXT NOT NULL,
    sample_rate INTEGER NOT NULL,
    length INTEGER NOT NULL,
    minimum_phase INTEGER NOT NULL DEFAULT 0,
    start_freq REAL,
    end_freq REAL,
    sweep_duration REAL,
    regularization REAL,
    rt60 REAL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_impulse_responses_created ON impulse_responses(created_at);
`

const columns = `id, name, path, sample_rate, length, minimum_phase, start_freq, end_freq,
    sweep_duration, regularization, rt60, created_at`

// Open opens or creates the catalog at dsn, creating the parent directory
// of a file path when needed.
func Open(dsn string) (*Store, error) {
	path := dsn
	if idx := strings.Index(dsn, "?"); idx != -1 {
		path = dsn[:idx]
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" && !strings.HasPrefix(path, ":memory:") {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("irstore: create directory %s: %w", dir, err)
		}
	}

	if !strings.Contains(dsn, "_busy_timeout") {
		if strings.Contains(dsn, "?") {
			dsn += "&_busy_timeout=5000"
		} else {
			dsn += "?_busy_timeout=5000"
		}
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("irstore: open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("irstore: create tables in %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

// Add inserts e and returns its ID. A zero CreatedAt is set to now.
func (s *Store) Add(ctx context.Context, e Entry) (int64, error) {
	if strings.TrimSpace(e.Name) == "" {
		return 0, ErrEmptyName
	}

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
        INSERT INTO impulse_responses (name, path, sample_rate, length, minimum_phase,
            start_freq, end_freq, sweep_duration, regularization, rt60, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.Path, e.SampleRate, e.Length, e.MinimumPhase,
		e.StartFreq, e.EndFreq, e.SweepDuration, e.Regularization, e.RT60,
		e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("irstore: insert %q: %w", e.Name, err)
	}

	return res.LastInsertId()
}

// Get returns the entry with the given ID.
func (s *Store) Get(ctx context.Context, id int64) (Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM impulse_responses WHERE id = ?", id)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	return e, err
}

// GetByName returns the entry with the given name.
func (s *Store) GetByName(ctx context.Context, name string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+columns+" FROM impulse_responses WHERE name = ?", name)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	return e, err
}

// List returns all entries, oldest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+columns+" FROM impulse_responses ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("irstore: list: %w", err)
	}
	defer rows.Close()

	var out []Entry

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, e)
	}

	return out, rows.Err()
}

// Delete removes the entry with the given ID. The WAV file is left alone.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM impulse_responses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("irstore: delete %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("irstore: delete %d: %w", id, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var (
		e       Entry
		created int64
		startF  sql.NullFloat64
		endF    sql.NullFloat64
		dur     sql.NullFloat64
		lambda  sql.NullFloat64
		rt60    sql.NullFloat64
	)

	err := sc.Scan(&e.ID, &e.Name, &e.Path, &e.SampleRate, &e.Length, &e.MinimumPhase,
		&startF, &endF, &dur, &lambda, &rt60, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, err
	}

	if err != nil {
		return Entry{}, fmt.Errorf("irstore: scan: %w", err)
	}

	e.StartFreq = startF.Float64
	e.EndFreq = endF.Float64
	e.SweepDuration = dur.Float64
	e.Regularization = lambda.Float64
	e.RT60 = rt60.Float64
	e.CreatedAt = time.UnixMilli(created)

	return e, nil
}
