// Package history persists completed runs and their mappings in SQLite so a
// mapping can be exported after the process that produced it has exited.
package history

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"mangle/internal/core/errors"
	"mangle/internal/engine/mapping"
	"mangle/internal/engine/model"

	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	// busy_timeout + WAL reduce lock conflicts when watch-mode runs overlap an export.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string { return s.path }

// SaveRun stores the run and its entries in one transaction.
func (s *Store) SaveRun(run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("run id must not be empty")
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}

	return s.withRetry("save run", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		if err := insertRun(tx, run); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

func insertRun(tx *sql.Tx, run Run) error {
	_, err := tx.Exec(`
INSERT INTO runs (
  id, ts_utc, seed, input_path, output_path, duration_ms,
  class_count, renamed_count, relocated_count, shuffled_count, reference_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Timestamp.UTC().Format(timestampLayout),
		strconv.FormatUint(run.Seed, 10),
		run.Input,
		run.Output,
		run.Duration.Milliseconds(),
		run.Classes,
		run.Renamed,
		run.Relocated,
		run.Shuffled,
		run.References,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO mappings (run_id, position, kind, owner, name, descriptor, new_name, new_owner)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range run.Entries {
		if _, err := stmt.Exec(run.ID, i, int(e.Kind), e.Owner, e.Name, e.Desc, e.NewName, e.NewOwner); err != nil {
			return err
		}
	}
	return nil
}

// LoadRun returns the run with id, entries included. A missing run is a
// NOT_FOUND domain error.
func (s *Store) LoadRun(id string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(runSelect+" WHERE id = ?", strings.TrimSpace(id))
	run, err := scanRun(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Run{}, errors.AddContext(errors.New(errors.CodeNotFound, "run not found"), "run", id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("load run %s: %w", id, err)
	}
	entries, err := s.loadEntries(run.ID)
	if err != nil {
		return Run{}, err
	}
	run.Entries = entries
	return run, nil
}

// LatestRun returns the most recent run, entries included.
func (s *Store) LatestRun() (Run, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, errors.New(errors.CodeNotFound, "no runs recorded")
	}
	return s.LoadRun(runs[0].ID)
}

// ListRuns returns run headers, newest first. limit <= 0 means all.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := runSelect + " ORDER BY ts_utc DESC, id ASC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("list runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

// FindSymbol returns the entries of every run that mapped owner.name, newest
// run first. An empty name matches the class itself.
func (s *Store) FindSymbol(owner, name string) ([]RunEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		name = owner
	}
	var rows *sql.Rows
	err := s.withRetry("find symbol", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT m.run_id, m.kind, m.owner, m.name, m.descriptor, m.new_name, m.new_owner
FROM mappings m JOIN runs r ON r.id = m.run_id
WHERE m.owner = ? AND m.name = ?
ORDER BY r.ts_utc DESC, m.position ASC`, owner, name)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunEntry
	for rows.Next() {
		var re RunEntry
		var kind int
		if err := rows.Scan(&re.RunID, &kind, &re.Owner, &re.Name, &re.Desc, &re.NewName, &re.NewOwner); err != nil {
			return nil, fmt.Errorf("scan mapping row: %w", err)
		}
		re.Kind = model.SymbolKind(kind)
		out = append(out, re)
	}
	return out, rows.Err()
}

// RunEntry is a mapping entry tagged with the run that produced it.
type RunEntry struct {
	RunID string
	mapping.Entry
}

func (s *Store) loadEntries(runID string) ([]mapping.Entry, error) {
	var rows *sql.Rows
	err := s.withRetry("load mappings", func() error {
		var qErr error
		rows, qErr = s.db.Query(`
SELECT kind, owner, name, descriptor, new_name, new_owner
FROM mappings WHERE run_id = ? ORDER BY position ASC`, runID)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]mapping.Entry, 0)
	for rows.Next() {
		var e mapping.Entry
		var kind int
		if err := rows.Scan(&kind, &e.Owner, &e.Name, &e.Desc, &e.NewName, &e.NewOwner); err != nil {
			return nil, fmt.Errorf("scan mapping row: %w", err)
		}
		e.Kind = model.SymbolKind(kind)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mapping rows: %w", err)
	}
	return entries, nil
}

// timestampLayout keeps a fixed-width fraction so ts_utc sorts as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runSelect = `
SELECT id, ts_utc, seed, input_path, output_path, duration_ms,
  class_count, renamed_count, relocated_count, shuffled_count, reference_count
FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run        Run
		tsRaw      string
		seedRaw    string
		durationMS int64
	)
	if err := row.Scan(
		&run.ID,
		&tsRaw,
		&seedRaw,
		&run.Input,
		&run.Output,
		&durationMS,
		&run.Classes,
		&run.Renamed,
		&run.Relocated,
		&run.Shuffled,
		&run.References,
	); err != nil {
		return Run{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Run{}, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
	}
	seed, err := strconv.ParseUint(seedRaw, 10, 64)
	if err != nil {
		return Run{}, fmt.Errorf("parse run seed %q: %w", seedRaw, err)
	}
	run.Timestamp = ts.UTC()
	run.Seed = seed
	run.Duration = time.Duration(durationMS) * time.Millisecond
	return run, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
