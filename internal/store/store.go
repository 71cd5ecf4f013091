// Package store handles SQLite persistence of keystroke traces.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/verte-zerg/typo/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store wraps SQLite access for trace data.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			text TEXT NOT NULL,
			mode TEXT NOT NULL,
			completed INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			run_id INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			offset_us INTEGER NOT NULL,
			key TEXT NOT NULL,
			char TEXT NOT NULL,
			transition TEXT NOT NULL,
			cursor_from INTEGER NOT NULL,
			cursor_to INTEGER NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateRun registers a new run and returns its id.
func (s *Store) CreateRun(ctx context.Context, startedAt time.Time, text, mode string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, text, mode) VALUES (?, ?, ?)`,
		startedAt.Format(time.RFC3339Nano), text, mode)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AppendEvent stores one keystroke event.
func (s *Store) AppendEvent(ctx context.Context, ev model.TraceEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, seq, offset_us, key, char, transition, cursor_from, cursor_to)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		ev.Seq,
		ev.Offset.Microseconds(),
		ev.Key,
		ev.Char,
		ev.Transition,
		ev.From,
		ev.To,
	)
	return err
}

// FinishRun marks whether a run reached the end of its phrase.
func (s *Store) FinishRun(ctx context.Context, runID int64, completed bool) error {
	flag := 0
	if completed {
		flag = 1
	}
	res, err := s.db.ExecContext(ctx, `UPDATE runs SET completed = ? WHERE id = ?`, flag, runID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `r.id, r.started_at, r.text, r.mode, r.completed,
	(SELECT COUNT(*) FROM events e WHERE e.run_id = r.id)`

// ListRuns returns every run ordered by start time.
func (s *Store) ListRuns(ctx context.Context) ([]model.TraceRun, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.started_at ASC, r.id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.TraceRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns one run. A zero id selects the most recent run.
func (s *Store) GetRun(ctx context.Context, runID int64) (model.TraceRun, error) {
	query := `SELECT ` + runColumns + ` FROM runs r WHERE r.id = ?`
	args := []any{runID}
	if runID == 0 {
		query = `SELECT ` + runColumns + ` FROM runs r ORDER BY r.started_at DESC, r.id DESC LIMIT 1`
		args = nil
	}
	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if runID == 0 {
			return model.TraceRun{}, fmt.Errorf("%w: trace is empty", ErrRunNotFound)
		}
		return model.TraceRun{}, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (model.TraceRun, error) {
	var run model.TraceRun
	var startedAt string
	var completed int
	if err := row.Scan(&run.ID, &startedAt, &run.Text, &run.Mode, &completed, &run.Events); err != nil {
		return model.TraceRun{}, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return model.TraceRun{}, err
	}
	run.StartedAt = parsed
	run.Completed = completed != 0
	return run, nil
}

// ListEvents returns the events of a run in delivery order.
func (s *Store) ListEvents(ctx context.Context, runID int64) ([]model.TraceEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, offset_us, key, char, transition, cursor_from, cursor_to
		 FROM events WHERE run_id = ? ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var events []model.TraceEvent
	for rows.Next() {
		var ev model.TraceEvent
		var offsetUs int64
		if err := rows.Scan(&ev.RunID, &ev.Seq, &offsetUs, &ev.Key, &ev.Char, &ev.Transition, &ev.From, &ev.To); err != nil {
			return nil, err
		}
		ev.Offset = time.Duration(offsetUs) * time.Microsecond
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
