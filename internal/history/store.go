package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	// Register the pure-Go SQLite driver (no CGO required).
	_ "modernc.org/sqlite"

	"github.com/giantswarm/duolaunch/internal/fileutil"
)

// Session outcomes stored in Entry.Outcome.
const (
	OutcomeCompleted   = "completed"   // foreground exited on its own
	OutcomeInterrupted = "interrupted" // launcher was signaled
	OutcomeFailed      = "failed"      // startup or runtime failure
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at_ms        INTEGER NOT NULL,
	ended_at_ms          INTEGER NOT NULL,
	service              TEXT    NOT NULL,
	foreground           TEXT    NOT NULL,
	outcome              TEXT    NOT NULL,
	foreground_exit_code INTEGER NOT NULL,
	exit_code            INTEGER NOT NULL,
	forced_stops         INTEGER NOT NULL DEFAULT 0,
	error                TEXT    NOT NULL DEFAULT ''
)`

// Entry is one recorded session.
type Entry struct {
	ID         int64
	StartedAt  time.Time
	EndedAt    time.Time
	Service    string
	Foreground string
	Outcome    string

	// ForegroundExitCode is the foreground's own exit code, -1 if unknown.
	ForegroundExitCode int
	// ExitCode is what the launcher itself exited with.
	ExitCode int
	// ForcedStops counts processes that shutdown had to kill.
	ForcedStops int
	// Error is the failure message, empty on success.
	Error string
}

// Duration returns how long the session ran.
func (e Entry) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// Store is an open session history database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := fileutil.EnsureDirForFile(path); err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	db, err := sql.Open("sqlite", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Single connection; the launcher writes one row per session.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema in %s: %w", path, err)
	}

	logger.Debug("history opened", "path", path)
	return &Store{db: db, log: logger}, nil
}

// dataSourceName builds the SQLite URI for path. The path is percent-encoded
// so '?', '#' and '%' in a file name are not read as URI syntax. WAL with a
// busy timeout tolerates a concurrent `duolaunch history` reader while a
// session writes.
func dataSourceName(path string) string {
	escaped := (&url.URL{Path: filepath.ToSlash(path)}).EscapedPath()
	return "file:" + escaped + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Record appends e and returns its id. e.ID is ignored.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (
			started_at_ms, ended_at_ms, service, foreground, outcome,
			foreground_exit_code, exit_code, forced_stops, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.StartedAt.UnixMilli(), e.EndedAt.UnixMilli(), e.Service, e.Foreground, e.Outcome,
		e.ForegroundExitCode, e.ExitCode, e.ForcedStops, e.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record session: read id: %w", err)
	}
	s.log.Debug("session recorded", "id", id, "outcome", e.Outcome)
	return id, nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("recent sessions: n must be positive, got %d", n)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at_ms, ended_at_ms, service, foreground, outcome,
		       foreground_exit_code, exit_code, forced_stops, error
		FROM sessions
		ORDER BY id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // rows.Err() below catches read errors

	var entries []Entry
	for rows.Next() {
		var (
			e                  Entry
			startedMS, endedMS int64
		)
		if err := rows.Scan(&e.ID, &startedMS, &endedMS, &e.Service, &e.Foreground, &e.Outcome,
			&e.ForegroundExitCode, &e.ExitCode, &e.ForcedStops, &e.Error); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedMS)
		e.EndedAt = time.UnixMilli(endedMS)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	return nil
}
