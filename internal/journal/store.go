// Package journal keeps a durable audit trail of completion attempts and a
// searchable mirror of work-log entries.
//
// It uses SQLite (pure-Go modernc driver) with WAL mode and an FTS5 index
// over log entries. The markdown work log stays the source of truth; the
// journal exists so agents can query history across sessions.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Attempt is one recorded run of the completion gatekeeper.
type Attempt struct {
	ID         string `json:"id"`
	Project    string `json:"project"`
	TaskID     string `json:"task_id"`
	Summary    string `json:"summary"`
	Outcome    string `json:"outcome"`
	FailedGate string `json:"failed_gate,omitempty"`
	Gates      string `json:"gates"`
	Detail     string `json:"detail,omitempty"`
	CommitRef  string `json:"commit_ref,omitempty"`
	DiffBytes  int    `json:"diff_bytes"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// Attempt outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// AddAttemptParams holds the input for RecordAttempt.
type AddAttemptParams struct {
	Project    string
	TaskID     string
	Summary    string
	Success    bool
	FailedGate string
	Gates      []string
	Detail     string
	CommitRef  string
	DiffBytes  int
	StartedAt  time.Time
	FinishedAt time.Time
}

// LogEntry is a mirrored work-log line.
type LogEntry struct {
	ID        int64   `json:"id"`
	Project   string  `json:"project"`
	TaskID    string  `json:"task_id"`
	Status    string  `json:"status"`
	Summary   string  `json:"summary"`
	LoggedAt  string  `json:"logged_at"`
	CreatedAt string  `json:"created_at"`
	Rank      float64 `json:"rank,omitempty"`
}

// AddLogEntryParams holds the input for AddLogEntry.
type AddLogEntryParams struct {
	Project  string
	TaskID   string
	Status   string
	Summary  string
	LoggedAt time.Time
}

// Stats holds aggregate counts for one project.
type Stats struct {
	Attempts   int `json:"attempts"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	LogEntries int `json:"log_entries"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds journal configuration.
type Config struct {
	DataDir          string
	MaxDetailLength  int
	MaxSearchResults int
}

// DefaultConfig returns the default configuration rooted at dataDir.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:          dataDir,
		MaxDetailLength:  4000,
		MaxSearchResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the journal backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New creates the data directory if needed, opens SQLite with WAL mode and
// runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "journal.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS attempts (
			id          TEXT PRIMARY KEY,
			project     TEXT    NOT NULL,
			task_id     TEXT    NOT NULL,
			summary     TEXT    NOT NULL,
			outcome     TEXT    NOT NULL,
			failed_gate TEXT,
			gates       TEXT    NOT NULL DEFAULT '',
			detail      TEXT,
			commit_ref  TEXT,
			diff_bytes  INTEGER NOT NULL DEFAULT 0,
			started_at  TEXT    NOT NULL,
			finished_at TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_attempts_project ON attempts(project, finished_at DESC);
		CREATE INDEX IF NOT EXISTS idx_attempts_task    ON attempts(project, task_id);

		CREATE TABLE IF NOT EXISTS log_entries (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			project    TEXT NOT NULL,
			task_id    TEXT NOT NULL,
			status     TEXT NOT NULL,
			summary    TEXT NOT NULL,
			logged_at  TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_log_project ON log_entries(project, created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS log_entries_fts USING fts5(
			task_id,
			status,
			summary,
			content='log_entries',
			content_rowid='id'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='log_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER log_fts_insert AFTER INSERT ON log_entries BEGIN
				INSERT INTO log_entries_fts(rowid, task_id, status, summary)
				VALUES (new.id, new.task_id, new.status, new.summary);
			END;

			CREATE TRIGGER log_fts_delete AFTER DELETE ON log_entries BEGIN
				INSERT INTO log_entries_fts(log_entries_fts, rowid, task_id, status, summary)
				VALUES ('delete', old.id, old.task_id, old.status, old.summary);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

// ─── Attempts ────────────────────────────────────────────────────────────────

// RecordAttempt stores one gatekeeper run and returns its id.
func (s *Store) RecordAttempt(p AddAttemptParams) (string, error) {
	id := uuid.New().String()
	outcome := OutcomeFailed
	if p.Success {
		outcome = OutcomeCompleted
	}

	_, err := s.db.Exec(`
		INSERT INTO attempts (id, project, task_id, summary, outcome, failed_gate, gates,
		                      detail, commit_ref, diff_bytes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.Project, p.TaskID, p.Summary, outcome,
		nullableString(p.FailedGate), strings.Join(p.Gates, ","),
		nullableString(Truncate(p.Detail, s.cfg.MaxDetailLength)), nullableString(p.CommitRef),
		p.DiffBytes, formatTime(p.StartedAt), formatTime(p.FinishedAt),
	)
	if err != nil {
		return "", fmt.Errorf("record attempt: %w", err)
	}
	return id, nil
}

// RecentAttempts lists the newest attempts for project, optionally filtered
// by task id.
func (s *Store) RecentAttempts(project, taskID string, limit int) ([]Attempt, error) {
	limit = s.clampLimit(limit)

	query := `
		SELECT id, project, task_id, summary, outcome, COALESCE(failed_gate, ''), gates,
		       COALESCE(detail, ''), COALESCE(commit_ref, ''), diff_bytes, started_at, finished_at
		FROM attempts
		WHERE project = ?`
	args := []any{project}
	if taskID != "" {
		query += " AND task_id = ?"
		args = append(args, taskID)
	}
	query += " ORDER BY finished_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent attempts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Attempt
	for rows.Next() {
		var a Attempt
		if err := rows.Scan(&a.ID, &a.Project, &a.TaskID, &a.Summary, &a.Outcome, &a.FailedGate,
			&a.Gates, &a.Detail, &a.CommitRef, &a.DiffBytes, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ─── Log entries ─────────────────────────────────────────────────────────────

// AddLogEntry mirrors one work-log entry.
func (s *Store) AddLogEntry(p AddLogEntryParams) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO log_entries (project, task_id, status, summary, logged_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Project, p.TaskID, p.Status, p.Summary, p.LoggedAt.Format("2006-01-02 15:04"), Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("add log entry: %w", err)
	}
	return res.LastInsertId()
}

// SearchLog runs a full-text query over mirrored entries for project.
// An empty query returns the most recent entries.
func (s *Store) SearchLog(project, query string, limit int) ([]LogEntry, error) {
	limit = s.clampLimit(limit)

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return s.queryLog(`
			SELECT id, project, task_id, status, summary, logged_at, created_at, 0 AS rank
			FROM log_entries
			WHERE project = ?
			ORDER BY id DESC LIMIT ?`, project, limit)
	}

	return s.queryLog(`
		SELECT l.id, l.project, l.task_id, l.status, l.summary, l.logged_at, l.created_at, fts.rank
		FROM log_entries_fts fts
		JOIN log_entries l ON l.id = fts.rowid
		WHERE log_entries_fts MATCH ? AND l.project = ?
		ORDER BY fts.rank LIMIT ?`, ftsQuery, project, limit)
}

func (s *Store) queryLog(query string, args ...any) ([]LogEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Project, &e.TaskID, &e.Status, &e.Summary,
			&e.LoggedAt, &e.CreatedAt, &e.Rank); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate counts for project.
func (s *Store) Stats(project string) (*Stats, error) {
	st := &Stats{}
	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0)
		FROM attempts WHERE project = ?`,
		OutcomeCompleted, OutcomeFailed, project,
	).Scan(&st.Attempts, &st.Completed, &st.Failed)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM log_entries WHERE project = ?", project).Scan(&st.LogEntries); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	}
	if s.cfg.MaxSearchResults > 0 && limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}
	return limit
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Truncate shortens a string to max bytes with an ellipsis. A non-positive
// max disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// sanitizeFTS wraps each word in quotes for safe FTS5 queries.
// "fix auth bug" → `"fix" "auth" "bug"`
func sanitizeFTS(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		w = strings.ReplaceAll(w, `"`, "")
		words[i] = `"` + w + `"`
	}
	return strings.Join(words, " ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return Now()
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// Now returns the current time formatted for SQLite.
func Now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
