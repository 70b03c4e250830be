// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists a record of every submission to the remote
// processor in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pdf-organizer/pkg/types"
)

const (
	dbFile            = "history.db"
	defaultMaxResults = 20

	// timeLayout is fixed width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Store manages the history database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates dir/history.db and its schema.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("history directory is not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS submissions (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			page_count INTEGER NOT NULL,
			operations TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT,
			input_bytes INTEGER NOT NULL,
			output_bytes INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_session ON submissions(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_started ON submissions(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores one submission. Recording the same id twice is an error.
func (s *Store) Record(ctx context.Context, sub types.Submission) error {
	if sub.ID == "" {
		return fmt.Errorf("submission has no id")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions
			(id, session_id, filename, page_count, operations, outcome, error,
			 input_bytes, output_bytes, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.SessionID, sub.Filename, sub.PageCount, sub.Operations,
		string(sub.Outcome), sub.Error, sub.InputBytes, sub.OutputBytes,
		sub.StartedAt.UTC().Format(timeLayout), sub.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording submission %s: %w", sub.ID, err)
	}
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	// SessionID restricts results to one session when set.
	SessionID string

	// Outcome restricts results to done or failed submissions when set.
	Outcome types.SubmissionOutcome

	// Limit caps the number of results. Zero uses the configured default.
	Limit int
}

// List returns submissions newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]types.Submission, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	query := `SELECT id, session_id, filename, page_count, operations, outcome,
			COALESCE(error, ''), input_bytes, output_bytes, started_at, finished_at
		FROM submissions WHERE 1=1`
	var args []any
	if opts.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, opts.SessionID)
	}
	if opts.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, string(opts.Outcome))
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var out []types.Submission
	for rows.Next() {
		var (
			sub               types.Submission
			outcome           string
			started, finished string
		)
		if err := rows.Scan(&sub.ID, &sub.SessionID, &sub.Filename, &sub.PageCount,
			&sub.Operations, &outcome, &sub.Error, &sub.InputBytes, &sub.OutputBytes,
			&started, &finished); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		sub.Outcome = types.SubmissionOutcome(outcome)
		if sub.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parsing started_at for %s: %w", sub.ID, err)
		}
		if sub.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parsing finished_at for %s: %w", sub.ID, err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
