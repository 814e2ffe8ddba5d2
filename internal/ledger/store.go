// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-fetcher/pkg/types"
)

// DBFile is the run database name under the output root.
const DBFile = "ledger.db"

// timeLayout has fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps the outcomes of every run in a SQLite database, so
// history survives across runs.
type SQLiteStore struct {
	db *sql.DB
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     Counts
}

// OpenStore opens or creates the database at path and its schema.
func OpenStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			counts TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id),
			paper_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			title TEXT,
			state TEXT NOT NULL,
			source TEXT,
			locator TEXT,
			score REAL,
			file_path TEXT,
			file_size INTEGER,
			error_kind TEXT,
			error TEXT,
			attempts INTEGER,
			diagnostics TEXT,
			started_at TEXT,
			finished_at TEXT,
			PRIMARY KEY (run_id, paper_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_paper_id ON outcomes(paper_id)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_state ON outcomes(state)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Persist stores the run and its outcomes in one transaction.
func (s *SQLiteStore) Persist(ctx context.Context, r Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	countsJSON, _ := json.Marshal(r.Counts)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, counts) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET finished_at=excluded.finished_at, counts=excluded.counts`,
		r.RunID, r.StartedAt.UTC().Format(timeLayout), r.FinishedAt.UTC().Format(timeLayout), string(countsJSON),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO outcomes (run_id, paper_id, seq, title, state, source, locator, score,
			file_path, file_size, error_kind, error, attempts, diagnostics, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range r.Outcomes {
		diagJSON, _ := json.Marshal(o.Diagnostics)
		_, err := stmt.ExecContext(ctx,
			r.RunID, o.PaperID, i, o.Title, string(o.State), o.ChosenSource, o.Locator, o.Score,
			o.FilePath, o.FileSize, string(o.ErrorKind), o.Error, o.Attempts, string(diagJSON),
			formatTime(o.StartedAt), formatTime(o.FinishedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting outcome %s: %w", o.PaperID, err)
		}
	}
	return tx.Commit()
}

// Runs lists recorded runs, most recent first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, counts FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			rs                      RunSummary
			started, finished, cnts string
		)
		if err := rows.Scan(&rs.RunID, &started, &finished, &cnts); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rs.StartedAt = parseTime(started)
		rs.FinishedAt = parseTime(finished)
		json.Unmarshal([]byte(cnts), &rs.Counts)
		out = append(out, rs)
	}
	return out, rows.Err()
}

// Outcomes returns the outcomes of runID in completion order.
func (s *SQLiteStore) Outcomes(ctx context.Context, runID string) ([]types.Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT paper_id, title, state, source, locator, score, file_path, file_size,
			error_kind, error, attempts, diagnostics, started_at, finished_at
		 FROM outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	var out []types.Outcome
	for rows.Next() {
		var (
			o                 types.Outcome
			state, kind, diag string
			started, finished string
		)
		if err := rows.Scan(&o.PaperID, &o.Title, &state, &o.ChosenSource, &o.Locator, &o.Score,
			&o.FilePath, &o.FileSize, &kind, &o.Error, &o.Attempts, &diag, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		o.State = types.OutcomeState(state)
		o.ErrorKind = types.ErrorKind(kind)
		json.Unmarshal([]byte(diag), &o.Diagnostics)
		o.StartedAt = parseTime(started)
		o.FinishedAt = parseTime(finished)
		if !o.StartedAt.IsZero() && !o.FinishedAt.IsZero() {
			o.Duration = o.FinishedAt.Sub(o.StartedAt)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// LastOutcome returns the most recent outcome recorded for paperID in any
// run.
func (s *SQLiteStore) LastOutcome(ctx context.Context, paperID string) (types.Outcome, bool, error) {
	var o types.Outcome
	var state string
	err := s.db.QueryRowContext(ctx,
		`SELECT o.paper_id, o.title, o.state, o.file_path FROM outcomes o
		 JOIN runs r ON r.id = o.run_id
		 WHERE o.paper_id = ? ORDER BY r.started_at DESC LIMIT 1`, paperID,
	).Scan(&o.PaperID, &o.Title, &state, &o.FilePath)
	if err == sql.ErrNoRows {
		return types.Outcome{}, false, nil
	}
	if err != nil {
		return types.Outcome{}, false, fmt.Errorf("querying outcome: %w", err)
	}
	o.State = types.OutcomeState(state)
	return o, true, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
