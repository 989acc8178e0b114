// Package history keeps a SQLite database of past runs, used to spot
// flaky tests across runs.
package history

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Goraved/aqareport/internal/record"
	"github.com/Goraved/aqareport/internal/stats"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DefaultFlakyWindow is the number of recent runs Flaky looks at.
const DefaultFlakyWindow = 10

// Run is one recorded report run.
type Run struct {
	Seq         int64     `db:"seq" json:"-"`
	ID          uuid.UUID `db:"id" json:"id"`
	JobID       string    `db:"job_id" json:"job_id"`
	StartedAt   float64   `db:"started_at" json:"started_at"`
	FinishedAt  float64   `db:"finished_at" json:"finished_at"`
	Total       int       `db:"total" json:"total"`
	Passed      int       `db:"passed" json:"passed"`
	Failed      int       `db:"failed" json:"failed"`
	Skipped     int       `db:"skipped" json:"skipped"`
	Errors      int       `db:"errors" json:"errors"`
	XFailed     int       `db:"xfailed" json:"xfailed"`
	XPassed     int       `db:"xpassed" json:"xpassed"`
	Reruns      int       `db:"reruns" json:"reruns"`
	SuccessRate float64   `db:"success_rate" json:"success_rate"`
	RecordedAt  string    `db:"recorded_at" json:"recorded_at"`
}

// FlakyTest is a test that both passed and failed within the window.
type FlakyTest struct {
	NodeID    string  `db:"nodeid" json:"nodeid"`
	Runs      int     `db:"runs" json:"runs"`
	Passes    int     `db:"passes" json:"passes"`
	Failures  int     `db:"failures" json:"failures"`
	FlakeRate float64 `db:"-" json:"flake_rate"`
}

type resultRow struct {
	RunID    uuid.UUID `db:"run_id"`
	NodeID   string    `db:"nodeid"`
	Attempt  int       `db:"attempt"`
	Outcome  string    `db:"outcome"`
	Duration float64   `db:"duration"`
	WorkerID string    `db:"worker_id"`
}

// Store is the run history database.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies pending
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to history database: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version    TEXT PRIMARY KEY,
        applied_at TEXT NOT NULL
    )`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read embedded migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var count int
		if err := s.db.GetContext(ctx, &count, `SELECT COUNT(1) FROM schema_migrations WHERE version = ?`, name); err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}
		contents, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration transaction: %w", err)
		}
		if stmt := strings.TrimSpace(string(contents)); stmt != "" {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %s failed: %w", name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			name, s.now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// RecordRun stores a run with its statistics and every result record.
func (s *Store) RecordRun(ctx context.Context, runID uuid.UUID, jobID string, st stats.Stats, results []*record.Result) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	run := Run{
		ID:          runID,
		JobID:       jobID,
		StartedAt:   st.StartTime,
		FinishedAt:  st.EndTime,
		Total:       st.Total,
		Passed:      st.Passed,
		Failed:      st.Failed,
		Skipped:     st.Skipped,
		Errors:      st.Error,
		XFailed:     st.XFailed,
		XPassed:     st.XPassed,
		Reruns:      st.Rerun,
		SuccessRate: st.SuccessRate,
		RecordedAt:  s.now().UTC().Format(time.RFC3339),
	}
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO runs
        (id, job_id, started_at, finished_at, total, passed, failed, skipped, errors, xfailed, xpassed, reruns, success_rate, recorded_at)
        VALUES (:id, :job_id, :started_at, :finished_at, :total, :passed, :failed, :skipped, :errors, :xfailed, :xpassed, :reruns, :success_rate, :recorded_at)`,
		run); err != nil {
		return fmt.Errorf("insert run %s: %w", runID, err)
	}

	for _, r := range results {
		row := resultRow{
			RunID:    runID,
			NodeID:   r.NodeID,
			Attempt:  r.ExecutionCount,
			Outcome:  string(r.Outcome),
			Duration: r.Duration,
			WorkerID: r.WorkerID,
		}
		if _, err := tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO results
            (run_id, nodeid, attempt, outcome, duration, worker_id)
            VALUES (:run_id, :nodeid, :attempt, :outcome, :duration, :worker_id)`, row); err != nil {
			return fmt.Errorf("insert result %s: %w", r.NodeID, err)
		}
	}
	return tx.Commit()
}

// RecentRuns returns up to n runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = DefaultFlakyWindow
	}
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, `SELECT * FROM runs ORDER BY seq DESC LIMIT ?`, n); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Flaky returns the tests that both passed and failed within the last n
// runs. A rerun attempt counts as a failure. Results are ordered by flake
// rate, highest first.
func (s *Store) Flaky(ctx context.Context, n int) ([]FlakyTest, error) {
	if n <= 0 {
		n = DefaultFlakyWindow
	}
	const query = `
        SELECT r.nodeid AS nodeid,
               COUNT(DISTINCT r.run_id) AS runs,
               SUM(CASE WHEN r.outcome = 'passed' THEN 1 ELSE 0 END) AS passes,
               SUM(CASE WHEN r.outcome IN ('failed', 'error', 'rerun') THEN 1 ELSE 0 END) AS failures
        FROM results r
        JOIN (SELECT id FROM runs ORDER BY seq DESC LIMIT ?) recent ON recent.id = r.run_id
        GROUP BY r.nodeid
        HAVING passes > 0 AND failures > 0
        ORDER BY r.nodeid`
	flaky := []FlakyTest{}
	if err := s.db.SelectContext(ctx, &flaky, query, n); err != nil {
		return nil, fmt.Errorf("query flaky tests: %w", err)
	}
	for i := range flaky {
		f := &flaky[i]
		f.FlakeRate = float64(f.Failures) / float64(f.Passes+f.Failures)
	}
	sort.SliceStable(flaky, func(i, j int) bool { return flaky[i].FlakeRate > flaky[j].FlakeRate })
	return flaky, nil
}
