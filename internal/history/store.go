// Package history provides SQLite-based persistence of finished
// workflow runs (~/.local/share/stepflow/history.db). Live registry
// state is never persisted; a run is written once, after it completes.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/stepflow/stepflow/pkg/workflow"
)

// Run is one recorded workflow run.
type Run struct {
	// ID is the short unique run identifier.
	ID string
	// Workflow is the manifest name, or the manifest path when unnamed.
	Workflow string
	// StartedAt is when the run began.
	StartedAt time.Time
	// FinishedAt is when the run completed.
	FinishedAt time.Time
	// Total is the number of tasks that reached a terminal state.
	Total int
	// Failed is the number of failed tasks.
	Failed int
}

// TaskResult is one task's outcome within a recorded run.
type TaskResult struct {
	Phase      string
	Name       string
	Order      float64
	State      workflow.TaskState
	Message    string
	DurationMS int64
}

// Store wraps the history database.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath returns the XDG data path of the history database.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "stepflow", "history.db")
}

// NewRunID returns a fresh short run identifier.
func NewRunID() string {
	return uuid.New().String()[:8]
}

// Open opens the history database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{conn: conn, path: path}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// migrate creates the schema.
func (s *Store) migrate() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	workflow    TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	total       INTEGER NOT NULL,
	failed      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_tasks (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	phase       TEXT NOT NULL,
	name        TEXT NOT NULL,
	ord         REAL NOT NULL,
	seq         INTEGER NOT NULL,
	state       TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	duration_ms INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (run_id, phase, name)
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`
	if _, err := s.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate history schema: %w", err)
	}
	return nil
}

// RecordRun writes one finished run and its task results in a single
// transaction.
func (s *Store) RecordRun(run Run, tasks []TaskResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, workflow, started_at, finished_at, total, failed) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Workflow, run.StartedAt, run.FinishedAt, run.Total, run.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, task := range tasks {
		_, err = tx.Exec(
			`INSERT INTO run_tasks (run_id, phase, name, ord, seq, state, message, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, task.Phase, task.Name, task.Order, i, string(task.State), task.Message, task.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("insert task %s/%s: %w", task.Phase, task.Name, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.conn.Query(
		`SELECT id, workflow, started_at, finished_at, total, failed FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Workflow, &r.StartedAt, &r.FinishedAt, &r.Total, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRunTasks returns a run's task results in recorded display order.
func (s *Store) GetRunTasks(runID string) ([]TaskResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query(
		`SELECT phase, name, ord, state, message, duration_ms FROM run_tasks WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run tasks: %w", err)
	}
	defer rows.Close()

	var tasks []TaskResult
	for rows.Next() {
		var tr TaskResult
		var state string
		if err := rows.Scan(&tr.Phase, &tr.Name, &tr.Order, &state, &tr.Message, &tr.DurationMS); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tr.State = workflow.TaskState(state)
		tasks = append(tasks, tr)
	}
	return tasks, rows.Err()
}

// Prune deletes all but the newest keep runs. Task rows follow via the
// foreign key cascade.
func (s *Store) Prune(keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep <= 0 {
		return nil
	}

	_, err := s.conn.Exec(
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

// ResultsFromSnapshot flattens a registry snapshot into task results,
// keeping display order. Tasks that never ran are recorded as pending.
func ResultsFromSnapshot(phases []workflow.PhaseSnapshot) []TaskResult {
	var results []TaskResult
	for _, phase := range phases {
		for _, task := range phase.Tasks {
			results = append(results, TaskResult{
				Phase:      phase.Name,
				Name:       task.Name,
				Order:      task.Order,
				State:      task.State,
				Message:    task.Message,
				DurationMS: task.Duration().Milliseconds(),
			})
		}
	}
	return results
}
