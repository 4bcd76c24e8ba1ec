package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a task ID does not exist in the store.
var ErrNotFound = errors.New("task not found")

// ErrNoResult is returned when a task has no stored result of the
// requested kind.
var ErrNoResult = errors.New("no stored result for task")

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	type             TEXT NOT NULL,
	connection_id    TEXT NOT NULL,
	target_site_urls TEXT NOT NULL,
	config_json      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'pending',
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL,
	last_run_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS task_results (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id      INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	kind         TEXT NOT NULL,
	success      INTEGER NOT NULL,
	result_json  TEXT NOT NULL,
	completed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_results_task_kind
	ON task_results(task_id, kind, completed_at);
`

// Store persists task definitions and execution results in sqlite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the task database at path.
// Use ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open task database: %w", err)
	}

	// WAL mode for concurrent readers; foreign keys for result cascade
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveTask inserts a new task (ID zero) or updates an existing one.
// On insert the task's ID is populated; UpdatedAt is always refreshed.
func (s *Store) SaveTask(ctx context.Context, def *Definition) error {
	urls, err := json.Marshal(def.TargetSiteURLs)
	if err != nil {
		return fmt.Errorf("failed to encode target site URLs: %w", err)
	}

	now := time.Now().UTC()
	def.UpdatedAt = now

	if def.ID == 0 {
		def.CreatedAt = now
		if def.Status == "" {
			def.Status = StatusPending
		}
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO tasks (name, type, connection_id, target_site_urls, config_json, status, created_at, updated_at, last_run_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			def.Name, string(def.Type), def.ConnectionID, string(urls),
			def.ConfigJSON, string(def.Status), def.CreatedAt, def.UpdatedAt, def.LastRunAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get inserted task id: %w", err)
		}
		def.ID = id
		return nil
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET name = ?, type = ?, connection_id = ?, target_site_urls = ?,
		    config_json = ?, status = ?, updated_at = ?, last_run_at = ?
		WHERE id = ?`,
		def.Name, string(def.Type), def.ConnectionID, string(urls),
		def.ConfigJSON, string(def.Status), def.UpdatedAt, def.LastRunAt, def.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", def.ID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of task %d: %w", def.ID, err)
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", def.ID, ErrNotFound)
	}
	return nil
}

// GetTask retrieves a task by ID. Returns ErrNotFound when absent.
func (s *Store) GetTask(ctx context.Context, id int64) (*Definition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, connection_id, target_site_urls, config_json, status, created_at, updated_at, last_run_at
		FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// ListTasks retrieves all tasks ordered by creation time (newest first).
func (s *Store) ListTasks(ctx context.Context) ([]*Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, connection_id, target_site_urls, config_json, status, created_at, updated_at, last_run_at
		FROM tasks ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Definition
	for rows.Next() {
		def, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask removes a task and all of its stored results in one
// transaction, so no caller can observe a result for a deleted task.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_results WHERE task_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete results for task %d: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of task %d: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of task %d: %w", id, err)
	}
	return nil
}

// StoredResult is one persisted execution result row. The payload is the
// JSON encoding of a report result; kind matches the task type that
// produced it.
type StoredResult struct {
	ID          int64
	TaskID      int64
	Kind        Type
	Success     bool
	ResultJSON  string
	CompletedAt time.Time
}

// SaveResult stores an execution result for a task.
func (s *Store) SaveResult(ctx context.Context, taskID int64, kind Type, success bool, resultJSON string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_results (task_id, kind, success, result_json, completed_at)
		VALUES (?, ?, ?, ?, ?)`,
		taskID, string(kind), boolToInt(success), resultJSON, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save result for task %d: %w", taskID, err)
	}
	return nil
}

// LatestResult returns the most recent stored result of the given kind
// for a task, or ErrNoResult when none exists.
func (s *Store) LatestResult(ctx context.Context, taskID int64, kind Type) (*StoredResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, task_id, kind, success, result_json, completed_at
		FROM task_results
		WHERE task_id = ? AND kind = ?
		ORDER BY completed_at DESC, id DESC
		LIMIT 1`, taskID, string(kind))

	var (
		sr      StoredResult
		kindStr string
		success int
	)
	err := row.Scan(&sr.ID, &sr.TaskID, &kindStr, &success, &sr.ResultJSON, &sr.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrNoResult)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest result for task %d: %w", taskID, err)
	}
	sr.Kind = Type(kindStr)
	sr.Success = success != 0
	return &sr, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Definition, error) {
	var (
		def      Definition
		typeStr  string
		status   string
		urlsJSON string
		lastRun  sql.NullTime
	)
	err := row.Scan(&def.ID, &def.Name, &typeStr, &def.ConnectionID, &urlsJSON,
		&def.ConfigJSON, &status, &def.CreatedAt, &def.UpdatedAt, &lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task row: %w", err)
	}

	def.Type = Type(typeStr)
	def.Status = Status(status)
	if lastRun.Valid {
		t := lastRun.Time
		def.LastRunAt = &t
	}
	if err := json.Unmarshal([]byte(urlsJSON), &def.TargetSiteURLs); err != nil {
		return nil, fmt.Errorf("failed to decode target site URLs for task %d: %w", def.ID, err)
	}
	return &def, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
