package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/haasonsaas/taskpilot/internal/storage"
	"github.com/haasonsaas/taskpilot/pkg/models"
	_ "github.com/lib/pq"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB

	// Prepared statements for the hot paths
	stmtGet    *sql.Stmt
	stmtList   *sql.Stmt
	stmtInsert *sql.Stmt
	stmtUpdate *sql.Stmt
}

// PostgresConfig holds connection pool configuration.
type PostgresConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// DefaultPostgresConfig returns default configuration.
func DefaultPostgresConfig() *PostgresConfig {
	return &PostgresConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectTimeout:  10 * time.Second,
	}
}

// NewPostgresStore opens a Postgres task store using a DSN/URL.
func NewPostgresStore(dsn string, config *PostgresConfig) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	if config == nil {
		config = DefaultPostgresConfig()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return store, nil
}

// NewPostgresStoreFromDB wraps an existing connection for store sharing and
// tests (sqlmock).
func NewPostgresStoreFromDB(db *sql.DB) (*PostgresStore, error) {
	store := &PostgresStore{db: db}
	if err := store.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return store, nil
}

// DB exposes the underlying connection for related stores.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			priority TEXT NOT NULL DEFAULT 'medium',
			tags JSONB NOT NULL DEFAULT '[]',
			due_at TIMESTAMPTZ,
			recurrence_pattern TEXT NOT NULL DEFAULT 'none',
			recurrence_end_at TIMESTAMPTZ,
			parent_task_id TEXT,
			reminder_at TIMESTAMPTZ,
			reminder_sent BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_owner_completed ON tasks(owner_id, completed);
		CREATE INDEX IF NOT EXISTS idx_tasks_reminder ON tasks(reminder_at) WHERE reminder_sent = FALSE;
		CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create tasks schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) prepareStatements() error {
	var err error

	s.stmtGet, err = s.db.Prepare(`
		SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get task: %w", err)
	}

	s.stmtList, err = s.db.Prepare(`
		SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list tasks: %w", err)
	}

	s.stmtInsert, err = s.db.Prepare(`
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert task: %w", err)
	}

	s.stmtUpdate, err = s.db.Prepare(`
		UPDATE tasks SET title = $1, description = $2, completed = $3, priority = $4,
			tags = $5, due_at = $6, recurrence_pattern = $7, recurrence_end_at = $8,
			parent_task_id = $9, reminder_at = $10, reminder_sent = $11, updated_at = $12
		WHERE id = $13 AND owner_id = $14
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare update task: %w", err)
	}

	return nil
}

func (s *PostgresStore) Create(ctx context.Context, task *models.Task) error {
	prepareNewTask(task)

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.stmtInsert.ExecContext(ctx,
		task.ID, task.OwnerID, task.Title, task.Description, task.Completed,
		string(task.Priority), tags, nullTime(task.DueAt),
		string(task.RecurrencePattern), nullTime(task.RecurrenceEndAt),
		nullString(task.ParentTaskID), nullTime(task.ReminderAt),
		task.ReminderSent, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, ownerID, id string) (*models.Task, error) {
	return scanTask(s.stmtGet.QueryRowContext(ctx, id, ownerID))
}

func (s *PostgresStore) List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error) {
	rows, err := s.stmtList.QueryContext(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	now := time.Now()
	out := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		if matchesFilter(task, filter, now) {
			out = append(out, task)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	sortTasks(out)
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, ownerID, id string, patch models.TaskPatch) (*models.Task, error) {
	task, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	applyPatch(task, patch, time.Now())

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	result, err := s.stmtUpdate.ExecContext(ctx,
		task.Title, task.Description, task.Completed, string(task.Priority),
		tags, nullTime(task.DueAt), string(task.RecurrencePattern),
		nullTime(task.RecurrenceEndAt), nullString(task.ParentTaskID),
		nullTime(task.ReminderAt), task.ReminderSent, task.UpdatedAt,
		task.ID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, storage.ErrNotFound
	}
	return task, nil
}

func (s *PostgresStore) Delete(ctx context.Context, ownerID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	// Orphan recurrence successors that point at the deleted task.
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET parent_task_id = NULL WHERE parent_task_id = $1`, id); err != nil {
		return fmt.Errorf("failed to orphan successors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE reminder_at IS NOT NULL AND reminder_at <= $1
			AND reminder_sent = FALSE AND completed = FALSE
		ORDER BY reminder_at ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkReminderSent(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET reminder_sent = TRUE, updated_at = $1 WHERE id = $2 AND owner_id = $3
	`, time.Now(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	var errs []error
	for _, stmt := range []*sql.Stmt{s.stmtGet, s.stmtList, s.stmtInsert, s.stmtUpdate} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := s.db.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing store: %v", errs)
	}
	return nil
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
