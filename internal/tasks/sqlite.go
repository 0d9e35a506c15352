package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/haasonsaas/taskpilot/internal/storage"
	"github.com/haasonsaas/taskpilot/pkg/models"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) a SQLite task store at the
// given path. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreFromDB wraps an existing connection, so the task and
// conversation stores can share one database file.
func NewSQLiteStoreFromDB(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0,
			priority TEXT NOT NULL DEFAULT 'medium',
			tags TEXT NOT NULL DEFAULT '[]',
			due_at TIMESTAMP,
			recurrence_pattern TEXT NOT NULL DEFAULT 'none',
			recurrence_end_at TIMESTAMP,
			parent_task_id TEXT,
			reminder_at TIMESTAMP,
			reminder_sent INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_tasks_owner ON tasks(owner_id)",
		"CREATE INDEX IF NOT EXISTS idx_tasks_owner_completed ON tasks(owner_id, completed)",
		"CREATE INDEX IF NOT EXISTS idx_tasks_reminder ON tasks(reminder_at, reminder_sent)",
		"CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id)",
	}
	for _, idx := range indexes {
		if _, err := s.db.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

const taskColumns = `id, owner_id, title, description, completed, priority, tags,
	due_at, recurrence_pattern, recurrence_end_at, parent_task_id,
	reminder_at, reminder_sent, created_at, updated_at`

func (s *SQLiteStore) Create(ctx context.Context, task *models.Task) error {
	prepareNewTask(task)

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		task.ID, task.OwnerID, task.Title, task.Description, task.Completed,
		string(task.Priority), string(tags), nullTime(task.DueAt),
		string(task.RecurrencePattern), nullTime(task.RecurrenceEndAt),
		nullString(task.ParentTaskID), nullTime(task.ReminderAt),
		task.ReminderSent, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, ownerID, id string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	return scanTask(row)
}

func (s *SQLiteStore) List(ctx context.Context, ownerID string, filter models.TaskFilter) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE owner_id = ?
	`, ownerID)
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

func (s *SQLiteStore) Update(ctx context.Context, ownerID, id string, patch models.TaskPatch) (*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	row := tx.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM tasks WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	task, err := scanTask(row)
	if err != nil {
		return nil, err
	}

	applyPatch(task, patch, time.Now())

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, completed = ?, priority = ?,
			tags = ?, due_at = ?, recurrence_pattern = ?, recurrence_end_at = ?,
			parent_task_id = ?, reminder_at = ?, reminder_sent = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`,
		task.Title, task.Description, task.Completed, string(task.Priority),
		string(tags), nullTime(task.DueAt), string(task.RecurrencePattern),
		nullTime(task.RecurrenceEndAt), nullString(task.ParentTaskID),
		nullTime(task.ReminderAt), task.ReminderSent, task.UpdatedAt,
		task.ID, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return task, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ownerID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, ownerID)
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
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET parent_task_id = NULL WHERE parent_task_id = ?`, id); err != nil {
		return fmt.Errorf("failed to orphan successors: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]*models.Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE reminder_at IS NOT NULL AND reminder_at <= ?
			AND reminder_sent = 0 AND completed = 0
		ORDER BY reminder_at ASC
		LIMIT ?
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

func (s *SQLiteStore) MarkReminderSent(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET reminder_sent = 1, updated_at = ? WHERE id = ? AND owner_id = ?
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

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		priority, pattern, tagsJSON string
		dueAt, endAt, reminderAt    sql.NullTime
		parentTaskID                sql.NullString
	)

	err := row.Scan(
		&task.ID, &task.OwnerID, &task.Title, &task.Description, &task.Completed,
		&priority, &tagsJSON, &dueAt, &pattern, &endAt, &parentTaskID,
		&reminderAt, &task.ReminderSent, &task.CreatedAt, &task.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	task.Priority = models.Priority(priority)
	task.RecurrencePattern = models.RecurrencePattern(pattern)
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &task.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	if dueAt.Valid {
		t := dueAt.Time
		task.DueAt = &t
	}
	if endAt.Valid {
		t := endAt.Time
		task.RecurrenceEndAt = &t
	}
	if reminderAt.Valid {
		t := reminderAt.Time
		task.ReminderAt = &t
	}
	if parentTaskID.Valid {
		task.ParentTaskID = parentTaskID.String
	}
	return task, nil
}

func prepareNewTask(task *models.Task) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.RecurrencePattern == "" {
		task.RecurrencePattern = models.RecurrenceNone
	}
	task.Tags = NormalizeTags(task.Tags)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		_ = err
	}
}
