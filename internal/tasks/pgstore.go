package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id                     TEXT PRIMARY KEY,
			project_id             TEXT NOT NULL,
			creator_id             TEXT NOT NULL,
			title                  TEXT NOT NULL,
			description            TEXT NOT NULL DEFAULT '',
			status                 TEXT NOT NULL DEFAULT 'todo',
			is_interactive         BOOLEAN NOT NULL DEFAULT FALSE,
			ai_waiting_feedback    BOOLEAN NOT NULL DEFAULT FALSE,
			interaction_session_id TEXT NOT NULL DEFAULT '',
			feedback_content       TEXT NOT NULL DEFAULT '',
			feedback_at            TIMESTAMPTZ,
			version                BIGINT NOT NULL DEFAULT 1,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at           TIMESTAMPTZ
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_project_created ON tasks(project_id, created_at)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	return err
}

// Create inserts a new task.
func (s *PgStore) Create(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = GenerateTaskID()
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	now := time.Now().Truncate(time.Microsecond)
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Version = 1

	_, err := s.pool.Exec(ctx, `
		INSERT INTO tasks (id, project_id, creator_id, title, description, status,
			is_interactive, ai_waiting_feedback, interaction_session_id,
			feedback_content, feedback_at, version, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.ProjectID, t.CreatorID, t.Title, t.Description, t.Status,
		t.IsInteractive, t.AIWaitingFeedback, t.InteractionSessionID,
		t.FeedbackContent, t.FeedbackAt, t.Version, t.CreatedAt, t.UpdatedAt, t.CompletedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

const taskColumns = `id, project_id, creator_id, title, description, status,
	is_interactive, ai_waiting_feedback, interaction_session_id,
	feedback_content, feedback_at, version, created_at, updated_at, completed_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.CreatorID, &t.Title, &t.Description, &t.Status,
		&t.IsInteractive, &t.AIWaitingFeedback, &t.InteractionSessionID,
		&t.FeedbackContent, &t.FeedbackAt, &t.Version, &t.CreatedAt, &t.UpdatedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Get retrieves a single task by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// List returns tasks matching the filter, sorted by created_at ascending.
func (s *PgStore) List(ctx context.Context, filter ListFilter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if filter.ProjectID != "" {
		args = append(args, filter.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.CreatorID != "" {
		args = append(args, filter.CreatorID)
		query += fmt.Sprintf(" AND creator_id = $%d", len(args))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	if !filter.CreatedAfter.IsZero() {
		args = append(args, filter.CreatedAfter)
		query += fmt.Sprintf(" AND created_at > $%d", len(args))
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var result []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// Update rewrites a task row, enforcing the version CAS in the WHERE clause.
func (s *PgStore) Update(ctx context.Context, t *Task) error {
	newVersion := t.Version + 1
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET title = $1, description = $2, status = $3,
			is_interactive = $4, ai_waiting_feedback = $5, interaction_session_id = $6,
			feedback_content = $7, feedback_at = $8, version = $9,
			updated_at = NOW(), completed_at = $10
		WHERE id = $11 AND version = $12`,
		t.Title, t.Description, t.Status,
		t.IsInteractive, t.AIWaitingFeedback, t.InteractionSessionID,
		t.FeedbackContent, t.FeedbackAt, newVersion, t.CompletedAt,
		t.ID, t.Version)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or the version moved under us.
		if _, err := s.Get(ctx, t.ID); err != nil {
			return err
		}
		return fmt.Errorf("%w: task %s, update carries %d", ErrVersionConflict, t.ID, t.Version)
	}
	t.Version = newVersion
	t.UpdatedAt = time.Now()
	return nil
}

// Delete removes a task row.
func (s *PgStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

var _ Store = (*PgStore)(nil)
