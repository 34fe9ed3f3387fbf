package interaction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgLedger is a PostgreSQL-backed interaction ledger.
type PgLedger struct {
	pool *pgxpool.Pool
}

// NewPgLedger creates a PgLedger.
func NewPgLedger(pool *pgxpool.Pool) *PgLedger {
	return &PgLedger{pool: pool}
}

// EnsureTable creates the interaction_logs table if it doesn't exist.
func (l *PgLedger) EnsureTable(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS interaction_logs (
			id         TEXT PRIMARY KEY,
			task_id    TEXT NOT NULL,
			session_id TEXT NOT NULL,
			type       TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending',
			content    TEXT NOT NULL,
			metadata   JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_by TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_interaction_logs_task ON interaction_logs(task_id, created_at)`)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_interaction_logs_session ON interaction_logs(session_id, created_at)`)
	return err
}

// Append inserts one immutable entry.
func (l *PgLedger) Append(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().Truncate(time.Microsecond)
	}
	meta := e.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = l.pool.Exec(ctx, `
		INSERT INTO interaction_logs (id, task_id, session_id, type, status, content, metadata, created_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)`,
		e.ID, e.TaskID, e.SessionID, e.Type, e.Status, e.Content, string(metaJSON), e.CreatedAt, e.CreatedBy)
	if err != nil {
		return fmt.Errorf("append entry: %w", err)
	}
	return nil
}

func (l *PgLedger) query(ctx context.Context, where string, args ...any) ([]*Entry, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, task_id, session_id, type, status, content, metadata, created_at, created_by
		FROM interaction_logs WHERE `+where+` ORDER BY created_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var metaJSON []byte
	err := row.Scan(&e.ID, &e.TaskID, &e.SessionID, &e.Type, &e.Status, &e.Content, &metaJSON, &e.CreatedAt, &e.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	if err := json.Unmarshal(metaJSON, &e.Metadata); err != nil {
		e.Metadata = map[string]string{}
	}
	return &e, nil
}

// ForTask returns all entries for a task, ordered by created_at ascending.
func (l *PgLedger) ForTask(ctx context.Context, taskID string) ([]*Entry, error) {
	return l.query(ctx, `task_id = $1`, taskID)
}

// ForSession returns one session's entries, ordered by created_at ascending.
func (l *PgLedger) ForSession(ctx context.Context, taskID, sessionID string) ([]*Entry, error) {
	return l.query(ctx, `task_id = $1 AND session_id = $2`, taskID, sessionID)
}

var _ Ledger = (*PgLedger)(nil)
