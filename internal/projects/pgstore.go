package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed project store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the projects table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS projects (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL UNIQUE,
			owner_id         TEXT NOT NULL,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_activity_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

// Create inserts a new project.
func (s *PgStore) Create(ctx context.Context, p *Project) error {
	if p.ID == "" {
		p.ID = GenerateProjectID()
	}
	now := time.Now().Truncate(time.Microsecond)
	p.CreatedAt = now
	p.LastActivityAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects (id, name, owner_id, created_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.OwnerID, p.CreatedAt, p.LastActivityAt)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (s *PgStore) scanOne(row pgx.Row, ref string) (*Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.LastActivityAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("get project %s: %w", ref, err)
	}
	return &p, nil
}

// Get retrieves a project by ID.
func (s *PgStore) Get(ctx context.Context, id string) (*Project, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, last_activity_at FROM projects WHERE id = $1`, id), id)
}

// GetByName retrieves a project by its unique name.
func (s *PgStore) GetByName(ctx context.Context, name string) (*Project, error) {
	return s.scanOne(s.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, last_activity_at FROM projects WHERE name = $1`, name), name)
}

// ListByOwner returns the projects owned by ownerID.
func (s *PgStore) ListByOwner(ctx context.Context, ownerID string) ([]*Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, owner_id, created_at, last_activity_at FROM projects WHERE owner_id = $1 ORDER BY created_at ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var result []*Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.OwnerID, &p.CreatedAt, &p.LastActivityAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

// Touch updates the project's last-activity timestamp.
func (s *PgStore) Touch(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET last_activity_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

var _ Store = (*PgStore)(nil)
