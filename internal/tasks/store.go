package tasks

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no task matches the requested ID.
	ErrNotFound = errors.New("task not found")

	// ErrVersionConflict is returned when an update carries a stale version.
	// Callers re-read and retry, or surface the conflict.
	ErrVersionConflict = errors.New("task version conflict")
)

// ListFilter defines criteria for filtering task lists.
type ListFilter struct {
	ProjectID    string
	CreatorID    string
	Statuses     []Status
	CreatedAfter time.Time
}

func (f ListFilter) matchesStatus(s Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, v := range f.Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Store defines the persistence interface for tasks. Update performs a
// compare-and-swap on Task.Version: the stored record must carry the version
// the caller read, otherwise ErrVersionConflict is returned and nothing is
// written.
type Store interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter ListFilter) ([]*Task, error)
	Update(ctx context.Context, t *Task) error
	Delete(ctx context.Context, id string) error
}
