package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/taskrelay-io/taskrelay/internal/storage/dirstore"
)

// FileStore persists tasks as directories with a meta.json each.
type FileStore struct {
	ds *dirstore.DirStore
}

// NewFileStore creates a FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{ds: dirstore.NewDirStore(baseDir, "task")}
}

// Create persists a new task to disk.
func (fs *FileStore) Create(_ context.Context, t *Task) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	if t.ID == "" {
		t.ID = GenerateTaskID()
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}

	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.Version = 1

	if err := fs.ds.EnsureDir(t.ID); err != nil {
		return err
	}

	return fs.ds.WriteMeta(t.ID, t)
}

// Get reads a task by ID.
func (fs *FileStore) Get(_ context.Context, id string) (*Task, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	return fs.read(id)
}

func (fs *FileStore) read(id string) (*Task, error) {
	var t Task
	if err := fs.ds.ReadMeta(id, &t); err != nil {
		if dirstore.ErrNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &t, nil
}

// List returns tasks matching the filter, sorted by CreatedAt ascending.
func (fs *FileStore) List(_ context.Context, filter ListFilter) ([]*Task, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	dirs, err := fs.ds.ListDirs()
	if err != nil {
		return nil, err
	}

	var result []*Task
	for _, name := range dirs {
		var t Task
		if err := fs.ds.ReadMeta(name, &t); err != nil {
			continue // skip corrupted tasks
		}

		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			continue
		}
		if filter.CreatorID != "" && t.CreatorID != filter.CreatorID {
			continue
		}
		if !filter.matchesStatus(t.Status) {
			continue
		}
		if !filter.CreatedAfter.IsZero() && !t.CreatedAt.After(filter.CreatedAfter) {
			continue
		}

		result = append(result, &t)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Update atomically rewrites a task's meta.json, enforcing the version CAS.
func (fs *FileStore) Update(_ context.Context, t *Task) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	current, err := fs.read(t.ID)
	if err != nil {
		return err
	}
	if current.Version != t.Version {
		return fmt.Errorf("%w: task %s has version %d, update carries %d",
			ErrVersionConflict, t.ID, current.Version, t.Version)
	}

	t.Version++
	t.UpdatedAt = time.Now()
	return fs.ds.WriteMeta(t.ID, t)
}

// Delete removes a task directory.
func (fs *FileStore) Delete(_ context.Context, id string) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	return fs.ds.RemoveDir(id)
}

var _ Store = (*FileStore)(nil)
