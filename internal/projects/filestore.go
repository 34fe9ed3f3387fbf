package projects

import (
	"context"
	"fmt"
	"time"

	"github.com/taskrelay-io/taskrelay/internal/storage/dirstore"
)

// FileStore persists projects as directories with a meta.json each.
type FileStore struct {
	ds *dirstore.DirStore
}

// NewFileStore creates a FileStore rooted at baseDir.
func NewFileStore(baseDir string) *FileStore {
	return &FileStore{ds: dirstore.NewDirStore(baseDir, "project")}
}

// Create persists a new project to disk.
func (fs *FileStore) Create(_ context.Context, p *Project) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	if p.ID == "" {
		p.ID = GenerateProjectID()
	}

	now := time.Now()
	p.CreatedAt = now
	p.LastActivityAt = now

	if err := fs.ds.EnsureDir(p.ID); err != nil {
		return err
	}

	return fs.ds.WriteMeta(p.ID, p)
}

// Get reads a project by ID.
func (fs *FileStore) Get(_ context.Context, id string) (*Project, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	return fs.read(id)
}

func (fs *FileStore) read(id string) (*Project, error) {
	var p Project
	if err := fs.ds.ReadMeta(id, &p); err != nil {
		if dirstore.ErrNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &p, nil
}

// GetByName finds a project by its unique name.
func (fs *FileStore) GetByName(_ context.Context, name string) (*Project, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	dirs, err := fs.ds.ListDirs()
	if err != nil {
		return nil, err
	}
	for _, id := range dirs {
		var p Project
		if err := fs.ds.ReadMeta(id, &p); err != nil {
			continue
		}
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// ListByOwner returns the projects owned by ownerID.
func (fs *FileStore) ListByOwner(_ context.Context, ownerID string) ([]*Project, error) {
	fs.ds.RLock()
	defer fs.ds.RUnlock()

	dirs, err := fs.ds.ListDirs()
	if err != nil {
		return nil, err
	}

	var result []*Project
	for _, id := range dirs {
		var p Project
		if err := fs.ds.ReadMeta(id, &p); err != nil {
			continue
		}
		if p.OwnerID == ownerID {
			result = append(result, &p)
		}
	}
	return result, nil
}

// Touch updates the project's last-activity timestamp.
func (fs *FileStore) Touch(_ context.Context, id string, at time.Time) error {
	fs.ds.Lock()
	defer fs.ds.Unlock()

	p, err := fs.read(id)
	if err != nil {
		return err
	}
	p.LastActivityAt = at
	return fs.ds.WriteMeta(id, p)
}

var _ Store = (*FileStore)(nil)
