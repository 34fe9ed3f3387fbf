package interaction

import (
	"context"
	"sort"

	"github.com/taskrelay-io/taskrelay/internal/storage/dirstore"
)

// FileLedger persists entries as one entries.jsonl per task directory.
type FileLedger struct {
	ds *dirstore.DirStore
}

// NewFileLedger creates a FileLedger rooted at baseDir.
func NewFileLedger(baseDir string) *FileLedger {
	return &FileLedger{ds: dirstore.NewDirStore(baseDir, "interaction")}
}

// Append writes one entry to the task's JSONL file.
func (fl *FileLedger) Append(_ context.Context, e *Entry) error {
	fl.ds.Lock()
	defer fl.ds.Unlock()

	if err := fl.ds.EnsureDir(e.TaskID); err != nil {
		return err
	}
	return fl.ds.AppendJSONL(e.TaskID, "entries.jsonl", e)
}

// ForTask returns all entries for a task, ordered by CreatedAt ascending.
func (fl *FileLedger) ForTask(_ context.Context, taskID string) ([]*Entry, error) {
	fl.ds.RLock()
	defer fl.ds.RUnlock()

	entries, err := dirstore.LoadJSONL[Entry](fl.ds, taskID, "entries.jsonl")
	if err != nil {
		return nil, err
	}

	result := make([]*Entry, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// ForSession returns one session's entries, ordered by CreatedAt ascending.
func (fl *FileLedger) ForSession(ctx context.Context, taskID, sessionID string) ([]*Entry, error) {
	all, err := fl.ForTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var result []*Entry
	for _, e := range all {
		if e.SessionID == sessionID {
			result = append(result, e)
		}
	}
	return result, nil
}

var _ Ledger = (*FileLedger)(nil)
