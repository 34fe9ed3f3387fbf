package interaction

import "context"

// Ledger is the append-only store of interaction entries. Entries are never
// updated or deleted; they are the audit trail the wait primitives scan.
type Ledger interface {
	Append(ctx context.Context, e *Entry) error
	// ForTask returns all entries for a task, ordered by CreatedAt ascending.
	ForTask(ctx context.Context, taskID string) ([]*Entry, error)
	// ForSession returns the entries of one session of a task, ordered by
	// CreatedAt ascending.
	ForSession(ctx context.Context, taskID, sessionID string) ([]*Entry, error)
}
