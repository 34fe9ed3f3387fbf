// Package interaction implements the agent/human coordination core: the
// session ledger, the task-status state machine, and the bounded-wait
// primitives.
package interaction

import (
	"time"

	"github.com/google/uuid"
)

// EntryType distinguishes the two sides of an interaction session.
type EntryType string

const (
	EntryAIFeedback    EntryType = "ai_feedback"
	EntryHumanResponse EntryType = "human_response"
)

// EntryStatus is the resolution state of an entry. It is meaningful for
// human responses; AI feedback entries stay pending (informational).
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryContinued EntryStatus = "continued"
)

// Entry is one immutable record in the interaction ledger.
type Entry struct {
	ID        string            `json:"id"`
	TaskID    string            `json:"task_id"`
	SessionID string            `json:"session_id"`
	Type      EntryType         `json:"type"`
	Status    EntryStatus       `json:"status"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	CreatedBy string            `json:"created_by"`
}

// NewAIFeedback builds an AI-side feedback entry.
func NewAIFeedback(taskID, sessionID, content string, metadata map[string]string, createdBy string) *Entry {
	return &Entry{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		SessionID: sessionID,
		Type:      EntryAIFeedback,
		Status:    EntryPending,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
	}
}

// NewHumanResponse builds a human-side response entry.
func NewHumanResponse(taskID, sessionID, content string, status EntryStatus, metadata map[string]string, createdBy string) *Entry {
	return &Entry{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		SessionID: sessionID,
		Type:      EntryHumanResponse,
		Status:    status,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
		CreatedBy: createdBy,
	}
}

// LatestHumanResponse returns the newest human response for sessionID among
// entries, restricted to entries created after the given time when after is
// non-zero. Returns nil when none match.
func LatestHumanResponse(entries []*Entry, sessionID string, after time.Time) *Entry {
	var latest *Entry
	for _, e := range entries {
		if e.Type != EntryHumanResponse || e.SessionID != sessionID {
			continue
		}
		if !after.IsZero() && !e.CreatedAt.After(after) {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	return latest
}
