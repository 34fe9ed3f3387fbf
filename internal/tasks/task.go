// Package tasks provides the durable task record and its stores.
package tasks

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusTodo         Status = "todo"
	StatusInProgress   Status = "in_progress"
	StatusReview       Status = "review"
	StatusDone         Status = "done"
	StatusCancelled    Status = "cancelled"
	StatusWaitingHuman Status = "waiting_human_feedback"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone, StatusCancelled, StatusWaitingHuman:
		return true
	}
	return false
}

// Open reports whether the task still has work to pick up. Open tasks are
// the ones a new-task wait returns.
func (s Status) Open() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview:
		return true
	}
	return false
}

// OpenStatuses are the statuses with work left to pick up.
var OpenStatuses = []Status{StatusTodo, StatusInProgress, StatusReview}

// SubmittableStatuses are the statuses an agent may request through
// feedback submission. Creation-only statuses (todo) are excluded.
var SubmittableStatuses = []Status{
	StatusInProgress, StatusReview, StatusDone, StatusCancelled, StatusWaitingHuman,
}

// Submittable reports whether an agent may request s via feedback.
func (s Status) Submittable() bool {
	for _, v := range SubmittableStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Task is one unit of work shared between an AI actor and a human operator.
//
// Invariant maintained by the interaction service:
// AIWaitingFeedback == true ⇔ Status == waiting_human_feedback.
// InteractionSessionID is assigned on the first feedback submission of an
// interactive task, survives continue/complete cycles, and is cleared only
// when the task is cancelled.
type Task struct {
	ID                   string     `json:"id"`
	ProjectID            string     `json:"project_id"`
	CreatorID            string     `json:"creator_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	Status               Status     `json:"status"`
	IsInteractive        bool       `json:"is_interactive"`
	AIWaitingFeedback    bool       `json:"ai_waiting_feedback"`
	InteractionSessionID string     `json:"interaction_session_id,omitempty"`
	FeedbackContent      string     `json:"feedback_content,omitempty"`
	FeedbackAt           *time.Time `json:"feedback_at,omitempty"`
	Version              int64      `json:"version"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	CompletedAt          *time.Time `json:"completed_at,omitempty"`
}

// Clone returns a deep copy so callers can mutate without racing the store.
func (t *Task) Clone() *Task {
	c := *t
	if t.FeedbackAt != nil {
		ts := *t.FeedbackAt
		c.FeedbackAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		c.CompletedAt = &ts
	}
	return &c
}

// GenerateTaskID creates a unique task identifier.
func GenerateTaskID() string {
	u := uuid.New().String()
	return "task_" + strings.ReplaceAll(u[:8], "-", "")
}

// GenerateSessionID creates a fresh interaction session identifier.
func GenerateSessionID() string {
	return uuid.New().String()
}
