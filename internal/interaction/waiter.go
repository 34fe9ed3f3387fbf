package interaction

import (
	"context"
	"fmt"
	"time"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/events"
	"github.com/taskrelay-io/taskrelay/internal/projects"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

// Wait bounds. Caller-supplied values outside these ranges are clamped, not
// rejected.
const (
	MinWaitTimeout  = 30 * time.Second
	MaxWaitTimeout  = 2 * time.Hour
	MinPollInterval = 10 * time.Second
	MaxPollInterval = 5 * time.Minute

	DefaultWaitTimeout  = time.Hour
	DefaultPollInterval = 30 * time.Second
)

// WaitParams are the resolved bounds of one wait call.
type WaitParams struct {
	Timeout  time.Duration
	Interval time.Duration
}

// ClampWait normalizes caller-supplied timeout/interval seconds into bounded
// WaitParams. Zero or negative values take the defaults.
func ClampWait(timeoutSec, intervalSec int) WaitParams {
	p := WaitParams{
		Timeout:  time.Duration(timeoutSec) * time.Second,
		Interval: time.Duration(intervalSec) * time.Second,
	}
	if timeoutSec <= 0 {
		p.Timeout = DefaultWaitTimeout
	}
	if intervalSec <= 0 {
		p.Interval = DefaultPollInterval
	}
	if p.Timeout < MinWaitTimeout {
		p.Timeout = MinWaitTimeout
	}
	if p.Timeout > MaxWaitTimeout {
		p.Timeout = MaxWaitTimeout
	}
	if p.Interval < MinPollInterval {
		p.Interval = MinPollInterval
	}
	if p.Interval > MaxPollInterval {
		p.Interval = MaxPollInterval
	}
	return p
}

// Waiter implements the two long-poll primitives. Each wait combines a
// periodic re-check with bus wakeups, so matching writes resolve the wait
// well before the next poll tick.
type Waiter struct {
	tasks    tasks.Store
	projects projects.Store
	ledger   Ledger
	bus      *events.Bus
	now      func() time.Time
}

// NewWaiter wires the wait coordinator to its stores and the signal bus.
func NewWaiter(taskStore tasks.Store, projectStore projects.Store, ledger Ledger, bus *events.Bus) *Waiter {
	return &Waiter{
		tasks:    taskStore,
		projects: projectStore,
		ledger:   ledger,
		bus:      bus,
		now:      time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (w *Waiter) WithClock(now func() time.Time) *Waiter {
	w.now = now
	return w
}

// NewTasksResult reports the outcome of one new-task wait.
type NewTasksResult struct {
	ProjectID     string        `json:"project_id"`
	ProjectName   string        `json:"project_name"`
	NewTasks      []*tasks.Task `json:"new_tasks"`
	TotalNewTasks int           `json:"total_new_tasks"`
	PollCount     int           `json:"poll_count"`
	Timeout       bool          `json:"timeout"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at"`
	Message       string        `json:"message"`
}

// WaitForNewTasks blocks until an open task created after the call appears
// in the project, the wait times out, or ctx is cancelled. Only tasks
// created after the wait began count; pre-existing backlog never resolves
// the wait.
func (w *Waiter) WaitForNewTasks(ctx context.Context, actor auth.Actor, projectName string, p WaitParams) (*NewTasksResult, error) {
	project, err := loadProjectGuarded(ctx, w.projects, actor, projectName)
	if err != nil {
		return nil, err
	}

	start := w.now()
	deadline := start.Add(p.Timeout)
	result := &NewTasksResult{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		StartedAt:   start,
	}

	signal, unsubscribe := w.bus.SubscribeChan(16, events.EventTaskCreated)
	defer unsubscribe()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		result.PollCount++
		fresh, err := w.tasks.List(ctx, tasks.ListFilter{
			ProjectID:    project.ID,
			Statuses:     tasks.OpenStatuses,
			CreatedAfter: start,
		})
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		if len(fresh) > 0 {
			result.NewTasks = fresh
			result.TotalNewTasks = len(fresh)
			result.EndedAt = w.now()
			result.Message = fmt.Sprintf("Found %d new task(s) in project '%s'.", len(fresh), project.Name)
			return result, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			result.Timeout = true
			result.EndedAt = w.now()
			result.Message = fmt.Sprintf("No new tasks appeared in project '%s' within the wait window.", project.Name)
			return result, nil
		}

		wake := remaining
		if p.Interval < wake {
			wake = p.Interval
		}
		ticker.Reset(wake)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev := <-signal:
			if ev.ProjectID != project.ID {
				continue
			}
		case <-ticker.C:
		}
	}
}

// HumanResponseView is the response portion of a human-feedback wait result.
type HumanResponseView struct {
	Content   string      `json:"content"`
	Status    EntryStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	CreatedBy string      `json:"created_by"`
}

// HumanFeedbackResult reports the outcome of one human-feedback wait.
type HumanFeedbackResult struct {
	TaskID                 string             `json:"task_id"`
	SessionID              string             `json:"session_id"`
	Received               bool               `json:"human_feedback_received"`
	Timeout                bool               `json:"timeout"`
	PollCount              int                `json:"poll_count"`
	TaskStatus             tasks.Status       `json:"task_status"`
	AIWaitingFeedback      bool               `json:"ai_waiting_feedback"`
	Response               *HumanResponseView `json:"human_response,omitempty"`
	Action                 string             `json:"action,omitempty"`
	AdditionalInstructions string             `json:"additional_instructions,omitempty"`
	Message                string             `json:"message"`
}

// WaitForHumanFeedback blocks until the human resolves the given interaction
// session, the wait times out, or ctx is cancelled.
//
// The task must currently be waiting for human feedback; a task that already
// left the waiting state errors immediately, it never polls. The wait
// resolves when the task drops out of the waiting state: with the verdict
// when a human response entry for the session exists (newest wins), without
// one when the episode ended out of band (a concurrent cancel). The verdict
// is trusted only once the task itself has left the waiting state, so a
// ledger entry whose task update lost its version race never resolves a
// wait. Timeout leaves the task untouched in its waiting state.
func (w *Waiter) WaitForHumanFeedback(ctx context.Context, actor auth.Actor, taskID, sessionID string, p WaitParams) (*HumanFeedbackResult, error) {
	if sessionID == "" {
		return nil, Errorf(KindInvalidArgument, "session_id is required")
	}

	// Start is captured before the precondition load: any verdict landing
	// after the check passes is necessarily newer than start.
	start := w.now()
	deadline := start.Add(p.Timeout)

	task, _, err := loadTaskGuarded(ctx, w.tasks, w.projects, actor, taskID)
	if err != nil {
		return nil, err
	}
	if !task.IsInteractive {
		return nil, Errorf(KindInvalidState, "task %s is not interactive", task.ID)
	}
	if !task.AIWaitingFeedback {
		return nil, Errorf(KindInvalidState, "task %s is not waiting for human feedback", task.ID)
	}
	if task.InteractionSessionID != sessionID {
		return nil, Errorf(KindSessionMismatch, "session %s does not match the task's current session", sessionID)
	}

	result := &HumanFeedbackResult{
		TaskID:    task.ID,
		SessionID: sessionID,
	}

	signal, unsubscribe := w.bus.SubscribeChan(16, events.EventHumanResponse, events.EventTaskFeedback)
	defer unsubscribe()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		result.PollCount++
		task, err = w.tasks.Get(ctx, taskID)
		if err != nil {
			return nil, fmt.Errorf("reload task %s: %w", taskID, err)
		}
		result.TaskStatus = task.Status
		result.AIWaitingFeedback = task.AIWaitingFeedback

		if !task.AIWaitingFeedback {
			entries, err := w.ledger.ForSession(ctx, taskID, sessionID)
			if err != nil {
				return nil, fmt.Errorf("load session entries: %w", err)
			}
			if response := LatestHumanResponse(entries, sessionID, start); response != nil {
				w.fillResponse(result, response)
				return result, nil
			}
			// No response but no longer waiting: resolved out of band,
			// e.g. cancelled.
			result.Received = false
			result.Message = fmt.Sprintf("Task is no longer waiting for human feedback (status: %s).", task.Status)
			return result, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			result.Timeout = true
			result.Message = "Timeout waiting for human feedback. Task remains in waiting state."
			return result, nil
		}

		wake := remaining
		if p.Interval < wake {
			wake = p.Interval
		}
		ticker.Reset(wake)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev := <-signal:
			if ev.TaskID != taskID {
				continue
			}
		case <-ticker.C:
		}
	}
}

func (w *Waiter) fillResponse(result *HumanFeedbackResult, response *Entry) {
	result.Received = true
	result.Response = &HumanResponseView{
		Content:   response.Content,
		Status:    response.Status,
		CreatedAt: response.CreatedAt,
		CreatedBy: response.CreatedBy,
	}
	switch response.Status {
	case EntryCompleted:
		result.Action = "task_completed"
		result.Message = "Human has confirmed task completion."
	case EntryContinued:
		result.Action = "continue_task"
		result.AdditionalInstructions = response.Content
		result.Message = "Human has provided additional instructions. Continue working on the task."
	default:
		result.Action = "pending"
		result.Message = "Human response recorded."
	}
}
