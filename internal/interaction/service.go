package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/events"
	"github.com/taskrelay-io/taskrelay/internal/projects"
	"github.com/taskrelay-io/taskrelay/internal/sanitize"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

// Human response actions.
const (
	ActionComplete = "complete"
	ActionContinue = "continue"
)

// DefaultActorTag identifies AI feedback when the caller names no agent.
const DefaultActorTag = "AI Assistant"

// Service is the task-status state machine. All task mutation in the
// interactive loop flows through it; every write signals the event bus so
// blocked waiters wake immediately.
type Service struct {
	tasks    tasks.Store
	projects projects.Store
	ledger   Ledger
	bus      *events.Bus
	now      func() time.Time
}

// NewService wires the state machine to its stores and the signal bus.
func NewService(taskStore tasks.Store, projectStore projects.Store, ledger Ledger, bus *events.Bus) *Service {
	return &Service{
		tasks:    taskStore,
		projects: projectStore,
		ledger:   ledger,
		bus:      bus,
		now:      time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SubmitFeedbackRequest carries one agent feedback submission.
type SubmitFeedbackRequest struct {
	TaskID      string
	ProjectName string // optional cross-check; rejected if the task lives elsewhere
	Content     string
	Status      tasks.Status
	ActorTag    string // e.g. "claude-agent"; defaults to DefaultActorTag
}

// FeedbackResult is the task/session snapshot returned to the agent.
type FeedbackResult struct {
	Task         *tasks.Task
	SessionID    string
	WaitingHuman bool
	Message      string
}

// SubmitFeedback applies one agent feedback submission to the task.
//
// Interactive tasks requesting done are parked in waiting_human_feedback
// until a human verdict arrives; other requested statuses apply directly.
// Non-interactive tasks take the requested status verbatim with no ledger
// entry. Cancellation always applies directly and closes the interaction
// session. A task already waiting for a human rejects further feedback
// (except cancellation) as invalid_state.
func (s *Service) SubmitFeedback(ctx context.Context, actor auth.Actor, req SubmitFeedbackRequest) (*FeedbackResult, error) {
	content := sanitize.Clean(req.Content)
	if content == "" {
		return nil, Errorf(KindInvalidArgument, "feedback_content is required")
	}
	if !req.Status.Submittable() {
		return nil, Errorf(KindInvalidArgument, "invalid status %q, must be one of: in_progress, review, done, cancelled, waiting_human_feedback", req.Status)
	}
	actorTag := sanitize.Clean(req.ActorTag)
	if actorTag == "" {
		actorTag = DefaultActorTag
	}

	task, project, err := loadTaskGuarded(ctx, s.tasks, s.projects, actor, req.TaskID)
	if err != nil {
		return nil, err
	}
	if name := sanitize.Clean(req.ProjectName); name != "" && project.Name != name {
		return nil, Errorf(KindNotFound, "task %s does not belong to project %q", task.ID, name)
	}

	if task.Status == tasks.StatusWaitingHuman && req.Status != tasks.StatusCancelled {
		return nil, Errorf(KindInvalidState, "task %s is already waiting for human feedback; wait for the verdict or cancel", task.ID)
	}

	now := s.now()
	oldStatus := task.Status
	task.FeedbackContent = content
	task.FeedbackAt = &now

	switch {
	case req.Status == tasks.StatusCancelled:
		// Cancellation applies regardless of interactivity and ends the
		// interactive loop: the session is cleared, never reused.
		task.Status = tasks.StatusCancelled
		task.AIWaitingFeedback = false
		task.InteractionSessionID = ""

	case !task.IsInteractive:
		if req.Status == tasks.StatusWaitingHuman {
			return nil, Errorf(KindInvalidState, "task %s is not interactive and cannot wait for human feedback", task.ID)
		}
		task.Status = req.Status
		task.AIWaitingFeedback = false

	default:
		// First submission of an interactive cycle binds the session;
		// continue/complete rounds keep reusing it.
		if task.InteractionSessionID == "" {
			task.InteractionSessionID = tasks.GenerateSessionID()
		}

		entry := NewAIFeedback(task.ID, task.InteractionSessionID, content, map[string]string{
			"ai_identifier":    actorTag,
			"original_status":  string(oldStatus),
			"requested_status": string(req.Status),
		}, actorTag)
		if err := s.ledger.Append(ctx, entry); err != nil {
			return nil, fmt.Errorf("append feedback entry: %w", err)
		}

		if req.Status == tasks.StatusDone || req.Status == tasks.StatusWaitingHuman {
			// Completion claims and explicit waiting requests both park
			// the task pending human sign-off.
			task.Status = tasks.StatusWaitingHuman
			task.AIWaitingFeedback = true
		} else {
			task.Status = req.Status
			task.AIWaitingFeedback = false
		}
	}

	if task.Status == tasks.StatusDone {
		task.CompletedAt = &now
	}

	if err := s.updateTask(ctx, task); err != nil {
		return nil, err
	}
	s.touchProject(ctx, project, now)

	s.bus.Publish(events.NewEvent(events.EventTaskFeedback, task.ProjectID, task.ID, task.InteractionSessionID, map[string]any{
		"status":           string(task.Status),
		"requested_status": string(req.Status),
		"ai_identifier":    actorTag,
	}))

	slog.Info("feedback submitted",
		"task", task.ID, "session", task.InteractionSessionID,
		"from", oldStatus, "requested", req.Status, "applied", task.Status)

	result := &FeedbackResult{
		Task:         task,
		SessionID:    task.InteractionSessionID,
		WaitingHuman: task.AIWaitingFeedback,
	}
	if task.AIWaitingFeedback {
		result.Message = "Task feedback submitted. Waiting for human confirmation or additional instructions."
	}
	return result, nil
}

// HumanResponseRequest carries one human verdict on a waiting task.
type HumanResponseRequest struct {
	TaskID    string
	SessionID string
	Content   string
	Action    string // complete | continue
}

// HumanResponseResult is the updated task plus the ledger entry written.
type HumanResponseResult struct {
	Task  *tasks.Task
	Entry *Entry
}

// SubmitHumanResponse resolves one waiting_human_feedback episode.
// Complete marks the task done; continue returns it to in_progress with the
// session retained so the next agent submission extends the same audit
// thread.
func (s *Service) SubmitHumanResponse(ctx context.Context, actor auth.Actor, req HumanResponseRequest) (*HumanResponseResult, error) {
	content := sanitize.Clean(req.Content)
	if content == "" {
		return nil, Errorf(KindInvalidArgument, "feedback_content is required")
	}
	if req.Action != ActionComplete && req.Action != ActionContinue {
		return nil, Errorf(KindInvalidArgument, "action must be %q or %q", ActionComplete, ActionContinue)
	}
	sessionID := sanitize.Clean(req.SessionID)
	if sessionID == "" {
		return nil, Errorf(KindInvalidArgument, "session_id is required")
	}

	task, project, err := loadTaskGuarded(ctx, s.tasks, s.projects, actor, req.TaskID)
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
		// A stale or replayed wait handle must not resolve the wrong cycle.
		return nil, Errorf(KindSessionMismatch, "session %s does not match the task's current session", sessionID)
	}

	status := EntryCompleted
	if req.Action == ActionContinue {
		status = EntryContinued
	}

	entry := NewHumanResponse(task.ID, sessionID, content, status, map[string]string{
		"action":   req.Action,
		"actor_id": actor.ID,
	}, "user_"+actor.ID)
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append response entry: %w", err)
	}

	now := s.now()
	task.AIWaitingFeedback = false
	if req.Action == ActionComplete {
		task.Status = tasks.StatusDone
		task.CompletedAt = &now
	} else {
		// Session retained: the next feedback submission continues the
		// same audit thread.
		task.Status = tasks.StatusInProgress
	}

	if err := s.updateTask(ctx, task); err != nil {
		return nil, err
	}
	s.touchProject(ctx, project, now)

	s.bus.Publish(events.NewEvent(events.EventHumanResponse, task.ProjectID, task.ID, sessionID, map[string]any{
		"action":  req.Action,
		"content": content,
	}))

	slog.Info("human response recorded", "task", task.ID, "session", sessionID, "action", req.Action)

	return &HumanResponseResult{Task: task, Entry: entry}, nil
}

// CreateTaskRequest carries the fields of a new task.
type CreateTaskRequest struct {
	ProjectName   string
	Title         string
	Description   string
	Status        tasks.Status // optional; defaults to todo
	IsInteractive bool
}

// CreateTask registers a new task in a project and signals any new-task
// waiters. IsInteractive is fixed here for the task's lifetime.
func (s *Service) CreateTask(ctx context.Context, actor auth.Actor, req CreateTaskRequest) (*tasks.Task, error) {
	title := sanitize.Clean(req.Title)
	if title == "" {
		return nil, Errorf(KindInvalidArgument, "title is required")
	}
	status := req.Status
	if status == "" {
		status = tasks.StatusTodo
	}
	if !status.Valid() || status == tasks.StatusWaitingHuman {
		return nil, Errorf(KindInvalidArgument, "invalid initial status %q", req.Status)
	}

	project, err := loadProjectGuarded(ctx, s.projects, actor, sanitize.Clean(req.ProjectName))
	if err != nil {
		return nil, err
	}

	task := &tasks.Task{
		ProjectID:     project.ID,
		CreatorID:     actor.ID,
		Title:         title,
		Description:   sanitize.Clean(req.Description),
		Status:        status,
		IsInteractive: req.IsInteractive,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	s.touchProject(ctx, project, s.now())

	s.bus.Publish(events.NewEvent(events.EventTaskCreated, project.ID, task.ID, "", map[string]any{
		"title":  task.Title,
		"status": string(task.Status),
	}))

	slog.Info("task created", "task", task.ID, "project", project.Name, "interactive", task.IsInteractive)

	return task, nil
}

// ListTasks returns a project's tasks, optionally filtered by status.
func (s *Service) ListTasks(ctx context.Context, actor auth.Actor, projectName string, statuses []tasks.Status) ([]*tasks.Task, error) {
	project, err := loadProjectGuarded(ctx, s.projects, actor, projectName)
	if err != nil {
		return nil, err
	}
	list, err := s.tasks.List(ctx, tasks.ListFilter{ProjectID: project.ID, Statuses: statuses})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return list, nil
}

// StatusSnapshot is the read-only interaction state of a task.
type StatusSnapshot struct {
	TaskID            string       `json:"task_id"`
	TaskStatus        tasks.Status `json:"task_status"`
	IsInteractive     bool         `json:"is_interactive"`
	AIWaitingFeedback bool         `json:"ai_waiting_feedback"`
	SessionID         string       `json:"interaction_session_id,omitempty"`
	FeedbackContent   string       `json:"feedback_content,omitempty"`
	FeedbackAt        *time.Time   `json:"feedback_at,omitempty"`
}

// InteractionStatus returns the task's interaction snapshot. No side effects.
func (s *Service) InteractionStatus(ctx context.Context, actor auth.Actor, taskID string) (*StatusSnapshot, error) {
	task, _, err := loadTaskGuarded(ctx, s.tasks, s.projects, actor, taskID)
	if err != nil {
		return nil, err
	}
	return &StatusSnapshot{
		TaskID:            task.ID,
		TaskStatus:        task.Status,
		IsInteractive:     task.IsInteractive,
		AIWaitingFeedback: task.AIWaitingFeedback,
		SessionID:         task.InteractionSessionID,
		FeedbackContent:   task.FeedbackContent,
		FeedbackAt:        task.FeedbackAt,
	}, nil
}

// InteractionHistory returns the task's full ledger, oldest first. No side
// effects.
func (s *Service) InteractionHistory(ctx context.Context, actor auth.Actor, taskID string) ([]*Entry, error) {
	task, _, err := loadTaskGuarded(ctx, s.tasks, s.projects, actor, taskID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.ForTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}

func (s *Service) updateTask(ctx context.Context, task *tasks.Task) error {
	err := s.tasks.Update(ctx, task)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, tasks.ErrVersionConflict):
		return Errorf(KindConflict, "task %s was modified concurrently, re-read and retry", task.ID)
	case errors.Is(err, tasks.ErrNotFound):
		return Errorf(KindNotFound, "task %s not found", task.ID)
	default:
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
}

func (s *Service) touchProject(ctx context.Context, project *projects.Project, at time.Time) {
	if err := s.projects.Touch(ctx, project.ID, at); err != nil {
		slog.Warn("failed to touch project activity", "project", project.ID, "error", err)
	}
}
