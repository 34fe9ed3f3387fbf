package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/taskrelay-io/taskrelay/internal/interaction"
)

// =============================================================================
// wait_for_new_tasks
// =============================================================================

// WaitForNewTasksTool blocks until a new open task appears in a project.
type WaitForNewTasksTool struct {
	waiter *interaction.Waiter
}

// NewWaitForNewTasksTool creates a new wait_for_new_tasks tool.
func NewWaitForNewTasksTool(waiter *interaction.Waiter) *WaitForNewTasksTool {
	return &WaitForNewTasksTool{waiter: waiter}
}

// WaitForNewTasksSpec returns the tool spec for wait_for_new_tasks.
func WaitForNewTasksSpec() *ToolSpec {
	return &ToolSpec{
		Name:        "wait_for_new_tasks",
		Description: "Block until a new open task is created in the project, or the timeout elapses. Only tasks created after the call begins are reported; the existing backlog never resolves the wait.",
		Parameters: map[string]ParamSpec{
			"project_name": {
				Type:        "string",
				Description: "The project to watch",
				Required:    true,
			},
			"timeout_seconds": {
				Type:        "integer",
				Description: "How long to wait, 30-7200 seconds",
				Default:     3600,
			},
			"poll_interval_seconds": {
				Type:        "integer",
				Description: "Fallback re-check cadence, 10-300 seconds",
				Default:     30,
			},
		},
	}
}

type waitForNewTasksInput struct {
	ProjectName  string `json:"project_name"`
	TimeoutSec   int    `json:"timeout_seconds"`
	PollInterval int    `json:"poll_interval_seconds"`
}

// Info returns the tool info for Eino registration.
func (t *WaitForNewTasksTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(WaitForNewTasksSpec()), nil
}

// InvokableRun blocks until new tasks appear or the wait times out.
func (t *WaitForNewTasksTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input waitForNewTasksInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("wait_for_new_tasks: parse input: %w", err)
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return "", err
	}

	params := interaction.ClampWait(input.TimeoutSec, input.PollInterval)
	res, err := t.waiter.WaitForNewTasks(ctx, actor, input.ProjectName, params)
	if err != nil {
		return "", fmt.Errorf("wait_for_new_tasks: %w", err)
	}
	return marshalResult(res)
}

var _ tool.InvokableTool = (*WaitForNewTasksTool)(nil)

// =============================================================================
// wait_for_human_feedback
// =============================================================================

// WaitForHumanFeedbackTool blocks until a human resolves an interaction
// session.
type WaitForHumanFeedbackTool struct {
	waiter *interaction.Waiter
}

// NewWaitForHumanFeedbackTool creates a new wait_for_human_feedback tool.
func NewWaitForHumanFeedbackTool(waiter *interaction.Waiter) *WaitForHumanFeedbackTool {
	return &WaitForHumanFeedbackTool{waiter: waiter}
}

// WaitForHumanFeedbackSpec returns the tool spec for wait_for_human_feedback.
func WaitForHumanFeedbackSpec() *ToolSpec {
	return &ToolSpec{
		Name:        "wait_for_human_feedback",
		Description: "Block until the human confirms completion or sends additional instructions for the given interaction session. Call while submit_task_feedback reports waiting_human_feedback=true, passing the session_id it returned; a task that is no longer waiting errors immediately.",
		Parameters: map[string]ParamSpec{
			"task_id": {
				Type:        "string",
				Description: "The waiting task",
				Required:    true,
			},
			"session_id": {
				Type:        "string",
				Description: "The interaction session returned by submit_task_feedback",
				Required:    true,
			},
			"timeout_seconds": {
				Type:        "integer",
				Description: "How long to wait, 30-7200 seconds",
				Default:     3600,
			},
			"poll_interval_seconds": {
				Type:        "integer",
				Description: "Fallback re-check cadence, 10-300 seconds",
				Default:     30,
			},
		},
	}
}

type waitForHumanFeedbackInput struct {
	TaskID       string `json:"task_id"`
	SessionID    string `json:"session_id"`
	TimeoutSec   int    `json:"timeout_seconds"`
	PollInterval int    `json:"poll_interval_seconds"`
}

// Info returns the tool info for Eino registration.
func (t *WaitForHumanFeedbackTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(WaitForHumanFeedbackSpec()), nil
}

// InvokableRun blocks until the session resolves or the wait times out.
func (t *WaitForHumanFeedbackTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input waitForHumanFeedbackInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("wait_for_human_feedback: parse input: %w", err)
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return "", err
	}

	params := interaction.ClampWait(input.TimeoutSec, input.PollInterval)
	res, err := t.waiter.WaitForHumanFeedback(ctx, actor, input.TaskID, input.SessionID, params)
	if err != nil {
		return "", fmt.Errorf("wait_for_human_feedback: %w", err)
	}
	return marshalResult(res)
}

var _ tool.InvokableTool = (*WaitForHumanFeedbackTool)(nil)
