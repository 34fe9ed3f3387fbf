package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/interaction"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

// actorFrom extracts the authenticated actor from the tool call context.
func actorFrom(ctx context.Context) (auth.Actor, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok || actor.ID == "" {
		return auth.Actor{}, fmt.Errorf("no authenticated actor on context")
	}
	return actor, nil
}

func marshalResult(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// =============================================================================
// submit_task_feedback
// =============================================================================

// SubmitTaskFeedbackTool lets an agent report progress and request a status
// change on a task.
type SubmitTaskFeedbackTool struct {
	svc *interaction.Service
}

// NewSubmitTaskFeedbackTool creates a new submit_task_feedback tool.
func NewSubmitTaskFeedbackTool(svc *interaction.Service) *SubmitTaskFeedbackTool {
	return &SubmitTaskFeedbackTool{svc: svc}
}

// SubmitTaskFeedbackSpec returns the tool spec for submit_task_feedback.
func SubmitTaskFeedbackSpec() *ToolSpec {
	return &ToolSpec{
		Name:        "submit_task_feedback",
		Description: "Submit feedback on a task and request a status change. On interactive tasks, requesting 'done' parks the task until a human confirms; use wait_for_human_feedback with the returned session_id to block for the verdict.",
		Parameters: map[string]ParamSpec{
			"task_id": {
				Type:        "string",
				Description: "The task to report on",
				Required:    true,
			},
			"project_name": {
				Type:        "string",
				Description: "Optional project name cross-check; the call fails if the task belongs to another project",
			},
			"feedback_content": {
				Type:        "string",
				Description: "What was done, found, or decided",
				Required:    true,
			},
			"status": {
				Type:        "string",
				Description: "The status to request",
				Required:    true,
				Enum:        []string{"in_progress", "review", "done", "cancelled", "waiting_human_feedback"},
			},
			"ai_identifier": {
				Type:        "string",
				Description: "Name of the submitting agent, recorded in the interaction history",
			},
		},
	}
}

type submitTaskFeedbackInput struct {
	TaskID       string `json:"task_id"`
	ProjectName  string `json:"project_name"`
	Content      string `json:"feedback_content"`
	Status       string `json:"status"`
	AIIdentifier string `json:"ai_identifier"`
}

// Info returns the tool info for Eino registration.
func (t *SubmitTaskFeedbackTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(SubmitTaskFeedbackSpec()), nil
}

// InvokableRun submits the feedback and returns the resulting task state.
func (t *SubmitTaskFeedbackTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input submitTaskFeedbackInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("submit_task_feedback: parse input: %w", err)
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return "", err
	}

	res, err := t.svc.SubmitFeedback(ctx, actor, interaction.SubmitFeedbackRequest{
		TaskID:      input.TaskID,
		ProjectName: input.ProjectName,
		Content:     input.Content,
		Status:      tasks.Status(input.Status),
		ActorTag:    input.AIIdentifier,
	})
	if err != nil {
		return "", fmt.Errorf("submit_task_feedback: %w", err)
	}

	out := map[string]any{
		"success":                true,
		"task_id":                res.Task.ID,
		"status":                 string(res.Task.Status),
		"is_interactive":         res.Task.IsInteractive,
		"waiting_human_feedback": res.WaitingHuman,
		"ai_waiting_feedback":    res.Task.AIWaitingFeedback,
	}
	if res.SessionID != "" {
		out["session_id"] = res.SessionID
	}
	if res.Message != "" {
		out["message"] = res.Message
	}
	return marshalResult(out)
}

var _ tool.InvokableTool = (*SubmitTaskFeedbackTool)(nil)

// =============================================================================
// submit_human_feedback
// =============================================================================

// SubmitHumanFeedbackTool records a human verdict on a waiting task. It is
// exposed for human-side frontends speaking MCP; agents use the wait tool
// instead.
type SubmitHumanFeedbackTool struct {
	svc *interaction.Service
}

// NewSubmitHumanFeedbackTool creates a new submit_human_feedback tool.
func NewSubmitHumanFeedbackTool(svc *interaction.Service) *SubmitHumanFeedbackTool {
	return &SubmitHumanFeedbackTool{svc: svc}
}

// SubmitHumanFeedbackSpec returns the tool spec for submit_human_feedback.
func SubmitHumanFeedbackSpec() *ToolSpec {
	return &ToolSpec{
		Name:        "submit_human_feedback",
		Description: "Record a human verdict on a task waiting for feedback: confirm completion or send it back with additional instructions.",
		Parameters: map[string]ParamSpec{
			"task_id": {
				Type:        "string",
				Description: "The waiting task",
				Required:    true,
			},
			"session_id": {
				Type:        "string",
				Description: "The interaction session being resolved",
				Required:    true,
			},
			"feedback_content": {
				Type:        "string",
				Description: "The verdict text, or the additional instructions when continuing",
				Required:    true,
			},
			"action": {
				Type:        "string",
				Description: "'complete' confirms the task is done; 'continue' returns it to in_progress",
				Required:    true,
				Enum:        []string{"complete", "continue"},
			},
		},
	}
}

type submitHumanFeedbackInput struct {
	TaskID    string `json:"task_id"`
	SessionID string `json:"session_id"`
	Content   string `json:"feedback_content"`
	Action    string `json:"action"`
}

// Info returns the tool info for Eino registration.
func (t *SubmitHumanFeedbackTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(SubmitHumanFeedbackSpec()), nil
}

// InvokableRun records the verdict and returns the resulting task state.
func (t *SubmitHumanFeedbackTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input submitHumanFeedbackInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("submit_human_feedback: parse input: %w", err)
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return "", err
	}

	res, err := t.svc.SubmitHumanResponse(ctx, actor, interaction.HumanResponseRequest{
		TaskID:    input.TaskID,
		SessionID: input.SessionID,
		Content:   input.Content,
		Action:    input.Action,
	})
	if err != nil {
		return "", fmt.Errorf("submit_human_feedback: %w", err)
	}

	return marshalResult(map[string]any{
		"success":             true,
		"task_id":             res.Task.ID,
		"status":              string(res.Task.Status),
		"session_id":          res.Task.InteractionSessionID,
		"action":              input.Action,
		"ai_waiting_feedback": res.Task.AIWaitingFeedback,
	})
}

var _ tool.InvokableTool = (*SubmitHumanFeedbackTool)(nil)
