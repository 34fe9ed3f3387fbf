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
// get_interaction_status
// =============================================================================

// GetInteractionStatusTool reads a task's current interaction state.
type GetInteractionStatusTool struct {
	svc *interaction.Service
}

// NewGetInteractionStatusTool creates a new get_interaction_status tool.
func NewGetInteractionStatusTool(svc *interaction.Service) *GetInteractionStatusTool {
	return &GetInteractionStatusTool{svc: svc}
}

// GetInteractionStatusSpec returns the tool spec for get_interaction_status.
func GetInteractionStatusSpec() *ToolSpec {
	return &ToolSpec{
		Name:        "get_interaction_status",
		Description: "Read a task's status, interactivity, waiting flag, current session, and last feedback without changing anything.",
		Parameters: map[string]ParamSpec{
			"task_id": {
				Type:        "string",
				Description: "The task to inspect",
				Required:    true,
			},
		},
	}
}

type taskIDInput struct {
	TaskID string `json:"task_id"`
}

// Info returns the tool info for Eino registration.
func (t *GetInteractionStatusTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(GetInteractionStatusSpec()), nil
}

// InvokableRun returns the interaction snapshot.
func (t *GetInteractionStatusTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input taskIDInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("get_interaction_status: parse input: %w", err)
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return "", err
	}

	snap, err := t.svc.InteractionStatus(ctx, actor, input.TaskID)
	if err != nil {
		return "", fmt.Errorf("get_interaction_status: %w", err)
	}
	return marshalResult(snap)
}

var _ tool.InvokableTool = (*GetInteractionStatusTool)(nil)

// =============================================================================
// get_interaction_history
// =============================================================================

// GetInteractionHistoryTool reads a task's full interaction ledger.
type GetInteractionHistoryTool struct {
	svc *interaction.Service
}

// NewGetInteractionHistoryTool creates a new get_interaction_history tool.
func NewGetInteractionHistoryTool(svc *interaction.Service) *GetInteractionHistoryTool {
	return &GetInteractionHistoryTool{svc: svc}
}

// GetInteractionHistorySpec returns the tool spec for get_interaction_history.
func GetInteractionHistorySpec() *ToolSpec {
	return &ToolSpec{
		Name:        "get_interaction_history",
		Description: "Read the full interaction history of a task: every agent feedback and human response, oldest first.",
		Parameters: map[string]ParamSpec{
			"task_id": {
				Type:        "string",
				Description: "The task to inspect",
				Required:    true,
			},
		},
	}
}

// Info returns the tool info for Eino registration.
func (t *GetInteractionHistoryTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(GetInteractionHistorySpec()), nil
}

// InvokableRun returns the task's ledger entries.
func (t *GetInteractionHistoryTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input taskIDInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("get_interaction_history: parse input: %w", err)
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return "", err
	}

	entries, err := t.svc.InteractionHistory(ctx, actor, input.TaskID)
	if err != nil {
		return "", fmt.Errorf("get_interaction_history: %w", err)
	}
	return marshalResult(map[string]any{
		"task_id": input.TaskID,
		"entries": entries,
		"total":   len(entries),
	})
}

var _ tool.InvokableTool = (*GetInteractionHistoryTool)(nil)
