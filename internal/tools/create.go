package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/taskrelay-io/taskrelay/internal/interaction"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

// CreateTaskTool registers a new task in a project.
type CreateTaskTool struct {
	svc *interaction.Service
}

// NewCreateTaskTool creates a new create_task tool.
func NewCreateTaskTool(svc *interaction.Service) *CreateTaskTool {
	return &CreateTaskTool{svc: svc}
}

// CreateTaskSpec returns the tool spec for create_task.
func CreateTaskSpec() *ToolSpec {
	return &ToolSpec{
		Name:        "create_task",
		Description: "Create a task in a project. Interactive tasks route completion claims through human confirmation; the flag is fixed at creation.",
		Parameters: map[string]ParamSpec{
			"project_name": {
				Type:        "string",
				Description: "The project the task belongs to",
				Required:    true,
			},
			"title": {
				Type:        "string",
				Description: "Short title of the task",
				Required:    true,
			},
			"description": {
				Type:        "string",
				Description: "What the task should accomplish",
			},
			"status": {
				Type:        "string",
				Description: "Initial status, defaults to todo",
				Enum:        []string{"todo", "in_progress", "review"},
			},
			"is_interactive": {
				Type:        "boolean",
				Description: "Whether completion requires human confirmation",
			},
		},
	}
}

type createTaskInput struct {
	ProjectName   string `json:"project_name"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	IsInteractive bool   `json:"is_interactive"`
}

// Info returns the tool info for Eino registration.
func (t *CreateTaskTool) Info(_ context.Context) (*schema.ToolInfo, error) {
	return toolSpecToToolInfo(CreateTaskSpec()), nil
}

// InvokableRun creates the task and returns it.
func (t *CreateTaskTool) InvokableRun(ctx context.Context, argumentsInJSON string, _ ...tool.Option) (string, error) {
	var input createTaskInput
	if err := json.Unmarshal([]byte(argumentsInJSON), &input); err != nil {
		return "", fmt.Errorf("create_task: parse input: %w", err)
	}
	actor, err := actorFrom(ctx)
	if err != nil {
		return "", err
	}

	task, err := t.svc.CreateTask(ctx, actor, interaction.CreateTaskRequest{
		ProjectName:   input.ProjectName,
		Title:         input.Title,
		Description:   input.Description,
		Status:        tasks.Status(input.Status),
		IsInteractive: input.IsInteractive,
	})
	if err != nil {
		return "", fmt.Errorf("create_task: %w", err)
	}
	return marshalResult(task)
}

var _ tool.InvokableTool = (*CreateTaskTool)(nil)
