package tools

import (
	"fmt"
	"sort"

	"github.com/cloudwego/eino/components/tool"

	"github.com/taskrelay-io/taskrelay/internal/interaction"
)

// Registry holds the registered tools and their specs.
type Registry struct {
	tools map[string]tool.InvokableTool
	specs map[string]*ToolSpec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]tool.InvokableTool),
		specs: make(map[string]*ToolSpec),
	}
}

// Register adds a tool under its spec name.
func (r *Registry) Register(spec *ToolSpec, t tool.InvokableTool) error {
	if _, exists := r.tools[spec.Name]; exists {
		return fmt.Errorf("tool %q already registered", spec.Name)
	}
	r.tools[spec.Name] = t
	r.specs[spec.Name] = spec
	return nil
}

// Tool returns the InvokableTool for a given name, or nil if not found.
func (r *Registry) Tool(name string) tool.InvokableTool {
	return r.tools[name]
}

// Spec returns the ToolSpec for a given tool name.
func (r *Registry) Spec(name string) *ToolSpec {
	return r.specs[name]
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns all registered tools as a slice.
func (r *Registry) Tools() []tool.InvokableTool {
	result := make([]tool.InvokableTool, 0, len(r.tools))
	for _, name := range r.Names() {
		result = append(result, r.tools[name])
	}
	return result
}

// NewCoordinationRegistry registers the full coordination tool set.
func NewCoordinationRegistry(svc *interaction.Service, waiter *interaction.Waiter) (*Registry, error) {
	r := NewRegistry()

	register := []struct {
		spec *ToolSpec
		tool tool.InvokableTool
	}{
		{SubmitTaskFeedbackSpec(), NewSubmitTaskFeedbackTool(svc)},
		{SubmitHumanFeedbackSpec(), NewSubmitHumanFeedbackTool(svc)},
		{WaitForNewTasksSpec(), NewWaitForNewTasksTool(waiter)},
		{WaitForHumanFeedbackSpec(), NewWaitForHumanFeedbackTool(waiter)},
		{GetInteractionStatusSpec(), NewGetInteractionStatusTool(svc)},
		{GetInteractionHistorySpec(), NewGetInteractionHistoryTool(svc)},
		{CreateTaskSpec(), NewCreateTaskTool(svc)},
	}
	for _, item := range register {
		if err := r.Register(item.spec, item.tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}
