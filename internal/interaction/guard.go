package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/projects"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

// loadTaskGuarded fetches a task and its project and enforces the ownership
// rule: only the project owner or the task's recorded creator may touch a
// task, waits included.
func loadTaskGuarded(ctx context.Context, taskStore tasks.Store, projectStore projects.Store, actor auth.Actor, taskID string) (*tasks.Task, *projects.Project, error) {
	if taskID == "" {
		return nil, nil, Errorf(KindInvalidArgument, "task_id is required")
	}

	task, err := taskStore.Get(ctx, taskID)
	if err != nil {
		if errors.Is(err, tasks.ErrNotFound) {
			return nil, nil, Errorf(KindNotFound, "task %s not found", taskID)
		}
		return nil, nil, fmt.Errorf("load task %s: %w", taskID, err)
	}

	project, err := projectStore.Get(ctx, task.ProjectID)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			return nil, nil, Errorf(KindNotFound, "project %s not found", task.ProjectID)
		}
		return nil, nil, fmt.Errorf("load project %s: %w", task.ProjectID, err)
	}

	if actor.ID == "" || (actor.ID != task.CreatorID && actor.ID != project.OwnerID) {
		return nil, nil, Errorf(KindPermissionDenied, "access denied: you can only touch your own tasks")
	}

	return task, project, nil
}

// loadProjectGuarded resolves a project by name and enforces owner-only
// access. Unknown names surface the caller's own project names to ease
// correction.
func loadProjectGuarded(ctx context.Context, projectStore projects.Store, actor auth.Actor, name string) (*projects.Project, error) {
	if name == "" {
		return nil, Errorf(KindInvalidArgument, "project_name is required")
	}

	project, err := projectStore.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			owned, listErr := projectStore.ListByOwner(ctx, actor.ID)
			if listErr != nil || len(owned) == 0 {
				return nil, Errorf(KindNotFound, "project %q not found", name)
			}
			names := make([]string, len(owned))
			for i, p := range owned {
				names[i] = p.Name
			}
			return nil, Errorf(KindNotFound, "project %q not found (available: %s)", name, strings.Join(names, ", "))
		}
		return nil, fmt.Errorf("load project %q: %w", name, err)
	}

	if actor.ID == "" || project.OwnerID != actor.ID {
		return nil, Errorf(KindPermissionDenied, "access denied: you can only access your own projects")
	}

	return project, nil
}
