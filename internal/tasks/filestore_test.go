package tasks

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(t.TempDir())
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)

	task := &Task{ProjectID: "p1", CreatorID: "u1", Title: "build the thing", IsInteractive: true}
	if err := fs.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected generated ID")
	}
	if task.Status != StatusTodo {
		t.Errorf("default status = %q", task.Status)
	}
	if task.Version != 1 {
		t.Errorf("initial version = %d", task.Version)
	}

	got, err := fs.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "build the thing" || !got.IsInteractive {
		t.Errorf("got = %+v", got)
	}
}

func TestGetNotFound(t *testing.T) {
	fs := newStore(t)
	_, err := fs.Get(context.Background(), "task_missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)

	task := &Task{ProjectID: "p1", CreatorID: "u1", Title: "t"}
	if err := fs.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	task.Status = StatusInProgress
	if err := fs.Update(ctx, task); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if task.Version != 2 {
		t.Errorf("version = %d, want 2", task.Version)
	}

	got, _ := fs.Get(ctx, task.ID)
	if got.Status != StatusInProgress {
		t.Errorf("status = %q", got.Status)
	}
}

func TestUpdateStaleVersionConflicts(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)

	task := &Task{ProjectID: "p1", CreatorID: "u1", Title: "t"}
	if err := fs.Create(ctx, task); err != nil {
		t.Fatalf("Create: %v", err)
	}

	stale := task.Clone()

	task.Status = StatusInProgress
	if err := fs.Update(ctx, task); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	stale.Status = StatusReview
	err := fs.Update(ctx, stale)
	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("err = %v, want ErrVersionConflict", err)
	}

	// The losing write must not be visible.
	got, _ := fs.Get(ctx, task.ID)
	if got.Status != StatusInProgress {
		t.Errorf("status = %q, lost update leaked through", got.Status)
	}
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)

	mk := func(project string, status Status) *Task {
		task := &Task{ProjectID: project, CreatorID: "u1", Title: "t", Status: status}
		if err := fs.Create(ctx, task); err != nil {
			t.Fatalf("Create: %v", err)
		}
		return task
	}

	mk("p1", StatusTodo)
	mk("p1", StatusDone)
	mk("p2", StatusTodo)

	got, err := fs.List(ctx, ListFilter{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("project filter: %d tasks", len(got))
	}

	got, _ = fs.List(ctx, ListFilter{ProjectID: "p1", Statuses: []Status{StatusTodo, StatusInProgress, StatusReview}})
	if len(got) != 1 || got[0].Status != StatusTodo {
		t.Fatalf("status filter: %+v", got)
	}
}

func TestListCreatedAfter(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)

	early := &Task{ProjectID: "p1", CreatorID: "u1", Title: "early"}
	if err := fs.Create(ctx, early); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)

	late := &Task{ProjectID: "p1", CreatorID: "u1", Title: "late"}
	if err := fs.Create(ctx, late); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := fs.List(ctx, ListFilter{ProjectID: "p1", CreatedAfter: cutoff})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Title != "late" {
		t.Fatalf("created-after filter: %+v", got)
	}
}

func TestListOrdersAscending(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)

	for _, title := range []string{"a", "b", "c"} {
		task := &Task{ProjectID: "p1", CreatorID: "u1", Title: title}
		if err := fs.Create(ctx, task); err != nil {
			t.Fatalf("Create: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	got, _ := fs.List(ctx, ListFilter{ProjectID: "p1"})
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
			t.Fatal("list not ordered by created_at ascending")
		}
	}
}

func TestStatusHelpers(t *testing.T) {
	if !StatusWaitingHuman.Valid() || Status("bogus").Valid() {
		t.Error("Valid misclassifies")
	}
	if !StatusTodo.Open() || StatusDone.Open() || StatusWaitingHuman.Open() {
		t.Error("Open misclassifies")
	}
	if StatusTodo.Submittable() || !StatusDone.Submittable() || !StatusCancelled.Submittable() {
		t.Error("Submittable misclassifies")
	}
}
