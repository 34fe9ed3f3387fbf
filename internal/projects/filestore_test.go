package projects

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateGetByName(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(t.TempDir())

	p := &Project{Name: "chess", OwnerID: "u1"}
	if err := fs.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected generated ID")
	}

	got, err := fs.GetByName(ctx, "chess")
	if err != nil {
		t.Fatalf("GetByName: %v", err)
	}
	if got.ID != p.ID || got.OwnerID != "u1" {
		t.Errorf("got = %+v", got)
	}

	if _, err := fs.GetByName(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListByOwner(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(t.TempDir())

	for _, spec := range []struct{ name, owner string }{
		{"a", "u1"}, {"b", "u1"}, {"c", "u2"},
	} {
		if err := fs.Create(ctx, &Project{Name: spec.name, OwnerID: spec.owner}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	got, err := fs.ListByOwner(ctx, "u1")
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestTouch(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStore(t.TempDir())

	p := &Project{Name: "chess", OwnerID: "u1"}
	if err := fs.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	at := time.Now().Add(time.Hour).Truncate(time.Second)
	if err := fs.Touch(ctx, p.ID, at); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	got, _ := fs.Get(ctx, p.ID)
	if !got.LastActivityAt.Equal(at) {
		t.Errorf("last activity = %v, want %v", got.LastActivityAt, at)
	}

	if err := fs.Touch(ctx, "proj_missing", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
