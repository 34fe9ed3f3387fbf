// Package projects provides the minimal project record the coordination
// core needs: a named ownership anchor with an activity timestamp.
package projects

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no project matches the requested ID or name.
var ErrNotFound = errors.New("project not found")

// Project anchors task ownership. Tasks reference it by ID; the tool-call
// contract addresses it by name.
type Project struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	OwnerID        string    `json:"owner_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Store defines the persistence interface for projects.
type Store interface {
	Create(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	GetByName(ctx context.Context, name string) (*Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Project, error)
	// Touch updates the project's last-activity timestamp.
	Touch(ctx context.Context, id string, at time.Time) error
}

// GenerateProjectID creates a unique project identifier.
func GenerateProjectID() string {
	u := uuid.New().String()
	return "proj_" + strings.ReplaceAll(u[:8], "-", "")
}
