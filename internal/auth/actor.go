// Package auth resolves opaque credentials to actor identities.
// Token issuance and verification live outside this system; taskrelay only
// consumes the resulting identity for its ownership checks.
package auth

import (
	"context"
	"fmt"
)

// Actor is an authenticated identity: a human operator or an AI agent
// acting on its behalf.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Resolver maps an opaque credential to an actor.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Actor, error)
}

// StaticResolver resolves tokens from a fixed table, typically loaded from
// the config file.
type StaticResolver struct {
	actors map[string]Actor
}

// NewStaticResolver builds a resolver from token → actor pairs.
func NewStaticResolver(entries map[string]Actor) *StaticResolver {
	actors := make(map[string]Actor, len(entries))
	for token, actor := range entries {
		actors[token] = actor
	}
	return &StaticResolver{actors: actors}
}

// Resolve returns the actor bound to token, or an error for unknown tokens.
func (r *StaticResolver) Resolve(_ context.Context, token string) (Actor, error) {
	actor, ok := r.actors[token]
	if !ok {
		return Actor{}, fmt.Errorf("unknown token")
	}
	return actor, nil
}

var _ Resolver = (*StaticResolver)(nil)
