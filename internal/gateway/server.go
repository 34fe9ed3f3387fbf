// Package gateway exposes the coordination core over HTTP for human-facing
// frontends: submitting verdicts on waiting tasks, inspecting interaction
// state, and basic task CRUD.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/events"
	"github.com/taskrelay-io/taskrelay/internal/interaction"
	"github.com/taskrelay-io/taskrelay/internal/ratelimit"
)

// Server is the gateway HTTP server.
type Server struct {
	httpServer *http.Server
	svc        *interaction.Service
	bus        *events.Bus
	resolver   auth.Resolver
	limiter    *ratelimit.Limiter
	host       string
	port       int
}

// NewServer creates a gateway server. All /api routes except /api/health
// require a bearer token known to the resolver.
func NewServer(svc *interaction.Service, bus *events.Bus, resolver auth.Resolver, limiter *ratelimit.Limiter, host string, port int) *Server {
	s := &Server{
		svc:      svc,
		bus:      bus,
		resolver: resolver,
		limiter:  limiter,
		host:     host,
		port:     port,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Use(s.rateLimit)

		r.Get("/api/events", s.handleEvents)

		r.Get("/api/tasks", s.handleListTasks)
		r.Post("/api/tasks", s.handleCreateTask)
		r.Post("/api/tasks/{taskID}/human-feedback", s.handleHumanFeedback)
		r.Get("/api/tasks/{taskID}/interaction-status", s.handleInteractionStatus)
		r.Get("/api/tasks/{taskID}/interaction-history", s.handleInteractionHistory)
	})

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeError maps interaction error kinds to HTTP status codes; everything
// else is a 500 with the detail kept server-side.
func writeError(w http.ResponseWriter, err error) {
	var ie *interaction.Error
	if !errors.As(err, &ie) {
		slog.Error("gateway internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}

	status := http.StatusInternalServerError
	switch ie.Kind {
	case interaction.KindInvalidArgument:
		status = http.StatusBadRequest
	case interaction.KindNotFound:
		status = http.StatusNotFound
	case interaction.KindPermissionDenied:
		status = http.StatusForbidden
	case interaction.KindInvalidState, interaction.KindConflict:
		status = http.StatusConflict
	case interaction.KindSessionMismatch:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Error: ie.Message, Kind: string(ie.Kind)})
}
