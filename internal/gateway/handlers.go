package gateway

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/interaction"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	history := s.bus.History(limit)

	type eventJSON struct {
		ID        string         `json:"id"`
		Type      string         `json:"type"`
		Timestamp string         `json:"timestamp"`
		ProjectID string         `json:"project_id,omitempty"`
		TaskID    string         `json:"task_id,omitempty"`
		SessionID string         `json:"session_id,omitempty"`
		Payload   map[string]any `json:"payload,omitempty"`
	}

	result := make([]eventJSON, len(history))
	for i, e := range history {
		result[i] = eventJSON{
			ID:        e.ID,
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Format(time.RFC3339Nano),
			ProjectID: e.ProjectID,
			TaskID:    e.TaskID,
			SessionID: e.SessionID,
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var statuses []tasks.Status
	if v := r.URL.Query().Get("status"); v != "" {
		for _, raw := range strings.Split(v, ",") {
			statuses = append(statuses, tasks.Status(strings.TrimSpace(raw)))
		}
	}

	list, err := s.svc.ListTasks(r.Context(), actor, r.URL.Query().Get("project"), statuses)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": list,
		"total": len(list),
	})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var body struct {
		ProjectName   string `json:"project_name"`
		Title         string `json:"title"`
		Description   string `json:"description"`
		Status        string `json:"status"`
		IsInteractive bool   `json:"is_interactive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	task, err := s.svc.CreateTask(r.Context(), actor, interaction.CreateTaskRequest{
		ProjectName:   body.ProjectName,
		Title:         body.Title,
		Description:   body.Description,
		Status:        tasks.Status(body.Status),
		IsInteractive: body.IsInteractive,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleHumanFeedback(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	var body struct {
		SessionID string `json:"session_id"`
		Content   string `json:"feedback_content"`
		Action    string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}
	if body.Action == "" {
		body.Action = interaction.ActionComplete
	}

	res, err := s.svc.SubmitHumanResponse(r.Context(), actor, interaction.HumanResponseRequest{
		TaskID:    chi.URLParam(r, "taskID"),
		SessionID: body.SessionID,
		Content:   body.Content,
		Action:    body.Action,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task":  res.Task,
		"entry": res.Entry,
	})
}

func (s *Server) handleInteractionStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	snap, err := s.svc.InteractionStatus(r.Context(), actor, chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleInteractionHistory(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	entries, err := s.svc.InteractionHistory(r.Context(), actor, chi.URLParam(r, "taskID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"total":   len(entries),
	})
}
