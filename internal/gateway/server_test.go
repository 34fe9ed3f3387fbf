package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/taskrelay-io/taskrelay/internal/auth"
	"github.com/taskrelay-io/taskrelay/internal/events"
	"github.com/taskrelay-io/taskrelay/internal/interaction"
	"github.com/taskrelay-io/taskrelay/internal/projects"
	"github.com/taskrelay-io/taskrelay/internal/ratelimit"
	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

const testToken = "tok-alice"

type gwEnv struct {
	server *httptest.Server
	svc    *interaction.Service
	actor  auth.Actor
}

func newGatewayEnv(t *testing.T) *gwEnv {
	t.Helper()
	dir := t.TempDir()

	taskStore := tasks.NewFileStore(dir + "/tasks")
	projectStore := projects.NewFileStore(dir + "/projects")
	ledger := interaction.NewFileLedger(dir + "/interactions")
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)

	actor := auth.Actor{ID: "user-1", Name: "Alice"}
	if err := projectStore.Create(context.Background(), &projects.Project{Name: "demo", OwnerID: actor.ID}); err != nil {
		t.Fatalf("create project: %v", err)
	}

	svc := interaction.NewService(taskStore, projectStore, ledger, bus)
	resolver := auth.NewStaticResolver(map[string]auth.Actor{testToken: actor})
	limiter := ratelimit.New(100, time.Minute)

	gw := NewServer(svc, bus, resolver, limiter, "127.0.0.1", 0)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	return &gwEnv{server: srv, svc: svc, actor: actor}
}

func (env *gwEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, env.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthNoAuth(t *testing.T) {
	env := newGatewayEnv(t)

	resp, err := http.Get(env.server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newGatewayEnv(t)

	resp, err := http.Get(env.server.URL + "/api/tasks?project=demo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/api/tasks?project=demo", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", resp.StatusCode)
	}
}

func TestCreateAndListTasks(t *testing.T) {
	env := newGatewayEnv(t)

	resp := env.do(t, http.MethodPost, "/api/tasks",
		`{"project_name":"demo","title":"wire the thing","is_interactive":true}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201", resp.StatusCode)
	}
	created := decode[tasks.Task](t, resp)
	if created.ID == "" || created.Status != tasks.StatusTodo {
		t.Fatalf("created = %+v", created)
	}

	resp = env.do(t, http.MethodGet, "/api/tasks?project=demo&status=todo", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d, want 200", resp.StatusCode)
	}
	list := decode[struct {
		Tasks []tasks.Task `json:"tasks"`
		Total int          `json:"total"`
	}](t, resp)
	if list.Total != 1 || list.Tasks[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}
}

func TestHumanFeedbackFlow(t *testing.T) {
	env := newGatewayEnv(t)

	task, err := env.svc.CreateTask(context.Background(), env.actor, interaction.CreateTaskRequest{
		ProjectName: "demo", Title: "review me", IsInteractive: true,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	fb, err := env.svc.SubmitFeedback(context.Background(), env.actor, interaction.SubmitFeedbackRequest{
		TaskID: task.ID, Content: "ready for review", Status: tasks.StatusDone,
	})
	if err != nil {
		t.Fatalf("submit feedback: %v", err)
	}

	resp := env.do(t, http.MethodGet, "/api/tasks/"+task.ID+"/interaction-status", "")
	snap := decode[interaction.StatusSnapshot](t, resp)
	if !snap.AIWaitingFeedback || snap.SessionID != fb.SessionID {
		t.Fatalf("snapshot = %+v", snap)
	}

	resp = env.do(t, http.MethodPost, "/api/tasks/"+task.ID+"/human-feedback",
		`{"session_id":"`+fb.SessionID+`","feedback_content":"approved","action":"complete"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("human feedback: status = %d, want 200", resp.StatusCode)
	}
	result := decode[struct {
		Task tasks.Task `json:"task"`
	}](t, resp)
	if result.Task.Status != tasks.StatusDone {
		t.Errorf("task status = %s, want done", result.Task.Status)
	}

	resp = env.do(t, http.MethodGet, "/api/tasks/"+task.ID+"/interaction-history", "")
	history := decode[struct {
		Total int `json:"total"`
	}](t, resp)
	if history.Total != 2 {
		t.Errorf("history total = %d, want 2", history.Total)
	}
}

func TestErrorKindMapping(t *testing.T) {
	env := newGatewayEnv(t)

	task, err := env.svc.CreateTask(context.Background(), env.actor, interaction.CreateTaskRequest{
		ProjectName: "demo", Title: "quiet task", IsInteractive: true,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown task", http.MethodGet, "/api/tasks/task_nope/interaction-status", "", http.StatusNotFound},
		{"bad body", http.MethodPost, "/api/tasks/" + task.ID + "/human-feedback", "{not json", http.StatusBadRequest},
		{"not waiting", http.MethodPost, "/api/tasks/" + task.ID + "/human-feedback",
			`{"session_id":"s","feedback_content":"x","action":"complete"}`, http.StatusConflict},
		{"missing project", http.MethodGet, "/api/tasks?project=nope", "", http.StatusNotFound},
		{"empty title", http.MethodPost, "/api/tasks", `{"project_name":"demo"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := env.do(t, tc.method, tc.path, tc.body)
			resp.Body.Close()
			if resp.StatusCode != tc.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.status)
			}
		})
	}
}

func TestRateLimitEnforced(t *testing.T) {
	dir := t.TempDir()
	taskStore := tasks.NewFileStore(dir + "/tasks")
	projectStore := projects.NewFileStore(dir + "/projects")
	ledger := interaction.NewFileLedger(dir + "/interactions")
	bus := events.NewBus(16)
	t.Cleanup(bus.Close)
	svc := interaction.NewService(taskStore, projectStore, ledger, bus)
	resolver := auth.NewStaticResolver(map[string]auth.Actor{testToken: {ID: "user-1", Name: "Alice"}})
	gw := NewServer(svc, bus, resolver, ratelimit.New(2, time.Minute), "127.0.0.1", 0)
	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(srv.Close)

	statuses := make([]int, 0, 3)
	for range 3 {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/events", nil)
		req.Header.Set("Authorization", "Bearer "+testToken)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.StatusCode)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("first two requests = %v, want 200s", statuses[:2])
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", statuses[2])
	}
}
