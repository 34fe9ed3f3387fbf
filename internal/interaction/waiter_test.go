package interaction

import (
	"context"
	"testing"
	"time"

	"github.com/taskrelay-io/taskrelay/internal/tasks"
)

func TestClampWait(t *testing.T) {
	cases := []struct {
		name         string
		timeoutSec   int
		intervalSec  int
		wantTimeout  time.Duration
		wantInterval time.Duration
	}{
		{"defaults", 0, 0, DefaultWaitTimeout, DefaultPollInterval},
		{"in range", 120, 15, 120 * time.Second, 15 * time.Second},
		{"below minimums", 5, 2, MinWaitTimeout, MinPollInterval},
		{"above maximums", 100000, 100000, MaxWaitTimeout, MaxPollInterval},
		{"negative", -1, -1, DefaultWaitTimeout, DefaultPollInterval},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ClampWait(tc.timeoutSec, tc.intervalSec)
			if p.Timeout != tc.wantTimeout {
				t.Errorf("timeout = %v, want %v", p.Timeout, tc.wantTimeout)
			}
			if p.Interval != tc.wantInterval {
				t.Errorf("interval = %v, want %v", p.Interval, tc.wantInterval)
			}
		})
	}
}

// Tests drive the waiter with sub-second params; the public clamp bounds are
// applied at the transport edges, not here.
func shortWait() WaitParams {
	return WaitParams{Timeout: 3 * time.Second, Interval: 50 * time.Millisecond}
}

func TestWaitForNewTasksResolvesOnCreate(t *testing.T) {
	env := newTestEnv(t)

	go func() {
		time.Sleep(100 * time.Millisecond)
		env.createTask(t, false)
	}()

	start := time.Now()
	res, err := env.waiter.WaitForNewTasks(context.Background(), env.actor, env.project.Name, shortWait())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Timeout {
		t.Fatal("wait timed out instead of resolving")
	}
	if res.TotalNewTasks != 1 || len(res.NewTasks) != 1 {
		t.Fatalf("got %d new tasks, want 1", res.TotalNewTasks)
	}
	if res.PollCount < 1 {
		t.Errorf("poll count = %d, want >= 1", res.PollCount)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("wait took %v, bus signal should have resolved it promptly", elapsed)
	}
}

func TestWaitForNewTasksIgnoresBacklog(t *testing.T) {
	env := newTestEnv(t)
	env.createTask(t, false) // exists before the wait starts

	res, err := env.waiter.WaitForNewTasks(context.Background(), env.actor, env.project.Name,
		WaitParams{Timeout: 200 * time.Millisecond, Interval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !res.Timeout {
		t.Fatal("pre-existing tasks must not resolve the wait")
	}
	if res.TotalNewTasks != 0 {
		t.Errorf("got %d new tasks, want 0", res.TotalNewTasks)
	}
}

func TestWaitForNewTasksTimeout(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.waiter.WaitForNewTasks(context.Background(), env.actor, env.project.Name,
		WaitParams{Timeout: 150 * time.Millisecond, Interval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !res.Timeout {
		t.Fatal("expected timeout")
	}
	if res.EndedAt.Before(res.StartedAt) {
		t.Error("EndedAt precedes StartedAt")
	}
}

func TestWaitForNewTasksUnknownProject(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.waiter.WaitForNewTasks(context.Background(), env.actor, "ghost", shortWait())
	if KindOf(err) != KindNotFound {
		t.Fatalf("kind = %q, want not_found (err: %v)", KindOf(err), err)
	}
}

func TestWaitForNewTasksContextCancel(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := env.waiter.WaitForNewTasks(ctx, env.actor, env.project.Name, shortWait())
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestWaitForHumanFeedbackContinue(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, true)
	fb := env.submitDone(t, task.ID)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, err := env.svc.SubmitHumanResponse(context.Background(), env.actor, HumanResponseRequest{
			TaskID:    task.ID,
			SessionID: fb.SessionID,
			Content:   "also add retries",
			Action:    ActionContinue,
		})
		if err != nil {
			t.Errorf("human response: %v", err)
		}
	}()

	res, err := env.waiter.WaitForHumanFeedback(context.Background(), env.actor, task.ID, fb.SessionID, shortWait())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !res.Received || res.Timeout {
		t.Fatalf("result = %+v, want received without timeout", res)
	}
	if res.Action != "continue_task" {
		t.Errorf("action = %q, want continue_task", res.Action)
	}
	if res.AdditionalInstructions != "also add retries" {
		t.Errorf("instructions = %q", res.AdditionalInstructions)
	}
	if res.TaskStatus != tasks.StatusInProgress {
		t.Errorf("task status = %s, want in_progress", res.TaskStatus)
	}
	if res.Response == nil || res.Response.Status != EntryContinued {
		t.Errorf("response = %+v, want continued entry", res.Response)
	}
}

func TestWaitForHumanFeedbackComplete(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, true)
	fb := env.submitDone(t, task.ID)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, err := env.svc.SubmitHumanResponse(context.Background(), env.actor, HumanResponseRequest{
			TaskID:    task.ID,
			SessionID: fb.SessionID,
			Content:   "approved",
			Action:    ActionComplete,
		})
		if err != nil {
			t.Errorf("human response: %v", err)
		}
	}()

	res, err := env.waiter.WaitForHumanFeedback(context.Background(), env.actor, task.ID, fb.SessionID, shortWait())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Action != "task_completed" {
		t.Errorf("action = %q, want task_completed", res.Action)
	}
	if res.TaskStatus != tasks.StatusDone {
		t.Errorf("task status = %s, want done", res.TaskStatus)
	}
}

func TestWaitForHumanFeedbackNotWaiting(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, true)
	fb := env.submitDone(t, task.ID)

	_, err := env.svc.SubmitHumanResponse(context.Background(), env.actor, HumanResponseRequest{
		TaskID:    task.ID,
		SessionID: fb.SessionID,
		Content:   "done before anyone waited",
		Action:    ActionComplete,
	})
	if err != nil {
		t.Fatalf("human response: %v", err)
	}

	// The episode is over; waiting on it is an error, not a poll.
	_, err = env.waiter.WaitForHumanFeedback(context.Background(), env.actor, task.ID, fb.SessionID, shortWait())
	if KindOf(err) != KindInvalidState {
		t.Fatalf("kind = %q, want invalid_state (err: %v)", KindOf(err), err)
	}
}

func TestWaitForHumanFeedbackIgnoresOrphanedVerdict(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, true)
	fb := env.submitDone(t, task.ID)

	// A verdict whose task update loses the version race leaves a ledger
	// entry behind while the task stays parked.
	cs := &conflictStore{Store: env.tasks}
	svc := NewService(cs, env.projects, env.ledger, env.bus)
	_, err := svc.SubmitHumanResponse(context.Background(), env.actor, HumanResponseRequest{
		TaskID:    task.ID,
		SessionID: fb.SessionID,
		Content:   "lost the race",
		Action:    ActionComplete,
	})
	if KindOf(err) != KindConflict {
		t.Fatalf("kind = %q, want conflict (err: %v)", KindOf(err), err)
	}

	res, err := env.waiter.WaitForHumanFeedback(context.Background(), env.actor, task.ID, fb.SessionID,
		WaitParams{Timeout: 200 * time.Millisecond, Interval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Received || res.Action != "" {
		t.Fatalf("result = %+v, the stray entry must not pass for a verdict", res)
	}
	if !res.Timeout {
		t.Fatal("expected timeout")
	}

	got, err := env.tasks.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != tasks.StatusWaitingHuman || !got.AIWaitingFeedback {
		t.Errorf("task = %s/%v, want still waiting", got.Status, got.AIWaitingFeedback)
	}
}

func TestWaitForHumanFeedbackTimeout(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, true)
	fb := env.submitDone(t, task.ID)

	res, err := env.waiter.WaitForHumanFeedback(context.Background(), env.actor, task.ID, fb.SessionID,
		WaitParams{Timeout: 200 * time.Millisecond, Interval: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !res.Timeout || res.Received {
		t.Fatalf("result = %+v, want timeout without response", res)
	}
	if res.Message != "Timeout waiting for human feedback. Task remains in waiting state." {
		t.Errorf("message = %q", res.Message)
	}

	// Timeout leaves the task parked.
	got, err := env.tasks.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != tasks.StatusWaitingHuman || !got.AIWaitingFeedback {
		t.Errorf("task after timeout = %s/%v, want still waiting", got.Status, got.AIWaitingFeedback)
	}
}

func TestWaitForHumanFeedbackResolvesOnCancel(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, true)
	fb := env.submitDone(t, task.ID)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, err := env.svc.SubmitFeedback(context.Background(), env.actor, SubmitFeedbackRequest{
			TaskID:  task.ID,
			Content: "no longer needed",
			Status:  tasks.StatusCancelled,
		})
		if err != nil {
			t.Errorf("cancel: %v", err)
		}
	}()

	res, err := env.waiter.WaitForHumanFeedback(context.Background(), env.actor, task.ID, fb.SessionID, shortWait())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if res.Received || res.Timeout {
		t.Fatalf("result = %+v, want out-of-band resolution", res)
	}
	if res.TaskStatus != tasks.StatusCancelled {
		t.Errorf("task status = %s, want cancelled", res.TaskStatus)
	}
}

func TestWaitForHumanFeedbackSessionMismatch(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, true)
	env.submitDone(t, task.ID)

	_, err := env.waiter.WaitForHumanFeedback(context.Background(), env.actor, task.ID, "stale-session", shortWait())
	if KindOf(err) != KindSessionMismatch {
		t.Fatalf("kind = %q, want session_mismatch (err: %v)", KindOf(err), err)
	}
}

func TestWaitForHumanFeedbackNotInteractive(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, false)

	_, err := env.waiter.WaitForHumanFeedback(context.Background(), env.actor, task.ID, "any", shortWait())
	if KindOf(err) != KindInvalidState {
		t.Fatalf("kind = %q, want invalid_state (err: %v)", KindOf(err), err)
	}
}
