package events

import (
	"sync"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	var received []Event

	bus.Subscribe(func(e Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, EventTaskCreated)

	bus.Publish(NewEvent(EventTaskCreated, "p1", "t1", "", nil))
	bus.Publish(NewEvent(EventHumanResponse, "p1", "t1", "s1", nil))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	if received[0].Type != EventTaskCreated {
		t.Errorf("expected task.created, got %s", received[0].Type)
	}
	if received[0].ProjectID != "p1" || received[0].TaskID != "t1" {
		t.Errorf("routing fields lost: %+v", received[0])
	}
}

func TestBusSubscribeAll(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewEvent(EventTaskCreated, "p1", "t1", "", nil))
	bus.Publish(NewEvent(EventTaskFeedback, "p1", "t1", "s1", nil))

	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if count != 2 {
		t.Errorf("expected 2 events, got %d", count)
	}
}

func TestBusSubscribeChan(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	ch, unsub := bus.SubscribeChan(8, EventHumanResponse)
	defer unsub()

	bus.Publish(NewEvent(EventHumanResponse, "p1", "t1", "s1", map[string]any{"action": "continue"}))

	select {
	case e := <-ch:
		if e.SessionID != "s1" {
			t.Errorf("session = %q, want s1", e.SessionID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(64)
	defer bus.Close()

	var mu sync.Mutex
	count := 0

	unsub := bus.Subscribe(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	bus.Publish(NewEvent(EventTaskCreated, "p1", "t1", "", nil))
	time.Sleep(50 * time.Millisecond)
	unsub()
	bus.Publish(NewEvent(EventTaskCreated, "p1", "t2", "", nil))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("expected 1 event after unsubscribe, got %d", count)
	}
}

func TestBusHistory(t *testing.T) {
	bus := NewBus(8)
	defer bus.Close()

	for i := 0; i < 3; i++ {
		bus.Publish(NewEvent(EventTaskFeedback, "p1", "t1", "s1", nil))
	}
	time.Sleep(50 * time.Millisecond)

	if got := len(bus.History(10)); got != 3 {
		t.Errorf("history length = %d, want 3", got)
	}
}

func TestBusPublishAfterClose(t *testing.T) {
	bus := NewBus(8)
	bus.Close()
	// Must not panic.
	bus.Publish(NewEvent(EventTaskCreated, "p1", "t1", "", nil))
}

func TestRingBufferWrapAround(t *testing.T) {
	rb := NewRingBuffer(2)
	for i := 0; i < 5; i++ {
		rb.Add(NewEvent(EventTaskCreated, "p1", "t1", "", nil))
	}
	if got := len(rb.Get(10)); got != 2 {
		t.Errorf("expected buffer capped at 2, got %d", got)
	}
}
