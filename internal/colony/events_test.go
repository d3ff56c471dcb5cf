package colony

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// stubNotifier records delivered events and can be told to fail a number of
// attempts before succeeding.
type stubNotifier struct {
	mu       sync.Mutex
	id       string
	events   []Event
	failures int
	closed   bool
}

func (s *stubNotifier) ID() string   { return s.id }
func (s *stubNotifier) Type() string { return "stub" }

func (s *stubNotifier) Notify(ctx context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("induced failure")
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubNotifier) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubNotifier) delivered() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func waitForEvents(t *testing.T, s *stubNotifier, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if evs := s.delivered(); len(evs) >= n {
			return evs
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d events, got %d", n, len(s.delivered()))
	return nil
}

func TestEventManager_RegisterNotifier(t *testing.T) {
	em := NewEventManager()
	defer em.Close()

	if err := em.RegisterNotifier(&stubNotifier{id: "s1"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := em.RegisterNotifier(&stubNotifier{id: "s1"}); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := em.RegisterNotifier(&stubNotifier{id: ""}); err == nil {
		t.Error("Expected empty ID to be rejected")
	}
	if err := em.RegisterNotifier(nil); err == nil {
		t.Error("Expected nil notifier to be rejected")
	}

	if _, ok := em.GetNotifier("s1"); !ok {
		t.Error("Expected to find registered notifier")
	}
	if ids := em.ListNotifiers(); len(ids) != 1 || ids[0] != "s1" {
		t.Errorf("Expected [s1], got %v", ids)
	}
}

func TestEventManager_UnregisterNotifier(t *testing.T) {
	em := NewEventManager()
	defer em.Close()

	stub := &stubNotifier{id: "s1"}
	if err := em.RegisterNotifier(stub); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := em.UnregisterNotifier("s1"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	if !stub.closed {
		t.Error("Expected the notifier to be closed on unregister")
	}
	if err := em.UnregisterNotifier("s1"); err == nil {
		t.Error("Expected unregistering a missing notifier to fail")
	}
}

func TestEventManager_EnqueueDelivers(t *testing.T) {
	em := NewEventManager()
	defer em.Close()

	stub := &stubNotifier{id: "s1"}
	other := &stubNotifier{id: "s2"}
	if err := em.RegisterNotifier(stub); err != nil {
		t.Fatal(err)
	}
	if err := em.RegisterNotifier(other); err != nil {
		t.Fatal(err)
	}

	em.Enqueue(Event{WorldID: "w1", Type: EventDelivery, Units: 2}, []string{"s1"})

	evs := waitForEvents(t, stub, 1)
	if evs[0].Type != EventDelivery || evs[0].Units != 2 {
		t.Errorf("Unexpected event delivered: %+v", evs[0])
	}
	// Only the addressed notifier receives it.
	time.Sleep(20 * time.Millisecond)
	if got := other.delivered(); len(got) != 0 {
		t.Errorf("Expected no events on s2, got %d", len(got))
	}
}

func TestEventManager_EnqueueNoTargetsIsNoOp(t *testing.T) {
	em := NewEventManager()
	defer em.Close()
	// Must not panic or block.
	em.Enqueue(Event{Type: EventPickup}, nil)
}

func TestEventManager_RetriesFailedDeliveries(t *testing.T) {
	em := NewEventManager()
	defer em.Close()

	stub := &stubNotifier{id: "flaky", failures: 2}
	if err := em.RegisterNotifier(stub); err != nil {
		t.Fatal(err)
	}

	em.Enqueue(Event{Type: EventNestFull}, []string{"flaky"})

	evs := waitForEvents(t, stub, 1)
	if evs[0].Type != EventNestFull {
		t.Errorf("Unexpected event: %+v", evs[0])
	}
}

func TestEventManager_Close(t *testing.T) {
	em := NewEventManager()
	stub := &stubNotifier{id: "s1"}
	if err := em.RegisterNotifier(stub); err != nil {
		t.Fatal(err)
	}

	if err := em.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !stub.closed {
		t.Error("Expected notifiers to be closed")
	}
	// Enqueue after close is a silent no-op; Close is idempotent.
	em.Enqueue(Event{Type: EventPickup}, []string{"s1"})
	if err := em.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}
}

func TestWorld_EventsReachNotifiers(t *testing.T) {
	em := NewEventManager()
	defer em.Close()
	stub := &stubNotifier{id: "s1"}
	if err := em.RegisterNotifier(stub); err != nil {
		t.Fatal(err)
	}

	w, err := NewWorld(testWorldConfig(300))
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}
	w.SetID("evt-world")
	w.SetEventManager(em, "s1")

	w.Reset()

	evs := waitForEvents(t, stub, 1)
	if evs[0].Type != EventWorldReset {
		t.Errorf("Expected world_reset, got %s", evs[0].Type)
	}
	if evs[0].WorldID != "evt-world" {
		t.Errorf("Expected events tagged with the world ID, got %q", evs[0].WorldID)
	}
}

func TestEvent_JSON(t *testing.T) {
	ev := Event{WorldID: "w1", Type: EventDelivery, Tick: 42, Units: 2, Efficiency: 1.25}
	data, err := ev.JSON()
	if err != nil {
		t.Fatalf("JSON failed: %v", err)
	}
	for _, want := range []string{`"world_id":"w1"`, `"type":"delivery"`, `"tick":42`, `"units":2`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected %s in %s", want, data)
		}
	}
	// Zero-valued optional fields are omitted.
	if strings.Contains(string(data), "ant_id") {
		t.Errorf("Expected ant_id omitted, got %s", data)
	}
}
