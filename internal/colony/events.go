package colony

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// EventType identifies the kind of world event being reported.
type EventType string

const (
	EventPickup            EventType = "pickup"
	EventDelivery          EventType = "delivery"
	EventDeliveryRejected  EventType = "delivery_rejected"
	EventFoodDepleted      EventType = "food_depleted"
	EventFoodRespawned     EventType = "food_respawned"
	EventNestFull          EventType = "nest_full"
	EventAntDied           EventType = "ant_died"
	EventWorldReset        EventType = "world_reset"
)

// Event is a domain state change worth reporting to external observers:
// a delivery landed, a food source ran dry, the nest filled up, an ant
// died, or the layout was reset.
type Event struct {
	WorldID   WorldID   `json:"world_id"`
	Type      EventType `json:"type"`
	Tick      int64     `json:"tick"`
	Timestamp int64     `json:"timestamp"`

	AntID      string  `json:"ant_id,omitempty"`
	FoodIndex  int     `json:"food_index,omitempty"`
	Units      int     `json:"units,omitempty"`
	Efficiency float64 `json:"efficiency,omitempty"`
	NestStored int     `json:"nest_stored,omitempty"`
	PathLen    float64 `json:"path_len,omitempty"`
	TripTicks  int64   `json:"trip_ticks,omitempty"`
}

// JSON returns the event encoded as JSON bytes.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier is the interface all event delivery channels implement.
type Notifier interface {
	// ID returns a unique identifier for this notifier.
	ID() string

	// Type returns the kind of notifier (e.g. "webhook", "websocket").
	Type() string

	// Notify delivers one event. The context carries cancellation and timeout.
	Notify(ctx context.Context, event Event) error

	// Close releases any resources held by the notifier.
	Close() error
}

type eventJob struct {
	Event       Event
	NotifierIDs []string
}

// EventManager routes world events to registered notifiers. Enqueueing is
// best-effort and non-blocking; delivery happens on worker goroutines with
// retry and exponential backoff.
type EventManager struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	jobs      chan eventJob
	closed    bool
	wg        sync.WaitGroup
	logger    Logger
}

// NewEventManager creates an event manager with a single dispatch worker.
func NewEventManager() *EventManager {
	return NewEventManagerWithLogger(NewNoOpLogger())
}

// NewEventManagerWithLogger creates an event manager that logs delivery
// failures through the given logger.
func NewEventManagerWithLogger(logger Logger) *EventManager {
	mgr := &EventManager{
		notifiers: make(map[string]Notifier),
		jobs:      make(chan eventJob, 1024),
		logger:    logger,
	}
	mgr.startWorkers(1)
	return mgr
}

// RegisterNotifier registers a notifier with the manager.
func (em *EventManager) RegisterNotifier(notifier Notifier) error {
	if notifier == nil {
		return fmt.Errorf("notifier cannot be nil")
	}
	id := notifier.ID()
	if id == "" {
		return fmt.Errorf("notifier ID cannot be empty")
	}

	em.mu.Lock()
	defer em.mu.Unlock()

	if _, exists := em.notifiers[id]; exists {
		return fmt.Errorf("notifier with ID %s already exists", id)
	}
	em.notifiers[id] = notifier
	return nil
}

// UnregisterNotifier closes and removes a notifier.
func (em *EventManager) UnregisterNotifier(id string) error {
	em.mu.Lock()
	notifier, exists := em.notifiers[id]
	em.mu.Unlock()

	if !exists {
		return fmt.Errorf("notifier with ID %s not found", id)
	}
	if err := notifier.Close(); err != nil {
		return fmt.Errorf("error closing notifier %s: %w", id, err)
	}

	em.mu.Lock()
	delete(em.notifiers, id)
	em.mu.Unlock()
	return nil
}

// GetNotifier retrieves a notifier by ID.
func (em *EventManager) GetNotifier(id string) (Notifier, bool) {
	em.mu.RLock()
	defer em.mu.RUnlock()
	notifier, exists := em.notifiers[id]
	return notifier, exists
}

// ListNotifiers returns the IDs of all registered notifiers.
func (em *EventManager) ListNotifiers() []string {
	em.mu.RLock()
	defer em.mu.RUnlock()
	ids := make([]string, 0, len(em.notifiers))
	for id := range em.notifiers {
		ids = append(ids, id)
	}
	return ids
}

// Enqueue queues an event for asynchronous delivery to the given notifiers.
// Non-blocking: if the queue is full the event is dropped and logged.
func (em *EventManager) Enqueue(event Event, notifierIDs []string) {
	if len(notifierIDs) == 0 {
		return
	}

	em.mu.RLock()
	closed := em.closed
	em.mu.RUnlock()
	if closed {
		return
	}

	select {
	case em.jobs <- eventJob{Event: event, NotifierIDs: notifierIDs}:
	default:
		em.logger.Warnf("event queue full, dropping event: type=%s world=%s", event.Type, event.WorldID)
	}
}

func (em *EventManager) startWorkers(n int) {
	for i := 0; i < n; i++ {
		em.wg.Add(1)
		go em.worker()
	}
}

func (em *EventManager) worker() {
	defer em.wg.Done()
	for job := range em.jobs {
		em.dispatchJob(job)
	}
}

func (em *EventManager) dispatchJob(job eventJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range job.NotifierIDs {
		em.notifyWithRetry(ctx, id, job.Event)
	}
}

func (em *EventManager) notifyWithRetry(ctx context.Context, notifierID string, event Event) {
	em.mu.RLock()
	notifier, ok := em.notifiers[notifierID]
	em.mu.RUnlock()

	if !ok {
		em.logger.Errorf("event delivery failed: notifier=%s error=notifier not found", notifierID)
		return
	}

	const maxRetries = 3
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := notifier.Notify(ctx, event)
		if err == nil {
			return
		}

		em.logger.Warnf("event delivery failed: notifier=%s attempt=%d error=%v", notifierID, attempt+1, err)

		if attempt == maxRetries {
			em.logger.Errorf("event delivery failed after %d attempts: notifier=%s", maxRetries+1, notifierID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Close shuts down the workers and closes all registered notifiers.
func (em *EventManager) Close() error {
	em.mu.Lock()
	if em.closed {
		em.mu.Unlock()
		return nil
	}
	em.closed = true
	close(em.jobs)
	em.mu.Unlock()

	em.wg.Wait()

	em.mu.Lock()
	var errs []error
	for id, notifier := range em.notifiers {
		if err := notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing notifier %s: %w", id, err))
		}
	}
	em.notifiers = make(map[string]Notifier)
	em.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("errors closing notifiers: %v", errs)
	}
	return nil
}
