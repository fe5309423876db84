package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pharmaorders/pedidos/pkg/stores"
)

// Event is one notable thing that happened to the order stores.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Backend is the store the event concerns, if any.
	Backend string `json:"backend,omitempty"`

	// Operation is the store operation, if applicable.
	Operation string `json:"operation,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants.
const (
	EventTypeOperationCompleted = "operation.completed"
	EventTypeOperationFailed    = "operation.failed"
	EventTypeConnectFailed      = "connect.failed"
	EventTypeConnected          = "connect.succeeded"
	EventTypeDocumentChanged    = "document.changed"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventsConfig configures the event publisher.
type EventsConfig struct {
	// Enabled controls whether events are published at all.
	Enabled bool

	// BufferSize is the capacity of the delivery queue.
	BufferSize int
}

// DefaultEventsConfig returns an enabled publisher with a small queue.
func DefaultEventsConfig() EventsConfig {
	return EventsConfig{Enabled: true, BufferSize: 256}
}

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher fans events out to subscribers from a single goroutine,
// so each subscriber sees events in publish order. It implements
// stores.Observer.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	wg          sync.WaitGroup
	mu          sync.RWMutex

	// sendMu guards closed and the buffer close against in-flight sends.
	sendMu sync.RWMutex
	closed bool
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

var _ stores.Observer = (*EventPublisher)(nil)

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) *EventPublisher {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultEventsConfig().BufferSize
	}

	ep := &EventPublisher{
		config: cfg,
		buffer: make(chan Event, cfg.BufferSize),
	}

	ep.wg.Add(1)
	go ep.processEvents()

	return ep
}

// Publish queues an event for delivery. It fails once the publisher is shut down.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}

	ep.sendMu.RLock()
	defer ep.sendMu.RUnlock()
	if ep.closed {
		return fmt.Errorf("event publisher is shut down")
	}
	ep.buffer <- event
	return nil
}

// PublishDocumentChanged records an external change to the XML document.
func (ep *EventPublisher) PublishDocumentChanged(path string) error {
	return ep.Publish(Event{
		Type:    EventTypeDocumentChanged,
		Backend: stores.BackendXML.String(),
		Message: "Order document changed on disk",
		Data:    map[string]interface{}{"path": path},
	})
}

// ObserveOperation publishes the outcome of a store operation.
func (ep *EventPublisher) ObserveOperation(backend stores.Backend, operation string, duration time.Duration, err error) {
	event := Event{
		Type:      EventTypeOperationCompleted,
		Backend:   backend.String(),
		Operation: operation,
		Message:   "Store operation completed",
		Data:      map[string]interface{}{"duration_ms": duration.Milliseconds()},
	}
	if err != nil {
		event.Type = EventTypeOperationFailed
		event.Level = EventLevelError
		event.Message = err.Error()
	}
	_ = ep.Publish(event)
}

// ObserveConnectAttempt publishes the outcome of a connection attempt.
func (ep *EventPublisher) ObserveConnectAttempt(backend stores.Backend, err error) {
	event := Event{
		Type:    EventTypeConnected,
		Backend: backend.String(),
		Message: "Database connection established",
	}
	if err != nil {
		event.Type = EventTypeConnectFailed
		event.Level = EventLevelWarning
		event.Message = err.Error()
	}
	_ = ep.Publish(event)
}

// Subscribe registers a subscriber with an optional filter.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// processEvents delivers queued events until the buffer is closed.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for event := range ep.buffer {
		ep.deliverEvent(event)
	}
}

func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops accepting events and waits for queued ones to be delivered.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	ep.sendMu.Lock()
	if !ep.closed {
		ep.closed = true
		close(ep.buffer)
	}
	ep.sendMu.Unlock()

	finished := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// JSONLinesSubscriber writes each event as one JSON object per line.
func JSONLinesSubscriber(w io.Writer) EventSubscriber {
	enc := json.NewEncoder(w)
	return func(event Event) {
		_ = enc.Encode(event)
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterAll creates a filter that allows an event only when every filter does.
// Nil filters are skipped.
func FilterAll(filters ...EventFilter) EventFilter {
	return func(event Event) bool {
		for _, f := range filters {
			if f != nil && !f(event) {
				return false
			}
		}
		return true
	}
}

// FilterByBackend creates a filter that only allows events for one backend.
func FilterByBackend(backend stores.Backend) EventFilter {
	return func(event Event) bool {
		return event.Backend == backend.String()
	}
}

// Observers fans store observations out to several observers. Nil entries are skipped.
func Observers(observers ...stores.Observer) stores.Observer {
	var list multiObserver
	for _, o := range observers {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []stores.Observer

func (m multiObserver) ObserveOperation(backend stores.Backend, operation string, duration time.Duration, err error) {
	for _, o := range m {
		o.ObserveOperation(backend, operation, duration, err)
	}
}

func (m multiObserver) ObserveConnectAttempt(backend stores.Backend, err error) {
	for _, o := range m {
		o.ObserveConnectAttempt(backend, err)
	}
}
