package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) EventID() string {
	return e.ID
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

func (e BaseEvent) Payload() interface{} {
	return e.Data
}

type Handler func(ctx context.Context, event Event) error

// Publisher is the side of the bus that services depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// EventBus fans events out to the handlers subscribed to their type. A
// failing or panicking handler is logged and never affects the publisher.
type EventBus struct {
	handlers map[string][]Handler
	logger   *slog.Logger
	mu       sync.RWMutex
}

func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Info("event handler registered",
		"event_type", eventType,
		"total_handlers", len(eb.handlers[eventType]))
}

// Publish runs every handler in its own goroutine on a context detached from
// the caller's cancellation, so side effects outlive the request.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	handlers, lg := eb.prepare(event, "publishing event")
	if len(handlers) == 0 {
		return nil
	}

	detached := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		go func(h Handler) {
			_ = eb.run(detached, h, event, lg)
		}(handler)
	}
	return nil
}

// PublishSync runs the handlers in order and stops at the first failure.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	handlers, lg := eb.prepare(event, "publishing event synchronously")

	for _, handler := range handlers {
		if err := eb.run(ctx, handler, event, lg); err != nil {
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// Sync returns a Publisher that waits for every handler. One-shot commands use
// it so their side effects finish before the process exits.
func (eb *EventBus) Sync() Publisher {
	return PublisherFunc(eb.PublishSync)
}

func (eb *EventBus) prepare(event Event, msg string) ([]Handler, *slog.Logger) {
	eb.mu.RLock()
	handlers := append([]Handler(nil), eb.handlers[event.EventType()]...)
	eb.mu.RUnlock()

	lg := eb.logger.With("event_type", event.EventType(), "event_id", event.EventID())
	if len(handlers) == 0 {
		lg.Debug("no handlers for event type")
		return nil, lg
	}
	lg.Info(msg, "handlers_count", len(handlers))
	return handlers, lg
}

func (eb *EventBus) run(ctx context.Context, h Handler, event Event, lg *slog.Logger) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panicked: %v", rec)
			lg.Error("event handler panicked", "panic", rec)
		}
	}()

	if err = h(ctx, event); err != nil {
		lg.Error("event handler failed", "error", err)
	}
	return err
}
