// Package events provides the in-process bus that carries routing
// decisions between modules: an assignment commits, an event fires, and
// subscribers such as the CRM push react without coupling to the router.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event published on the bus.
type Event interface {
	// EventName identifies the event type; subscriptions key on it.
	EventName() string
	// OccurredAt returns when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by all events. Embed it and
// implement EventName on the concrete type.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler reacts to events of one type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle calls the underlying function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to subscribed handlers.
type Bus interface {
	// Publish fans the event out to its handlers asynchronously. A
	// failing handler is logged, never propagated to the publisher.
	Publish(ctx context.Context, event Event)

	// PublishSync runs the handlers before returning and reports the
	// first handler error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the named event type, matching
	// Event.EventName.
	Subscribe(eventName string, handler Handler)
}
