// Package events provides event bus infrastructure for decoupled,
// event-driven communication between modules.
package events

import (
	"context"
	"sync"

	"leadrouter_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

// InMemoryBus is a simple in-process event bus. Async publishing runs each
// handler on its own goroutine; handler panics and errors are logged, never
// propagated to the publisher.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *logger.Logger
}

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]Handler),
		log:      log,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish sends an event to all registered handlers asynchronously.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		handler := h
		go func() {
			defer b.recoverHandler(event.EventName())
			// Detach from the request context so in-flight handlers survive
			// the HTTP response.
			if err := handler.Handle(context.WithoutCancel(ctx), event); err != nil {
				b.log.Error("event handler failed", "event", event.EventName(), "error", err)
			}
		}()
	}
}

// PublishSync sends an event and waits for all handlers to complete.
// Handlers run concurrently; the first handler error is returned.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, handler := range handlers {
		handler := handler
		g.Go(func() error {
			defer b.recoverHandler(event.EventName())
			return handler.Handle(ctx, event)
		})
	}
	return g.Wait()
}

func (b *InMemoryBus) recoverHandler(eventName string) {
	if r := recover(); r != nil {
		b.log.Error("event handler panicked", "event", eventName, "panic", r)
	}
}

// Compile-time check that InMemoryBus implements Bus
var _ Bus = (*InMemoryBus)(nil)
