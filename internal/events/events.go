// Package events is the in-process invalidation bus shared by views.
package events

import (
	"sync"
	"time"
)

// Event types.
const (
	// BookingsChanged is published after any successful booking mutation.
	BookingsChanged = "bookings.changed"
	// DashboardRefresh asks the provider summary to reload.
	DashboardRefresh = "dashboard.refresh"
	// SessionChanged is published after login, logout or a session clear.
	SessionChanged = "session.changed"
)

// Event is a lightweight notification. Source identifies the publisher so a
// subscriber can skip its own events.
type Event struct {
	Type      string
	BookingID string
	Source    string
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(Event)

// Bus provides pub/sub for events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[int]Handler
	nextID      int
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for eventType and returns its unsubscribe func.
func (b *Bus) Subscribe(eventType string, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subscribers[eventType][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers[eventType], id)
			b.mu.Unlock()
		})
	}
}

// Publish notifies subscribers of the event type. Handlers run synchronously
// on the caller's goroutine.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[e.Type]))
	for _, h := range b.subscribers[e.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	for _, h := range handlers {
		h(e)
	}
}

// Subscribers returns the number of handlers for eventType.
func (b *Bus) Subscribers(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}
