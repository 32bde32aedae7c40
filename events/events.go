// Package events delivers in-process change notifications to UI consumers.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// EventType indicates what kind of change occurred
type EventType string

const (
	EventTasksChanged    EventType = "tasks_changed"
	EventProjectsChanged EventType = "projects_changed"
	EventSessionChanged  EventType = "session_changed"
	EventSyncStarted     EventType = "sync_started"
	EventSyncFinished    EventType = "sync_finished"
)

// Event represents a state change notification
type Event struct {
	Type      EventType
	Timestamp time.Time
}

// Publisher defines the interface for emitting and observing events.
// Depending on behavior rather than the concrete emitter keeps consumers
// loosely coupled and easy to test.
type Publisher interface {
	// Publish delivers an event to all current subscribers
	Publish(event Event)

	// Subscribe registers a handler and returns an unsubscribe func
	Subscribe(handler func(Event)) (unsubscribe func())
}

// Emitter is a synchronous in-process Publisher. Handlers run on the
// publishing goroutine and must not block.
type Emitter struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(Event)
}

// Compile-time verification that *Emitter implements Publisher
var _ Publisher = (*Emitter)(nil)

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[int]func(Event))}
}

// Publish delivers the event to every subscriber. A missing timestamp is
// filled in with the current time.
func (e *Emitter) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	e.mu.Lock()
	handlers := make([]func(Event), 0, len(e.handlers))
	for _, h := range e.handlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

// Subscribe registers a handler for all future events. The returned func
// removes the subscription; calling it more than once is harmless.
func (e *Emitter) Subscribe(handler func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.handlers[id] = handler

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.handlers, id)
	}
}

// PublishSafe publishes through a possibly-nil publisher. A nil publisher
// is valid for headless use (tests, background accumulation).
func PublishSafe(p Publisher, t EventType) {
	if p == nil {
		return
	}
	p.Publish(Event{Type: t})
	slog.Debug("event published", "event_type", t)
}
