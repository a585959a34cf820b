package service

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: notifies observers of album/page mutations
// ─────────────────────────────────────────────────────────────

// Event names emitted by the services.
const (
	EventAlbumCreated   = "album:created"
	EventAlbumUpdated   = "album:updated"
	EventAlbumDeleted   = "album:deleted"
	EventPagesReordered = "album:pages-reordered"
	EventPageCreated    = "page:created"
	EventPageUpdated    = "page:updated"
	EventPageDeleted    = "page:deleted"
)

// EventEmitter receives a notification after every successful mutation.
// The HTTP layer counts them as metrics; tests record them with MockEmitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes events to a logger at debug level.
type LogEmitter struct {
	Logger *log.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Logger.Debug("event", "name", event, "data", data)
}

// MultiEmitter fans out to several emitters.
type MultiEmitter []EventEmitter

func (m MultiEmitter) Emit(ctx context.Context, event string, data any) {
	for _, e := range m {
		e.Emit(ctx, event, data)
	}
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, len(m.Events))
	for i, e := range m.Events {
		names[i] = e.Event
	}
	return names
}

func emit(ctx context.Context, e EventEmitter, event string, data any) {
	if e != nil {
		e.Emit(ctx, event, data)
	}
}
