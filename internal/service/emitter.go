package service

import "context"

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from their observers
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to whoever drives the canvas
// (CLI simulation, MCP server, relay bridge). Services receive this interface
// instead of a concrete sink, which makes them testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// Event names emitted by the services.
const (
	EventSceneReconciled  = "scene:reconciled"
	EventSelectionChanged = "selection:changed"
	EventDragEnded        = "drag:ended"
	EventStackChanged     = "undo:stack-changed"
)

// NopEmitter discards every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Count returns how many times event was emitted.
func (m *MockEmitter) Count(event string) int {
	n := 0
	for _, e := range m.Events {
		if e.Event == event {
			n++
		}
	}
	return n
}

func orNop(e EventEmitter) EventEmitter {
	if e == nil {
		return NopEmitter{}
	}
	return e
}
