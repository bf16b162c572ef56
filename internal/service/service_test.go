package service_test

import (
	"context"
	"testing"

	"canvas/internal/service"
)

// ─────────────────────────────────────────────────────────────
// MockEmitter tests
// ─────────────────────────────────────────────────────────────

func TestMockEmitter_RecordsEvents(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, service.EventSelectionChanged, []string{"s1"})
	m.Emit(ctx, service.EventDragEnded, nil)

	if len(m.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(m.Events))
	}
	if m.Events[0].Event != service.EventSelectionChanged {
		t.Errorf("expected %q, got %q", service.EventSelectionChanged, m.Events[0].Event)
	}
}

func TestMockEmitter_Count(t *testing.T) {
	m := &service.MockEmitter{}
	ctx := context.Background()

	m.Emit(ctx, "a", "first")
	m.Emit(ctx, "b", "second")
	m.Emit(ctx, "a", "third")

	if got := m.Count("a"); got != 2 {
		t.Errorf("expected 2 'a' events, got %d", got)
	}
	if got := m.Count("missing"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if m.Events[len(m.Events)-1].Data != "third" {
		t.Errorf("expected last payload 'third', got %v", m.Events[len(m.Events)-1].Data)
	}
}

func TestNopEmitter_Discards(t *testing.T) {
	var e service.EventEmitter = service.NopEmitter{}
	e.Emit(context.Background(), "anything", 1)
}
