package service

import (
	"context"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// UndoService: local undo/redo stacks over committed batches
// ─────────────────────────────────────────────────────────────

// DefaultUndoDepth bounds each stack when no depth is configured.
const DefaultUndoDepth = 40

// StackState is emitted whenever either stack changes.
type StackState struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// UndoService records every local batch as one undo unit. Remote batches are
// never recorded.
type UndoService struct {
	ctx     context.Context
	depth   int
	emitter EventEmitter
	logger  *log.Logger

	undo  []domain.Revertible
	redo  []domain.Revertible
	unsub func()
}

// NewUndoService subscribes to shapes' committed batches.
func NewUndoService(ctx context.Context, shapes *ShapeService, depth int, emitter EventEmitter, logger *log.Logger) *UndoService {
	if logger == nil {
		logger = log.Default()
	}
	if depth <= 0 {
		depth = DefaultUndoDepth
	}
	s := &UndoService{ctx: ctx, depth: depth, emitter: orNop(emitter), logger: logger}
	s.unsub = shapes.OnChanged(s.onCommit)
	return s
}

// Close stops recording.
func (s *UndoService) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

func (s *UndoService) CanUndo() bool { return len(s.undo) > 0 }

func (s *UndoService) CanRedo() bool { return len(s.redo) > 0 }

// Undo reverts the most recent local batch.
func (s *UndoService) Undo() {
	r, ok := pop(&s.undo)
	if !ok {
		return
	}
	r.Revert()
	s.changed()
}

// Redo re-applies the most recently undone batch.
func (s *UndoService) Redo() {
	r, ok := pop(&s.redo)
	if !ok {
		return
	}
	r.Revert()
	s.changed()
}

// Clear empties both stacks.
func (s *UndoService) Clear() {
	s.undo = nil
	s.redo = nil
	s.changed()
}

func (s *UndoService) onCommit(c domain.Commit) {
	if !c.Local || c.Revertible == nil {
		return
	}
	switch c.Kind {
	case domain.CommitUndo:
		s.redo = s.push(s.redo, c.Revertible)
	case domain.CommitRedo:
		s.undo = s.push(s.undo, c.Revertible)
	default:
		s.undo = s.push(s.undo, c.Revertible)
		s.redo = nil
	}
	s.changed()
}

func (s *UndoService) push(stack []domain.Revertible, r domain.Revertible) []domain.Revertible {
	stack = append(stack, r)
	if len(stack) > s.depth {
		stack = stack[len(stack)-s.depth:]
	}
	return stack
}

func (s *UndoService) changed() {
	s.emitter.Emit(s.ctx, EventStackChanged, StackState{CanUndo: s.CanUndo(), CanRedo: s.CanRedo()})
}

func pop(stack *[]domain.Revertible) (domain.Revertible, bool) {
	n := len(*stack)
	if n == 0 {
		return nil, false
	}
	r := (*stack)[n-1]
	*stack = (*stack)[:n-1]
	return r, true
}
