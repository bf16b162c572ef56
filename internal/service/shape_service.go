package service

import (
	"context"
	"iter"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// ShapeService: capacity policy and id resolution over the list
// ─────────────────────────────────────────────────────────────

// ShapeService wraps the replicated shape list. Creates beyond MaxShapes and
// operations on ids that no longer resolve are silent no-ops.
type ShapeService struct {
	ctx       context.Context
	list      domain.ShapeList
	maxShapes int
	logger    *log.Logger

	index map[string]int
	unsub func()
}

// NewShapeService creates a ShapeService over list.
func NewShapeService(ctx context.Context, list domain.ShapeList, maxShapes int, logger *log.Logger) *ShapeService {
	if logger == nil {
		logger = log.Default()
	}
	s := &ShapeService{ctx: ctx, list: list, maxShapes: maxShapes, logger: logger}
	s.unsub = list.OnChanged(func(domain.Commit) { s.index = nil })
	return s
}

// Close detaches from the list.
func (s *ShapeService) Close() {
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
}

// List returns the underlying replicated list.
func (s *ShapeService) List() domain.ShapeList { return s.list }

func (s *ShapeService) Len() int { return s.list.Len() }

func (s *ShapeService) At(i int) domain.Shape { return s.list.At(i) }

func (s *ShapeService) All() iter.Seq2[int, domain.Shape] { return s.list.All() }

func (s *ShapeService) MaxShapes() int { return s.maxShapes }

// SetMaxShapes changes the capacity. Shapes already above it stay.
func (s *ShapeService) SetMaxShapes(n int) { s.maxShapes = n }

// Remaining returns how many shapes can still be created.
func (s *ShapeService) Remaining() int {
	return max(s.maxShapes-s.list.Len(), 0)
}

func (s *ShapeService) MaxReached() bool { return s.Remaining() == 0 }

// Resolve returns the current z-index of id.
func (s *ShapeService) Resolve(id string) (int, bool) {
	if s.index == nil {
		s.index = make(map[string]int, s.list.Len())
		for i, sh := range s.list.All() {
			s.index[sh.ID] = i
		}
	}
	i, ok := s.index[id]
	return i, ok
}

// Get returns the shape with id.
func (s *ShapeService) Get(id string) (domain.Shape, bool) {
	i, ok := s.Resolve(id)
	if !ok {
		return domain.Shape{}, false
	}
	return s.list.At(i), true
}

// IDs returns every shape id in z-order.
func (s *ShapeService) IDs() []string {
	out := make([]string, 0, s.list.Len())
	for _, sh := range s.list.All() {
		out = append(out, sh.ID)
	}
	return out
}

// InsertEnd appends one shape unless the list is full.
func (s *ShapeService) InsertEnd(shape domain.Shape) {
	if s.MaxReached() {
		s.logger.Debug("create rejected: capacity reached", "max", s.maxShapes)
		return
	}
	s.index = nil
	s.list.InsertAtEnd(shape)
}

// InsertMany appends as many shapes as fit in one batch and drops the rest.
func (s *ShapeService) InsertMany(shapes []domain.Shape) {
	room := s.Remaining()
	if room == 0 || len(shapes) == 0 {
		return
	}
	if len(shapes) > room {
		s.logger.Debug("create truncated to capacity", "requested", len(shapes), "added", room)
		shapes = shapes[:room]
	}
	s.index = nil
	s.list.InsertAtEnd(shapes...)
}

func (s *ShapeService) RemoveRange(start, end int) {
	if start >= end {
		return
	}
	s.index = nil
	s.list.RemoveRange(start, end)
}

// RemoveAll empties the list in one batch.
func (s *ShapeService) RemoveAll() {
	s.RemoveRange(0, s.list.Len())
}

func (s *ShapeService) MoveToStart(i int) {
	s.index = nil
	s.list.MoveToStart(i)
}

func (s *ShapeService) MoveToEnd(i int) {
	s.index = nil
	s.list.MoveToEnd(i)
}

// MoveToIndex moves the shape at src into the gap before dst.
func (s *ShapeService) MoveToIndex(dst, src int) {
	s.index = nil
	s.list.MoveToIndex(dst, src)
}

// SetPosition commits a position for id; a vanished id is ignored.
func (s *ShapeService) SetPosition(id string, p domain.Position) {
	if _, ok := s.Resolve(id); !ok {
		s.logger.Debug("position dropped: shape gone", "id", id)
		return
	}
	s.list.SetPosition(id, p)
}

// SetColor recolors every id that still resolves.
func (s *ShapeService) SetColor(ids []string, c domain.Color) {
	live := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.Resolve(id); ok {
			live = append(live, id)
		}
	}
	if len(live) == 0 || !c.Valid() {
		return
	}
	s.list.SetColor(live, c)
}

func (s *ShapeService) Transaction(fn func()) { s.list.Transaction(fn) }

func (s *ShapeService) OnChanged(fn func(domain.Commit)) func() { return s.list.OnChanged(fn) }

func (s *ShapeService) ConnectionState() domain.ConnectionState { return s.list.ConnectionState() }
