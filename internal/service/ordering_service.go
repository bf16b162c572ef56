package service

import (
	"github.com/charmbracelet/log"
)

// ─────────────────────────────────────────────────────────────
// OrderingService: z-order moves for a single shape
// ─────────────────────────────────────────────────────────────

// OrderingService moves one shape within the z-order. Boundary moves and
// ids that no longer resolve are no-ops.
type OrderingService struct {
	shapes *ShapeService
	logger *log.Logger
}

// NewOrderingService creates an OrderingService.
func NewOrderingService(shapes *ShapeService, logger *log.Logger) *OrderingService {
	if logger == nil {
		logger = log.Default()
	}
	return &OrderingService{shapes: shapes, logger: logger}
}

func (s *OrderingService) BringToFront(id string) {
	i, ok := s.resolve(id)
	if !ok || i == s.shapes.Len()-1 {
		return
	}
	s.shapes.MoveToEnd(i)
}

func (s *OrderingService) SendToBack(id string) {
	i, ok := s.resolve(id)
	if !ok || i == 0 {
		return
	}
	s.shapes.MoveToStart(i)
}

func (s *OrderingService) BringForward(id string) {
	i, ok := s.resolve(id)
	if !ok || i == s.shapes.Len()-1 {
		return
	}
	s.shapes.MoveToIndex(i+2, i)
}

func (s *OrderingService) SendBackward(id string) {
	i, ok := s.resolve(id)
	if !ok || i == 0 {
		return
	}
	s.shapes.MoveToIndex(i-1, i)
}

func (s *OrderingService) resolve(id string) (int, bool) {
	i, ok := s.shapes.Resolve(id)
	if !ok {
		s.logger.Debug("reorder dropped: shape gone", "id", id)
	}
	return i, ok
}
