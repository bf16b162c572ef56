package service

import (
	"context"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// DragService: ephemeral drag broadcast, durable commit on release
// ─────────────────────────────────────────────────────────────

// DragService drives one local drag at a time. Moves are rendered locally and
// broadcast on the drag presence channel; the final position is committed to
// the shape list when the drag ends.
type DragService struct {
	ctx      context.Context
	shapes   *ShapeService
	state    domain.LatestState[domain.DragPackage]
	audience domain.Audience
	scene    domain.Scene
	emitter  EventEmitter
	logger   *log.Logger

	useSignals bool

	active  bool
	id      string
	offset  domain.Position
	current domain.Position

	unsubs []func()
}

// NewDragService creates a DragService and subscribes it to remote drag updates.
func NewDragService(ctx context.Context, shapes *ShapeService, state domain.LatestState[domain.DragPackage], audience domain.Audience, scene domain.Scene, useSignals bool, emitter EventEmitter, logger *log.Logger) *DragService {
	if logger == nil {
		logger = log.Default()
	}
	s := &DragService{
		ctx:        ctx,
		shapes:     shapes,
		state:      state,
		audience:   audience,
		scene:      scene,
		useSignals: useSignals,
		emitter:    orNop(emitter),
		logger:     logger,
	}
	s.unsubs = append(s.unsubs, state.OnRemoteUpdated(s.onRemote))
	return s
}

// Close unsubscribes from presence.
func (s *DragService) Close() {
	for _, u := range s.unsubs {
		u()
	}
	s.unsubs = nil
}

func (s *DragService) UseSignals() bool { return s.useSignals }

func (s *DragService) SetUseSignals(on bool) { s.useSignals = on }

// Active returns the id of the shape being dragged locally.
func (s *DragService) Active() (string, bool) {
	return s.id, s.active
}

// Start begins dragging id, capturing the pointer offset from the shape origin.
func (s *DragService) Start(id string, pointer domain.Position) {
	node, ok := s.scene.Node(id)
	if !ok {
		return
	}
	if _, ok := s.shapes.Resolve(id); !ok {
		return
	}
	origin := node.Position()
	s.active = true
	s.id = id
	s.current = origin
	s.offset = domain.Position{X: pointer.X - origin.X, Y: pointer.Y - origin.Y}
}

// Move renders the dragged shape under the pointer and broadcasts the position.
func (s *DragService) Move(pointer domain.Position) {
	if !s.active {
		return
	}
	node, ok := s.scene.Node(s.id)
	if !ok {
		s.abort()
		return
	}
	next := s.clamp(node.Type(), domain.Position{X: pointer.X - s.offset.X, Y: pointer.Y - s.offset.Y})
	s.current = next
	node.SetPosition(next)
	if s.useSignals {
		s.state.SetLocal(domain.DragPackage{ID: s.id, X: next.X, Y: next.Y})
	}
}

// End commits the final position and clears the local drag entry. It is safe to
// call without an active drag.
func (s *DragService) End() {
	if s.active {
		id, pos := s.id, s.current
		s.active = false
		s.id = ""
		s.shapes.SetPosition(id, pos)
		s.state.SetLocal(domain.DragPackage{})
		s.emitter.Emit(s.ctx, EventDragEnded, domain.DragPackage{ID: id, X: pos.X, Y: pos.Y})
		return
	}
	s.clearLocal()
}

// PositionOverride returns the ephemeral position that must win over the durable
// one for id: the local drag first, then any connected remote drag.
func (s *DragService) PositionOverride(id string) (domain.Position, bool) {
	if s.active && s.id == id {
		return s.current, true
	}
	for _, cv := range s.state.ClientValues() {
		if cv.Connected && cv.Value.ID == id {
			return domain.Position{X: cv.Value.X, Y: cv.Value.Y}, true
		}
	}
	return domain.Position{}, false
}

// RemoteDrags returns the in-progress drags of connected remote clients by client id.
func (s *DragService) RemoteDrags() map[string]domain.DragPackage {
	out := make(map[string]domain.DragPackage)
	for _, cv := range s.state.ClientValues() {
		if cv.Connected && cv.Value.Active() {
			out[cv.ClientID] = cv.Value
		}
	}
	return out
}

func (s *DragService) onRemote(cv domain.ClientValue[domain.DragPackage]) {
	if !cv.Connected || !cv.Value.Active() {
		return
	}
	if s.active && s.id == cv.Value.ID {
		return
	}
	node, ok := s.scene.Node(cv.Value.ID)
	if !ok {
		return
	}
	node.SetPosition(domain.Position{X: cv.Value.X, Y: cv.Value.Y})
}

func (s *DragService) abort() {
	s.logger.Debug("drag aborted: shape gone", "id", s.id)
	s.active = false
	s.id = ""
	s.clearLocal()
}

func (s *DragService) clearLocal() {
	if s.state.Local() != (domain.DragPackage{}) {
		s.state.SetLocal(domain.DragPackage{})
	}
}

// clamp keeps a shape of type t inside the viewport, falling back per axis to
// the current position when the candidate would leave it.
func (s *DragService) clamp(t domain.ShapeType, p domain.Position) domain.Position {
	w, h := s.scene.Viewport()
	g := domain.GeometryOf(t)
	halfW, halfH := g.Width/2, g.Height/2
	if p.X < halfW || p.X > w-halfW {
		p.X = s.current.X
	}
	if p.Y < halfH || p.Y > h-halfH {
		p.Y = s.current.Y
	}
	return p
}
