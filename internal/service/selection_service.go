package service

import (
	"context"
	"slices"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// SelectionService: local and remote selection over presence
// ─────────────────────────────────────────────────────────────

// Range is a maximal run of consecutive z-indices [Start, End).
type Range struct {
	Start int
	End   int
	IDs   []string
}

// SelectionService keeps this client's selection on the selection presence
// channel and derives selection and presence decorations for the scene.
type SelectionService struct {
	ctx      context.Context
	shapes   *ShapeService
	state    domain.LatestState[[]string]
	audience domain.Audience
	scene    domain.Scene
	emitter  EventEmitter
	logger   *log.Logger

	unsubs []func()
}

// NewSelectionService creates a SelectionService and subscribes it to remote
// selection updates and attendee disconnects.
func NewSelectionService(ctx context.Context, shapes *ShapeService, state domain.LatestState[[]string], audience domain.Audience, scene domain.Scene, emitter EventEmitter, logger *log.Logger) *SelectionService {
	if logger == nil {
		logger = log.Default()
	}
	s := &SelectionService{
		ctx:      ctx,
		shapes:   shapes,
		state:    state,
		audience: audience,
		scene:    scene,
		emitter:  orNop(emitter),
		logger:   logger,
	}
	s.unsubs = append(s.unsubs,
		state.OnLocalUpdated(func([]string) { s.RefreshDecorations() }),
		state.OnRemoteUpdated(func(domain.ClientValue[[]string]) { s.RefreshDecorations() }),
		audience.OnAttendeeDisconnected(func(string) { s.RefreshDecorations() }),
	)
	return s
}

// Close unsubscribes from presence.
func (s *SelectionService) Close() {
	for _, u := range s.unsubs {
		u()
	}
	s.unsubs = nil
}

// LocalSelected returns a copy of the local selection in selection order.
func (s *SelectionService) LocalSelected() []string {
	return slices.Clone(s.state.Local())
}

func (s *SelectionService) IsSelectedLocal(id string) bool {
	return slices.Contains(s.state.Local(), id)
}

// RemoteSelectors returns the connected remote clients that have id selected.
func (s *SelectionService) RemoteSelectors(id string) []string {
	var out []string
	for _, cv := range s.state.ClientValues() {
		if cv.Connected && slices.Contains(cv.Value, id) {
			out = append(out, cv.ClientID)
		}
	}
	return out
}

// RemoteSelected maps every shape id selected by a connected remote client to
// the clients selecting it.
func (s *SelectionService) RemoteSelected() map[string][]string {
	out := make(map[string][]string)
	for _, cv := range s.state.ClientValues() {
		if !cv.Connected {
			continue
		}
		for _, id := range cv.Value {
			if !slices.Contains(out[id], cv.ClientID) {
				out[id] = append(out[id], cv.ClientID)
			}
		}
	}
	return out
}

// SetSelection replaces the local selection.
func (s *SelectionService) SetSelection(ids ...string) {
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	s.publish(next)
}

func (s *SelectionService) Toggle(id string) {
	if s.IsSelectedLocal(id) {
		s.Remove(id)
		return
	}
	s.Add(id)
}

func (s *SelectionService) Add(id string) {
	if s.IsSelectedLocal(id) {
		return
	}
	s.publish(append(slices.Clone(s.state.Local()), id))
}

func (s *SelectionService) Remove(id string) {
	if !s.IsSelectedLocal(id) {
		return
	}
	s.publish(slices.DeleteFunc(slices.Clone(s.state.Local()), func(x string) bool { return x == id }))
}

func (s *SelectionService) Clear() {
	if len(s.state.Local()) == 0 {
		return
	}
	s.publish([]string{})
}

// SelectAll selects every shape currently in the list.
func (s *SelectionService) SelectAll() {
	s.publish(s.shapes.IDs())
}

// Select applies the pointer policy: a modifier toggles id; a plain select on an
// unselected shape replaces the selection and leaves it alone otherwise.
func (s *SelectionService) Select(id string, modifier bool) {
	if modifier {
		s.Toggle(id)
		return
	}
	if !s.IsSelectedLocal(id) {
		s.SetSelection(id)
	}
}

// First returns the first selected id that still resolves.
func (s *SelectionService) First() (string, bool) {
	for _, id := range s.state.Local() {
		if _, ok := s.shapes.Resolve(id); ok {
			return id, true
		}
	}
	return "", false
}

// Ranges decomposes the local selection into maximal runs of consecutive
// z-indices, ascending. Ids that no longer resolve are skipped.
func (s *SelectionService) Ranges() []Range {
	type hit struct {
		index int
		id    string
	}
	var hits []hit
	for _, id := range s.state.Local() {
		if i, ok := s.shapes.Resolve(id); ok {
			hits = append(hits, hit{index: i, id: id})
		}
	}
	slices.SortFunc(hits, func(a, b hit) int { return a.index - b.index })

	var out []Range
	for _, h := range hits {
		if n := len(out); n > 0 && out[n-1].End == h.index {
			out[n-1].End++
			out[n-1].IDs = append(out[n-1].IDs, h.id)
			continue
		}
		out = append(out, Range{Start: h.index, End: h.index + 1, IDs: []string{h.id}})
	}
	return out
}

// RefreshDecorations recomputes the selection frame and presence badge of every node.
func (s *SelectionService) RefreshDecorations() {
	remote := s.RemoteSelected()
	local := make(map[string]struct{}, len(s.state.Local()))
	for _, id := range s.state.Local() {
		local[id] = struct{}{}
	}
	for _, id := range s.scene.NodeIDs() {
		node, ok := s.scene.Node(id)
		if !ok {
			continue
		}
		_, selected := local[id]
		node.SetSelected(selected)
		node.SetPresence(len(remote[id]))
	}
}

func (s *SelectionService) publish(ids []string) {
	s.state.SetLocal(ids)
	s.emitter.Emit(s.ctx, EventSelectionChanged, slices.Clone(ids))
}
