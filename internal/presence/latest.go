package presence

import (
	"encoding/json"

	"canvas/internal/domain"
)

// LatestState is a latest-value-wins channel inside a workspace.
type LatestState[T any] struct {
	ws    *Workspace
	name  string
	local T

	remote map[string]T
	order  []string

	localUpdated  listeners[T]
	remoteUpdated listeners[domain.ClientValue[T]]
}

var _ domain.LatestState[domain.DragPackage] = (*LatestState[domain.DragPackage])(nil)

// Latest registers channel name on ws with an initial local value and returns it.
// Registering the same name twice returns a fresh state that replaces the first.
func Latest[T any](ws *Workspace, name string, initial T) *LatestState[T] {
	s := &LatestState[T]{
		ws:     ws,
		name:   name,
		local:  initial,
		remote: make(map[string]T),
	}
	ws.channels[name] = s
	if pending, ok := ws.unclaimed[name]; ok {
		delete(ws.unclaimed, name)
		for _, id := range ws.order {
			if raw, ok := pending[id]; ok {
				s.receive(id, raw)
			}
		}
	}
	return s
}

func (s *LatestState[T]) Local() T { return s.local }

// SetLocal stores v, broadcasts it and notifies local listeners.
func (s *LatestState[T]) SetLocal(v T) {
	s.local = v
	s.ws.broadcast(s.name, v)
	s.localUpdated.emit(v)
}

func (s *LatestState[T]) ClientValues() []domain.ClientValue[T] {
	out := make([]domain.ClientValue[T], 0, len(s.order))
	for _, id := range s.order {
		out = append(out, domain.ClientValue[T]{
			ClientID:  id,
			Connected: s.ws.IsConnected(id),
			Value:     s.remote[id],
		})
	}
	return out
}

func (s *LatestState[T]) OnLocalUpdated(fn func(T)) func() {
	return s.localUpdated.add(fn)
}

func (s *LatestState[T]) OnRemoteUpdated(fn func(domain.ClientValue[T])) func() {
	return s.remoteUpdated.add(fn)
}

func (s *LatestState[T]) receive(clientID string, raw json.RawMessage) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		s.ws.logger.Warn("decode presence value", "channel", s.name, "from", clientID, "err", err)
		return
	}
	if _, seen := s.remote[clientID]; !seen {
		s.order = append(s.order, clientID)
	}
	s.remote[clientID] = v
	s.remoteUpdated.emit(domain.ClientValue[T]{
		ClientID:  clientID,
		Connected: s.ws.IsConnected(clientID),
		Value:     v,
	})
}

func (s *LatestState[T]) resend() {
	s.ws.broadcast(s.name, s.local)
}
