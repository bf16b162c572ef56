package presence

import (
	"slices"

	"github.com/charmbracelet/log"
)

// Hub links in-process workspaces. Broadcasts are delivered synchronously to
// every other joined workspace.
type Hub struct {
	logger     *log.Logger
	order      []string
	workspaces map[string]*Workspace
}

// NewHub returns an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{logger: logger, workspaces: make(map[string]*Workspace)}
}

// Join creates the workspace for clientID and introduces it to everyone present.
func (h *Hub) Join(clientID string) *Workspace {
	ws := NewWorkspace(clientID, &hubTransport{hub: h, from: clientID}, h.logger)
	peers := slices.Clone(h.order)
	h.order = append(h.order, clientID)
	h.workspaces[clientID] = ws
	for _, id := range peers {
		ws.Join(id)
		h.workspaces[id].Join(clientID)
	}
	return ws
}

// Leave detaches clientID; the others keep its last values but mark it disconnected.
func (h *Hub) Leave(clientID string) {
	if _, ok := h.workspaces[clientID]; !ok {
		return
	}
	delete(h.workspaces, clientID)
	h.order = slices.DeleteFunc(h.order, func(id string) bool { return id == clientID })
	for _, id := range slices.Clone(h.order) {
		h.workspaces[id].Leave(clientID)
	}
}

func (h *Hub) deliver(from string, msg Message) {
	for _, id := range slices.Clone(h.order) {
		if id == from {
			continue
		}
		if ws, ok := h.workspaces[id]; ok {
			ws.Receive(msg)
		}
	}
}

type hubTransport struct {
	hub  *Hub
	from string
}

func (t *hubTransport) Broadcast(msg Message) error {
	if _, ok := t.hub.workspaces[t.from]; !ok {
		return nil
	}
	t.hub.deliver(t.from, msg)
	return nil
}
