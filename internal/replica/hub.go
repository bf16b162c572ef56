package replica

import (
	"context"
	"slices"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// Hub connects in-process clients to one document. Sequenced transactions are
// queued per client and delivered by Flush, which lets tests interleave edits
// from several clients before any of them sees the others' work.
type Hub struct {
	doc    *Document
	logger *log.Logger

	// AutoFlush delivers every sequenced transaction as soon as it is submitted.
	AutoFlush bool

	order    []string
	clients  map[string]*Client
	queues   map[string][]Sequenced
	flushing bool
}

// NewHub returns a hub sequencing through doc.
func NewHub(doc *Document, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		doc:     doc,
		logger:  logger,
		clients: make(map[string]*Client),
		queues:  make(map[string][]Sequenced),
	}
}

// Document returns the hub's sequencer.
func (h *Hub) Document() *Document { return h.doc }

// Connect creates a client seeded from the current canonical snapshot.
func (h *Hub) Connect(clientID string) *Client {
	c := NewClient(clientID, h.doc.Snapshot(), &hubTransport{hub: h}, h.logger)
	if _, exists := h.clients[clientID]; !exists {
		h.order = append(h.order, clientID)
	}
	h.clients[clientID] = c
	h.queues[clientID] = nil
	h.logger.Debug("client connected", "client", clientID)
	return c
}

// Disconnect stops delivery to clientID and drops its queue.
func (h *Hub) Disconnect(clientID string) {
	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	c.SetConnectionState(domain.Disconnected)
	delete(h.clients, clientID)
	delete(h.queues, clientID)
	h.order = slices.DeleteFunc(h.order, func(id string) bool { return id == clientID })
	h.logger.Debug("client disconnected", "client", clientID)
}

// Pending returns the number of queued deliveries across all clients.
func (h *Hub) Pending() int {
	n := 0
	for _, q := range h.queues {
		n += len(q)
	}
	return n
}

// Flush delivers queued transactions in sequence order until every queue is empty.
// Calls made while a flush is running are folded into it.
func (h *Hub) Flush() {
	if h.flushing {
		return
	}
	h.flushing = true
	defer func() { h.flushing = false }()

	for h.Pending() > 0 {
		for _, id := range slices.Clone(h.order) {
			q := h.queues[id]
			if len(q) == 0 {
				continue
			}
			s := q[0]
			h.queues[id] = q[1:]
			if c, ok := h.clients[id]; ok {
				c.Receive(s)
			}
		}
	}
}

func (h *Hub) submit(txn Txn) error {
	s, err := h.doc.Submit(context.Background(), txn)
	if err != nil {
		return err
	}
	for _, id := range h.order {
		h.queues[id] = append(h.queues[id], s)
	}
	if h.AutoFlush {
		h.Flush()
	}
	return nil
}

type hubTransport struct {
	hub *Hub
}

func (t *hubTransport) Submit(txn Txn) error {
	return t.hub.submit(txn)
}
