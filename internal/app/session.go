package app

import (
	"context"
	"math/rand/v2"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
	"canvas/internal/presence"
	"canvas/internal/replica"
	"canvas/internal/service"
)

// Session hosts several in-process clients of one document, connected through
// in-process shape and presence hubs.
type Session struct {
	Shapes   *replica.Hub
	Presence *presence.Hub

	options  Options
	viewport [2]float64
	emitter  service.EventEmitter
	logger   *log.Logger
	rand     *rand.Rand
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithViewport sets the scene size of every joined client.
func WithViewport(w, h float64) SessionOption {
	return func(s *Session) { s.viewport = [2]float64{w, h} }
}

// WithEmitter routes every client's service events to e.
func WithEmitter(e service.EventEmitter) SessionOption {
	return func(s *Session) { s.emitter = e }
}

// WithRand makes shape placement deterministic.
func WithRand(r *rand.Rand) SessionOption {
	return func(s *Session) { s.rand = r }
}

// NewSession creates a session around doc. Deliveries are immediate unless the
// caller turns AutoFlush off on s.Shapes.
func NewSession(doc *replica.Document, opts Options, logger *log.Logger, options ...SessionOption) *Session {
	if logger == nil {
		logger = log.Default()
	}
	s := &Session{
		Shapes:   replica.NewHub(doc, logger),
		Presence: presence.NewHub(logger),
		options:  opts,
		viewport: [2]float64{600, 600},
		logger:   logger,
	}
	s.Shapes.AutoFlush = true
	for _, o := range options {
		o(s)
	}
	return s
}

// Join connects a new client and returns its facade.
func (s *Session) Join(ctx context.Context, clientID string) (*App, error) {
	list := s.Shapes.Connect(clientID)
	ws := s.Presence.Join(clientID)
	return New(ctx, Deps{
		ClientID:  clientID,
		List:      list,
		Selection: presence.Latest(ws, domain.SelectionChannel, []string{}),
		Drag:      presence.Latest(ws, domain.DragChannel, domain.DragPackage{}),
		Audience:  ws,
		Viewport:  s.viewport,
		Options:   s.options,
		Emitter:   s.emitter,
		Logger:    s.logger,
		Rand:      s.rand,
	})
}

// Leave disconnects clientID from both hubs.
func (s *Session) Leave(clientID string) {
	s.Shapes.Disconnect(clientID)
	s.Presence.Leave(clientID)
}

// Flush delivers any queued shape transactions.
func (s *Session) Flush() { s.Shapes.Flush() }
