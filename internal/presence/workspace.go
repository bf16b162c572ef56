// Package presence carries ephemeral per-client state such as selections and drag
// positions. Values are latest-wins, never sequenced and never persisted.
package presence

import (
	"encoding/json"
	"slices"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// Message is one presence update on the wire.
type Message struct {
	Channel  string          `json:"channel"`
	ClientID string          `json:"clientId"`
	Value    json.RawMessage `json:"value"`
}

// Transport fans a message out to every other attendee.
type Transport interface {
	Broadcast(msg Message) error
}

type channel interface {
	receive(clientID string, raw json.RawMessage)
	resend()
}

// Workspace is one client's view of the session's attendees and their presence
// channels. Methods must be called from a single goroutine.
type Workspace struct {
	myself    string
	transport Transport
	logger    *log.Logger

	attendees map[string]bool
	order     []string
	channels  map[string]channel
	unclaimed map[string]map[string]json.RawMessage

	joined       listeners[string]
	disconnected listeners[string]
}

var _ domain.Audience = (*Workspace)(nil)

// NewWorkspace returns a workspace for myself that broadcasts through t.
func NewWorkspace(myself string, t Transport, logger *log.Logger) *Workspace {
	if logger == nil {
		logger = log.Default()
	}
	return &Workspace{
		myself:    myself,
		transport: t,
		logger:    logger.With("client", myself),
		attendees: make(map[string]bool),
		channels:  make(map[string]channel),
		unclaimed: make(map[string]map[string]json.RawMessage),
	}
}

func (w *Workspace) Myself() string { return w.myself }

func (w *Workspace) IsConnected(clientID string) bool {
	if clientID == w.myself {
		return true
	}
	return w.attendees[clientID]
}

// Attendees returns the ids of every remote attendee ever seen, in arrival order.
func (w *Workspace) Attendees() []string {
	return slices.Clone(w.order)
}

func (w *Workspace) OnAttendeeJoined(fn func(string)) func() {
	return w.joined.add(fn)
}

func (w *Workspace) OnAttendeeDisconnected(fn func(string)) func() {
	return w.disconnected.add(fn)
}

// Join marks clientID connected and re-sends every local value so the newcomer
// catches up.
func (w *Workspace) Join(clientID string) {
	if clientID == w.myself || w.attendees[clientID] {
		return
	}
	w.markConnected(clientID)
	for _, name := range w.channelNames() {
		w.channels[name].resend()
	}
}

// Leave marks clientID disconnected. Its last values stay readable.
func (w *Workspace) Leave(clientID string) {
	if !w.attendees[clientID] {
		return
	}
	w.attendees[clientID] = false
	w.logger.Debug("attendee disconnected", "attendee", clientID)
	w.disconnected.emit(clientID)
}

// Receive routes an incoming message to its channel. A message from an unknown
// attendee implies it is connected.
func (w *Workspace) Receive(msg Message) {
	if msg.ClientID == w.myself || msg.ClientID == "" {
		return
	}
	if !w.attendees[msg.ClientID] {
		w.markConnected(msg.ClientID)
	}
	if ch, ok := w.channels[msg.Channel]; ok {
		ch.receive(msg.ClientID, msg.Value)
		return
	}
	byClient := w.unclaimed[msg.Channel]
	if byClient == nil {
		byClient = make(map[string]json.RawMessage)
		w.unclaimed[msg.Channel] = byClient
	}
	byClient[msg.ClientID] = msg.Value
}

func (w *Workspace) markConnected(clientID string) {
	if _, seen := w.attendees[clientID]; !seen {
		w.order = append(w.order, clientID)
	}
	w.attendees[clientID] = true
	w.logger.Debug("attendee joined", "attendee", clientID)
	w.joined.emit(clientID)
}

func (w *Workspace) channelNames() []string {
	names := make([]string, 0, len(w.channels))
	for name := range w.channels {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (w *Workspace) broadcast(name string, v any) {
	if w.transport == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		w.logger.Error("encode presence value", "channel", name, "err", err)
		return
	}
	if err := w.transport.Broadcast(Message{Channel: name, ClientID: w.myself, Value: raw}); err != nil {
		w.logger.Warn("broadcast presence", "channel", name, "err", err)
	}
}

type listeners[T any] struct {
	next int
	fns  []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

func (l *listeners[T]) add(fn func(T)) func() {
	l.next++
	id := l.next
	l.fns = append(l.fns, listener[T]{id: id, fn: fn})
	return func() {
		l.fns = slices.DeleteFunc(slices.Clone(l.fns), func(x listener[T]) bool { return x.id == id })
	}
}

func (l *listeners[T]) emit(v T) {
	for _, x := range slices.Clone(l.fns) {
		x.fn(v)
	}
}
