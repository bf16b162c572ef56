package relay

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"canvas/internal/domain"
	"canvas/internal/presence"
	"canvas/internal/replica"
)

// Client is one websocket connection to a relay. It is the transport for both a
// replica and a presence workspace.
type Client struct {
	ws     *websocket.Conn
	id     string
	logger *log.Logger

	writeMu sync.Mutex
}

var (
	_ replica.Transport  = (*Client)(nil)
	_ presence.Transport = (*Client)(nil)
)

// Dial connects to the relay at rawURL for board docID and waits for the welcome.
// An empty clientID lets the server assign one.
func Dial(ctx context.Context, rawURL, docID, clientID string, logger *log.Logger) (*Client, Welcome, error) {
	if logger == nil {
		logger = log.Default()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, Welcome{}, fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("doc", docID)
	if clientID != "" {
		q.Set("client", clientID)
	}
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, Welcome{}, fmt.Errorf("dial relay: %w", err)
	}

	var env Envelope
	if err := ws.ReadJSON(&env); err != nil {
		ws.Close()
		return nil, Welcome{}, fmt.Errorf("read welcome: %w", err)
	}
	if env.Type == MsgError {
		ws.Close()
		return nil, Welcome{}, fmt.Errorf("%w: %s", ErrProtocol, env.Error)
	}
	if env.Type != MsgWelcome || env.Snapshot == nil {
		ws.Close()
		return nil, Welcome{}, fmt.Errorf("%w: expected welcome, got %q", ErrProtocol, env.Type)
	}

	c := &Client{ws: ws, id: env.ClientID, logger: logger.With("client", env.ClientID)}
	return c, Welcome{ClientID: env.ClientID, Snapshot: *env.Snapshot, Attendees: env.Attendees}, nil
}

// ID returns the id the server assigned.
func (c *Client) ID() string { return c.id }

// Submit sends a locally committed transaction to the sequencer.
func (c *Client) Submit(txn replica.Txn) error {
	return c.write(Envelope{Type: MsgSubmit, Txn: &txn})
}

// Broadcast sends a presence update to every other attendee.
func (c *Client) Broadcast(msg presence.Message) error {
	return c.write(Envelope{Type: MsgPresence, Presence: &msg})
}

func (c *Client) write(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(env)
}

// Close sends a normal closure and closes the socket.
func (c *Client) Close() error {
	c.writeMu.Lock()
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.ws.Close()
}

// Sink is where inbound frames land. Post hands each delivery to the goroutine
// that owns Replica and Presence.
type Sink struct {
	Replica  *replica.Client
	Presence *presence.Workspace
	Post     func(func())
}

// Run reads frames until the connection closes or ctx is cancelled. On return
// the replica is marked disconnected.
func (c *Client) Run(ctx context.Context, sink Sink) error {
	post := sink.Post
	if post == nil {
		post = func(fn func()) { fn() }
	}
	defer post(func() { sink.Replica.SetConnectionState(domain.Disconnected) })

	stop := context.AfterFunc(ctx, func() { c.ws.Close() })
	defer stop()

	for {
		var env Envelope
		if err := c.ws.ReadJSON(&env); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read relay: %w", err)
		}
		switch env.Type {
		case MsgSequenced:
			if env.Sequenced == nil {
				continue
			}
			s := *env.Sequenced
			post(func() { sink.Replica.Receive(s) })
		case MsgPresence:
			if env.Presence == nil {
				continue
			}
			msg := *env.Presence
			post(func() { sink.Presence.Receive(msg) })
		case MsgJoin:
			id := env.ClientID
			post(func() { sink.Presence.Join(id) })
		case MsgLeave:
			id := env.ClientID
			post(func() { sink.Presence.Leave(id) })
		case MsgError:
			c.logger.Warn("relay rejected frame", "err", env.Error)
		default:
			c.logger.Debug("ignoring frame", "type", env.Type)
		}
	}
}
