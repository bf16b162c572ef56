package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/robfig/cron/v3"

	"canvas/internal/domain"
	"canvas/internal/replica"
)

const (
	sendBuffer   = 256
	writeTimeout = 10 * time.Second
	compactJob   = "compact"
)

// Server sequences transactions for every board and fans them out to the
// board's connections.
type Server struct {
	backend  replica.Backend
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	rooms map[string]*room

	guard jobGuard
	cron  *cron.Cron
}

type room struct {
	doc *replica.Document

	mu    sync.Mutex
	order []string
	conns map[string]*conn
}

type conn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte
}

// NewServer returns a server persisting through backend. A nil backend keeps
// boards in memory only.
func NewServer(backend replica.Backend, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		backend: backend,
		logger:  logger.WithPrefix("relay"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
	}
}

// Handler routes /ws and /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleConn)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// ScheduleCompaction snapshots every open board on spec, a cron expression or
// descriptor such as "@every 30s". An empty spec disables it.
func (s *Server) ScheduleCompaction(spec string) error {
	if spec == "" {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { s.CompactAll(context.Background()) }); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("compaction scheduled", "schedule", spec)
	return nil
}

// CompactAll snapshots every open board. Overlapping runs are skipped.
func (s *Server) CompactAll(ctx context.Context) {
	if !s.guard.TryLock(compactJob) {
		s.logger.Debug("compaction already running")
		return
	}
	defer s.guard.Unlock(compactJob)

	for _, r := range s.roomList() {
		if err := r.doc.Compact(ctx); err != nil {
			s.logger.Error("compaction failed", "doc", r.doc.ID(), "err", err)
		}
	}
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Shutdown(shutdownCtx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the compaction schedule, writes a final snapshot of every
// board and closes them.
func (s *Server) Shutdown(ctx context.Context) {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
	s.guard.WaitAll(ctx)
	s.CompactAll(ctx)
	for _, r := range s.roomList() {
		r.doc.Close()
	}
}

func (s *Server) roomList() []*room {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out
}

func (s *Server) room(ctx context.Context, docID string) (*room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[docID]; ok {
		return r, nil
	}
	doc, err := replica.OpenDocument(ctx, docID, s.backend, s.logger)
	if err != nil {
		return nil, err
	}
	r := &room{doc: doc, conns: make(map[string]*conn)}
	s.rooms[docID] = r
	return r, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	boards := len(s.rooms)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "boards": boards})
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("doc")
	if docID == "" {
		docID = "default"
	}
	clientID := r.URL.Query().Get("client")
	if clientID == "" {
		clientID = domain.NewClientID()
	}

	rm, err := s.room(r.Context(), docID)
	if err != nil {
		s.logger.Error("open board", "doc", docID, "err", err)
		http.Error(w, "cannot open board", http.StatusInternalServerError)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "err", err)
		return
	}

	c := &conn{id: clientID, ws: ws, send: make(chan []byte, sendBuffer)}
	logger := s.logger.With("doc", docID, "client", clientID)
	if !rm.join(c) {
		logger.Warn("duplicate client id")
		ws.WriteJSON(Envelope{Type: MsgError, Error: "client id already connected"})
		ws.Close()
		return
	}
	logger.Info("client joined")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range c.send {
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("write failed", "err", err)
				ws.Close()
				for range c.send {
				}
				return
			}
		}
	}()

	for {
		var env Envelope
		if err := ws.ReadJSON(&env); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("read failed", "err", err)
			}
			break
		}
		if err := s.dispatch(r.Context(), rm, c, env); err != nil {
			logger.Warn("rejected frame", "type", env.Type, "err", err)
			rm.sendTo(c, Envelope{Type: MsgError, Error: err.Error()})
		}
	}

	rm.leave(c)
	<-done
	ws.Close()
	logger.Info("client left")
}

func (s *Server) dispatch(ctx context.Context, rm *room, c *conn, env Envelope) error {
	switch env.Type {
	case MsgSubmit:
		if env.Txn == nil {
			return fmt.Errorf("%w: submit without txn", ErrProtocol)
		}
		txn := *env.Txn
		txn.ClientID = c.id
		return rm.sequence(ctx, txn)
	case MsgPresence:
		if env.Presence == nil {
			return fmt.Errorf("%w: presence without message", ErrProtocol)
		}
		msg := *env.Presence
		msg.ClientID = c.id
		rm.broadcast(c.id, Envelope{Type: MsgPresence, Presence: &msg})
		return nil
	}
	return fmt.Errorf("%w: unexpected %q", ErrProtocol, env.Type)
}

// join registers c and queues its welcome ahead of any later sequenced frame.
func (r *room) join(c *conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[c.id]; exists {
		return false
	}
	snap := r.doc.Snapshot()
	r.enqueue(c, Envelope{
		Type:      MsgWelcome,
		ClientID:  c.id,
		Snapshot:  &snap,
		Attendees: slices.Clone(r.order),
	})
	r.fanout(c.id, Envelope{Type: MsgJoin, ClientID: c.id})
	r.order = append(r.order, c.id)
	r.conns[c.id] = c
	return true
}

func (r *room) leave(c *conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[c.id] != c {
		return
	}
	delete(r.conns, c.id)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == c.id })
	close(c.send)
	r.fanout(c.id, Envelope{Type: MsgLeave, ClientID: c.id})
}

// sequence holds the room lock across submit and fan-out so every connection
// sees frames in sequence order.
func (r *room) sequence(ctx context.Context, txn replica.Txn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq, err := r.doc.Submit(ctx, txn)
	if err != nil {
		return err
	}
	r.fanout("", Envelope{Type: MsgSequenced, Sequenced: &seq})
	return nil
}

func (r *room) broadcast(from string, env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fanout(from, env)
}

func (r *room) sendTo(c *conn, env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[c.id] == c {
		r.enqueue(c, env)
	}
}

// fanout sends env to every connection except skip. Callers hold r.mu.
func (r *room) fanout(skip string, env Envelope) {
	for _, id := range r.order {
		if id == skip {
			continue
		}
		r.enqueue(r.conns[id], env)
	}
}

// enqueue drops a connection whose buffer is full rather than stall the room.
func (r *room) enqueue(c *conn, env Envelope) {
	buf, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- buf:
	default:
		c.ws.Close()
	}
}
