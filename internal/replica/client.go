package replica

import (
	"iter"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"

	"canvas/internal/domain"
)

// Transport carries locally committed transactions to the sequencer.
type Transport interface {
	Submit(txn Txn) error
}

// Client is one participant's replica of the shape list. The view it exposes is the
// last acknowledged snapshot with every still-pending local transaction replayed on
// top, so local edits show immediately and are rebased whenever a sequenced
// transaction arrives. All methods must be called from a single goroutine.
type Client struct {
	id        string
	transport Transport
	logger    *log.Logger

	base    []domain.Shape
	baseSeq uint64
	pending []Txn
	view    []domain.Shape

	txDepth   int
	txKind    domain.CommitKind
	txOps     []Op
	txInverse [][]Op
	inbox     []Sequenced

	listeners []*changeListener
	nextLID   int

	stateMu sync.RWMutex
	state   domain.ConnectionState
}

type changeListener struct {
	id int
	fn func(domain.Commit)
}

var _ domain.ShapeList = (*Client)(nil)

// NewClient builds a replica seeded from snap.
func NewClient(id string, snap Snapshot, t Transport, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	base := append([]domain.Shape(nil), snap.Shapes...)
	return &Client{
		id:        id,
		transport: t,
		logger:    logger.With("client", id),
		base:      base,
		baseSeq:   snap.Seq,
		view:      base,
		state:     domain.Connected,
	}
}

// ID returns the client id used to tag submitted transactions.
func (c *Client) ID() string { return c.id }

// Seq returns the sequence number of the last transaction folded into the base.
func (c *Client) Seq() uint64 { return c.baseSeq }

// PendingCount returns the number of local transactions not yet acknowledged.
func (c *Client) PendingCount() int { return len(c.pending) }

// Shapes returns a copy of the current local view.
func (c *Client) Shapes() []domain.Shape {
	return append([]domain.Shape(nil), c.view...)
}

func (c *Client) Len() int { return len(c.view) }

func (c *Client) At(i int) domain.Shape { return c.view[i] }

func (c *Client) All() iter.Seq2[int, domain.Shape] {
	view := c.view
	return func(yield func(int, domain.Shape) bool) {
		for i, s := range view {
			if !yield(i, s) {
				return
			}
		}
	}
}

func (c *Client) InsertAtEnd(shapes ...domain.Shape) {
	if len(shapes) == 0 {
		return
	}
	c.record(Op{Kind: OpInsert, Shapes: shapes, Anchor: Anchor{Kind: AnchorEnd}})
}

func (c *Client) RemoveRange(start, end int) {
	start = max(start, 0)
	end = min(end, len(c.view))
	if start >= end {
		return
	}
	doomed := append([]domain.Shape(nil), c.view[start:end]...)
	c.record(Op{Kind: OpRemove, Shapes: doomed})
}

func (c *Client) MoveToStart(i int) {
	if i <= 0 || i >= len(c.view) {
		return
	}
	c.record(Op{Kind: OpMove, ID: c.view[i].ID, Anchor: Anchor{Kind: AnchorStart}})
}

func (c *Client) MoveToEnd(i int) {
	if i < 0 || i >= len(c.view)-1 {
		return
	}
	c.record(Op{Kind: OpMove, ID: c.view[i].ID, Anchor: Anchor{Kind: AnchorEnd}})
}

func (c *Client) MoveToIndex(dst, src int) {
	n := len(c.view)
	if src < 0 || src >= n || dst < 0 || dst > n || dst == src || dst == src+1 {
		return
	}
	var anchor Anchor
	switch dst {
	case 0:
		anchor = Anchor{Kind: AnchorStart}
	case n:
		anchor = Anchor{Kind: AnchorEnd}
	default:
		anchor = Anchor{Kind: AnchorAfter, ID: c.view[dst-1].ID}
	}
	c.record(Op{Kind: OpMove, ID: c.view[src].ID, Anchor: anchor})
}

func (c *Client) SetPosition(id string, p domain.Position) {
	c.record(Op{Kind: OpSet, IDs: []string{id}, Position: &p})
}

func (c *Client) SetColor(ids []string, col domain.Color) {
	if len(ids) == 0 {
		return
	}
	c.record(Op{Kind: OpSet, IDs: append([]string(nil), ids...), Color: &col})
}

// Transaction groups every mutation made inside fn into one batch with a single
// change notification. Nested calls join the outermost batch.
func (c *Client) Transaction(fn func()) {
	c.begin(domain.CommitDefault)
	defer c.end()
	fn()
}

func (c *Client) begin(kind domain.CommitKind) {
	if c.txDepth == 0 {
		c.txKind = kind
	}
	c.txDepth++
}

func (c *Client) end() {
	c.txDepth--
	if c.txDepth > 0 {
		return
	}
	c.commit()
	inbox := c.inbox
	c.inbox = nil
	for _, s := range inbox {
		c.Receive(s)
	}
}

// record applies op to the view and stages it. Ops that change nothing are dropped.
func (c *Client) record(op Op) {
	next, inverse, changed := apply(c.view, op)
	if !changed {
		return
	}
	c.view = next
	c.txOps = append(c.txOps, op)
	c.txInverse = append(c.txInverse, inverse)
	if c.txDepth == 0 {
		c.commit()
	}
}

func (c *Client) commit() {
	if len(c.txOps) == 0 {
		c.txKind = domain.CommitDefault
		return
	}

	txn := Txn{
		ID:       ulid.Make().String(),
		ClientID: c.id,
		Kind:     c.txKind,
		Ops:      c.txOps,
	}

	var undo []Op
	for i := len(c.txInverse) - 1; i >= 0; i-- {
		undo = append(undo, c.txInverse[i]...)
	}
	kind := c.txKind

	c.txOps = nil
	c.txInverse = nil
	c.txKind = domain.CommitDefault
	c.pending = append(c.pending, txn)

	if c.transport != nil {
		if err := c.transport.Submit(txn); err != nil {
			c.logger.Warn("submit failed", "txn", txn.ID, "err", err)
			c.SetConnectionState(domain.Disconnected)
		}
	}

	c.notify(domain.Commit{
		Local:      true,
		Kind:       kind,
		Revertible: &revertible{client: c, ops: undo, kind: kind},
	})
}

// Receive folds a sequenced transaction into the acknowledged base and rebases the
// pending local transactions on top of it.
func (c *Client) Receive(s Sequenced) {
	if c.txDepth > 0 {
		c.inbox = append(c.inbox, s)
		return
	}
	if s.Seq <= c.baseSeq {
		return
	}
	if s.Seq != c.baseSeq+1 {
		c.logger.Warn("sequence gap", "have", c.baseSeq, "got", s.Seq)
	}

	c.base = applyAll(c.base, s.Txn.Ops)
	c.baseSeq = s.Seq

	own := s.Txn.ClientID == c.id && len(c.pending) > 0 && c.pending[0].ID == s.Txn.ID
	if own {
		c.pending = c.pending[1:]
	}

	prev := c.view
	view := c.base
	for _, p := range c.pending {
		view = applyAll(view, p.Ops)
	}
	c.view = view

	if own && equalShapes(prev, view) {
		return
	}
	c.notify(domain.Commit{Local: false, Kind: s.Txn.Kind})
}

func (c *Client) OnChanged(fn func(domain.Commit)) func() {
	c.nextLID++
	l := &changeListener{id: c.nextLID, fn: fn}
	c.listeners = append(c.listeners, l)
	return func() {
		for i, x := range c.listeners {
			if x.id == l.id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Client) notify(commit domain.Commit) {
	for _, l := range append([]*changeListener(nil), c.listeners...) {
		l.fn(commit)
	}
}

func (c *Client) ConnectionState() domain.ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// SetConnectionState is called by the transport owner when the link changes.
func (c *Client) SetConnectionState(s domain.ConnectionState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state != s {
		c.logger.Debug("connection state", "state", s)
	}
	c.state = s
}

// revertible replays the inverse of one committed batch as a new batch. Reverting a
// default or redo batch produces an undo batch; reverting an undo batch produces a redo.
type revertible struct {
	client *Client
	ops    []Op
	kind   domain.CommitKind
}

func (r *revertible) Revert() {
	kind := domain.CommitUndo
	if r.kind == domain.CommitUndo {
		kind = domain.CommitRedo
	}
	c := r.client
	c.begin(kind)
	defer c.end()
	for _, op := range r.ops {
		c.record(op)
	}
}
