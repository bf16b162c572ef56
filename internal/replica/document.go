package replica

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// ErrClosed is returned when submitting to a closed document or hub.
var ErrClosed = errors.New("replica: closed")

// Backend persists a document as a snapshot plus the sequenced log after it.
type Backend interface {
	Load(ctx context.Context, docID string) (Snapshot, []Sequenced, error)
	Append(ctx context.Context, docID string, s Sequenced) error
	Compact(ctx context.Context, docID string, snap Snapshot) error
}

// Document is the sequencer for one shape list: it assigns every submitted
// transaction the next sequence number and keeps the canonical state.
type Document struct {
	mu      sync.Mutex
	id      string
	backend Backend
	logger  *log.Logger

	seq       uint64
	shapes    []domain.Shape
	compacted uint64
	closed    bool
}

// NewDocument creates an empty in-memory document.
func NewDocument(id string, logger *log.Logger) *Document {
	if logger == nil {
		logger = log.Default()
	}
	return &Document{id: id, logger: logger.With("doc", id)}
}

// OpenDocument restores a document from backend, replaying the log over the last snapshot.
func OpenDocument(ctx context.Context, id string, backend Backend, logger *log.Logger) (*Document, error) {
	d := NewDocument(id, logger)
	d.backend = backend
	if backend == nil {
		return d, nil
	}

	snap, entries, err := backend.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	d.seq = snap.Seq
	d.compacted = snap.Seq
	d.shapes = snap.Shapes
	for _, s := range entries {
		if s.Seq <= d.seq {
			continue
		}
		d.shapes = applyAll(d.shapes, s.Txn.Ops)
		d.seq = s.Seq
	}
	d.logger.Info("document opened", "seq", d.seq, "shapes", len(d.shapes), "replayed", len(entries))
	return d, nil
}

// ID returns the document id.
func (d *Document) ID() string { return d.id }

// Submit sequences txn, applies it to the canonical list and persists it.
func (d *Document) Submit(ctx context.Context, txn Txn) (Sequenced, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Sequenced{}, ErrClosed
	}

	s := Sequenced{Seq: d.seq + 1, Txn: txn}
	if d.backend != nil {
		if err := d.backend.Append(ctx, d.id, s); err != nil {
			return Sequenced{}, fmt.Errorf("append seq %d: %w", s.Seq, err)
		}
	}
	d.shapes = applyAll(d.shapes, txn.Ops)
	d.seq = s.Seq
	return s, nil
}

// Snapshot returns the canonical list at the current sequence number.
func (d *Document) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{Seq: d.seq, Shapes: append([]domain.Shape(nil), d.shapes...)}
}

// Compact writes a snapshot and lets the backend drop the log before it.
// It is a no-op when nothing was sequenced since the last compaction.
func (d *Document) Compact(ctx context.Context) error {
	d.mu.Lock()
	if d.backend == nil || d.seq == d.compacted {
		d.mu.Unlock()
		return nil
	}
	snap := Snapshot{Seq: d.seq, Shapes: append([]domain.Shape(nil), d.shapes...)}
	d.mu.Unlock()

	if err := d.backend.Compact(ctx, d.id, snap); err != nil {
		return fmt.Errorf("compact document %s: %w", d.id, err)
	}

	d.mu.Lock()
	d.compacted = snap.Seq
	d.mu.Unlock()
	d.logger.Debug("document compacted", "seq", snap.Seq, "shapes", len(snap.Shapes))
	return nil
}

// Close rejects further submissions.
func (d *Document) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}
