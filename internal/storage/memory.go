package storage

import (
	"context"
	"slices"
	"sync"

	"canvas/internal/replica"
)

// MemoryStore keeps documents in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*memoryDoc
}

type memoryDoc struct {
	snap replica.Snapshot
	log  []replica.Sequenced
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc)}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) doc(id string) *memoryDoc {
	d, ok := m.docs[id]
	if !ok {
		d = &memoryDoc{}
		m.docs[id] = d
	}
	return d
}

func (m *MemoryStore) Load(_ context.Context, docID string) (replica.Snapshot, []replica.Sequenced, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.doc(docID)
	snap := replica.Snapshot{Seq: d.snap.Seq, Shapes: slices.Clone(d.snap.Shapes)}
	return snap, slices.Clone(d.log), nil
}

func (m *MemoryStore) Append(_ context.Context, docID string, seq replica.Sequenced) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.doc(docID)
	d.log = append(d.log, seq)
	return nil
}

func (m *MemoryStore) Compact(_ context.Context, docID string, snap replica.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.doc(docID)
	d.snap = replica.Snapshot{Seq: snap.Seq, Shapes: slices.Clone(snap.Shapes)}
	d.log = slices.DeleteFunc(d.log, func(s replica.Sequenced) bool { return s.Seq <= snap.Seq })
	return nil
}
