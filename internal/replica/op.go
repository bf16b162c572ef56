package replica

import (
	"canvas/internal/domain"
)

// OpKind identifies a collection operation.
type OpKind string

const (
	OpInsert OpKind = "insert"
	OpRemove OpKind = "remove"
	OpMove   OpKind = "move"
	OpSet    OpKind = "set"
)

// AnchorKind selects where an insert or move lands.
type AnchorKind string

const (
	AnchorStart AnchorKind = "start"
	AnchorEnd   AnchorKind = "end"
	AnchorAfter AnchorKind = "after"
)

// Anchor addresses a gap in the list by neighbour id rather than by index, so it
// keeps its meaning when other clients reorder concurrently. An after-anchor whose
// id no longer exists resolves to the end of the list.
type Anchor struct {
	Kind AnchorKind `json:"kind"`
	ID   string     `json:"id,omitempty"`
}

// Op is a single id-addressed mutation. Ops on ids that no longer exist are no-ops.
type Op struct {
	Kind     OpKind           `json:"kind"`
	Shapes   []domain.Shape   `json:"shapes,omitempty"` // insert, remove
	ID       string           `json:"id,omitempty"`     // move
	Anchor   Anchor           `json:"anchor,omitempty"` // insert, move
	IDs      []string         `json:"ids,omitempty"`    // set
	Position *domain.Position `json:"position,omitempty"`
	Color    *domain.Color    `json:"color,omitempty"`
}

// Txn is one atomic batch of ops issued by a client.
type Txn struct {
	ID       string            `json:"id"`
	ClientID string            `json:"clientId"`
	Kind     domain.CommitKind `json:"kind"`
	Ops      []Op              `json:"ops"`
}

// Sequenced is a transaction after the sequencer assigned it a position in the total order.
type Sequenced struct {
	Seq uint64 `json:"seq"`
	Txn Txn    `json:"txn"`
}

// Snapshot is the canonical list at a given sequence number.
type Snapshot struct {
	Seq    uint64         `json:"seq"`
	Shapes []domain.Shape `json:"shapes"`
}

func anchorBefore(list []domain.Shape, i int) Anchor {
	if i == 0 {
		return Anchor{Kind: AnchorStart}
	}
	return Anchor{Kind: AnchorAfter, ID: list[i-1].ID}
}

func indexOf(list []domain.Shape, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func resolveAnchor(list []domain.Shape, a Anchor) int {
	switch a.Kind {
	case AnchorStart:
		return 0
	case AnchorAfter:
		if i := indexOf(list, a.ID); i >= 0 {
			return i + 1
		}
	}
	return len(list)
}

// apply executes op against list and returns the resulting list, the ops that undo
// exactly what happened, and whether anything changed. list is never modified in place.
func apply(list []domain.Shape, op Op) ([]domain.Shape, []Op, bool) {
	switch op.Kind {
	case OpInsert:
		return applyInsert(list, op)
	case OpRemove:
		return applyRemove(list, op)
	case OpMove:
		return applyMove(list, op)
	case OpSet:
		return applySet(list, op)
	}
	return list, nil, false
}

func applyInsert(list []domain.Shape, op Op) ([]domain.Shape, []Op, bool) {
	existing := make(map[string]struct{}, len(list))
	for _, s := range list {
		existing[s.ID] = struct{}{}
	}
	var fresh []domain.Shape
	for _, s := range op.Shapes {
		if _, dup := existing[s.ID]; dup {
			continue
		}
		existing[s.ID] = struct{}{}
		fresh = append(fresh, s)
	}
	if len(fresh) == 0 {
		return list, nil, false
	}

	at := resolveAnchor(list, op.Anchor)
	out := make([]domain.Shape, 0, len(list)+len(fresh))
	out = append(out, list[:at]...)
	out = append(out, fresh...)
	out = append(out, list[at:]...)

	inverse := []Op{{Kind: OpRemove, Shapes: fresh}}
	return out, inverse, true
}

func applyRemove(list []domain.Shape, op Op) ([]domain.Shape, []Op, bool) {
	doomed := make(map[string]struct{}, len(op.Shapes))
	for _, s := range op.Shapes {
		doomed[s.ID] = struct{}{}
	}

	out := make([]domain.Shape, 0, len(list))
	var inverse []Op
	var run []domain.Shape
	var runAnchor Anchor
	flush := func() {
		if len(run) > 0 {
			inverse = append(inverse, Op{Kind: OpInsert, Shapes: run, Anchor: runAnchor})
			run = nil
		}
	}
	for _, s := range list {
		if _, ok := doomed[s.ID]; ok {
			if len(run) == 0 {
				runAnchor = anchorBefore(out, len(out))
			}
			run = append(run, s)
			continue
		}
		flush()
		out = append(out, s)
	}
	flush()

	if len(inverse) == 0 {
		return list, nil, false
	}
	return out, inverse, true
}

func applyMove(list []domain.Shape, op Op) ([]domain.Shape, []Op, bool) {
	from := indexOf(list, op.ID)
	if from < 0 || (op.Anchor.Kind == AnchorAfter && op.Anchor.ID == op.ID) {
		return list, nil, false
	}
	moving := list[from]

	rest := make([]domain.Shape, 0, len(list))
	rest = append(rest, list[:from]...)
	rest = append(rest, list[from+1:]...)

	to := resolveAnchor(rest, op.Anchor)
	if to == from {
		return list, nil, false
	}

	out := make([]domain.Shape, 0, len(list))
	out = append(out, rest[:to]...)
	out = append(out, moving)
	out = append(out, rest[to:]...)

	inverse := []Op{{Kind: OpMove, ID: op.ID, Anchor: anchorBefore(list, from)}}
	return out, inverse, true
}

func applySet(list []domain.Shape, op Op) ([]domain.Shape, []Op, bool) {
	targets := make(map[string]struct{}, len(op.IDs))
	for _, id := range op.IDs {
		targets[id] = struct{}{}
	}

	var out []domain.Shape
	var inverse []Op
	prevColors := map[domain.Color][]string{}
	var colorOrder []domain.Color

	for i, s := range list {
		if _, ok := targets[s.ID]; !ok {
			continue
		}
		next := s
		if op.Position != nil && s.Position != *op.Position {
			prev := s.Position
			next.Position = *op.Position
			inverse = append(inverse, Op{Kind: OpSet, IDs: []string{s.ID}, Position: &prev})
		}
		if op.Color != nil && s.Color != *op.Color {
			if _, seen := prevColors[s.Color]; !seen {
				colorOrder = append(colorOrder, s.Color)
			}
			prevColors[s.Color] = append(prevColors[s.Color], s.ID)
			next.Color = *op.Color
		}
		if next == s {
			continue
		}
		if out == nil {
			out = make([]domain.Shape, len(list))
			copy(out, list)
		}
		out[i] = next
	}

	if out == nil {
		return list, nil, false
	}
	for _, c := range colorOrder {
		prev := c
		inverse = append(inverse, Op{Kind: OpSet, IDs: prevColors[c], Color: &prev})
	}
	return out, inverse, true
}

// applyAll runs every op of a transaction in order, ignoring inverses.
func applyAll(list []domain.Shape, ops []Op) []domain.Shape {
	for _, op := range ops {
		list, _, _ = apply(list, op)
	}
	return list
}

func equalShapes(a, b []domain.Shape) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
