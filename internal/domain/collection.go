package domain

import "iter"

// CommitKind tells an undo stack where a committed batch came from.
type CommitKind int

const (
	CommitDefault CommitKind = iota
	CommitUndo
	CommitRedo
)

func (k CommitKind) String() string {
	switch k {
	case CommitUndo:
		return "undo"
	case CommitRedo:
		return "redo"
	default:
		return "default"
	}
}

// Revertible reverts the batch it was produced for. Reverting after the
// affected shapes were removed elsewhere degrades to a partial or empty revert.
type Revertible interface {
	Revert()
}

// Commit describes one batch applied to the local view of the collection.
type Commit struct {
	Local      bool
	Kind       CommitKind
	Revertible Revertible // nil for remote batches
}

// ConnectionState is the observable health of the replicated collection.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ShapeList is the replicated, order-preserving shape collection. Index is z-order:
// 0 is the back-most shape. Mutations are applied optimistically to the local view and
// replicated asynchronously.
type ShapeList interface {
	Len() int
	At(i int) Shape
	All() iter.Seq2[int, Shape]

	InsertAtEnd(shapes ...Shape)
	RemoveRange(start, end int)
	MoveToStart(i int)
	MoveToEnd(i int)
	// MoveToIndex moves the item at src into the gap before dst, where gaps
	// are counted against the list as it was before the move.
	MoveToIndex(dst, src int)
	SetPosition(id string, p Position)
	SetColor(ids []string, c Color)

	// Transaction groups every mutation made inside fn into one atomic batch.
	Transaction(fn func())
	// OnChanged fires after every locally or remotely committed batch.
	OnChanged(fn func(Commit)) (unsubscribe func())

	ConnectionState() ConnectionState
}
