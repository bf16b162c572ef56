package domain

// BackgroundID is the pointer target reported for the empty canvas.
const BackgroundID = "canvas"

// PointerKind enumerates the pointer events the scene delivers.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerUpOutside
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerUpOutside:
		return "up-outside"
	}
	return "unknown"
}

// PointerEvent is a pointer sample in canvas coordinates. Target is the id of the
// node under the pointer, or BackgroundID.
type PointerEvent struct {
	Kind     PointerKind
	Target   string
	X, Y     float64
	Modifier bool // multi-select key held
}

// Node is the local visual mirror of one shape.
type Node interface {
	ID() string
	Type() ShapeType
	Position() Position
	SetPosition(p Position)
	SetFill(c Color)
	SetZIndex(z int)
	SetSelected(selected bool)
	// SetPresence sets the number of remote clients selecting the shape. Zero hides the badge.
	SetPresence(n int)
	SetShowIndex(show bool)
}

// Scene is the low-level scene graph the reconciler drives.
type Scene interface {
	AddNode(id string, t ShapeType) Node
	RemoveNode(id string)
	Node(id string) (Node, bool)
	NodeIDs() []string
	Viewport() (width, height float64)
	OnPointer(fn func(PointerEvent)) (unsubscribe func())
}
