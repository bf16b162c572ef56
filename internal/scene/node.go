package scene

import (
	"fmt"
	"strings"

	"canvas/internal/domain"
)

// Node is the headless mirror of one shape.
type Node struct {
	id    string
	shape domain.ShapeType
	geom  domain.Geometry

	pos       domain.Position
	fill      domain.Color
	z         int
	selected  bool
	presence  int
	showIndex bool
}

var _ domain.Node = (*Node)(nil)

func (n *Node) ID() string { return n.id }
func (n *Node) Type() domain.ShapeType { return n.shape }
func (n *Node) Position() domain.Position { return n.pos }
func (n *Node) SetPosition(p domain.Position) { n.pos = p }
func (n *Node) Fill() domain.Color { return n.fill }
func (n *Node) SetFill(c domain.Color) { n.fill = c }
func (n *Node) ZIndex() int { return n.z }
func (n *Node) SetZIndex(z int) { n.z = z }
func (n *Node) Selected() bool { return n.selected }
func (n *Node) SetSelected(selected bool) { n.selected = selected }
func (n *Node) Presence() int { return n.presence }
func (n *Node) SetPresence(count int) { n.presence = max(count, 0) }
func (n *Node) ShowIndex() bool { return n.showIndex }
func (n *Node) SetShowIndex(show bool) { n.showIndex = show }

func (n *Node) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%3d %s %-9s %-6s (%g,%g)", n.z, n.id, n.shape, n.fill, n.pos.X, n.pos.Y)
	if n.selected {
		b.WriteString(" selected")
	}
	if n.presence > 0 {
		fmt.Fprintf(&b, " remote=%d", n.presence)
	}
	if n.showIndex {
		fmt.Fprintf(&b, " #%d", n.z)
	}
	return b.String()
}
