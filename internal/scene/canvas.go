// Package scene is a headless scene graph: nodes with fill, z-order, selection
// and presence decorations, plus hit-testing that turns raw pointer samples into
// targeted pointer events.
package scene

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"canvas/internal/domain"
)

// Canvas holds the nodes of one viewport.
type Canvas struct {
	width, height float64
	logger        *log.Logger

	nodes map[string]*Node
	// order holds nodes in insertion order. Removed nodes stay as stale
	// entries until more than half of order is stale.
	order   []*Node
	stale   int
	pointer []pointerListener
	nextLID int
}

type pointerListener struct {
	id int
	fn func(domain.PointerEvent)
}

var _ domain.Scene = (*Canvas)(nil)

// New returns an empty canvas of the given size.
func New(width, height float64, logger *log.Logger) *Canvas {
	if logger == nil {
		logger = log.Default()
	}
	return &Canvas{
		width:  width,
		height: height,
		logger: logger,
		nodes:  make(map[string]*Node),
	}
}

func (c *Canvas) AddNode(id string, t domain.ShapeType) domain.Node {
	if n, ok := c.nodes[id]; ok {
		return n
	}
	n := &Node{id: id, shape: t, geom: domain.GeometryOf(t)}
	c.nodes[id] = n
	c.order = append(c.order, n)
	return n
}

func (c *Canvas) RemoveNode(id string) {
	if _, ok := c.nodes[id]; !ok {
		return
	}
	delete(c.nodes, id)
	c.stale++
	if c.stale*2 > len(c.order) {
		c.compact()
	}
}

func (c *Canvas) live(n *Node) bool {
	return c.nodes[n.id] == n
}

func (c *Canvas) compact() {
	c.order = slices.DeleteFunc(c.order, func(n *Node) bool { return !c.live(n) })
	c.stale = 0
}

func (c *Canvas) Node(id string) (domain.Node, bool) {
	n, ok := c.nodes[id]
	if !ok {
		return nil, false
	}
	return n, true
}

// Get returns the concrete node for inspection.
func (c *Canvas) Get(id string) (*Node, bool) {
	n, ok := c.nodes[id]
	return n, ok
}

// NodeIDs returns node ids in insertion order.
func (c *Canvas) NodeIDs() []string {
	out := make([]string, 0, len(c.nodes))
	for _, n := range c.order {
		if c.live(n) {
			out = append(out, n.id)
		}
	}
	return out
}

func (c *Canvas) Viewport() (float64, float64) {
	return c.width, c.height
}

// Resize changes the viewport; nodes keep their positions.
func (c *Canvas) Resize(width, height float64) {
	c.width, c.height = width, height
}

func (c *Canvas) OnPointer(fn func(domain.PointerEvent)) func() {
	c.nextLID++
	id := c.nextLID
	c.pointer = append(c.pointer, pointerListener{id: id, fn: fn})
	return func() {
		c.pointer = slices.DeleteFunc(slices.Clone(c.pointer), func(l pointerListener) bool { return l.id == id })
	}
}

// Stacked returns nodes ordered back to front.
func (c *Canvas) Stacked() []*Node {
	out := make([]*Node, 0, len(c.nodes))
	for _, n := range c.order {
		if c.live(n) {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b *Node) int { return a.z - b.z })
	return out
}

// HitTest returns the id of the front-most node containing (x, y), or
// domain.BackgroundID.
func (c *Canvas) HitTest(x, y float64) string {
	stack := c.Stacked()
	for i := len(stack) - 1; i >= 0; i-- {
		n := stack[i]
		if n.geom.Contains(x-n.pos.X, y-n.pos.Y) {
			return n.id
		}
	}
	return domain.BackgroundID
}

func (c *Canvas) inside(x, y float64) bool {
	return x >= 0 && y >= 0 && x <= c.width && y <= c.height
}

// Dispatch hit-tests a raw pointer sample and delivers it to every listener.
// A release outside the viewport is reported as domain.PointerUpOutside.
func (c *Canvas) Dispatch(kind domain.PointerKind, x, y float64, modifier bool) domain.PointerEvent {
	if kind == domain.PointerUp && !c.inside(x, y) {
		kind = domain.PointerUpOutside
	}
	ev := domain.PointerEvent{Kind: kind, X: x, Y: y, Modifier: modifier, Target: domain.BackgroundID}
	if c.inside(x, y) {
		ev.Target = c.HitTest(x, y)
	}
	c.logger.Debug("pointer", "kind", ev.Kind, "target", ev.Target, "x", x, "y", y)
	for _, l := range slices.Clone(c.pointer) {
		l.fn(ev)
	}
	return ev
}

// Click is a down followed by an up at the same point.
func (c *Canvas) Click(x, y float64, modifier bool) {
	c.Dispatch(domain.PointerDown, x, y, modifier)
	c.Dispatch(domain.PointerUp, x, y, modifier)
}

// Render dumps the scene back to front, one node per line.
func (c *Canvas) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "canvas %gx%g nodes=%d\n", c.width, c.height, len(c.nodes))
	for _, n := range c.Stacked() {
		b.WriteString(n.String())
		b.WriteByte('\n')
	}
	return b.String()
}
