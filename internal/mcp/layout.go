package mcpserver

import (
	"math"

	"canvas/internal/domain"
)

const (
	GridSize = 30.0
	Padding  = 15.0
	// Cell is the pitch of one arranged slot: the widest shape plus padding.
	Cell = domain.ShapeSize*1.5 + Padding
)

// LayoutEngine places tool-created shapes so they don't overlap existing ones.
// Positions are shape centers, snapped to the grid.
type LayoutEngine struct {
	gridSize float64
	padding  float64
}

func NewLayoutEngine() *LayoutEngine {
	return &LayoutEngine{gridSize: GridSize, padding: Padding}
}

// snap rounds v to the nearest grid point.
func (le *LayoutEngine) snap(v float64) float64 {
	return math.Round(v/le.gridSize) * le.gridSize
}

// rect is a simple axis-aligned bounding box.
type rect struct {
	x, y, w, h float64
}

func (a rect) intersects(b rect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x &&
		a.y < b.y+b.h && a.y+a.h > b.y
}

func bounds(s domain.Shape) rect {
	g := domain.GeometryOf(s.Type)
	return rect{s.Position.X - g.Width/2, s.Position.Y - g.Height/2, g.Width, g.Height}
}

// NextPosition finds the first free grid center inside a viewport of
// width x height, scanning rows top to bottom. A full viewport yields its center.
func (le *LayoutEngine) NextPosition(existing []domain.Shape, width, height float64) (float64, float64) {
	occupied := make([]rect, len(existing))
	for i, s := range existing {
		b := bounds(s)
		occupied[i] = rect{b.x - le.padding, b.y - le.padding, b.w + le.padding*2, b.h + le.padding*2}
	}

	half := domain.ShapeSize * 1.5 / 2
	start := le.snap(half + le.padding)
	for y := start; y+half <= height; y += le.gridSize {
		for x := start; x+half <= width; x += le.gridSize {
			candidate := rect{x - half, y - half, half * 2, half * 2}
			free := true
			for _, occ := range occupied {
				if candidate.intersects(occ) {
					free = false
					break
				}
			}
			if free {
				return x, y
			}
		}
	}
	return le.snap(width / 2), le.snap(height / 2)
}

// Arrange lays shapes out left to right, top to bottom, in the order given,
// wrapping at width. The result maps shape id to its new center.
func (le *LayoutEngine) Arrange(shapes []domain.Shape, width float64) map[string]domain.Position {
	out := make(map[string]domain.Position, len(shapes))
	cols := max(int((width-le.padding)/Cell), 1)
	for i, s := range shapes {
		col, row := i%cols, i/cols
		out[s.ID] = domain.Position{
			X: le.padding + Cell/2 + float64(col)*Cell,
			Y: le.padding + Cell/2 + float64(row)*Cell,
		}
	}
	return out
}
