package domain

import "math"

// ShapeSize is the nominal edge length of every shape, in canvas units.
const ShapeSize = 60.0

// GeometryKind selects the primitive used to draw and hit-test a shape.
type GeometryKind int

const (
	GeometryEllipse GeometryKind = iota
	GeometryRect
	GeometryPolygon
)

// Geometry describes a shape's outline relative to its center.
type Geometry struct {
	Kind   GeometryKind
	Width  float64
	Height float64
	Points []Position // polygon vertices, GeometryPolygon only
}

var geometries = map[ShapeType]Geometry{
	ShapeCircle: {Kind: GeometryEllipse, Width: ShapeSize, Height: ShapeSize},
	ShapeSquare: {Kind: GeometryRect, Width: ShapeSize, Height: ShapeSize},
	ShapeTriangle: {
		Kind:   GeometryPolygon,
		Width:  ShapeSize,
		Height: ShapeSize,
		Points: []Position{
			{X: 0, Y: -ShapeSize / 2},
			{X: -ShapeSize / 2, Y: ShapeSize / 2},
			{X: ShapeSize / 2, Y: ShapeSize / 2},
		},
	},
	ShapeRectangle: {Kind: GeometryRect, Width: ShapeSize * 1.5, Height: ShapeSize},
}

// GeometryOf returns the draw geometry for t. Unknown variants fall back to a circle.
func GeometryOf(t ShapeType) Geometry {
	if g, ok := geometries[t]; ok {
		return g
	}
	return geometries[ShapeCircle]
}

// Contains reports whether the offset (dx, dy) from the shape center lies inside the outline.
func (g Geometry) Contains(dx, dy float64) bool {
	switch g.Kind {
	case GeometryEllipse:
		rx, ry := g.Width/2, g.Height/2
		return (dx*dx)/(rx*rx)+(dy*dy)/(ry*ry) <= 1
	case GeometryRect:
		return math.Abs(dx) <= g.Width/2 && math.Abs(dy) <= g.Height/2
	case GeometryPolygon:
		return pointInPolygon(g.Points, dx, dy)
	}
	return false
}

// pointInPolygon is the even-odd ray casting test.
func pointInPolygon(pts []Position, x, y float64) bool {
	inside := false
	j := len(pts) - 1
	for i := range pts {
		pi, pj := pts[i], pts[j]
		if (pi.Y > y) != (pj.Y > y) &&
			x < (pj.X-pi.X)*(y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
		j = i
	}
	return inside
}
