package app

import (
	"math/rand/v2"

	"canvas/internal/domain"
)

// ============================================================
// Shapes
// ============================================================

// CreateShape adds one shape at a random position. It is a no-op at capacity.
func (a *App) CreateShape(t domain.ShapeType, c domain.Color) {
	if a.shapes.MaxReached() {
		return
	}
	x, y := a.randomPosition()
	a.shapes.InsertEnd(domain.NewShape(t, c, x, y))
}

// CreateShapeAt adds one shape at an explicit position.
func (a *App) CreateShapeAt(t domain.ShapeType, c domain.Color, x, y float64) {
	a.shapes.InsertEnd(domain.NewShape(t, c, x, y))
}

// CreateMany adds up to n shapes in one batch, cycling shape type and color.
// Shapes beyond the remaining capacity are dropped.
func (a *App) CreateMany(n int) {
	n = min(n, a.shapes.Remaining())
	if n <= 0 {
		return
	}
	batch := make([]domain.Shape, 0, n)
	for range n {
		x, y := a.randomPosition()
		batch = append(batch, domain.NewShape(a.nextType, a.nextColor, x, y))
		a.nextType = domain.NextShapeType(a.nextType)
		a.nextColor = domain.NextColor(a.nextColor)
	}
	a.shapes.InsertMany(batch)
}

// ChangeColorOfSelection recolors every selected shape, one call per range.
func (a *App) ChangeColorOfSelection(c domain.Color) {
	ranges := a.selection.Ranges()
	if len(ranges) == 0 || !c.Valid() {
		return
	}
	a.shapes.Transaction(func() {
		for _, r := range ranges {
			a.shapes.SetColor(r.IDs, c)
		}
	})
}

// ChangeColorOfFirstSelected recolors only the first selected shape.
func (a *App) ChangeColorOfFirstSelected(c domain.Color) {
	if id, ok := a.selection.First(); ok {
		a.shapes.SetColor([]string{id}, c)
	}
}

// MoveShape commits a new position for id, clamped to the viewport.
func (a *App) MoveShape(id string, x, y float64) {
	shape, ok := a.shapes.Get(id)
	if !ok {
		return
	}
	w, h := a.scene.Viewport()
	g := domain.GeometryOf(shape.Type)
	x = min(max(x, g.Width/2), w-g.Width/2)
	y = min(max(y, g.Height/2), h-g.Height/2)
	a.shapes.SetPosition(id, domain.Position{X: x, Y: y})
}

// MoveShapes commits several positions in one batch, each clamped like MoveShape.
// Ids that do not exist are skipped.
func (a *App) MoveShapes(positions map[string]domain.Position) {
	if len(positions) == 0 {
		return
	}
	a.shapes.Transaction(func() {
		for _, s := range a.Shapes() {
			if p, ok := positions[s.ID]; ok {
				a.MoveShape(s.ID, p.X, p.Y)
			}
		}
	})
}

// DeleteSelection removes every selected shape in one batch, one removeRange per
// run of consecutive z-indices, then clears the selection.
func (a *App) DeleteSelection() {
	ranges := a.selection.Ranges()
	if len(ranges) > 0 {
		a.shapes.Transaction(func() {
			for i := len(ranges) - 1; i >= 0; i-- {
				a.shapes.RemoveRange(ranges[i].Start, ranges[i].End)
			}
		})
	}
	a.selection.Clear()
}

// DeleteAll removes every shape and clears the selection.
func (a *App) DeleteAll() {
	a.shapes.RemoveAll()
	a.selection.Clear()
}

// MaxReached reports whether creates are currently rejected.
func (a *App) MaxReached() bool { return a.shapes.MaxReached() }

// Len returns the number of shapes.
func (a *App) Len() int { return a.shapes.Len() }

// Shapes returns the shapes in z-order.
func (a *App) Shapes() []domain.Shape {
	out := make([]domain.Shape, 0, a.shapes.Len())
	for _, s := range a.shapes.All() {
		out = append(out, s)
	}
	return out
}

func (a *App) randomPosition() (float64, float64) {
	w, h := a.scene.Viewport()
	lo := domain.ShapeSize
	return lo + a.float()*max(w-2*lo, 0), lo + a.float()*max(h-2*lo, 0)
}

func (a *App) float() float64 {
	if a.rand != nil {
		return a.rand.Float64()
	}
	return rand.Float64()
}
