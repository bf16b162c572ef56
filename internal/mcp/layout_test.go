package mcpserver

import (
	"testing"

	"canvas/internal/domain"
)

func TestNextPosition_EmptyCanvas(t *testing.T) {
	le := NewLayoutEngine()
	x, y := le.NextPosition(nil, 600, 600)
	if x != 60 || y != 60 {
		t.Errorf("expected (60, 60) for empty canvas, got (%.0f, %.0f)", x, y)
	}
}

func TestNextPosition_AvoidsExistingShapes(t *testing.T) {
	le := NewLayoutEngine()
	existing := []domain.Shape{
		{ID: "a", Type: domain.ShapeRectangle, Position: domain.Position{X: 60, Y: 60}},
		{ID: "b", Type: domain.ShapeCircle, Position: domain.Position{X: 180, Y: 60}},
	}
	x, y := le.NextPosition(existing, 600, 600)

	half := domain.ShapeSize * 1.5 / 2
	r := rect{x - half, y - half, half * 2, half * 2}
	for _, s := range existing {
		b := bounds(s)
		padded := rect{b.x - Padding, b.y - Padding, b.w + Padding*2, b.h + Padding*2}
		if r.intersects(padded) {
			t.Errorf("position (%.0f, %.0f) overlaps shape %s", x, y, s.ID)
		}
	}
	if x+half > 600 || y+half > 600 {
		t.Errorf("position (%.0f, %.0f) leaves the viewport", x, y)
	}
}

func TestNextPosition_FullViewportFallsBackToCenter(t *testing.T) {
	le := NewLayoutEngine()
	existing := []domain.Shape{
		{ID: "big", Type: domain.ShapeRectangle, Position: domain.Position{X: 50, Y: 50}},
	}
	x, y := le.NextPosition(existing, 100, 100)
	if x != 60 || y != 60 {
		t.Errorf("expected centered fallback (60, 60), got (%.0f, %.0f)", x, y)
	}
}

func TestArrange_WrapsAtWidth(t *testing.T) {
	le := NewLayoutEngine()
	shapes := make([]domain.Shape, 5)
	for i := range shapes {
		shapes[i] = domain.Shape{ID: string(rune('a' + i))}
	}
	// Two columns fit in 250 units.
	pos := le.Arrange(shapes, 250)

	if len(pos) != 5 {
		t.Fatalf("expected 5 positions, got %d", len(pos))
	}
	if pos["a"].Y != pos["b"].Y {
		t.Errorf("a and b should share a row: %+v %+v", pos["a"], pos["b"])
	}
	if pos["c"].X != pos["a"].X || pos["c"].Y <= pos["a"].Y {
		t.Errorf("c should wrap under a: %+v", pos["c"])
	}
	if pos["b"].X-pos["a"].X != Cell {
		t.Errorf("expected column pitch %.0f, got %.0f", Cell, pos["b"].X-pos["a"].X)
	}
}
