package domain_test

import (
	"testing"

	"canvas/internal/domain"
)

func TestNextColor_Cycles(t *testing.T) {
	c := domain.ColorRed
	seen := map[domain.Color]bool{}
	for range domain.Colors {
		seen[c] = true
		c = domain.NextColor(c)
	}
	if c != domain.ColorRed {
		t.Errorf("expected cycle to return to Red, got %s", c)
	}
	if len(seen) != len(domain.Colors) {
		t.Errorf("expected %d distinct colors, got %d", len(domain.Colors), len(seen))
	}
}

func TestNextShapeType_Cycles(t *testing.T) {
	if got := domain.NextShapeType(domain.ShapeRectangle); got != domain.ShapeCircle {
		t.Errorf("expected Circle after Rectangle, got %s", got)
	}
	if got := domain.NextShapeType("Hexagon"); got != domain.ShapeCircle {
		t.Errorf("expected unknown type to restart at Circle, got %s", got)
	}
}

func TestParseColor(t *testing.T) {
	c, err := domain.ParseColor("purple")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c != domain.ColorPurple {
		t.Errorf("expected Purple, got %s", c)
	}
	if _, err := domain.ParseColor("teal"); err == nil {
		t.Error("expected error for unknown color")
	}
}

func TestParseShapeType(t *testing.T) {
	st, err := domain.ParseShapeType("TRIANGLE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st != domain.ShapeTriangle {
		t.Errorf("expected Triangle, got %s", st)
	}
}

func TestNewShape_AssignsUniqueIDs(t *testing.T) {
	a := domain.NewShape(domain.ShapeSquare, domain.ColorBlue, 10, 20)
	b := domain.NewShape(domain.ShapeSquare, domain.ColorBlue, 10, 20)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.Position != (domain.Position{X: 10, Y: 20}) {
		t.Errorf("unexpected position %+v", a.Position)
	}
}

func TestGeometry_Contains(t *testing.T) {
	tests := []struct {
		name   string
		shape  domain.ShapeType
		dx, dy float64
		want   bool
	}{
		{"circle center", domain.ShapeCircle, 0, 0, true},
		{"circle corner", domain.ShapeCircle, 29, 29, false},
		{"square corner", domain.ShapeSquare, 29, 29, true},
		{"square outside", domain.ShapeSquare, 31, 0, false},
		{"rectangle wide", domain.ShapeRectangle, 44, 0, true},
		{"rectangle tall", domain.ShapeRectangle, 0, 31, false},
		{"triangle base", domain.ShapeTriangle, 0, 25, true},
		{"triangle tip side", domain.ShapeTriangle, 20, -20, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := domain.GeometryOf(tt.shape)
			if got := g.Contains(tt.dx, tt.dy); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.dx, tt.dy, got, tt.want)
			}
		})
	}
}

func TestColorHex(t *testing.T) {
	if domain.ColorRed.Hex() != 0xFF0000 {
		t.Errorf("unexpected red hex %06x", domain.ColorRed.Hex())
	}
	if domain.Color("Mauve").Valid() {
		t.Error("expected Mauve to be invalid")
	}
}
