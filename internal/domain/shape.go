package domain

import (
	"fmt"
	"strings"
)

// Color is the closed set of fills a shape can carry.
type Color string

const (
	ColorRed    Color = "Red"
	ColorGreen  Color = "Green"
	ColorBlue   Color = "Blue"
	ColorOrange Color = "Orange"
	ColorPurple Color = "Purple"
)

// Colors lists every color in cycling order.
var Colors = []Color{ColorRed, ColorGreen, ColorBlue, ColorOrange, ColorPurple}

var colorHex = map[Color]uint32{
	ColorRed:    0xFF0000,
	ColorGreen:  0x00FF00,
	ColorBlue:   0x0000FF,
	ColorOrange: 0xFFA500,
	ColorPurple: 0x800080,
}

// Hex returns the RGB fill for c. Unknown colors render white.
func (c Color) Hex() uint32 {
	if v, ok := colorHex[c]; ok {
		return v
	}
	return 0xFFFFFF
}

// Valid reports whether c is one of the known colors.
func (c Color) Valid() bool {
	_, ok := colorHex[c]
	return ok
}

// ParseColor accepts a color name in any case.
func ParseColor(s string) (Color, error) {
	for _, c := range Colors {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown color %q", s)
}

// NextColor returns the color after c in cycling order.
func NextColor(c Color) Color {
	for i, v := range Colors {
		if v == c {
			return Colors[(i+1)%len(Colors)]
		}
	}
	return Colors[0]
}

// ShapeType is the closed set of drawable variants.
type ShapeType string

const (
	ShapeCircle    ShapeType = "Circle"
	ShapeSquare    ShapeType = "Square"
	ShapeTriangle  ShapeType = "Triangle"
	ShapeRectangle ShapeType = "Rectangle"
)

// ShapeTypes lists every variant in cycling order.
var ShapeTypes = []ShapeType{ShapeCircle, ShapeSquare, ShapeTriangle, ShapeRectangle}

// ParseShapeType accepts a variant name in any case.
func ParseShapeType(s string) (ShapeType, error) {
	for _, t := range ShapeTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown shape type %q", s)
}

// NextShapeType returns the variant after t in cycling order.
func NextShapeType(t ShapeType) ShapeType {
	for i, v := range ShapeTypes {
		if v == t {
			return ShapeTypes[(i+1)%len(ShapeTypes)]
		}
	}
	return ShapeTypes[0]
}

// Position is a point in canvas coordinates. Shapes are positioned by their center.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Shape is the durable drawable entity stored in the replicated collection.
// ID is assigned once at creation and never changes.
type Shape struct {
	ID       string    `json:"id"`
	Position Position  `json:"position"`
	Color    Color     `json:"color"`
	Type     ShapeType `json:"shapeType"`
}

// NewShape builds a shape with a fresh id.
func NewShape(t ShapeType, c Color, x, y float64) Shape {
	return Shape{
		ID:       NewShapeID(),
		Position: Position{X: x, Y: y},
		Color:    c,
		Type:     t,
	}
}
