package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"canvas/internal/app"
	"canvas/internal/domain"
)

func (s *Server) registerShapeTools() {
	// ── list_shapes ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_shapes",
		mcp.WithDescription("List every shape in z-order (index 0 is the back) with id, type, color, position and selection"),
	), s.handleListShapes)

	// ── create_shape ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_shape",
		mcp.WithDescription("Create one shape. Without x/y it is placed on a free spot of the canvas."),
		mcp.WithString("type", mcp.Description("Circle, Square, Triangle or Rectangle"), mcp.Required()),
		mcp.WithString("color", mcp.Description("Red, Green, Blue, Orange or Purple"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("Center X (optional)")),
		mcp.WithNumber("y", mcp.Description("Center Y (optional)")),
	), s.handleCreateShape)

	// ── create_shapes ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_shapes",
		mcp.WithDescription("Create several shapes in one batch, cycling type and color"),
		mcp.WithNumber("count", mcp.Description("Number of shapes to create"), mcp.Required()),
	), s.handleCreateShapes)

	// ── move_shape ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_shape",
		mcp.WithDescription("Move a shape's center. Coordinates are clamped to the canvas."),
		mcp.WithString("shapeId", mcp.Description("Shape ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New center X"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New center Y"), mcp.Required()),
	), s.handleMoveShape)

	// ── arrange_shapes ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_shapes",
		mcp.WithDescription("Lay every shape out on a grid in z-order, in one undoable step"),
	), s.handleArrangeShapes)

	// ── delete_all ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_all",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove every shape from the board for all collaborators"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteAll)
}

func (s *Server) handleListShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var snap app.Snapshot
	if err := s.do(ctx, func(a *app.App) { snap = a.Snapshot() }); err != nil {
		return nil, err
	}
	return jsonResult(snap.Shapes)
}

func (s *Server) handleCreateShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	t, err := domain.ParseShapeType(req.GetString("type", ""))
	if err != nil {
		return nil, err
	}
	c, err := domain.ParseColor(req.GetString("color", ""))
	if err != nil {
		return nil, err
	}
	_, hasX := args["x"].(float64)
	_, hasY := args["y"].(float64)

	var (
		created *domain.Shape
		full    bool
	)
	err = s.do(ctx, func(a *app.App) {
		if a.MaxReached() {
			full = true
			return
		}
		before := a.Len()
		if hasX && hasY {
			a.CreateShapeAt(t, c, getFloat(args, "x", 0), getFloat(args, "y", 0))
		} else {
			w, h := a.Scene().Viewport()
			x, y := s.layout.NextPosition(a.Shapes(), w, h)
			a.CreateShapeAt(t, c, x, y)
		}
		if a.Len() > before {
			shapes := a.Shapes()
			created = &shapes[len(shapes)-1]
		}
	})
	if err != nil {
		return nil, err
	}
	if full || created == nil {
		return nil, fmt.Errorf("shape limit reached")
	}
	return jsonResult(created)
}

func (s *Server) handleCreateShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n := int(getFloat(req.GetArguments(), "count", 0))
	if n <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}
	var before, after int
	if err := s.do(ctx, func(a *app.App) {
		before = a.Len()
		a.CreateMany(n)
		after = a.Len()
	}); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Created %d shape(s); board now has %d", after-before, after)
	if after-before < n {
		msg += " (shape limit reached)"
	}
	return textResult(msg), nil
}

func (s *Server) handleMoveShape(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := req.GetString("shapeId", "")
	if id == "" {
		return nil, fmt.Errorf("shapeId is required")
	}
	var (
		moved domain.Shape
		found bool
	)
	err := s.do(ctx, func(a *app.App) {
		a.MoveShape(id, getFloat(args, "x", 0), getFloat(args, "y", 0))
		for _, sh := range a.Shapes() {
			if sh.ID == id {
				moved, found = sh, true
			}
		}
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("shape %s not found", id)
	}
	return jsonResult(moved)
}

func (s *Server) handleArrangeShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var n int
	err := s.do(ctx, func(a *app.App) {
		shapes := a.Shapes()
		w, _ := a.Scene().Viewport()
		a.MoveShapes(s.layout.Arrange(shapes, w))
		n = len(shapes)
	})
	if err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Arranged %d shape(s)", n)), nil
}

func (s *Server) handleDeleteAll(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var n int
	if err := s.do(ctx, func(a *app.App) {
		n = a.Len()
		a.DeleteAll()
	}); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Deleted %d shape(s)", n)), nil
}
