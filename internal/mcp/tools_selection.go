package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"canvas/internal/app"
	"canvas/internal/domain"
)

func (s *Server) registerSelectionTools() {
	s.mcp.AddTool(mcp.NewTool("select_shapes",
		mcp.WithDescription("Select shapes by id. Collaborators see the selection."),
		mcp.WithString("shapeIds", mcp.Description("Comma-separated shape IDs"), mcp.Required()),
		mcp.WithBoolean("add", mcp.Description("Add to the current selection instead of replacing it")),
	), s.handleSelectShapes)

	s.mcp.AddTool(mcp.NewTool("clear_selection",
		mcp.WithDescription("Clear the local selection"),
	), s.handleClearSelection)

	s.mcp.AddTool(mcp.NewTool("change_color",
		mcp.WithDescription("Recolor the selected shapes"),
		mcp.WithString("color", mcp.Description("Red, Green, Blue, Orange or Purple"), mcp.Required()),
		mcp.WithBoolean("firstOnly", mcp.Description("Recolor only the first selected shape")),
	), s.handleChangeColor)

	s.mcp.AddTool(mcp.NewTool("delete_selection",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove the selected shapes for all collaborators"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteSelection)
}

func (s *Server) handleSelectShapes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(req.GetString("shapeIds", ""))
	if len(ids) == 0 {
		return nil, fmt.Errorf("shapeIds is required")
	}
	add := req.GetBool("add", false)

	var selected []string
	err := s.do(ctx, func(a *app.App) {
		if add {
			ids = append(a.Selected(), ids...)
		}
		a.SetSelection(ids...)
		selected = a.Selected()
	})
	if err != nil {
		return nil, err
	}
	return textResult("Selected: " + strings.Join(selected, ", ")), nil
}

func (s *Server) handleClearSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.do(ctx, func(a *app.App) { a.ClearSelection() }); err != nil {
		return nil, err
	}
	return textResult("Selection cleared"), nil
}

func (s *Server) handleChangeColor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c, err := domain.ParseColor(req.GetString("color", ""))
	if err != nil {
		return nil, err
	}
	firstOnly := req.GetBool("firstOnly", false)

	var n int
	err = s.do(ctx, func(a *app.App) {
		n = len(a.Selected())
		if firstOnly {
			a.ChangeColorOfFirstSelected(c)
			n = min(n, 1)
		} else {
			a.ChangeColorOfSelection(c)
		}
	})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return textResult("Nothing selected"), nil
	}
	return textResult(fmt.Sprintf("Recolored %d shape(s) %s", n, c)), nil
}

func (s *Server) handleDeleteSelection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var n int
	if err := s.do(ctx, func(a *app.App) {
		before := a.Len()
		a.DeleteSelection()
		n = before - a.Len()
	}); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Deleted %d shape(s)", n)), nil
}
