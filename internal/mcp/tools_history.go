package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"canvas/internal/app"
)

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo this client's last change"),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("set_show_index",
		mcp.WithDescription("Toggle the z-index badge drawn on every shape"),
		mcp.WithBoolean("show", mcp.Description("Whether to show the badges"), mcp.Required()),
	), s.handleSetShowIndex)

	s.mcp.AddTool(mcp.NewTool("canvas_status",
		mcp.WithDescription("Report shape count, limits, selection, undo state and connection health"),
	), s.handleCanvasStatus)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var ok bool
	if err := s.do(ctx, func(a *app.App) {
		ok = a.CanUndo()
		a.Undo()
	}); err != nil {
		return nil, err
	}
	if !ok {
		return textResult("Nothing to undo"), nil
	}
	return textResult("Undone"), nil
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var ok bool
	if err := s.do(ctx, func(a *app.App) {
		ok = a.CanRedo()
		a.Redo()
	}); err != nil {
		return nil, err
	}
	if !ok {
		return textResult("Nothing to redo"), nil
	}
	return textResult("Redone"), nil
}

func (s *Server) handleSetShowIndex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	show := req.GetBool("show", false)
	if err := s.do(ctx, func(a *app.App) { a.SetShowIndex(show) }); err != nil {
		return nil, err
	}
	if show {
		return textResult("Index badges shown"), nil
	}
	return textResult("Index badges hidden"), nil
}

type canvasStatus struct {
	ClientID   string   `json:"clientId"`
	Shapes     int      `json:"shapes"`
	MaxShapes  int      `json:"maxShapes"`
	MaxReached bool     `json:"maxReached"`
	Selected   []string `json:"selected"`
	ShowIndex  bool     `json:"showIndex"`
	CanUndo    bool     `json:"canUndo"`
	CanRedo    bool     `json:"canRedo"`
	Connection string   `json:"connection"`
}

func (s *Server) handleCanvasStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var snap app.Snapshot
	if err := s.do(ctx, func(a *app.App) { snap = a.Snapshot() }); err != nil {
		return nil, err
	}
	return jsonResult(canvasStatus{
		ClientID:   snap.ClientID,
		Shapes:     len(snap.Shapes),
		MaxShapes:  snap.MaxShapes,
		MaxReached: snap.MaxReached,
		Selected:   snap.Selected,
		ShowIndex:  snap.ShowIndex,
		CanUndo:    snap.CanUndo,
		CanRedo:    snap.CanRedo,
		Connection: snap.Connection,
	})
}
