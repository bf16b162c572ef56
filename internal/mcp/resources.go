package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"canvas/internal/app"
)

const shapesURI = "canvas://shapes"

func (s *Server) registerResources() {
	// ── canvas://shapes ────────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		shapesURI,
		"Shapes on the board",
		mcp.WithResourceDescription("Every shape in z-order with local and remote selection"),
		mcp.WithMIMEType("application/json"),
	), s.handleShapesResource)
}

func (s *Server) handleShapesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	var snap app.Snapshot
	if err := s.do(ctx, func(a *app.App) { snap = a.Snapshot() }); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      shapesURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
