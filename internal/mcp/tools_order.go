package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"canvas/internal/app"
)

// zOrderTools maps each reordering tool to the facade call it makes.
var zOrderTools = []struct {
	name, desc string
	apply      func(*app.App)
}{
	{"bring_to_front", "Move the first selected shape to the top of the stack", (*app.App).BringToFrontOfSelection},
	{"send_to_back", "Move the first selected shape to the bottom of the stack", (*app.App).SendToBackOfSelection},
	{"bring_forward", "Move the first selected shape one step up", (*app.App).BringForwardOfSelection},
	{"send_backward", "Move the first selected shape one step down", (*app.App).SendBackwardOfSelection},
}

func (s *Server) registerOrderTools() {
	for _, t := range zOrderTools {
		s.mcp.AddTool(mcp.NewTool(t.name,
			mcp.WithDescription(t.desc),
			mcp.WithString("shapeId", mcp.Description("Shape ID to select first (optional, defaults to the current selection)")),
		), s.zOrderHandler(t.apply))
	}
}

func (s *Server) zOrderHandler(apply func(*app.App)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("shapeId", "")
		var (
			index    = -1
			selected string
		)
		err := s.do(ctx, func(a *app.App) {
			if id != "" {
				a.SetSelection(id)
			}
			sel := a.Selected()
			if len(sel) == 0 {
				return
			}
			selected = sel[0]
			apply(a)
			for i, sh := range a.Shapes() {
				if sh.ID == selected {
					index = i
				}
			}
		})
		if err != nil {
			return nil, err
		}
		if selected == "" {
			return textResult("Nothing selected"), nil
		}
		if index < 0 {
			return nil, fmt.Errorf("shape %s not found", selected)
		}
		return textResult(fmt.Sprintf("%s is now at index %d", selected, index)), nil
	}
}
