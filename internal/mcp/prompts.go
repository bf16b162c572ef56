package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("compose_scene",
		mcp.WithPromptDescription("Guide through building a small composition of shapes on the shared board"),
		mcp.WithArgument("theme",
			mcp.ArgumentDescription("What the composition should depict"),
			mcp.RequiredArgument(),
		),
	), s.handleComposePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("tidy_board",
		mcp.WithPromptDescription("Clean up a crowded board without disturbing collaborators' selections"),
	), s.handleTidyPrompt)
}

func (s *Server) handleComposePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	theme := req.Params.Arguments["theme"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Compose a scene: %s", theme),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Compose a scene depicting "%s" on the shared board. Follow these steps:

1. Call canvas_status to see how many shapes exist and how many more fit
2. Use create_shape with explicit x/y for each element; pick types and colors that suit the theme
3. Use bring_to_front / send_to_back to layer overlapping shapes
4. Finish with list_shapes and check the composition reads well

Other people may be editing the same board. Do not delete shapes you did not create.`, theme),
				},
			},
		},
	}, nil
}

func (s *Server) handleTidyPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Tidy the board",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: `Tidy the board. Follow these steps:

1. Read the canvas://shapes resource and note which shapes have remoteSelectors
2. Leave shapes that someone else has selected where they are
3. Use arrange_shapes to lay everything out on a grid, or move_shape for finer control
4. Turn on set_show_index so collaborators can refer to shapes by position

Every step is undoable with undo.`,
				},
			},
		},
	}, nil
}
