package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"canvas/internal/app"
)

// Server is the MCP server for one canvas client.
// It exposes tools, resources, and prompts so AI agents can edit the shared board.
type Server struct {
	mcp    *server.MCPServer
	loop   *app.Loop
	app    *app.App
	layout *LayoutEngine
	logger *log.Logger
}

// Deps holds the collaborators the server drives.
type Deps struct {
	// Loop owns App; every tool call runs on it.
	Loop   *app.Loop
	App    *app.App
	Logger *log.Logger
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		loop:   deps.Loop,
		app:    deps.App,
		layout: NewLayoutEngine(),
		logger: logger.WithPrefix("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"canvas-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerShapeTools()
	s.registerSelectionTools()
	s.registerOrderTools()
	s.registerHistoryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// MCP returns the underlying server, mainly for tests and alternative transports.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// ── Helpers ────────────────────────────────────────────────

// do runs fn on the App's loop.
func (s *Server) do(ctx context.Context, fn func(a *app.App)) error {
	return s.loop.Do(ctx, func() { fn(s.app) })
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
