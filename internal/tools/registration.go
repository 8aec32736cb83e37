package tools

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Registration pairs an MCP tool definition with its handler.
type Registration struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// RegisterAll adds every registration to s.
func RegisterAll(s *server.MCPServer, regs []Registration) {
	for _, r := range regs {
		s.AddTool(r.Tool, r.Handler)
	}
}
