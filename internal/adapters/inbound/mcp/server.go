package mcp

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMigrakitMCPServer creates a new MCP server with all migrakit tools and
// resources registered. The projectPath is the root directory of the project
// to migrate.
func NewMigrakitMCPServer(projectPath string) *server.MCPServer {
	s := server.NewMCPServer(
		"migrakit",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, projectPath)
	registerResources(s, projectPath)

	return s
}
