package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/migrakit/migrakit/internal/adapters/outbound/history"
)

// registerResources registers all migrakit MCP resources on the given server.
func registerResources(s *server.MCPServer, projectPath string) {
	// 1. migrakit://history - past migration runs
	s.AddResource(
		mcplib.NewResource(
			"migrakit://history",
			"Migration History",
			mcplib.WithResourceDescription("Every recorded migration run for the project"),
			mcplib.WithMIMEType("application/json"),
		),
		handleHistoryResource(projectPath),
	)

	// 2. migrakit://config - effective project configuration
	s.AddResource(
		mcplib.NewResource(
			"migrakit://config",
			"Configuration",
			mcplib.WithResourceDescription("Effective .migrakit.yaml configuration with defaults applied"),
			mcplib.WithMIMEType("application/json"),
		),
		handleConfigResource(projectPath),
	)
}

func handleHistoryResource(projectPath string) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		entries, err := history.New().Load(projectPath)
		if err != nil {
			return nil, fmt.Errorf("loading history: %w", err)
		}
		return jsonResource("migrakit://history", entries)
	}
}

func handleConfigResource(projectPath string) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		cfg, err := loadConfig(projectPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return jsonResource("migrakit://config", cfg)
	}
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
