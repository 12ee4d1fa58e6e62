package mcp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcpadapter "github.com/migrakit/migrakit/internal/adapters/inbound/mcp"
)

func TestNewMigrakitMCPServer(t *testing.T) {
	s := mcpadapter.NewMigrakitMCPServer(".")
	require.NotNil(t, s)
}

func TestMCPServerHasTools(t *testing.T) {
	s := mcpadapter.NewMigrakitMCPServer(".")
	require.NotNil(t, s)

	tools := s.ListTools()
	require.NotNil(t, tools)

	expectedTools := []string{
		"migrakit_list_fixes",
		"migrakit_check",
		"migrakit_run",
	}

	for _, name := range expectedTools {
		_, exists := tools[name]
		assert.True(t, exists, "tool %q should be registered", name)
	}

	assert.Len(t, tools, len(expectedTools), "should have exactly %d tools", len(expectedTools))
}
