package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/migrakit/migrakit/internal/adapters/outbound/logging"
)

func TestNew_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "migration-migrakit.log")
	logger, err := logging.New(path)
	require.NoError(t, err)

	logger.Info("rule finished", zap.String("rule", "eslintPlugin"), zap.String("outcome", "SUCCEEDED"))
	logger.Error("rule failed", zap.String("rule", "staleOverrides"), zap.String("error", "disk full"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "rule failed", entry["msg"])
	assert.Equal(t, "disk full", entry["error"])
	assert.NotEmpty(t, entry["time"])
}
