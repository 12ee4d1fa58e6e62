package fsio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/migrakit/migrakit/internal/adapters/outbound/fsio"
)

func TestWriter_WritesAndCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	w := fsio.New(false)
	fp := filepath.Join(dir, ".storybook", "preview.js")

	require.NoError(t, w.WriteFile(fp, []byte("export default {};\n"), 0644))

	data, err := os.ReadFile(fp)
	require.NoError(t, err)
	assert.Equal(t, "export default {};\n", string(data))
	assert.Equal(t, []string{fp}, w.Written())
	assert.Empty(t, w.Pending())
	assert.False(t, w.DryRun())
}

func TestWriter_DryRunLeavesDiskUntouched(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "main.js")
	require.NoError(t, os.WriteFile(fp, []byte("original"), 0644))

	w := fsio.New(true)
	require.NoError(t, w.WriteFile(fp, []byte("changed"), 0644))
	require.NoError(t, w.WriteFile(fp, []byte("changed again"), 0644))
	require.NoError(t, w.WriteFile(filepath.Join(dir, "new", "file.js"), []byte("x"), 0644))

	data, err := os.ReadFile(fp)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
	assert.NoDirExists(t, filepath.Join(dir, "new"))
	assert.Equal(t, []string{fp, filepath.Join(dir, "new", "file.js")}, w.Pending())
	assert.True(t, w.DryRun())
}
