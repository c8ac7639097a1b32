package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Setup replaces the default logger, so these tests do not run in parallel.

func TestSetupDebugWritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "debug.log")
	closer, err := Setup(true, path)
	require.NoError(t, err)

	slog.Debug("Stream started", "message_id", "a1")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Stream started")
	assert.Contains(t, string(content), "message_id=a1")
}

func TestSetupWithoutDebugDiscards(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	closer, err := Setup(false, filepath.Join(t.TempDir(), "unused.log"))
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	assert.False(t, slog.Default().Enabled(t.Context(), slog.LevelError))
}
