package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConsoleLogger(t *testing.T) {
	t.Parallel()

	logger, err := New(Options{Verbose: true})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNewWithRotatingFile(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "voxwatch.log")
	logger, err := New(Options{JSON: true, File: logFile})
	require.NoError(t, err)

	logger.Info("hello")
	_ = logger.Sync()

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.Contains(t, string(content), "hello")
}
