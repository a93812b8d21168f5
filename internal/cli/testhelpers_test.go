package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fmueller/voxwatch/internal/config"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := NewRootCmd()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// testConfig returns a valid config rooted in a fresh temp directory so
// command tests never touch the user's real watch tree.
func testConfig(t *testing.T) config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.WatchDir = t.TempDir()
	cfg.LedgerPath = filepath.Join(cfg.WatchDir, "processed_files.json")
	cfg.SettleDelaySeconds = 0
	return cfg
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
