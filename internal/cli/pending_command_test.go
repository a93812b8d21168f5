package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPendingCommandListsFilesWithoutTranscript(t *testing.T) {
	t.Parallel()

	app := &appState{cfg: testConfig(t)}
	writeTestFile(t, filepath.Join(app.cfg.WatchDir, "todo.mp4"), "media")
	writeTestFile(t, filepath.Join(app.cfg.WatchDir, "done.wav"), "media")
	writeTestFile(t, filepath.Join(app.cfg.WatchDir, "done.txt"), "transcript")

	out := new(bytes.Buffer)
	cmd := newPendingCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "todo.mp4")
	require.NotContains(t, out.String(), "done.wav")
	require.Contains(t, out.String(), "1 pending")
}

func TestPendingCommandReportsEmptyTree(t *testing.T) {
	t.Parallel()

	app := &appState{cfg: testConfig(t)}

	out := new(bytes.Buffer)
	cmd := newPendingCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(nil)

	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "No pending media files.")
}

func TestHumanBytes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "512 B", humanBytes(512))
	require.Equal(t, "1.0 KiB", humanBytes(1024))
	require.Equal(t, "1.5 MiB", humanBytes(1536*1024))
}
