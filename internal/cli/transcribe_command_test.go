package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranscribeCommandPrintsTranscript(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	app := &appState{
		transcribeFn: func(_ context.Context, _ string) (string, error) {
			return "hello from the engine", nil
		},
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"/tmp/clip.mp4"})

	err := cmd.Execute()
	require.NoError(t, err)
	require.Equal(t, "hello from the engine\n", out.String())
}

func TestTranscribeCommandWritesTranscriptNextToMedia(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip.mp4")
	writeTestFile(t, mediaPath, "media")

	out := new(bytes.Buffer)
	app := &appState{
		transcribeFn: func(_ context.Context, _ string) (string, error) {
			return "written out", nil
		},
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--write", mediaPath})

	err := cmd.Execute()
	require.NoError(t, err)

	transcript, err := os.ReadFile(filepath.Join(dir, "clip.txt"))
	require.NoError(t, err)
	require.Equal(t, "written out", string(transcript))
	require.Contains(t, out.String(), "Transcript saved to")
}

func TestTranscribeCommandPropagatesEngineError(t *testing.T) {
	t.Parallel()

	app := &appState{
		transcribeFn: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("engine unavailable")
		},
	}

	cmd := newTranscribeCmd(app)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"/tmp/clip.mp4"})

	require.ErrorContains(t, cmd.Execute(), "engine unavailable")
}

func TestTranscribeFileRejectsMissingMedia(t *testing.T) {
	t.Parallel()

	app := &appState{}
	app.newEngine = app.buildEngine

	_, err := app.transcribeFile(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"))
	require.ErrorContains(t, err, "media file not found")
}
