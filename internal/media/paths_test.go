package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTranscriptPathFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mediaPath string
		want      string
	}{
		{"/srv/media/clip.mp4", "/srv/media/clip.txt"},
		{"/srv/media/nested/talk.show.mkv", "/srv/media/nested/talk.show.txt"},
		{"episode.wav", "episode.txt"},
	}

	for _, tc := range tests {
		require.Equal(t, tc.want, TranscriptPathFor(tc.mediaPath))
	}
}

func TestFormatSetIsMedia(t *testing.T) {
	t.Parallel()

	formats := NewFormatSet([]string{".mp4", ".wav"})

	require.True(t, formats.IsMedia("/srv/clip.mp4"))
	require.True(t, formats.IsMedia("voice.wav"))
	require.False(t, formats.IsMedia("/srv/clip.txt"))
	require.False(t, formats.IsMedia("/srv/clip.avi"))
	require.False(t, formats.IsMedia("/srv/clip"))
	// No case folding: extensions match exactly as configured.
	require.False(t, formats.IsMedia("/srv/clip.MP4"))
}

func TestIsTranscript(t *testing.T) {
	t.Parallel()

	require.True(t, IsTranscript("/srv/clip.txt"))
	require.False(t, IsTranscript("/srv/clip.mp4"))
}

func TestTranscriptExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip.mp4")
	require.False(t, TranscriptExists(mediaPath))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "clip.txt"), []byte("text"), 0o644))
	require.True(t, TranscriptExists(mediaPath))
}

func TestFindSiblingMedia(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	formats := NewFormatSet([]string{".mp4", ".mkv", ".wav"})

	_, found := formats.FindSiblingMedia(dir, "clip")
	require.False(t, found)

	mediaPath := filepath.Join(dir, "clip.mkv")
	require.NoError(t, os.WriteFile(mediaPath, []byte("media"), 0o644))

	sibling, found := formats.FindSiblingMedia(dir, "clip")
	require.True(t, found)
	require.Equal(t, mediaPath, sibling)
}

func TestStem(t *testing.T) {
	t.Parallel()

	require.Equal(t, "clip", Stem("/srv/media/clip.mp4"))
	require.Equal(t, "talk.show", Stem("talk.show.txt"))
}
