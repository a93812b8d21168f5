// Package media maps media files to their transcripts and classifies paths
// by extension.
package media

import (
	"os"
	"path/filepath"
	"strings"
)

// TranscriptExt is fixed: transcripts live next to their media file with the
// same stem and this suffix.
const TranscriptExt = ".txt"

// FormatSet holds the recognized media file extensions, each with a leading
// dot. Matching is exact; extensions are not case-folded.
type FormatSet map[string]struct{}

func NewFormatSet(extensions []string) FormatSet {
	set := make(FormatSet, len(extensions))
	for _, ext := range extensions {
		set[ext] = struct{}{}
	}
	return set
}

func (s FormatSet) IsMedia(path string) bool {
	_, ok := s[filepath.Ext(path)]
	return ok
}

func (s FormatSet) Extensions() []string {
	extensions := make([]string, 0, len(s))
	for ext := range s {
		extensions = append(extensions, ext)
	}
	return extensions
}

func IsTranscript(path string) bool {
	return filepath.Ext(path) == TranscriptExt
}

// TranscriptPathFor resolves the transcript location for a media file: same
// directory, same stem, TranscriptExt suffix.
func TranscriptPathFor(mediaPath string) string {
	return StripExt(mediaPath) + TranscriptExt
}

// TranscriptExists reports whether the media file's transcript is on disk.
// The transcript file, not any ledger entry, is the proof of completion.
func TranscriptExists(mediaPath string) bool {
	_, err := os.Stat(TranscriptPathFor(mediaPath))
	return err == nil
}

// FindSiblingMedia searches dir for a media file sharing the given stem,
// trying every supported extension. Used when a transcript is deleted to
// locate the media file to re-transcribe.
func (s FormatSet) FindSiblingMedia(dir, stem string) (string, bool) {
	for ext := range s {
		candidate := filepath.Join(dir, stem+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func Stem(path string) string {
	return StripExt(filepath.Base(path))
}

func StripExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
