package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fmueller/voxwatch/internal/media"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *appState) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "transcribe <media-file>",
		Short: "Transcribe a single media file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := app.transcribeFn(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if write {
				transcriptPath := media.TranscriptPathFor(filepath.Clean(args[0]))
				if err := os.WriteFile(transcriptPath, []byte(transcript), 0o644); err != nil {
					return fmt.Errorf("write transcript: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Transcript saved to %s\n", transcriptPath)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), transcript)
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "Write the transcript next to the media file instead of printing it")
	return cmd
}

func (a *appState) transcribeFile(ctx context.Context, mediaPath string) (string, error) {
	mediaPath = filepath.Clean(mediaPath)
	if _, err := os.Stat(mediaPath); err != nil {
		return "", fmt.Errorf("media file not found: %w", err)
	}

	engine, err := a.newEngine(ctx)
	if err != nil {
		return "", err
	}

	a.log().Info("transcribing...", zap.String("media", mediaPath), zap.String("language", a.cfg.Language))
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()

	transcript, err := engine.Transcribe(ctx, mediaPath)
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))

	return transcript, nil
}
