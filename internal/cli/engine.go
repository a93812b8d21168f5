package cli

import (
	"context"
	"fmt"

	"github.com/fmueller/voxwatch/internal/download"
	"github.com/fmueller/voxwatch/internal/platform"
	"github.com/fmueller/voxwatch/internal/whisper"
	"github.com/fmueller/voxwatch/internal/worker"
	"go.uber.org/zap"
)

// buildEngine resolves the configured model (downloading it when allowed)
// and constructs a ready-to-use transcription engine. Called once per
// worker at pool startup.
func (a *appState) buildEngine(ctx context.Context) (worker.Engine, error) {
	resolved, err := a.ensureModelAvailable(ctx)
	if err != nil {
		return nil, err
	}

	language := a.cfg.Language
	if language == "auto" {
		language = ""
	}

	return whisper.NewBundledEngine(whisper.EngineConfig{
		ModelPath: resolved.Path,
		Language:  language,
	}, a.log())
}

func (a *appState) ensureModelAvailable(ctx context.Context) (whisper.ResolvedModel, error) {
	modelDir, err := platform.ResolveModelDir(a.cfg.ModelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	resolved, err := whisper.ResolveModel(a.cfg.Model, modelDir)
	if err != nil {
		return whisper.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.cfg.AutoDownload {
		return whisper.ResolvedModel{}, fmt.Errorf("model %q is missing at %s; run `voxwatch setup --model %s` or use --auto-download=true", resolved.Name, resolved.Path, resolved.Name)
	}

	a.log().Info("model not found, downloading", zap.String("model", resolved.Name), zap.String("destination", resolved.Path))
	if err := download.DownloadFile(ctx, download.Options{
		URL:            resolved.URL,
		Destination:    resolved.Path,
		ExpectedSHA256: resolved.SHA256,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	}); err != nil {
		return whisper.ResolvedModel{}, fmt.Errorf("download model %q: %w", resolved.Name, err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}
