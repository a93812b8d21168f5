package whisper

import "context"

// EngineConfig is fixed when an engine instance is created. Workers each own
// one engine, so per-call configuration would invite races inside the engine.
type EngineConfig struct {
	ModelPath string
	Language  string
}

type Engine interface {
	Transcribe(ctx context.Context, mediaPath string) (string, error)
}
