// Package worker runs the fixed pool of transcription workers. Each worker
// owns one engine instance so the slow, stateful engine is never shared.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fmueller/voxwatch/internal/audio"
	"github.com/fmueller/voxwatch/internal/ledger"
	"github.com/fmueller/voxwatch/internal/media"
	"github.com/fmueller/voxwatch/internal/queue"
	"go.uber.org/zap"
)

const defaultDequeueTimeout = 10 * time.Second

type Options struct {
	Workers int
	Queue   *queue.Queue
	Ledger  *ledger.Ledger
	Logger  *zap.Logger

	// NewEngine is called once per worker at startup; engine configuration
	// (model, language) is baked in there, never passed per job.
	NewEngine func() (Engine, error)

	// DequeueTimeout bounds how long a worker blocks on an empty queue
	// before taking an idle tick.
	DequeueTimeout time.Duration

	SilenceGate          bool
	SilenceThresholdDBFS float64
}

// Engine matches whisper.Engine; declared here so tests and alternative
// engines only need this narrow capability.
type Engine interface {
	Transcribe(ctx context.Context, mediaPath string) (string, error)
}

type Pool struct {
	size           int
	queue          *queue.Queue
	ledger         *ledger.Ledger
	logger         *zap.Logger
	newEngine      func() (Engine, error)
	dequeueTimeout time.Duration

	silenceGate          bool
	silenceThresholdDBFS float64

	wg sync.WaitGroup
}

func NewPool(opts Options) *Pool {
	size := opts.Workers
	if cpus := runtime.NumCPU(); size > cpus {
		size = cpus
	}
	if size < 1 {
		size = 1
	}

	timeout := opts.DequeueTimeout
	if timeout <= 0 {
		timeout = defaultDequeueTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		size:                 size,
		queue:                opts.Queue,
		ledger:               opts.Ledger,
		logger:               logger,
		newEngine:            opts.NewEngine,
		dequeueTimeout:       timeout,
		silenceGate:          opts.SilenceGate,
		silenceThresholdDBFS: opts.SilenceThresholdDBFS,
	}
}

func (p *Pool) Size() int {
	return p.size
}

// Start builds one engine per worker and launches the worker loops. An
// engine that cannot be constructed is fatal: a pool that cannot transcribe
// has nothing to offer.
func (p *Pool) Start(ctx context.Context) error {
	engines := make([]Engine, p.size)
	for i := range engines {
		engine, err := p.newEngine()
		if err != nil {
			return fmt.Errorf("create engine for worker %d: %w", i, err)
		}
		engines[i] = engine
	}

	for i, engine := range engines {
		p.wg.Add(1)
		go p.work(ctx, i, engine)
	}
	return nil
}

// Stop pushes one shutdown sentinel per worker and waits for all of them to
// finish. Jobs queued before the sentinels are processed first; in-flight
// transcriptions run to completion.
func (p *Pool) Stop() {
	for i := 0; i < p.size; i++ {
		p.queue.EnqueueShutdown()
	}
	p.wg.Wait()
}

func (p *Pool) work(ctx context.Context, id int, engine Engine) {
	defer p.wg.Done()

	log := p.logger.With(zap.Int("worker", id))
	log.Info("worker started")

	for {
		job, ok := p.queue.Dequeue(p.dequeueTimeout)
		if !ok {
			// Idle tick, not an error.
			continue
		}
		if job.IsShutdown() {
			log.Info("worker shutting down")
			return
		}

		if err := p.process(ctx, log, engine, job.Path); err != nil {
			// One file's failure never takes the worker down; the job is
			// dropped and only re-discovered by a later scan or event.
			log.Warn("transcription job failed", zap.String("media", job.Path), zap.Error(err))
		}
	}
}

func (p *Pool) process(ctx context.Context, log *zap.Logger, engine Engine, mediaPath string) error {
	transcriptPath := media.TranscriptPathFor(mediaPath)

	// Duplicate suppression: the ledger entry alone is not proof, the
	// transcript must exist too.
	if p.ledger.Contains(mediaPath) && fileExists(transcriptPath) {
		log.Debug("already transcribed, skipping", zap.String("media", mediaPath))
		return nil
	}

	log.Info("transcribing", zap.String("media", mediaPath))
	started := time.Now()

	text, err := p.transcribe(ctx, log, engine, mediaPath)
	if err != nil {
		return err
	}

	if err := writeTranscript(transcriptPath, text); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	if err := p.ledger.Add(mediaPath); err != nil {
		// The transcript is on disk, so the file counts as done; the ledger
		// will be repaired by the next successful flush.
		log.Warn("transcript written but ledger update failed", zap.String("media", mediaPath), zap.Error(err))
	}

	log.Info("transcript saved",
		zap.String("transcript", transcriptPath),
		zap.Duration("elapsed", time.Since(started)))
	return nil
}

func (p *Pool) transcribe(ctx context.Context, log *zap.Logger, engine Engine, mediaPath string) (string, error) {
	if p.silenceGate && strings.EqualFold(filepath.Ext(mediaPath), ".wav") {
		silent, metrics, err := audio.IsSilentWAV(mediaPath, p.silenceThresholdDBFS)
		switch {
		case err != nil:
			log.Warn("silence gate analysis failed; continuing transcription", zap.String("media", mediaPath), zap.Error(err))
		case silent:
			log.Info("audio considered silent; writing blank transcript",
				zap.String("media", mediaPath),
				zap.Float64("rms_dbfs", metrics.RMSdBFS),
				zap.Float64("peak_dbfs", metrics.PeakdBFS))
			return "", nil
		}
	}

	text, err := engine.Transcribe(ctx, mediaPath)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", mediaPath, err)
	}
	return text, nil
}

// writeTranscript goes through a temp file and rename so a reader (or the
// watcher) never observes a half-written transcript.
func writeTranscript(path, text string) error {
	tempPath := path + ".part"
	if err := os.WriteFile(tempPath, []byte(text), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return err
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
