package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fmueller/voxwatch/internal/ledger"
	"github.com/fmueller/voxwatch/internal/media"
	"github.com/fmueller/voxwatch/internal/queue"
	"github.com/fmueller/voxwatch/internal/scanner"
	"github.com/fmueller/voxwatch/internal/watcher"
	"github.com/fmueller/voxwatch/internal/worker"
	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

// runDaemon is the steady-state mode: reconcile once, then watch and
// transcribe until interrupted.
func (a *appState) runDaemon(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	log := a.log()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(a.cfg.WatchDir, 0o755); err != nil {
		return fmt.Errorf("create watch directory: %w", err)
	}

	// One daemon per ledger; a second instance would race the persisted set.
	lock := flock.New(a.cfg.LedgerPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another voxwatch instance is already watching %s", a.cfg.WatchDir)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	led := ledger.Open(a.cfg.LedgerPath, log)
	q := queue.New(a.cfg.QueueSize)
	formats := media.NewFormatSet(a.cfg.Extensions)

	pool := worker.NewPool(worker.Options{
		Workers:              a.cfg.Workers,
		Queue:                q,
		Ledger:               led,
		Logger:               log,
		NewEngine:            func() (worker.Engine, error) { return a.newEngine(ctx) },
		SilenceGate:          a.cfg.SilenceGate,
		SilenceThresholdDBFS: a.cfg.SilenceThresholdDBFS,
	})

	// Workers start first so they drain the queue while the scan walks.
	// Transcriptions run to completion on shutdown, so the pool gets a
	// context that outlives the signal.
	if err := pool.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	log.Info("worker pool started", zap.Int("workers", pool.Size()))

	scan := &scanner.Scanner{
		Root:    a.cfg.WatchDir,
		Formats: formats,
		Ledger:  led,
		Queue:   q,
		Logger:  log,
	}
	if _, err := scan.Run(ctx); err != nil {
		pool.Stop()
		return fmt.Errorf("reconciliation scan: %w", err)
	}

	w, err := watcher.New(watcher.Options{
		Root:        a.cfg.WatchDir,
		Formats:     formats,
		Queue:       q,
		SettleDelay: a.cfg.SettleDelay(),
		Logger:      log,
	})
	if err != nil {
		pool.Stop()
		return err
	}
	w.Start()

	log.Info("voxwatch running",
		zap.String("watch_dir", a.cfg.WatchDir),
		zap.String("ledger", a.cfg.LedgerPath),
		zap.String("model", a.cfg.Model))

	<-ctx.Done()
	log.Info("shutting down, waiting for in-flight transcriptions")

	if err := w.Close(); err != nil {
		log.Warn("failed to close watcher", zap.Error(err))
	}
	pool.Stop()

	log.Info("voxwatch stopped")
	return nil
}
