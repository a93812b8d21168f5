package cli

import (
	"context"
	"fmt"

	"github.com/fmueller/voxwatch/internal/ledger"
	"github.com/fmueller/voxwatch/internal/media"
	"github.com/fmueller/voxwatch/internal/queue"
	"github.com/fmueller/voxwatch/internal/scanner"
	"github.com/fmueller/voxwatch/internal/worker"
	"github.com/spf13/cobra"
)

// newScanCmd runs one reconciliation pass and transcribes everything it
// finds, then exits. No watcher is started.
func newScanCmd(app *appState) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Transcribe all pending media files once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runScan(cmd.Context(), cmd)
		},
	}
}

func (a *appState) runScan(ctx context.Context, cmd *cobra.Command) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	log := a.log()

	led := ledger.Open(a.cfg.LedgerPath, log)
	q := queue.New(a.cfg.QueueSize)

	pool := worker.NewPool(worker.Options{
		Workers:              a.cfg.Workers,
		Queue:                q,
		Ledger:               led,
		Logger:               log,
		NewEngine:            func() (worker.Engine, error) { return a.newEngine(ctx) },
		SilenceGate:          a.cfg.SilenceGate,
		SilenceThresholdDBFS: a.cfg.SilenceThresholdDBFS,
	})
	if err := pool.Start(ctx); err != nil {
		return err
	}

	scan := &scanner.Scanner{
		Root:    a.cfg.WatchDir,
		Formats: media.NewFormatSet(a.cfg.Extensions),
		Ledger:  led,
		Queue:   q,
		Logger:  log,
	}
	enqueued, err := scan.Run(ctx)
	if err != nil {
		pool.Stop()
		return fmt.Errorf("scan %s: %w", a.cfg.WatchDir, err)
	}

	pool.Stop()

	if enqueued == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to transcribe.")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Transcribed %d file(s) under %s\n", enqueued, a.cfg.WatchDir)
	return nil
}
