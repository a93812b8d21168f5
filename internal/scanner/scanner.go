// Package scanner reconciles the watched tree on startup: anything the
// pipeline missed while the daemon was down gets enqueued before the live
// watcher takes over.
package scanner

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/fmueller/voxwatch/internal/ledger"
	"github.com/fmueller/voxwatch/internal/media"
	"github.com/fmueller/voxwatch/internal/queue"
	"go.uber.org/zap"
)

type Scanner struct {
	Root    string
	Formats media.FormatSet
	Ledger  *ledger.Ledger
	Queue   *queue.Queue
	Logger  *zap.Logger
}

// Run walks the watched root once and enqueues every supported media file
// whose transcript is missing. Enqueued paths are marked in the ledger up
// front so the watcher does not re-discover them during the same pass; the
// ledger is persisted once after the walk. A file whose transcript exists is
// never enqueued, which makes repeated runs idempotent.
func (s *Scanner) Run(ctx context.Context) (int, error) {
	log := s.logger()
	enqueued := 0

	err := filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warn("scan entry failed, skipping", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !s.Formats.IsMedia(path) || media.TranscriptExists(path) {
			return nil
		}

		log.Info("missing transcript, enqueueing", zap.String("media", path))
		s.Queue.Enqueue(path)
		s.Ledger.Mark(path)
		enqueued++
		return nil
	})

	if flushErr := s.Ledger.Flush(); flushErr != nil {
		log.Warn("failed to persist ledger after scan", zap.Error(flushErr))
	}

	if err != nil {
		return enqueued, err
	}

	log.Info("reconciliation scan finished", zap.String("root", s.Root), zap.Int("enqueued", enqueued))
	return enqueued, nil
}

// Pending lists supported media files under root that have no transcript, in
// lexical walk order. It never touches the ledger or the queue.
func Pending(root string, formats media.FormatSet) ([]string, error) {
	var pending []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if formats.IsMedia(path) && !media.TranscriptExists(path) {
			pending = append(pending, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *Scanner) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
