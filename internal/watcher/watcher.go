// Package watcher turns filesystem notifications under the watched root into
// transcription jobs.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fmueller/voxwatch/internal/media"
	"github.com/fmueller/voxwatch/internal/queue"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	settlePollInterval = 500 * time.Millisecond
	settleMaxPolls     = 20
)

type Watcher struct {
	root    string
	formats media.FormatSet
	queue   *queue.Queue
	logger  *zap.Logger

	// settleDelay is the debounce after a create notification before the
	// file is considered readable; writers are usually still appending when
	// the event arrives. It blocks only event handling, never the workers.
	settleDelay time.Duration

	fsw  *fsnotify.Watcher
	done chan struct{}
}

type Options struct {
	Root        string
	Formats     media.FormatSet
	Queue       *queue.Queue
	SettleDelay time.Duration
	Logger      *zap.Logger
}

// New sets up watches for the root and every directory below it. fsnotify
// watches are per-directory, so the tree is walked once here and again for
// directories created later.
func New(opts Options) (*Watcher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create filesystem watcher: %w", err)
	}

	w := &Watcher{
		root:        opts.Root,
		formats:     opts.Formats,
		queue:       opts.Queue,
		logger:      logger,
		settleDelay: opts.SettleDelay,
		fsw:         fsw,
		done:        make(chan struct{}),
	}

	if err := w.watchTree(opts.Root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	return w, nil
}

// Start begins delivering events on a dedicated goroutine.
func (w *Watcher) Start() {
	go w.run()
}

// Close stops the watcher and waits for the event loop to drain.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	w.logger.Info("watching for media files", zap.String("root", w.root))
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Notification errors are not fatal; keep observing.
			w.logger.Warn("filesystem watch error", zap.Error(err))
		}
	}
}

// handleEvent applies the three transition rules. Each notification is
// handled on its own; there is no cross-event state.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		w.handleCreated(event.Name)
		return
	}

	// A renamed transcript is as gone as a removed one under its old name.
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		w.handleRemoved(event.Name)
	}
}

// handleCreated covers both new files and move destinations; fsnotify
// reports a move into the tree as a Create of the destination path.
func (w *Watcher) handleCreated(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Already gone again; nothing to do.
		return
	}

	if info.IsDir() {
		w.handleNewDirectory(path)
		return
	}

	if !w.formats.IsMedia(path) {
		return
	}

	w.logger.Info("new media file detected", zap.String("media", path))
	if !w.waitUntilSettled(path) {
		w.logger.Debug("file vanished before settling", zap.String("media", path))
		return
	}

	if media.TranscriptExists(path) {
		return
	}
	w.queue.Enqueue(path)
}

// handleRemoved re-queues a media file when its transcript disappears. The
// sibling lookup happens in the transcript's own directory, since transcripts
// are co-located with their media.
func (w *Watcher) handleRemoved(path string) {
	if !media.IsTranscript(path) {
		return
	}

	sibling, found := w.formats.FindSiblingMedia(filepath.Dir(path), media.Stem(path))
	if !found {
		return
	}

	w.logger.Info("transcript removed, re-transcribing", zap.String("media", sibling))
	w.queue.Enqueue(sibling)
}

// handleNewDirectory extends the watch into a directory that appeared after
// startup and sweeps it for media that arrived with it; files moved in as
// part of the directory never produce their own create events.
func (w *Watcher) handleNewDirectory(dir string) {
	if err := w.watchTree(dir); err != nil {
		w.logger.Warn("failed to watch new directory", zap.String("dir", dir), zap.Error(err))
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if w.formats.IsMedia(path) && !media.TranscriptExists(path) {
			w.logger.Info("media found in new directory", zap.String("media", path))
			w.queue.Enqueue(path)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("failed to sweep new directory", zap.String("dir", dir), zap.Error(err))
	}
}

func (w *Watcher) watchTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// waitUntilSettled sleeps out the settle delay and then polls the file size
// until it stops changing, so that files larger than the fixed delay can
// absorb are not read mid-write. Returns false if the file disappeared.
func (w *Watcher) waitUntilSettled(path string) bool {
	if w.settleDelay <= 0 {
		_, err := os.Stat(path)
		return err == nil
	}

	time.Sleep(w.settleDelay)
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	size := info.Size()
	interval := settlePollInterval
	if w.settleDelay < interval {
		interval = w.settleDelay
	}

	for i := 0; i < settleMaxPolls; i++ {
		time.Sleep(interval)
		info, err = os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == size {
			return true
		}
		size = info.Size()
	}

	w.logger.Warn("file still growing after settle window, enqueueing anyway", zap.String("media", path))
	return true
}
