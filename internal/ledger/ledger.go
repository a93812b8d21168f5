// Package ledger persists the set of media paths already handed to the
// transcription pipeline. The ledger is advisory: a path counts as done only
// when it is recorded here AND its transcript exists on disk, so a crash
// between the two writes never strands a file.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
)

type Ledger struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	paths map[string]struct{}
}

// Open loads the ledger at path. A missing, unreadable, or malformed file
// yields an empty ledger; a broken ledger must never block the pipeline.
func Open(path string, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Ledger{
		path:   path,
		logger: logger,
		paths:  make(map[string]struct{}),
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("ledger unreadable, starting empty", zap.String("path", path), zap.Error(err))
		}
		return l
	}

	var entries []string
	if err := json.Unmarshal(content, &entries); err != nil {
		logger.Warn("ledger malformed, starting empty", zap.String("path", path), zap.Error(err))
		return l
	}

	for _, entry := range entries {
		l.paths[entry] = struct{}{}
	}
	return l
}

func (l *Ledger) Contains(mediaPath string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.paths[mediaPath]
	return ok
}

// Add records the path and persists immediately.
func (l *Ledger) Add(mediaPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths[mediaPath] = struct{}{}
	return l.flushLocked()
}

// Mark records the path in memory only and reports whether it was new.
// Callers batching many marks (the reconciliation scan) follow up with one
// Flush instead of persisting per entry.
func (l *Ledger) Mark(mediaPath string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.paths[mediaPath]; ok {
		return false
	}
	l.paths[mediaPath] = struct{}{}
	return true
}

func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.paths)
}

// flushLocked writes the full set as a sorted JSON list via a temp file and
// rename, so a crash mid-write leaves either the old or the new contents.
func (l *Ledger) flushLocked() error {
	entries := make([]string, 0, len(l.paths))
	for path := range l.paths {
		entries = append(entries, path)
	}
	sort.Strings(entries)

	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tempPath := l.path + ".tmp"
	if err := os.WriteFile(tempPath, content, 0o644); err != nil {
		return fmt.Errorf("write ledger temp file: %w", err)
	}
	if err := os.Rename(tempPath, l.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
