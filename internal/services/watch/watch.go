// Package watch re-runs work when a file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/cursor-usage-dashboard/internal/logger"
)

// DefaultDebounce collapses bursts of editor writes into one change.
const DefaultDebounce = 100 * time.Millisecond

// File watches path and calls onChange after it has been written, created or
// replaced, once events have been quiet for debounce. It blocks until ctx is
// done. onChange runs on the watching goroutine, so changes that arrive while
// it runs are coalesced into the next call.
func File(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
	}()

	// Watch the directory so that atomic replaces are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	name := filepath.Base(path)
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error", "path", path, "error", err)

		case <-timer.C:
			logger.Info("Detected change", "path", path)
			onChange()

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
