package content

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long Watch waits for edits to settle before rebuilding.
const DefaultDebounce = 300 * time.Millisecond

// Watch calls rebuild whenever files under dir change, once edits have been
// quiet for debounce. It watches dir and its products and gallery
// subdirectories, and blocks until ctx is done.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *zap.Logger, rebuild func(context.Context)) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	for _, sub := range []string{"", ProductsDir, GalleryDir} {
		path := filepath.Join(dir, sub)

		addErr := watcher.Add(path)
		if addErr != nil {
			if sub != "" && errors.Is(addErr, os.ErrNotExist) {
				logger.Debug("not watching missing dir", zap.String("path", path))

				continue
			}

			return fmt.Errorf("watching %s: %w", path, addErr)
		}
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op == fsnotify.Chmod {
				continue
			}

			// Subdirectories created after startup are picked up here.
			if event.Has(fsnotify.Create) && isWatchedSubdir(dir, event.Name) {
				_ = watcher.Add(event.Name)
			}

			logger.Debug("content changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}

			timerC = timer.C

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("watch error", zap.Error(watchErr))

		case <-timerC:
			timerC = nil

			rebuild(ctx)
		}
	}
}

func isWatchedSubdir(dir, path string) bool {
	if path != filepath.Join(dir, ProductsDir) && path != filepath.Join(dir, GalleryDir) {
		return false
	}

	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
