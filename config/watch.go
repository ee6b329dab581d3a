package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jonwraymond/healthagg/observe"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file is written or replaced. It runs until ctx is
// cancelled.
//
// The parent directory is watched rather than the file, so atomic saves
// (write to a temp file, then rename over path) are picked up. If a reload
// fails, the error is logged and onChange is not called, so the previous
// configuration stays active.
func Watch(ctx context.Context, path string, logger observe.Logger, onChange func(*Config)) error {
	if logger == nil {
		logger = observe.NopLogger()
	}

	path = filepath.Clean(path)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	logger.Info(ctx, "config: watching for changes", observe.F("path", path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				logger.Error(ctx, "config: reload failed, keeping previous config",
					observe.F("path", path),
					observe.F("error", err.Error()),
				)
				continue
			}

			logger.Info(ctx, "config: reloaded",
				observe.F("path", path),
				observe.F("services", len(cfg.Services)),
			)
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error(ctx, "config: watcher error", observe.F("error", err.Error()))
		}
	}
}
