package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce collapses editor write bursts into one reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration when its file changes and hands the
// fresh value to onReload. Only settings that are safe to change at
// runtime (the log level) are expected to be applied by the caller.
type Watcher struct {
	path     string
	debounce time.Duration
	load     func() (*Config, error)
	onReload func(*Config)
	logger   *zap.Logger
}

func NewWatcher(path string, debounce time.Duration, load func() (*Config, error), onReload func(*Config), logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{path: path, debounce: debounce, load: load, onReload: onReload, logger: logger}
}

// Run watches the file until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.path); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}
	w.logger.Info("config watcher started", zap.String("path", w.path), zap.Duration("debounce", w.debounce))

	var timer *time.Timer
	var timerC <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopping")
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			// Some editors replace the file instead of writing it.
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case <-timerC:
			timerC = nil
			cfg, err := w.load()
			if err != nil {
				w.logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded", zap.String("path", w.path))
			w.onReload(cfg)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}
