package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WatchdogWorker calls notify every interval; main wires it to the
// service manager's keep-alive.
type WatchdogWorker struct {
	interval time.Duration
	notify   func() error
	logger   *zap.Logger
}

func NewWatchdogWorker(interval time.Duration, notify func() error, logger *zap.Logger) *WatchdogWorker {
	return &WatchdogWorker{interval: interval, notify: notify, logger: logger}
}

// Run ticks every interval. Stops cleanly when ctx is cancelled.
func (ww *WatchdogWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(ww.interval)
	defer ticker.Stop()

	ww.logger.Info("watchdog worker started", zap.Duration("interval", ww.interval))

	for {
		select {
		case <-ctx.Done():
			ww.logger.Info("watchdog worker stopping")
			return nil
		case <-ticker.C:
			if err := ww.notify(); err != nil {
				ww.logger.Warn("watchdog notify failed", zap.Error(err))
			}
		}
	}
}
