package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/repository"
)

// PruneWorker periodically deletes journal entries older than the
// retention window, so the journal stays bounded on small devices.
type PruneWorker struct {
	repo      repository.EventRepository
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

func NewPruneWorker(
	repo repository.EventRepository,
	interval, retention time.Duration,
	logger *zap.Logger,
) *PruneWorker {
	return &PruneWorker{repo: repo, interval: interval, retention: retention, logger: logger}
}

// Run ticks every interval and prunes. Stops cleanly when ctx is cancelled.
func (pw *PruneWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	pw.logger.Info("prune worker started",
		zap.Duration("interval", pw.interval),
		zap.Duration("retention", pw.retention),
	)

	for {
		select {
		case <-ctx.Done():
			pw.logger.Info("prune worker stopping")
			return nil
		case <-ticker.C:
			pw.prune(ctx)
		}
	}
}

func (pw *PruneWorker) prune(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-pw.retention)
	n, err := pw.repo.PruneBefore(ctx, cutoff)
	if err != nil {
		pw.logger.Error("journal prune error", zap.Error(err))
		return
	}
	if n > 0 {
		pw.logger.Info("pruned journal entries", zap.Int64("count", n))
	}
}
