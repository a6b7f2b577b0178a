package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/edem-agent/internal/store"
)

// RunJanitor deletes agents idle longer than retention every interval until
// ctx is done. A non-positive retention disables the sweep.
func RunJanitor(ctx context.Context, repo store.Repository, retention, interval time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if retention <= 0 {
		logger.Info("Agent retention disabled, janitor not started")
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info("Janitor started", "interval", interval, "retention", retention)

	for {
		select {
		case <-ticker.C:
			sweepStaleAgents(ctx, repo, retention, logger)
		case <-ctx.Done():
			logger.Info("Janitor shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func sweepStaleAgents(ctx context.Context, repo store.Repository, retention time.Duration, logger *slog.Logger) int64 {
	removed, err := repo.CleanupStaleAgents(ctx, retention)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("Janitor failed to remove stale agents", "error", err)
		}
		return 0
	}
	if removed > 0 {
		logger.Info("Janitor removed stale agents", "count", removed)
	}
	return removed
}
