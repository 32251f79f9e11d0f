package exports

import (
	"context"
	"log/slog"
	"time"

	"crm/metrics"
)

// Sweeper periodically deletes artifacts older than the retention window.
type Sweeper struct {
	store     ArtifactStore
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewSweeper(store ArtifactStore, retention, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger.With("component", "export_sweeper"),
		now:       time.Now,
	}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("export sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("retention", s.retention),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("export sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int {
	removed, err := s.store.Sweep(ctx, s.now().Add(-s.retention))
	metrics.ObserveSwept(removed)
	if err != nil {
		s.logger.Error("failed to sweep export artifacts",
			slog.Int("removed", removed),
			slog.String("error", err.Error()),
		)
		return removed
	}
	if removed > 0 {
		s.logger.Info("expired export artifacts removed", slog.Int("removed", removed))
	}
	return removed
}
