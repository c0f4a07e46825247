package dashboard

// maintenance.go runs the periodic housekeeping job.
//
// Each run drops uploaded datasets that have been idle longer than the
// session TTL and purges upload history older than the retention window.
// Failures are logged and the job keeps running.

import (
	"context"
	"log/slog"
	"time"
)

// MaintenanceConfig holds the housekeeping schedule.
type MaintenanceConfig struct {
	Interval  time.Duration // How often to run (default: 5m)
	Retention time.Duration // History age to keep (default: 720h)
}

func (c MaintenanceConfig) withDefaults() MaintenanceConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.Retention <= 0 {
		c.Retention = 30 * 24 * time.Hour
	}
	return c
}

// StartMaintenance runs housekeeping immediately and then every Interval
// until ctx is cancelled. It blocks; start it in its own goroutine.
func (s *Service) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	cfg = cfg.withDefaults()
	slog.Info("maintenance scheduler started",
		"interval", cfg.Interval.String(),
		"history_retention", cfg.Retention.String(),
	)

	s.runMaintenance(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.runMaintenance(ctx, cfg)
		}
	}
}

// runMaintenance performs one evict + purge cycle.
func (s *Service) runMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	start := time.Now()

	evicted := s.store.Evict()

	purged, err := s.history.Purge(ctx, start.Add(-cfg.Retention))
	if err != nil {
		slog.Error("history purge failed", "error", err)
	}

	slog.Debug("maintenance completed",
		"sessions_evicted", evicted,
		"sessions_live", s.store.Len(),
		"history_purged", purged,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
