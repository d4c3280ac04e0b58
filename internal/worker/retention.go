package worker

import (
	"context"
	"time"

	"github.com/skybox-io/skybox/internal/pkg"
	"github.com/skybox-io/skybox/internal/services"
)

// RetentionWorker drives the scheduled trash sweep. The sweep itself lives
// in the node service; the worker only supplies the time-driven trigger,
// either a one-shot run (cron invocation) or an in-process ticker.
type RetentionWorker struct {
	nodes  *services.NodeService
	logger *pkg.Logger
}

// SweepStats tracks a single sweep run
type SweepStats struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  string    `json:"duration"`
	Failed    bool      `json:"failed"`
}

// NewRetentionWorker creates a new retention worker
func NewRetentionWorker(nodes *services.NodeService, logger *pkg.Logger) *RetentionWorker {
	return &RetentionWorker{
		nodes:  nodes,
		logger: logger,
	}
}

// RunOnce executes a single sweep
func (w *RetentionWorker) RunOnce(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{StartTime: time.Now()}

	w.logger.Info("starting retention sweep")

	err := w.nodes.RunRetentionSweep(ctx)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime).String()
	stats.Failed = err != nil

	if err != nil {
		w.logger.Error("retention sweep failed", map[string]interface{}{
			"duration": stats.Duration,
			"error":    err.Error(),
		})
		return stats, err
	}

	w.logger.Info("retention sweep completed", map[string]interface{}{
		"duration": stats.Duration,
	})
	return stats, nil
}

// Start runs the sweep on a fixed interval until the context is cancelled.
// A single failing run is logged and the next tick proceeds normally.
func (w *RetentionWorker) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	w.logger.Info("retention worker started", map[string]interface{}{
		"interval": interval.String(),
	})

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retention worker stopped")
			return
		case <-ticker.C:
			// RunOnce already logs failures; nothing else to do here.
			w.RunOnce(ctx)
		}
	}
}
