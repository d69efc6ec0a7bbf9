// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/dalemusser/catalog/internal/app/catalog/postponement"
	"github.com/dalemusser/catalog/internal/app/store/clipboard"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	"go.uber.org/zap"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// YearPostponementJob creates a job that extends every training and
// mini-training to the furthest academic year. Runs are idempotent, so a
// missed tick is caught up by the next one.
func YearPostponementJob(runner *postponement.Runner, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "year-postponement",
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := runner.Run(ctx, egystore.Filter{})
			if err != nil {
				return err
			}
			if len(res.Created) > 0 || len(res.Errors) > 0 {
				logger.Info("scheduled year postponement",
					zap.String("run_id", res.RunID),
					zap.String("result", res.Message()))
			}
			return nil
		},
	}
}

// ClipboardCleanupJob creates a job that removes expired clipboard entries.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func ClipboardCleanupJob(clip *clipboard.Store, logger *zap.Logger) Job {
	return Job{
		Name:     "clipboard-cleanup",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := clip.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired clipboards", zap.Int64("count", count))
			}
			return nil
		},
	}
}
