package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/eventhub/internal/app/fanout"
)

// Sweeper runs one reminder sweep
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (fanout.SweepResult, error)
}

// NotificationPurger removes notifications created before a cutoff
type NotificationPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ChangePurger removes processed outbox rows older than a cutoff
type ChangePurger interface {
	PurgeProcessed(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReminderJob runs the reminder sweep and logs its summary
func ReminderJob(sweep Sweeper, logger zerolog.Logger) Job {
	return func(ctx context.Context, now time.Time) error {
		result, err := sweep.Run(ctx, now)
		result.Log(logger, err)
		return err
	}
}

// RetentionJob deletes notifications and processed changes older than retention.
// A non-positive retention keeps everything.
func RetentionJob(notifications NotificationPurger, changes ChangePurger, retention time.Duration, logger zerolog.Logger) Job {
	return func(ctx context.Context, now time.Time) error {
		if retention <= 0 {
			logger.Debug().Msg("Retention disabled, nothing purged")
			return nil
		}
		cutoff := now.Add(-retention)

		removed, err := notifications.PurgeOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		purged, err := changes.PurgeProcessed(ctx, cutoff)
		if err != nil {
			return err
		}

		logger.Info().
			Time("cutoff", cutoff).
			Int64("notifications", removed).
			Int64("changes", purged).
			Msg("Retention purge finished")
		return nil
	}
}
