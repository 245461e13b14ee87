package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled unit of work
type Job func(ctx context.Context, now time.Time) error

// Scheduler runs jobs on cron schedules. A job still running when its next
// tick fires is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	ctx    context.Context
	now    func() time.Time
}

// cronLogger adapts zerolog to the cron.Logger interface
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// NewScheduler creates a scheduler evaluating schedules in UTC
func NewScheduler(logger zerolog.Logger) *Scheduler {
	adapter := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		logger: logger,
		ctx:    context.Background(),
		now:    time.Now,
	}
}

// Add registers job under a standard five-field cron spec
func (s *Scheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := s.now()
		if err := job(s.ctx, start.UTC()); err != nil {
			s.logger.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
			return
		}
		s.logger.Info().Str("job", name).Dur("duration", time.Since(start)).Msg("Scheduled job finished")
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	s.logger.Info().Str("job", name).Str("schedule", spec).Msg("Job scheduled")
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then waits for running jobs
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	<-ctx.Done()

	s.logger.Info().Msg("Stopping scheduler...")
	<-s.cron.Stop().Done()
	return nil
}
