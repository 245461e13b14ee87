package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/eventhub/internal/app/fanout"
	"github.com/yigit/eventhub/internal/app/models"
)

// ChangeSource hands out committed event changes
type ChangeSource interface {
	Claim(ctx context.Context, limit int, lease time.Duration) ([]*models.EventChange, error)
	Ack(ctx context.Context, seqs ...int64) error
}

// ChangeHandler reacts to one change. Failures are reported in the result, never returned.
type ChangeHandler interface {
	Handle(ctx context.Context, change *models.EventChange) fanout.Result
}

// ConsumerConfig tunes the polling loop
type ConsumerConfig struct {
	PollInterval time.Duration
	ClaimBatch   int
	LeaseTimeout time.Duration
}

// Consumer feeds committed event changes to the dispatcher.
// A change is acked after its dispatch returns, whatever the outcome, so a
// crash between the two redelivers it.
type Consumer struct {
	source  ChangeSource
	handler ChangeHandler
	config  ConsumerConfig
	logger  zerolog.Logger
}

// NewConsumer creates a change consumer
func NewConsumer(source ChangeSource, handler ChangeHandler, config ConsumerConfig, logger zerolog.Logger) *Consumer {
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.ClaimBatch <= 0 {
		config.ClaimBatch = 20
	}
	if config.LeaseTimeout <= 0 {
		config.LeaseTimeout = 2 * time.Minute
	}
	return &Consumer{
		source:  source,
		handler: handler,
		config:  config,
		logger:  logger,
	}
}

// Run drains the outbox every poll interval until ctx is cancelled
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().
		Dur("pollInterval", c.config.PollInterval).
		Int("claimBatch", c.config.ClaimBatch).
		Msg("Change consumer started")

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := c.Drain(ctx); err != nil && ctx.Err() == nil {
			c.logger.Error().Err(err).Msg("Failed to drain event changes")
		}

		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Change consumer stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Drain processes claimed changes until none are pending and returns how many were handled
func (c *Consumer) Drain(ctx context.Context) (int, error) {
	handled := 0
	for {
		if ctx.Err() != nil {
			return handled, ctx.Err()
		}

		changes, err := c.source.Claim(ctx, c.config.ClaimBatch, c.config.LeaseTimeout)
		if err != nil {
			return handled, err
		}
		if len(changes) == 0 {
			return handled, nil
		}

		for _, change := range changes {
			result := c.handler.Handle(ctx, change)
			result.Log(c.logger)
			if change.Attempts > 1 {
				c.logger.Warn().Int64("seq", change.Seq).Int("attempts", change.Attempts).Msg("Change redelivered")
			}

			if err := c.source.Ack(ctx, change.Seq); err != nil {
				return handled, err
			}
			handled++
		}
	}
}
