package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yigit/eventhub/internal/app/models"
)

// DefaultReminderWindow is how far ahead the sweep looks
const DefaultReminderWindow = 24 * time.Hour

// UpcomingEvents lists events, with their registrations, scheduled in [from, to]
type UpcomingEvents interface {
	ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*models.Event, error)
}

// SweepResult summarizes one reminder sweep
type SweepResult struct {
	CorrelationID string
	From          time.Time
	To            time.Time
	Events        int
	Recipients    int
	Written       int
}

// ReminderSweep sends EventReminder notifications to the registrants of
// events starting within the window. Runs keep no history, so overlapping
// windows remind the same registrant again.
type ReminderSweep struct {
	events   UpcomingEvents
	writer   *BatchWriter
	composer Composer
	window   time.Duration
	logger   zerolog.Logger
}

// NewReminderSweep wires a sweep; a non-positive window selects DefaultReminderWindow
func NewReminderSweep(events UpcomingEvents, writer *BatchWriter, composer Composer, window time.Duration, logger zerolog.Logger) *ReminderSweep {
	if window <= 0 {
		window = DefaultReminderWindow
	}
	return &ReminderSweep{
		events:   events,
		writer:   writer,
		composer: composer,
		window:   window,
		logger:   logger,
	}
}

// Run reminds registrants of every event scheduled in [now, now+window].
// Drafts for all events are collected first and written through the chunked writer.
func (s *ReminderSweep) Run(ctx context.Context, now time.Time) (SweepResult, error) {
	ctx, span := tracer().Start(ctx, "fanout.reminder_sweep")
	defer span.End()

	result := SweepResult{
		CorrelationID: correlationID(span),
		From:          now,
		To:            now.Add(s.window),
	}
	span.SetAttributes(
		attribute.String("sweep.from", result.From.UTC().Format(time.RFC3339)),
		attribute.String("sweep.to", result.To.UTC().Format(time.RFC3339)),
	)

	events, err := s.events.ListScheduledBetween(ctx, result.From, result.To)
	if err != nil {
		return result, s.fail(span, fmt.Errorf("failed to list upcoming events: %w", err))
	}
	result.Events = len(events)

	var drafts []Draft
	for _, event := range events {
		draft := s.composer.EventReminder(event)
		for _, studentID := range event.Registrations.StudentIDs() {
			d := draft
			d.UserID = studentID
			drafts = append(drafts, d)
		}
		s.logger.Debug().Str("eventId", event.ID).Int("registrants", event.Registrations.Len()).Msg("Queued reminders")
	}
	result.Recipients = len(drafts)

	written, err := s.writer.Write(ctx, drafts)
	result.Written = written
	span.SetAttributes(
		attribute.Int("sweep.events", result.Events),
		attribute.Int("sweep.written", written),
	)
	if err != nil {
		return result, s.fail(span, err)
	}
	return result, nil
}

func (s *ReminderSweep) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "reminder sweep failed")
	return err
}

// Log emits the sweep outcome
func (r SweepResult) Log(logger zerolog.Logger, err error) {
	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.
		Str("correlationId", r.CorrelationID).
		Time("from", r.From).
		Time("to", r.To).
		Int("events", r.Events).
		Int("recipients", r.Recipients).
		Int("written", r.Written).
		Msg("Reminder sweep finished")
}
