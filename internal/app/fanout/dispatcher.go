package fanout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

// Reasons a dispatch wrote nothing without failing
const (
	SkipInsignificant = "insignificant-change"
	SkipNoRecipients  = "no-recipients"
)

// Result is the outcome of one dispatch. It is never returned to the code
// that mutated the event; the consumer logs it and drops it.
type Result struct {
	CorrelationID string
	Seq           int64
	Op            models.ChangeOp
	EventID       string
	Recipients    int
	Written       int
	Skipped       string
	Err           error
	Duration      time.Duration
}

// Log emits the result at a level matching its outcome
func (r Result) Log(logger zerolog.Logger) {
	event := logger.Info()
	if r.Err != nil {
		event = logger.Error().Err(r.Err)
	}
	event.
		Str("correlationId", r.CorrelationID).
		Int64("seq", r.Seq).
		Str("op", string(r.Op)).
		Str("eventId", r.EventID).
		Int("recipients", r.Recipients).
		Int("written", r.Written).
		Str("skipped", r.Skipped).
		Dur("duration", r.Duration).
		Msg("Event change dispatched")
}

// Dispatcher routes committed event changes to the fan-out engine
type Dispatcher struct {
	resolver *AudienceResolver
	policy   Policy
	writer   *BatchWriter
	composer Composer
	logger   zerolog.Logger
}

// NewDispatcher wires a dispatcher
func NewDispatcher(resolver *AudienceResolver, policy Policy, writer *BatchWriter, composer Composer, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		policy:   policy,
		writer:   writer,
		composer: composer,
		logger:   logger,
	}
}

// Handle processes one change. Every failure is captured in the Result.
func (d *Dispatcher) Handle(ctx context.Context, change *models.EventChange) Result {
	started := time.Now()
	ctx, span := tracer().Start(ctx, "fanout.dispatch", trace.WithAttributes(
		attribute.Int64("change.seq", change.Seq),
		attribute.String("change.op", string(change.Op)),
		attribute.String("event.id", change.EventID),
	))
	defer span.End()

	result := Result{
		CorrelationID: correlationID(span),
		Seq:           change.Seq,
		Op:            change.Op,
		EventID:       change.EventID,
	}

	switch change.Op {
	case models.ChangeCreated:
		d.onCreated(ctx, change, &result)
	case models.ChangeUpdated:
		d.onUpdated(ctx, change, &result)
	case models.ChangeDeleted:
		d.onDeleted(ctx, change, &result)
	case models.ChangeRegistered:
		d.onRegistered(ctx, change, &result)
	default:
		result.Err = apperrors.NewInvalidArgumentError("unknown change op: " + string(change.Op))
	}

	span.SetAttributes(
		attribute.Int("fanout.recipients", result.Recipients),
		attribute.Int("fanout.written", result.Written),
	)
	if result.Err != nil {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, "dispatch failed")
	}
	result.Duration = time.Since(started)
	return result
}

func (d *Dispatcher) onCreated(ctx context.Context, change *models.EventChange, result *Result) {
	event := change.After
	if event == nil {
		result.Err = apperrors.NewInvalidArgumentError("created change without event snapshot")
		return
	}

	audience, err := d.resolver.Resolve(ctx, event.Institution, event.Audience)
	if err != nil {
		result.Err = err
		return
	}
	draft := d.composer.EventCreated(event)
	d.fanOut(ctx, without(audience, event.CreatorID), draft, result)
}

func (d *Dispatcher) onUpdated(ctx context.Context, change *models.EventChange, result *Result) {
	if change.Before == nil || change.After == nil {
		result.Err = apperrors.NewInvalidArgumentError("updated change without both snapshots")
		return
	}

	changed := d.policy.Changed(change.Before, change.After)
	if len(changed) == 0 {
		result.Skipped = SkipInsignificant
		return
	}
	d.logger.Debug().Str("eventId", change.EventID).Interface("fields", changed).Msg("Significant event change")

	event := change.After
	draft := d.composer.EventUpdated(event)
	d.fanOut(ctx, without(event.Registrations.StudentIDs(), event.CreatorID), draft, result)
}

func (d *Dispatcher) onDeleted(ctx context.Context, change *models.EventChange, result *Result) {
	event := change.Before
	if event == nil {
		result.Err = apperrors.NewInvalidArgumentError("deleted change without event snapshot")
		return
	}

	draft := d.composer.EventCancelled(event)
	d.fanOut(ctx, without(event.Registrations.StudentIDs(), event.CreatorID), draft, result)
}

func (d *Dispatcher) onRegistered(ctx context.Context, change *models.EventChange, result *Result) {
	event := change.After
	if event == nil || change.StudentID == "" {
		result.Err = apperrors.NewInvalidArgumentError("registered change without event snapshot or student")
		return
	}

	draft := d.composer.RegistrationConfirmed(event)
	d.fanOut(ctx, []string{change.StudentID}, draft, result)
}

func (d *Dispatcher) fanOut(ctx context.Context, recipients []string, draft Draft, result *Result) {
	result.Recipients = len(recipients)
	if len(recipients) == 0 {
		result.Skipped = SkipNoRecipients
		return
	}

	written, err := d.writer.FanOut(ctx, recipients, func(string) Draft { return draft })
	result.Written = written
	result.Err = err
}

// correlationID prefers the span's trace id so logs and traces join up
func correlationID(span trace.Span) string {
	if sc := span.SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.New().String()
}
