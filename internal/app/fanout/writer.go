package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yigit/eventhub/internal/app/models"
)

// DefaultBatchLimit is the largest number of notifications committed in one write
const DefaultBatchLimit = 500

const tracerName = "github.com/yigit/eventhub/internal/app/fanout"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Draft is the content of one notification before it is persisted
type Draft struct {
	UserID  string
	Type    models.NotificationType
	Message string
	EventID *string
	Link    *string
}

// NotificationSink persists a set of notifications atomically: either every
// record of the call is committed or none is.
type NotificationSink interface {
	InsertBatch(ctx context.Context, notifications []models.Notification) error
}

// BatchWriter turns drafts into notification records and commits them in
// sequential chunks of at most limit records.
type BatchWriter struct {
	sink  NotificationSink
	limit int
	now   func() time.Time
	newID func() string
}

// NewBatchWriter creates a writer. A limit outside [1, DefaultBatchLimit] selects DefaultBatchLimit.
func NewBatchWriter(sink NotificationSink, limit int) *BatchWriter {
	if limit <= 0 || limit > DefaultBatchLimit {
		limit = DefaultBatchLimit
	}
	return &BatchWriter{
		sink:  sink,
		limit: limit,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// FanOut writes one notification per distinct recipient, built by factory.
// It returns the number of notifications committed.
func (w *BatchWriter) FanOut(ctx context.Context, recipients []string, factory func(userID string) Draft) (int, error) {
	recipients = uniqueIDs(recipients)
	drafts := make([]Draft, 0, len(recipients))
	for _, userID := range recipients {
		draft := factory(userID)
		draft.UserID = userID
		drafts = append(drafts, draft)
	}
	return w.Write(ctx, drafts)
}

// Write commits drafts in chunks. Chunks run one after another; when a chunk
// fails the writer stops and returns the count committed by earlier chunks.
// Empty input performs no write.
func (w *BatchWriter) Write(ctx context.Context, drafts []Draft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}

	chunks := (len(drafts) + w.limit - 1) / w.limit
	written := 0
	for i := 0; i < chunks; i++ {
		start := i * w.limit
		end := min(start+w.limit, len(drafts))

		if err := w.writeChunk(ctx, i, drafts[start:end]); err != nil {
			return written, fmt.Errorf("notification chunk %d/%d failed after %d written: %w", i+1, chunks, written, err)
		}
		written += end - start
	}
	return written, nil
}

func (w *BatchWriter) writeChunk(ctx context.Context, index int, drafts []Draft) error {
	ctx, span := tracer().Start(ctx, "fanout.write_chunk", trace.WithAttributes(
		attribute.Int("chunk.index", index),
		attribute.Int("chunk.size", len(drafts)),
	))
	defer span.End()

	createdAt := w.now().UTC()
	records := make([]models.Notification, 0, len(drafts))
	for _, d := range drafts {
		records = append(records, models.Notification{
			ID:        w.newID(),
			UserID:    d.UserID,
			Type:      d.Type,
			Message:   d.Message,
			EventID:   d.EventID,
			Link:      d.Link,
			IsRead:    false,
			CreatedAt: createdAt,
		})
	}

	if err := w.sink.InsertBatch(ctx, records); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert batch failed")
		return err
	}
	return nil
}
