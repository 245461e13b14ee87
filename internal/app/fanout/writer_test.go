package fanout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/yigit/eventhub/internal/app/models"
)

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("shutdown tracer provider: %v", err)
		}
		otel.SetTracerProvider(prev)
	})
	return tp, exporter
}

func recipientIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%04d", i)
	}
	return ids
}

func reminderFactory(userID string) Draft {
	return Draft{Type: models.NotificationEventReminder, Message: "hello " + userID}
}

func TestBatchWriterEmptyInputPerformsNoWrite(t *testing.T) {
	sink := &recordingSink{}
	writer := NewBatchWriter(sink, 500)

	written, err := writer.FanOut(context.Background(), nil, reminderFactory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 0 || sink.calls != 0 {
		t.Fatalf("expected no writes, got written=%d calls=%d", written, sink.calls)
	}
}

func TestBatchWriterChunksLargeFanOut(t *testing.T) {
	sink := &recordingSink{}
	writer := NewBatchWriter(sink, 500)

	written, err := writer.FanOut(context.Background(), recipientIDs(1200), reminderFactory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 1200 {
		t.Fatalf("expected 1200 written, got %d", written)
	}
	if len(sink.batches) != 3 {
		t.Fatalf("expected 3 commits, got %d", len(sink.batches))
	}
	for i, want := range []int{500, 500, 200} {
		if got := len(sink.batches[i]); got != want {
			t.Fatalf("chunk %d: expected %d records, got %d", i, want, got)
		}
	}
}

func TestBatchWriterClampsOversizedLimit(t *testing.T) {
	sink := &recordingSink{}
	writer := NewBatchWriter(sink, 10000)

	written, err := writer.FanOut(context.Background(), recipientIDs(1200), reminderFactory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 1200 || len(sink.batches) != 3 {
		t.Fatalf("expected 1200 records in 3 commits, got %d in %d", written, len(sink.batches))
	}
	for i, batch := range sink.batches {
		if len(batch) > DefaultBatchLimit {
			t.Fatalf("chunk %d holds %d records, above %d", i, len(batch), DefaultBatchLimit)
		}
	}
}

func TestBatchWriterStopsAfterFailedChunk(t *testing.T) {
	sink := &recordingSink{failOn: 2}
	writer := NewBatchWriter(sink, 500)

	written, err := writer.FanOut(context.Background(), recipientIDs(1200), reminderFactory)
	if !errors.Is(err, errSinkDown) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if written != 500 {
		t.Fatalf("expected first chunk to count, got %d", written)
	}
	if sink.calls != 2 {
		t.Fatalf("third chunk must never be attempted, calls=%d", sink.calls)
	}
	if got := len(sink.all()); got != 500 {
		t.Fatalf("expected 500 committed records, got %d", got)
	}
}

func TestBatchWriterBuildsRecords(t *testing.T) {
	sink := &recordingSink{}
	writer := NewBatchWriter(sink, 10)
	frozen := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	writer.now = fixedClock(frozen)

	written, err := writer.FanOut(context.Background(), []string{"a", "b", "a", ""}, reminderFactory)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if written != 2 {
		t.Fatalf("duplicates and blanks must be dropped, written=%d", written)
	}

	seen := map[string]bool{}
	for _, n := range sink.all() {
		if n.ID == "" || seen[n.ID] {
			t.Fatalf("expected unique generated id, got %q", n.ID)
		}
		seen[n.ID] = true
		if n.IsRead {
			t.Fatalf("new notifications must be unread")
		}
		if !n.CreatedAt.Equal(frozen) {
			t.Fatalf("unexpected createdAt: %v", n.CreatedAt)
		}
		if n.Message != "hello "+n.UserID {
			t.Fatalf("factory not applied per recipient: %+v", n)
		}
	}
}

func TestBatchWriterTracesEachChunk(t *testing.T) {
	tp, exporter := setupTestTracer(t)
	writer := NewBatchWriter(&recordingSink{}, 2)

	if _, err := writer.FanOut(context.Background(), recipientIDs(5), reminderFactory); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 chunk spans, got %d", len(spans))
	}
	last := spans[2]
	if last.Name != "fanout.write_chunk" {
		t.Fatalf("unexpected span name: %s", last.Name)
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range last.Attributes {
		attrs[kv.Key] = kv.Value
	}
	if attrs["chunk.index"].AsInt64() != 2 || attrs["chunk.size"].AsInt64() != 1 {
		t.Fatalf("unexpected chunk attributes: %v", last.Attributes)
	}
}
