package fanout

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

func newTestDispatcher(dir *fakeDirectory, sink *recordingSink) *Dispatcher {
	return NewDispatcher(
		NewAudienceResolver(dir),
		DefaultPolicy(),
		NewBatchWriter(sink, DefaultBatchLimit),
		NewComposer("/events"),
		zerolog.New(io.Discard),
	)
}

func lecturerEvent() *models.Event {
	e := baseEvent()
	e.CreatorID = "lecturer-1"
	e.Institution = "uni-a"
	e.Audience = models.DepartmentAudience("CS")
	return e
}

func TestDispatchCreatedNotifiesAudienceExceptCreator(t *testing.T) {
	cs := strPtr("CS")
	dir := &fakeDirectory{users: []models.User{
		student("s1", "uni-a", cs, nil),
		student("s2", "uni-a", cs, nil),
		student("lecturer-1", "uni-a", cs, nil),
		student("s3", "uni-a", strPtr("EE"), nil),
	}}
	sink := &recordingSink{}

	event := lecturerEvent()
	result := newTestDispatcher(dir, sink).Handle(context.Background(), &models.EventChange{
		Seq: 1, Op: models.ChangeCreated, EventID: event.ID, After: event,
	})

	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.Written != 2 || result.Recipients != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	for _, n := range sink.all() {
		if n.UserID == event.CreatorID {
			t.Fatalf("creator must not be notified")
		}
		if n.Type != models.NotificationEventCreated {
			t.Fatalf("unexpected type: %s", n.Type)
		}
		if n.EventID == nil || *n.EventID != event.ID || n.Link == nil || *n.Link != "/events/"+event.ID {
			t.Fatalf("created notification must carry event id and link: %+v", n)
		}
	}
	if result.CorrelationID == "" {
		t.Fatalf("expected correlation id")
	}
}

func TestDispatchUpdatedSkipsInsignificantChange(t *testing.T) {
	sink := &recordingSink{}
	before := lecturerEvent()
	before.Registrations = registrations("s1", "s2")
	after := lecturerEvent()
	after.Registrations = registrations("s1", "s2")
	after.Description = "New agenda"

	result := newTestDispatcher(&fakeDirectory{}, sink).Handle(context.Background(), &models.EventChange{
		Op: models.ChangeUpdated, EventID: after.ID, Before: before, After: after,
	})

	if result.Skipped != SkipInsignificant || result.Err != nil {
		t.Fatalf("expected insignificant skip, got %+v", result)
	}
	if sink.calls != 0 {
		t.Fatalf("no notification may be written, calls=%d", sink.calls)
	}
}

func TestDispatchUpdatedNotifiesRegistrants(t *testing.T) {
	sink := &recordingSink{}
	before := lecturerEvent()
	before.Registrations = registrations("s1", "s2", "s3", "lecturer-1")
	after := lecturerEvent()
	after.Registrations = registrations("s1", "s2", "s3", "lecturer-1")
	after.Location = "Room 101"

	result := newTestDispatcher(&fakeDirectory{}, sink).Handle(context.Background(), &models.EventChange{
		Op: models.ChangeUpdated, EventID: after.ID, Before: before, After: after,
	})

	if result.Err != nil || result.Written != 3 {
		t.Fatalf("expected 3 written, got %+v", result)
	}
	got := map[string]bool{}
	for _, n := range sink.all() {
		if n.Type != models.NotificationEventUpdated {
			t.Fatalf("unexpected type: %s", n.Type)
		}
		got[n.UserID] = true
	}
	if !got["s1"] || !got["s2"] || !got["s3"] || got["lecturer-1"] {
		t.Fatalf("unexpected recipients: %v", got)
	}
}

func TestDispatchDeletedNotifiesWithoutLink(t *testing.T) {
	sink := &recordingSink{}
	before := lecturerEvent()
	before.Registrations = registrations("s1", "s2")

	result := newTestDispatcher(&fakeDirectory{}, sink).Handle(context.Background(), &models.EventChange{
		Op: models.ChangeDeleted, EventID: before.ID, Before: before,
	})

	if result.Err != nil || result.Written != 2 {
		t.Fatalf("expected 2 written, got %+v", result)
	}
	for _, n := range sink.all() {
		if n.Type != models.NotificationEventCancelled {
			t.Fatalf("unexpected type: %s", n.Type)
		}
		if n.EventID != nil || n.Link != nil {
			t.Fatalf("cancellation must not carry event id or link: %+v", n)
		}
	}
}

func TestDispatchDeletedWithoutRegistrationsWritesNothing(t *testing.T) {
	sink := &recordingSink{}
	before := lecturerEvent()

	result := newTestDispatcher(&fakeDirectory{}, sink).Handle(context.Background(), &models.EventChange{
		Op: models.ChangeDeleted, EventID: before.ID, Before: before,
	})

	if result.Skipped != SkipNoRecipients || result.Err != nil {
		t.Fatalf("expected no-recipients skip, got %+v", result)
	}
	if sink.calls != 0 {
		t.Fatalf("expected no fan-out call, calls=%d", sink.calls)
	}
}

func TestDispatchRegisteredConfirmsToStudent(t *testing.T) {
	sink := &recordingSink{}
	after := lecturerEvent()
	after.Registrations = registrations("s9")

	result := newTestDispatcher(&fakeDirectory{}, sink).Handle(context.Background(), &models.EventChange{
		Op: models.ChangeRegistered, EventID: after.ID, After: after, StudentID: "s9",
	})

	records := sink.all()
	if result.Err != nil || len(records) != 1 {
		t.Fatalf("expected one confirmation, got %+v", result)
	}
	if records[0].UserID != "s9" || records[0].Type != models.NotificationRegistrationConfirmed {
		t.Fatalf("unexpected confirmation: %+v", records[0])
	}
}

func TestDispatchCapturesWriteFailure(t *testing.T) {
	sink := &recordingSink{failOn: 1}
	before := lecturerEvent()
	before.Registrations = registrations("s1")

	result := newTestDispatcher(&fakeDirectory{}, sink).Handle(context.Background(), &models.EventChange{
		Op: models.ChangeDeleted, EventID: before.ID, Before: before,
	})

	if !errors.Is(result.Err, errSinkDown) {
		t.Fatalf("expected captured sink error, got %v", result.Err)
	}
	if result.Written != 0 {
		t.Fatalf("nothing was committed, written=%d", result.Written)
	}
}

func TestDispatchRejectsMissingSnapshot(t *testing.T) {
	tests := []*models.EventChange{
		{Op: models.ChangeCreated, EventID: "e1"},
		{Op: models.ChangeUpdated, EventID: "e1", After: lecturerEvent()},
		{Op: models.ChangeDeleted, EventID: "e1"},
		{Op: models.ChangeRegistered, EventID: "e1", After: lecturerEvent()},
		{Op: "renamed", EventID: "e1"},
	}

	for _, change := range tests {
		t.Run(string(change.Op), func(t *testing.T) {
			result := newTestDispatcher(&fakeDirectory{}, &recordingSink{}).Handle(context.Background(), change)
			if !errors.Is(result.Err, apperrors.ErrInvalidArgument) {
				t.Fatalf("expected invalid argument, got %v", result.Err)
			}
		})
	}
}

func TestDispatchUsesTraceIDAsCorrelationID(t *testing.T) {
	tp, exporter := setupTestTracer(t)
	before := lecturerEvent()

	result := newTestDispatcher(&fakeDirectory{}, &recordingSink{}).Handle(context.Background(), &models.EventChange{
		Op: models.ChangeDeleted, EventID: before.ID, Before: before,
	})
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 || spans[0].Name != "fanout.dispatch" {
		t.Fatalf("expected one dispatch span, got %d", len(spans))
	}
	if got := spans[0].SpanContext.TraceID().String(); got != result.CorrelationID {
		t.Fatalf("correlation id %s does not match trace id %s", result.CorrelationID, got)
	}
}
