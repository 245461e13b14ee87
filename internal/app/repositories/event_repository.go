package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/db"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/dberrors"
)

var eventColumns = []string{
	"id", "title", "description", "scheduled_at", "location", "creator_id", "creator_name",
	"institution", "audience_kind", "audience_value", "created_at", "updated_at",
}

// EventGuard inspects the locked event before a mutation proceeds.
// Returning an error aborts the transaction.
type EventGuard func(event *models.Event) error

// EventRepository handles database operations for events, their registrations and feedback.
// Every create, update, delete and registration also records an event change in the same transaction.
type EventRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db, now: time.Now}
}

// Create inserts a new event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := psql.Insert("events").
			Columns(eventColumns...).
			Values(
				event.ID, event.Title, event.Description, event.ScheduledAt, event.Location,
				event.CreatorID, event.CreatorName, event.Institution,
				string(event.Audience.Kind()), event.Audience.Value(),
				event.CreatedAt, event.UpdatedAt,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error inserting event: %w", err)
		}

		return appendChange(ctx, tx, &models.EventChange{
			Op:      models.ChangeCreated,
			EventID: event.ID,
			After:   event,
		})
	})
}

// FindByID retrieves an event with its registrations and feedback
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return r.load(ctx, r.db, id, false)
}

// Update applies mutate to the locked event and persists the scalar fields.
// mutate must not touch registrations or feedback.
func (r *EventRepository) Update(ctx context.Context, id string, mutate EventGuard) (*models.Event, error) {
	var updated *models.Event
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		before, err := r.load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		after := *before
		if err := mutate(&after); err != nil {
			return err
		}
		after.UpdatedAt = r.now().UTC()

		sql, args, err := psql.Update("events").
			Set("title", after.Title).
			Set("description", after.Description).
			Set("scheduled_at", after.ScheduledAt).
			Set("location", after.Location).
			Set("audience_kind", string(after.Audience.Kind())).
			Set("audience_value", after.Audience.Value()).
			Set("updated_at", after.UpdatedAt).
			Where(squirrel.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error updating event: %w", err)
		}

		if err := appendChange(ctx, tx, &models.EventChange{
			Op:      models.ChangeUpdated,
			EventID: id,
			Before:  before,
			After:   &after,
		}); err != nil {
			return err
		}
		updated = &after
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the event once guard accepts it and returns the deleted snapshot
func (r *EventRepository) Delete(ctx context.Context, id string, guard EventGuard) (*models.Event, error) {
	var deleted *models.Event
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		event, err := r.load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(event); err != nil {
				return err
			}
		}

		sql, args, err := psql.Delete("events").Where(squirrel.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error deleting event: %w", err)
		}

		if err := appendChange(ctx, tx, &models.EventChange{
			Op:      models.ChangeDeleted,
			EventID: id,
			Before:  event,
		}); err != nil {
			return err
		}
		deleted = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// AddRegistration signs a student up for an event.
// A student can hold at most one registration per event.
func (r *EventRepository) AddRegistration(ctx context.Context, eventID string, registration models.Registration, guard EventGuard) (*models.Event, error) {
	var registered *models.Event
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		event, err := r.load(ctx, tx, eventID, true)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(event); err != nil {
				return err
			}
		}
		if err := event.Registrations.Add(registration); err != nil {
			return err
		}

		sql, args, err := psql.Insert("event_registrations").
			Columns("event_id", "student_id", "student_name", "student_email", "registered_at").
			Values(eventID, registration.StudentID, registration.StudentName, registration.StudentEmail, registration.RegisteredAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			if dberrors.IsDuplicateConstraintError(err, "event_registrations_pkey") {
				return apperrors.NewAlreadyExistsError("student is already registered for this event")
			}
			return fmt.Errorf("error inserting registration: %w", err)
		}

		if err := appendChange(ctx, tx, &models.EventChange{
			Op:        models.ChangeRegistered,
			EventID:   eventID,
			After:     event,
			StudentID: registration.StudentID,
		}); err != nil {
			return err
		}
		registered = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return registered, nil
}

// RemoveRegistration cancels a student's registration
func (r *EventRepository) RemoveRegistration(ctx context.Context, eventID, studentID string) error {
	sql, args, err := psql.Delete("event_registrations").
		Where(squirrel.Eq{"event_id": eventID, "student_id": studentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("student is not registered for this event")
	}
	return nil
}

// AddFeedback stores a student's rating. A student can rate an event once.
func (r *EventRepository) AddFeedback(ctx context.Context, eventID string, feedback models.Feedback, guard EventGuard) (*models.Event, error) {
	var rated *models.Event
	err := db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		event, err := r.load(ctx, tx, eventID, true)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(event); err != nil {
				return err
			}
		}
		if err := event.Feedback.Add(feedback); err != nil {
			return err
		}

		sql, args, err := psql.Insert("event_feedback").
			Columns("event_id", "student_id", "student_name", "rating", "comment", "submitted_at").
			Values(eventID, feedback.StudentID, feedback.StudentName, feedback.Rating, feedback.Comment, feedback.SubmittedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			if dberrors.IsDuplicateConstraintError(err, "event_feedback_pkey") {
				return apperrors.NewAlreadyExistsError("feedback already submitted for this event")
			}
			return fmt.Errorf("error inserting feedback: %w", err)
		}
		rated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rated, nil
}

// ListByInstitution returns a page of an institution's events scheduled at or after from
func (r *EventRepository) ListByInstitution(ctx context.Context, institution string, from time.Time, limit, offset uint64) ([]*models.Event, int64, error) {
	where := squirrel.And{
		squirrel.Eq{"institution": institution},
		squirrel.GtOrEq{"scheduled_at": from},
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("events").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}

	sql, args, err := psql.Select(eventColumns...).
		From("events").
		Where(where).
		OrderBy("scheduled_at", "id").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	events, err := r.queryEvents(ctx, r.db, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachRegistrations(ctx, r.db, events); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListScheduledBetween returns every event scheduled in [from, to] with its registrations
func (r *EventRepository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]*models.Event, error) {
	sql, args, err := psql.Select(eventColumns...).
		From("events").
		Where(squirrel.GtOrEq{"scheduled_at": from}).
		Where(squirrel.LtOrEq{"scheduled_at": to}).
		OrderBy("scheduled_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	events, err := r.queryEvents(ctx, r.db, sql, args...)
	if err != nil {
		return nil, err
	}
	if err := r.attachRegistrations(ctx, r.db, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventRepository) load(ctx context.Context, q querier, id string, forUpdate bool) (*models.Event, error) {
	query := psql.Select(eventColumns...).From("events").Where(squirrel.Eq{"id": id})
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	event, err := scanEvent(q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("event not found")
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}

	events := []*models.Event{event}
	if err := r.attachRegistrations(ctx, q, events); err != nil {
		return nil, err
	}
	if err := r.attachFeedback(ctx, q, events); err != nil {
		return nil, err
	}
	return event, nil
}

func (r *EventRepository) queryEvents(ctx context.Context, q querier, sql string, args ...any) ([]*models.Event, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return events, nil
}

func (r *EventRepository) attachRegistrations(ctx context.Context, q querier, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	byID, ids := indexEvents(events)

	sql, args, err := psql.Select("event_id", "student_id", "student_name", "student_email", "registered_at").
		From("event_registrations").
		Where(squirrel.Eq{"event_id": ids}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]models.Registration, len(events))
	for rows.Next() {
		var eventID string
		var reg models.Registration
		if err := rows.Scan(&eventID, &reg.StudentID, &reg.StudentName, &reg.StudentEmail, &reg.RegisteredAt); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		grouped[eventID] = append(grouped[eventID], reg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	for id, event := range byID {
		event.Registrations = models.NewRegistrationList(grouped[id]...)
	}
	return nil
}

func (r *EventRepository) attachFeedback(ctx context.Context, q querier, events []*models.Event) error {
	if len(events) == 0 {
		return nil
	}
	byID, ids := indexEvents(events)

	sql, args, err := psql.Select("event_id", "student_id", "student_name", "rating", "comment", "submitted_at").
		From("event_feedback").
		Where(squirrel.Eq{"event_id": ids}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]models.Feedback, len(events))
	for rows.Next() {
		var eventID string
		var fb models.Feedback
		var rating int16
		if err := rows.Scan(&eventID, &fb.StudentID, &fb.StudentName, &rating, &fb.Comment, &fb.SubmittedAt); err != nil {
			return fmt.Errorf("error scanning row: %w", err)
		}
		fb.Rating = int(rating)
		grouped[eventID] = append(grouped[eventID], fb)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	for id, event := range byID {
		event.Feedback = models.NewFeedbackList(grouped[id]...)
	}
	return nil
}

func indexEvents(events []*models.Event) (map[string]*models.Event, []string) {
	byID := make(map[string]*models.Event, len(events))
	ids := make([]string, 0, len(events))
	for _, e := range events {
		byID[e.ID] = e
		ids = append(ids, e.ID)
	}
	return byID, ids
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var event models.Event
	var kind, value string
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.ScheduledAt,
		&event.Location,
		&event.CreatorID,
		&event.CreatorName,
		&event.Institution,
		&kind,
		&value,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	audience, err := models.ParseTargetAudience(kind, value)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", event.ID, err)
	}
	event.Audience = audience
	return &event, nil
}
