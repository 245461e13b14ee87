package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	authz "github.com/yigit/eventhub/internal/app/auth"
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/app/repositories"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/helpers"
)

// EventStore is the persistence the event service needs
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Update(ctx context.Context, id string, mutate repositories.EventGuard) (*models.Event, error)
	Delete(ctx context.Context, id string, guard repositories.EventGuard) (*models.Event, error)
	AddRegistration(ctx context.Context, eventID string, registration models.Registration, guard repositories.EventGuard) (*models.Event, error)
	RemoveRegistration(ctx context.Context, eventID, studentID string) error
	AddFeedback(ctx context.Context, eventID string, feedback models.Feedback, guard repositories.EventGuard) (*models.Event, error)
	ListByInstitution(ctx context.Context, institution string, from time.Time, limit, offset uint64) ([]*models.Event, int64, error)
}

// EventService defines event lifecycle and registration operations.
// Notifications are not sent from here; every committed mutation is picked up by the change worker.
type EventService interface {
	CreateEvent(ctx context.Context, caller *models.Caller, req *dto.CreateEventRequest) (*models.Event, error)
	GetEvent(ctx context.Context, caller *models.Caller, id string) (*models.Event, error)
	ListEvents(ctx context.Context, caller *models.Caller, page helpers.Page) ([]*models.Event, int64, error)
	UpdateEvent(ctx context.Context, caller *models.Caller, id string, req *dto.UpdateEventRequest) (*models.Event, error)
	DeleteEvent(ctx context.Context, caller *models.Caller, id string) error
	Register(ctx context.Context, caller *models.Caller, eventID string) (*models.Event, error)
	Unregister(ctx context.Context, caller *models.Caller, eventID string) error
	SubmitFeedback(ctx context.Context, caller *models.Caller, eventID string, req *dto.FeedbackRequest) (*models.Event, error)
}

// eventServiceImpl implements EventService
type eventServiceImpl struct {
	eventRepo EventStore
	userRepo  UserStore
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(eventRepo EventStore, userRepo UserStore, logger zerolog.Logger) EventService {
	return &eventServiceImpl{
		eventRepo: eventRepo,
		userRepo:  userRepo,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateEvent stores a new event owned by the calling lecturer or admin
func (s *eventServiceImpl) CreateEvent(ctx context.Context, caller *models.Caller, req *dto.CreateEventRequest) (*models.Event, error) {
	if err := authz.RequireRole(caller, models.RoleLecturer, models.RoleAdmin); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.NewInvalidArgumentError("title is required")
	}
	if req.ScheduledAt.IsZero() {
		return nil, apperrors.NewInvalidArgumentError("scheduledAt is required")
	}
	audience, err := models.ParseTargetAudience(req.Audience.Type, req.Audience.Value)
	if err != nil {
		return nil, err
	}

	creator, err := s.userRepo.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := &models.Event{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		ScheduledAt: req.ScheduledAt.UTC().Truncate(time.Microsecond),
		Location:    strings.TrimSpace(req.Location),
		CreatorID:   caller.UserID,
		CreatorName: creator.DisplayName,
		Institution: caller.Institution,
		Audience:    audience,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("eventID", event.ID).
		Str("audience", event.Audience.String()).
		Str("creatorID", event.CreatorID).
		Msg("Event created")
	return event, nil
}

// GetEvent returns an event of the caller's institution
func (s *eventServiceImpl) GetEvent(ctx context.Context, caller *models.Caller, id string) (*models.Event, error) {
	if err := authz.RequireCaller(caller); err != nil {
		return nil, err
	}
	event, err := s.eventRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireInstitution(caller, event.Institution); err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns the upcoming events of the caller's institution
func (s *eventServiceImpl) ListEvents(ctx context.Context, caller *models.Caller, page helpers.Page) ([]*models.Event, int64, error) {
	if err := authz.RequireCaller(caller); err != nil {
		return nil, 0, err
	}
	return s.eventRepo.ListByInstitution(ctx, caller.Institution, s.now().UTC(), page.Limit(), page.Offset())
}

// UpdateEvent changes the editable fields of an event
func (s *eventServiceImpl) UpdateEvent(ctx context.Context, caller *models.Caller, id string, req *dto.UpdateEventRequest) (*models.Event, error) {
	if err := authz.RequireCaller(caller); err != nil {
		return nil, err
	}

	var audience *models.TargetAudience
	if req.Audience != nil {
		parsed, err := models.ParseTargetAudience(req.Audience.Type, req.Audience.Value)
		if err != nil {
			return nil, err
		}
		audience = &parsed
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return nil, apperrors.NewInvalidArgumentError("title cannot be empty")
	}
	if req.ScheduledAt != nil && req.ScheduledAt.IsZero() {
		return nil, apperrors.NewInvalidArgumentError("scheduledAt cannot be empty")
	}

	event, err := s.eventRepo.Update(ctx, id, func(event *models.Event) error {
		if err := authz.CanManageEvent(caller, event); err != nil {
			return err
		}
		if req.Title != nil {
			event.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			event.Description = strings.TrimSpace(*req.Description)
		}
		if req.ScheduledAt != nil {
			event.ScheduledAt = req.ScheduledAt.UTC().Truncate(time.Microsecond)
		}
		if req.Location != nil {
			event.Location = strings.TrimSpace(*req.Location)
		}
		if audience != nil {
			event.Audience = *audience
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("eventID", id).Str("updatedBy", caller.UserID).Msg("Event updated")
	return event, nil
}

// DeleteEvent removes an event; its registrants are told about the cancellation by the change worker
func (s *eventServiceImpl) DeleteEvent(ctx context.Context, caller *models.Caller, id string) error {
	if err := authz.RequireCaller(caller); err != nil {
		return err
	}
	deleted, err := s.eventRepo.Delete(ctx, id, func(event *models.Event) error {
		return authz.CanManageEvent(caller, event)
	})
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("eventID", id).
		Int("registrations", deleted.Registrations.Len()).
		Str("deletedBy", caller.UserID).
		Msg("Event deleted")
	return nil
}

// Register signs the calling student up for an event of their institution
func (s *eventServiceImpl) Register(ctx context.Context, caller *models.Caller, eventID string) (*models.Event, error) {
	if err := authz.RequireRole(caller, models.RoleStudent); err != nil {
		return nil, err
	}
	student, err := s.userRepo.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	event, err := s.eventRepo.AddRegistration(ctx, eventID, models.Registration{
		StudentID:    caller.UserID,
		StudentName:  student.DisplayName,
		StudentEmail: student.Email,
		RegisteredAt: s.now().UTC(),
	}, func(event *models.Event) error {
		return authz.RequireInstitution(caller, event.Institution)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("eventID", eventID).Str("studentID", caller.UserID).Msg("Student registered")
	return event, nil
}

// Unregister cancels the calling student's registration
func (s *eventServiceImpl) Unregister(ctx context.Context, caller *models.Caller, eventID string) error {
	if err := authz.RequireRole(caller, models.RoleStudent); err != nil {
		return err
	}
	event, err := s.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return err
	}
	if err := authz.RequireInstitution(caller, event.Institution); err != nil {
		return err
	}
	if !event.Registrations.Has(caller.UserID) {
		return apperrors.NewNotFoundError("student is not registered for this event")
	}
	if err := s.eventRepo.RemoveRegistration(ctx, eventID, caller.UserID); err != nil {
		return err
	}

	s.logger.Debug().Str("eventID", eventID).Str("studentID", caller.UserID).Msg("Student unregistered")
	return nil
}

// SubmitFeedback records the calling student's rating of an event
func (s *eventServiceImpl) SubmitFeedback(ctx context.Context, caller *models.Caller, eventID string, req *dto.FeedbackRequest) (*models.Event, error) {
	if err := authz.RequireRole(caller, models.RoleStudent); err != nil {
		return nil, err
	}
	if err := models.ValidateRating(req.Rating); err != nil {
		return nil, err
	}
	student, err := s.userRepo.FindByID(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	return s.eventRepo.AddFeedback(ctx, eventID, models.Feedback{
		StudentID:   caller.UserID,
		StudentName: student.DisplayName,
		Rating:      req.Rating,
		Comment:     strings.TrimSpace(req.Comment),
		SubmittedAt: s.now().UTC(),
	}, func(event *models.Event) error {
		return authz.RequireInstitution(caller, event.Institution)
	})
}
