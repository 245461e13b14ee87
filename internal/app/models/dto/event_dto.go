package dto

import (
	"time"

	"github.com/yigit/eventhub/internal/app/models"
)

// AudienceRequest describes the target audience of an event
type AudienceRequest struct {
	Type  string `json:"type" validate:"required,oneof=general department class"`
	Value string `json:"value" validate:"audience_value,max=255"`
}

// CreateEventRequest is the payload for creating an event
type CreateEventRequest struct {
	Title       string          `json:"title" validate:"required,notblank,min=3,max=255"`
	Description string          `json:"description" validate:"max=5000"`
	ScheduledAt time.Time       `json:"scheduledAt" validate:"required"`
	Location    string          `json:"location" validate:"required,notblank,max=255"`
	Audience    AudienceRequest `json:"audience" validate:"required"`
}

// UpdateEventRequest changes any subset of an event's editable fields
type UpdateEventRequest struct {
	Title       *string          `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	ScheduledAt *time.Time       `json:"scheduledAt,omitempty"`
	Location    *string          `json:"location,omitempty" validate:"omitempty,max=255"`
	Audience    *AudienceRequest `json:"audience,omitempty"`
}

// FeedbackRequest is a student's rating of an event
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required"`
	Comment string `json:"comment" validate:"max=2000"`
}

// AudienceResponse mirrors the audience variant
type AudienceResponse struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// RegistrationResponse is one registration entry
type RegistrationResponse struct {
	StudentID    string    `json:"studentId"`
	StudentName  string    `json:"studentName"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// FeedbackResponse is one feedback entry
type FeedbackResponse struct {
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// EventResponse is the public view of an event
type EventResponse struct {
	ID                string                 `json:"id"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	ScheduledAt       time.Time              `json:"scheduledAt"`
	Location          string                 `json:"location"`
	CreatorID         string                 `json:"creatorId"`
	CreatorName       string                 `json:"creatorName"`
	Institution       string                 `json:"institution"`
	Audience          AudienceResponse       `json:"audience"`
	RegistrationCount int                    `json:"registrationCount"`
	Registrations     []RegistrationResponse `json:"registrations,omitempty"`
	Feedback          []FeedbackResponse     `json:"feedback,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// EventListResponse is a page of events
type EventListResponse struct {
	Events         []EventResponse `json:"events"`
	PaginationInfo PaginationInfo  `json:"paginationInfo"`
}

// NewEventResponse maps an event model to its response. Registration and
// feedback details are included only when withDetails is set.
func NewEventResponse(event *models.Event, withDetails bool) EventResponse {
	resp := EventResponse{
		ID:                event.ID,
		Title:             event.Title,
		Description:       event.Description,
		ScheduledAt:       event.ScheduledAt,
		Location:          event.Location,
		CreatorID:         event.CreatorID,
		CreatorName:       event.CreatorName,
		Institution:       event.Institution,
		Audience:          AudienceResponse{Type: string(event.Audience.Kind()), Value: event.Audience.Value()},
		RegistrationCount: event.Registrations.Len(),
		CreatedAt:         event.CreatedAt,
		UpdatedAt:         event.UpdatedAt,
	}
	if !withDetails {
		return resp
	}
	for _, r := range event.Registrations.All() {
		resp.Registrations = append(resp.Registrations, RegistrationResponse{
			StudentID:    r.StudentID,
			StudentName:  r.StudentName,
			RegisteredAt: r.RegisteredAt,
		})
	}
	for _, f := range event.Feedback.All() {
		resp.Feedback = append(resp.Feedback, FeedbackResponse{
			StudentID:   f.StudentID,
			StudentName: f.StudentName,
			Rating:      f.Rating,
			Comment:     f.Comment,
			SubmittedAt: f.SubmittedAt,
		})
	}
	return resp
}
