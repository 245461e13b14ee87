package models

import "time"

// NotificationType identifies why a notification was produced
type NotificationType string

const (
	NotificationEventCreated          NotificationType = "EventCreated"
	NotificationEventUpdated          NotificationType = "EventUpdated"
	NotificationEventCancelled        NotificationType = "EventCancelled"
	NotificationEventReminder         NotificationType = "EventReminder"
	NotificationRegistrationConfirmed NotificationType = "RegistrationConfirmed"
)

// Notification is a per-user record produced by the fan-out engine.
// EventID and Link are nil for cancellations.
type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"userId" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Message   string           `json:"message" db:"message"`
	EventID   *string          `json:"eventId,omitempty" db:"event_id"`
	Link      *string          `json:"link,omitempty" db:"link"`
	IsRead    bool             `json:"isRead" db:"is_read"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}
