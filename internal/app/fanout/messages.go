package fanout

import (
	"fmt"
	"strings"

	"github.com/yigit/eventhub/internal/app/models"
)

const dateLayout = "Mon, 02 Jan 2006 15:04 MST"

// Composer renders notification drafts for an event
type Composer struct {
	linkPrefix string
}

// NewComposer creates a composer whose deep links start with linkPrefix
func NewComposer(linkPrefix string) Composer {
	linkPrefix = strings.TrimRight(strings.TrimSpace(linkPrefix), "/")
	if linkPrefix == "" {
		linkPrefix = "/events"
	}
	return Composer{linkPrefix: linkPrefix}
}

// Link returns the deep link to an event
func (c Composer) Link(eventID string) string {
	return c.linkPrefix + "/" + eventID
}

func (c Composer) withEvent(e *models.Event, typ models.NotificationType, message string) Draft {
	eventID := e.ID
	link := c.Link(e.ID)
	return Draft{Type: typ, Message: message, EventID: &eventID, Link: &link}
}

// EventCreated announces a new event to its audience
func (c Composer) EventCreated(e *models.Event) Draft {
	return c.withEvent(e, models.NotificationEventCreated,
		fmt.Sprintf("New event: %q on %s at %s.", e.Title, formatDate(e), e.Location))
}

// EventUpdated tells registrants about a significant edit
func (c Composer) EventUpdated(e *models.Event) Draft {
	return c.withEvent(e, models.NotificationEventUpdated,
		fmt.Sprintf("%q has been updated. It now takes place on %s at %s.", e.Title, formatDate(e), e.Location))
}

// EventCancelled tells registrants an event is gone. The event no longer
// exists, so the draft carries neither event id nor link.
func (c Composer) EventCancelled(e *models.Event) Draft {
	return Draft{
		Type:    models.NotificationEventCancelled,
		Message: fmt.Sprintf("%q scheduled for %s has been cancelled.", e.Title, formatDate(e)),
	}
}

// EventReminder reminds a registrant of an event starting soon
func (c Composer) EventReminder(e *models.Event) Draft {
	return c.withEvent(e, models.NotificationEventReminder,
		fmt.Sprintf("Reminder: %q starts %s at %s.", e.Title, formatDate(e), e.Location))
}

// RegistrationConfirmed confirms a student's registration
func (c Composer) RegistrationConfirmed(e *models.Event) Draft {
	return c.withEvent(e, models.NotificationRegistrationConfirmed,
		fmt.Sprintf("You are registered for %q on %s.", e.Title, formatDate(e)))
}

func formatDate(e *models.Event) string {
	return e.ScheduledAt.UTC().Format(dateLayout)
}
