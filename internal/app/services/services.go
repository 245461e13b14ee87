package services

import (
	"github.com/rs/zerolog"
	"github.com/yigit/eventhub/internal/app/repositories"
)

// Services holds the service layer used by the HTTP controllers
type Services struct {
	UserService         UserService
	EventService        EventService
	NotificationService NotificationService
}

// NewServices wires services over the repositories. notifications is the
// store used for recipient operations, usually the Redis-cached repository.
func NewServices(repos *repositories.Repositories, notifications repositories.NotificationStore, logger zerolog.Logger) *Services {
	return &Services{
		UserService:         NewUserService(repos.UserRepository, logger.With().Str("service", "user").Logger()),
		EventService:        NewEventService(repos.EventRepository, repos.UserRepository, logger.With().Str("service", "event").Logger()),
		NotificationService: NewNotificationService(notifications, logger.With().Str("service", "notification").Logger()),
	}
}
