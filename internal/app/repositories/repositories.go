package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ NotificationStore = (*NotificationRepository)(nil)
	_ NotificationStore = (*CachedNotificationStore)(nil)
)

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository         *UserRepository
	EventRepository        *EventRepository
	NotificationRepository *NotificationRepository
	ChangeRepository       *ChangeRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:         NewUserRepository(db),
		EventRepository:        NewEventRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		ChangeRepository:       NewChangeRepository(db),
	}
}
