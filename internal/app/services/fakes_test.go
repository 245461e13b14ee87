package services

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/app/repositories"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

var (
	testNow    = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	testLogger = zerolog.New(io.Discard)
)

func adminOf(institution string) *models.Caller {
	return &models.Caller{UserID: "admin-" + institution, Role: models.RoleAdmin, Institution: institution}
}

func lecturerOf(id, institution string) *models.Caller {
	return &models.Caller{UserID: id, Role: models.RoleLecturer, Institution: institution}
}

func studentOf(id, institution string) *models.Caller {
	return &models.Caller{UserID: id, Role: models.RoleStudent, Institution: institution}
}

type fakeUserStore struct {
	users       map[string]*models.User
	credentials map[string]*models.Credential
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: map[string]*models.User{}, credentials: map[string]*models.Credential{}}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) CreateWithCredential(ctx context.Context, user *models.User, credential *models.Credential) error {
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return apperrors.NewAlreadyExistsError("a user with this email already exists")
		}
	}
	s.users[user.ID] = user
	s.credentials[user.ID] = credential
	return nil
}

func (s *fakeUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("user not found")
	}
	return u, nil
}

func (s *fakeUserStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.users[id]; !ok {
		return apperrors.NewNotFoundError("user not found")
	}
	delete(s.users, id)
	delete(s.credentials, id)
	return nil
}

// fakeEventStore keeps events in memory and records the change log the way the repository does
type fakeEventStore struct {
	events  map[string]*models.Event
	changes []models.EventChange
}

func newFakeEventStore(events ...*models.Event) *fakeEventStore {
	s := &fakeEventStore{events: map[string]*models.Event{}}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *fakeEventStore) get(id string) (*models.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("event not found")
	}
	return e, nil
}

func (s *fakeEventStore) ops() []models.ChangeOp {
	out := make([]models.ChangeOp, 0, len(s.changes))
	for _, c := range s.changes {
		out = append(out, c.Op)
	}
	return out
}

func (s *fakeEventStore) Create(ctx context.Context, event *models.Event) error {
	s.events[event.ID] = event
	s.changes = append(s.changes, models.EventChange{Op: models.ChangeCreated, EventID: event.ID, After: event})
	return nil
}

func (s *fakeEventStore) FindByID(ctx context.Context, id string) (*models.Event, error) {
	return s.get(id)
}

func (s *fakeEventStore) Update(ctx context.Context, id string, mutate repositories.EventGuard) (*models.Event, error) {
	before, err := s.get(id)
	if err != nil {
		return nil, err
	}
	after := *before
	if err := mutate(&after); err != nil {
		return nil, err
	}
	s.events[id] = &after
	s.changes = append(s.changes, models.EventChange{Op: models.ChangeUpdated, EventID: id, Before: before, After: &after})
	return &after, nil
}

func (s *fakeEventStore) Delete(ctx context.Context, id string, guard repositories.EventGuard) (*models.Event, error) {
	event, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err := guard(event); err != nil {
		return nil, err
	}
	delete(s.events, id)
	s.changes = append(s.changes, models.EventChange{Op: models.ChangeDeleted, EventID: id, Before: event})
	return event, nil
}

func (s *fakeEventStore) AddRegistration(ctx context.Context, eventID string, registration models.Registration, guard repositories.EventGuard) (*models.Event, error) {
	event, err := s.get(eventID)
	if err != nil {
		return nil, err
	}
	if err := guard(event); err != nil {
		return nil, err
	}
	if err := event.Registrations.Add(registration); err != nil {
		return nil, err
	}
	s.changes = append(s.changes, models.EventChange{
		Op: models.ChangeRegistered, EventID: eventID, After: event, StudentID: registration.StudentID,
	})
	return event, nil
}

func (s *fakeEventStore) RemoveRegistration(ctx context.Context, eventID, studentID string) error {
	event, err := s.get(eventID)
	if err != nil {
		return err
	}
	return event.Registrations.Remove(studentID)
}

func (s *fakeEventStore) AddFeedback(ctx context.Context, eventID string, feedback models.Feedback, guard repositories.EventGuard) (*models.Event, error) {
	event, err := s.get(eventID)
	if err != nil {
		return nil, err
	}
	if err := guard(event); err != nil {
		return nil, err
	}
	if err := event.Feedback.Add(feedback); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *fakeEventStore) ListByInstitution(ctx context.Context, institution string, from time.Time, limit, offset uint64) ([]*models.Event, int64, error) {
	var out []*models.Event
	for _, e := range s.events {
		if e.Institution == institution && !e.ScheduledAt.Before(from) {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

type fakeNotificationStore struct {
	items map[string]*models.Notification
}

func newFakeNotificationStore(items ...models.Notification) *fakeNotificationStore {
	s := &fakeNotificationStore{items: map[string]*models.Notification{}}
	for i := range items {
		n := items[i]
		s.items[n.ID] = &n
	}
	return s
}

func (s *fakeNotificationStore) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	for i := range notifications {
		n := notifications[i]
		s.items[n.ID] = &n
	}
	return nil
}

func (s *fakeNotificationStore) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	n, ok := s.items[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("notification not found")
	}
	return n, nil
}

func (s *fakeNotificationStore) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset uint64) ([]models.Notification, int64, error) {
	var out []models.Notification
	for _, n := range s.items {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, *n)
		}
	}
	return out, int64(len(out)), nil
}

func (s *fakeNotificationStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	for _, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) MarkRead(ctx context.Context, id, userID string) error {
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return apperrors.NewNotFoundError("notification not found")
	}
	n.IsRead = true
	return nil
}

func (s *fakeNotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	var updated int64
	for _, n := range s.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (s *fakeNotificationStore) Delete(ctx context.Context, id, userID string) error {
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return apperrors.NewNotFoundError("notification not found")
	}
	delete(s.items, id)
	return nil
}

func (s *fakeNotificationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, int64, error) {
	seen := map[string]bool{}
	var users []string
	var removed int64
	for id, n := range s.items {
		if n.CreatedAt.Before(cutoff) {
			if !seen[n.UserID] {
				seen[n.UserID] = true
				users = append(users, n.UserID)
			}
			delete(s.items, id)
			removed++
		}
	}
	return users, removed, nil
}
