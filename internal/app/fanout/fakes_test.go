package fanout

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yigit/eventhub/internal/app/models"
)

var errSinkDown = errors.New("sink down")

type recordingSink struct {
	mu      sync.Mutex
	calls   int
	failOn  int
	batches [][]models.Notification
}

func (s *recordingSink) InsertBatch(_ context.Context, notifications []models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn == s.calls {
		return errSinkDown
	}
	s.batches = append(s.batches, append([]models.Notification(nil), notifications...))
	return nil
}

func (s *recordingSink) all() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

type fakeDirectory struct {
	users   []models.User
	err     error
	filters []models.StudentFilter
}

func (d *fakeDirectory) ListStudentIDs(_ context.Context, filter models.StudentFilter) ([]string, error) {
	d.filters = append(d.filters, filter)
	if d.err != nil {
		return nil, d.err
	}
	var ids []string
	for _, u := range d.users {
		if u.Role != models.RoleStudent || u.Institution != filter.Institution {
			continue
		}
		if filter.Department != nil && (u.Department == nil || *u.Department != *filter.Department) {
			continue
		}
		if filter.Class != nil && (u.Class == nil || *u.Class != *filter.Class) {
			continue
		}
		ids = append(ids, u.ID)
	}
	return ids, nil
}

type fakeUpcoming struct {
	events   []*models.Event
	err      error
	lastFrom time.Time
	lastTo   time.Time
}

func (f *fakeUpcoming) ListScheduledBetween(_ context.Context, from, to time.Time) ([]*models.Event, error) {
	f.lastFrom, f.lastTo = from, to
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.Event
	for _, e := range f.events {
		if !e.ScheduledAt.Before(from) && !e.ScheduledAt.After(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func strPtr(s string) *string { return &s }

func student(id, institution string, department, class *string) models.User {
	return models.User{ID: id, Role: models.RoleStudent, Institution: institution, Department: department, Class: class}
}

func registrations(ids ...string) models.RegistrationList {
	var regs []models.Registration
	for _, id := range ids {
		regs = append(regs, models.Registration{StudentID: id, StudentName: "Student " + id})
	}
	return models.NewRegistrationList(regs...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
