package models

import (
	"encoding/json"
	"time"

	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

// Event represents a seminar, fair or similar happening of an institution
type Event struct {
	ID            string           `json:"id" db:"id"`
	Title         string           `json:"title" db:"title"`
	Description   string           `json:"description" db:"description"`
	ScheduledAt   time.Time        `json:"scheduledAt" db:"scheduled_at"`
	Location      string           `json:"location" db:"location"`
	CreatorID     string           `json:"creatorId" db:"creator_id"`
	CreatorName   string           `json:"creatorName" db:"creator_name"`
	Institution   string           `json:"institution" db:"institution"`
	Audience      TargetAudience   `json:"audience"`
	Registrations RegistrationList `json:"registrations"`
	Feedback      FeedbackList     `json:"feedback"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time        `json:"updatedAt" db:"updated_at"`
}

// Registration records a student's sign-up for an event
type Registration struct {
	StudentID    string    `json:"studentId" db:"student_id"`
	StudentName  string    `json:"studentName" db:"student_name"`
	StudentEmail string    `json:"studentEmail" db:"student_email"`
	RegisteredAt time.Time `json:"registeredAt" db:"registered_at"`
}

// Feedback is a student's rating of an event
type Feedback struct {
	StudentID   string    `json:"studentId" db:"student_id"`
	StudentName string    `json:"studentName" db:"student_name"`
	Rating      int       `json:"rating" db:"rating"`
	Comment     string    `json:"comment" db:"comment"`
	SubmittedAt time.Time `json:"submittedAt" db:"submitted_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// keyed is an insertion-ordered collection with unique string keys
type keyed[T any] struct {
	keys  []string
	items map[string]T
}

func (k *keyed[T]) add(key string, item T) bool {
	if _, exists := k.items[key]; exists {
		return false
	}
	if k.items == nil {
		k.items = make(map[string]T)
	}
	k.items[key] = item
	k.keys = append(k.keys, key)
	return true
}

func (k *keyed[T]) remove(key string) bool {
	if _, exists := k.items[key]; !exists {
		return false
	}
	delete(k.items, key)
	for i, existing := range k.keys {
		if existing == key {
			k.keys = append(k.keys[:i], k.keys[i+1:]...)
			break
		}
	}
	return true
}

func (k keyed[T]) get(key string) (T, bool) {
	item, ok := k.items[key]
	return item, ok
}

func (k keyed[T]) values() []T {
	out := make([]T, 0, len(k.keys))
	for _, key := range k.keys {
		out = append(out, k.items[key])
	}
	return out
}

// RegistrationList holds at most one registration per student, in sign-up order
type RegistrationList struct {
	set keyed[Registration]
}

// NewRegistrationList builds a list; later duplicates of a student id are dropped
func NewRegistrationList(registrations ...Registration) RegistrationList {
	var list RegistrationList
	for _, r := range registrations {
		list.set.add(r.StudentID, r)
	}
	return list
}

// Add appends a registration. A second registration by the same student fails with ErrAlreadyExists.
func (l *RegistrationList) Add(r Registration) error {
	if !l.set.add(r.StudentID, r) {
		return apperrors.NewAlreadyExistsError("student is already registered for this event")
	}
	return nil
}

// Remove drops the registration of studentID, failing with ErrNotFound when absent
func (l *RegistrationList) Remove(studentID string) error {
	if !l.set.remove(studentID) {
		return apperrors.NewNotFoundError("student is not registered for this event")
	}
	return nil
}

// Has reports whether studentID is registered
func (l RegistrationList) Has(studentID string) bool {
	_, ok := l.set.get(studentID)
	return ok
}

// Len returns the number of registrations
func (l RegistrationList) Len() int { return len(l.set.keys) }

// All returns the registrations in sign-up order
func (l RegistrationList) All() []Registration { return l.set.values() }

// StudentIDs returns the registered student ids in sign-up order
func (l RegistrationList) StudentIDs() []string {
	return append([]string(nil), l.set.keys...)
}

// MarshalJSON encodes the list as an ordered array
func (l RegistrationList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.All())
}

// UnmarshalJSON decodes an ordered array
func (l *RegistrationList) UnmarshalJSON(data []byte) error {
	var items []Registration
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = NewRegistrationList(items...)
	return nil
}

// FeedbackList holds at most one feedback entry per student, in submission order
type FeedbackList struct {
	set keyed[Feedback]
}

// NewFeedbackList builds a list; later duplicates of a student id are dropped
func NewFeedbackList(entries ...Feedback) FeedbackList {
	var list FeedbackList
	for _, f := range entries {
		list.set.add(f.StudentID, f)
	}
	return list
}

// Add appends feedback. Ratings outside [MinRating, MaxRating] fail with
// ErrInvalidArgument and a second entry by the same student with ErrAlreadyExists.
func (l *FeedbackList) Add(f Feedback) error {
	if err := ValidateRating(f.Rating); err != nil {
		return err
	}
	if !l.set.add(f.StudentID, f) {
		return apperrors.NewAlreadyExistsError("feedback already submitted for this event")
	}
	return nil
}

// Has reports whether studentID already left feedback
func (l FeedbackList) Has(studentID string) bool {
	_, ok := l.set.get(studentID)
	return ok
}

// Len returns the number of feedback entries
func (l FeedbackList) Len() int { return len(l.set.keys) }

// All returns the feedback in submission order
func (l FeedbackList) All() []Feedback { return l.set.values() }

// MarshalJSON encodes the list as an ordered array
func (l FeedbackList) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.All())
}

// UnmarshalJSON decodes an ordered array
func (l *FeedbackList) UnmarshalJSON(data []byte) error {
	var items []Feedback
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = NewFeedbackList(items...)
	return nil
}

// ValidateRating checks the rating bounds
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return apperrors.NewInvalidArgumentError("rating must be between 1 and 5")
	}
	return nil
}
