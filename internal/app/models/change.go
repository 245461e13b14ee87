package models

import "time"

// ChangeOp is the kind of mutation recorded in the event change log
type ChangeOp string

const (
	ChangeCreated    ChangeOp = "created"
	ChangeUpdated    ChangeOp = "updated"
	ChangeDeleted    ChangeOp = "deleted"
	ChangeRegistered ChangeOp = "registered"
)

// EventChange is a committed mutation of an event, published for the fan-out worker.
// Before is nil for created, After is nil for deleted. StudentID is set for registered.
type EventChange struct {
	Seq       int64     `json:"seq" db:"seq"`
	Op        ChangeOp  `json:"op" db:"op"`
	EventID   string    `json:"eventId" db:"event_id"`
	Before    *Event    `json:"before,omitempty" db:"before"`
	After     *Event    `json:"after,omitempty" db:"after"`
	StudentID string    `json:"studentId,omitempty" db:"student_id"`
	Attempts  int       `json:"attempts" db:"attempts"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
