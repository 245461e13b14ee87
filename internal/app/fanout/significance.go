package fanout

import (
	"fmt"
	"strings"

	"github.com/yigit/eventhub/internal/app/models"
)

// Field names an event attribute watched by a Policy
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldScheduledAt Field = "scheduled_at"
	FieldLocation    Field = "location"
	FieldAudience    Field = "audience"
)

var fieldComparators = map[Field]func(before, after *models.Event) bool{
	FieldTitle:       func(b, a *models.Event) bool { return b.Title != a.Title },
	FieldDescription: func(b, a *models.Event) bool { return b.Description != a.Description },
	FieldScheduledAt: func(b, a *models.Event) bool { return !b.ScheduledAt.Equal(a.ScheduledAt) },
	FieldLocation:    func(b, a *models.Event) bool { return b.Location != a.Location },
	FieldAudience:    func(b, a *models.Event) bool { return !b.Audience.Equal(a.Audience) },
}

// Policy decides which event edits are worth notifying registrants about
type Policy struct {
	fields []Field
}

// DefaultPolicy watches title, date and location
func DefaultPolicy() Policy {
	return Policy{fields: []Field{FieldTitle, FieldScheduledAt, FieldLocation}}
}

// NewPolicy builds a policy from configured field names
func NewPolicy(names []string) (Policy, error) {
	if len(names) == 0 {
		return Policy{}, fmt.Errorf("significance policy needs at least one field")
	}
	fields := make([]Field, 0, len(names))
	for _, name := range names {
		field := Field(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := fieldComparators[field]; !ok {
			return Policy{}, fmt.Errorf("unknown significance field %q", name)
		}
		fields = append(fields, field)
	}
	return Policy{fields: fields}, nil
}

// Fields returns the watched fields
func (p Policy) Fields() []Field {
	return append([]Field(nil), p.fields...)
}

// Changed lists the watched fields that differ between before and after
func (p Policy) Changed(before, after *models.Event) []Field {
	if before == nil || after == nil {
		return nil
	}
	var changed []Field
	for _, field := range p.fields {
		if fieldComparators[field](before, after) {
			changed = append(changed, field)
		}
	}
	return changed
}

// IsSignificant reports whether any watched field changed
func (p Policy) IsSignificant(before, after *models.Event) bool {
	return len(p.Changed(before, after)) > 0
}
