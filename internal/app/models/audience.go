package models

import (
	"encoding/json"
	"strings"

	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

// AudienceKind names the variant of a TargetAudience
type AudienceKind string

const (
	AudienceGeneral    AudienceKind = "general"
	AudienceDepartment AudienceKind = "department"
	AudienceClass      AudienceKind = "class"
)

// TargetAudience selects which students of an institution an event addresses.
// It is one of General, Department(value) or Class(value); construct it with
// GeneralAudience, DepartmentAudience, ClassAudience or ParseTargetAudience.
type TargetAudience struct {
	kind  AudienceKind
	value string
}

// GeneralAudience addresses every student of the institution
func GeneralAudience() TargetAudience {
	return TargetAudience{kind: AudienceGeneral}
}

// DepartmentAudience addresses the students of one department
func DepartmentAudience(department string) TargetAudience {
	return TargetAudience{kind: AudienceDepartment, value: department}
}

// ClassAudience addresses the students of one class
func ClassAudience(class string) TargetAudience {
	return TargetAudience{kind: AudienceClass, value: class}
}

// ParseTargetAudience validates a raw (kind, value) pair
func ParseTargetAudience(kind, value string) (TargetAudience, error) {
	value = strings.TrimSpace(value)
	switch AudienceKind(strings.ToLower(strings.TrimSpace(kind))) {
	case AudienceGeneral:
		return GeneralAudience(), nil
	case AudienceDepartment:
		if value == "" {
			return TargetAudience{}, apperrors.NewInvalidArgumentError("department audience requires a value")
		}
		return DepartmentAudience(value), nil
	case AudienceClass:
		if value == "" {
			return TargetAudience{}, apperrors.NewInvalidArgumentError("class audience requires a value")
		}
		return ClassAudience(value), nil
	default:
		return TargetAudience{}, apperrors.NewInvalidArgumentError("unknown audience type: " + kind)
	}
}

// Kind returns the variant tag
func (a TargetAudience) Kind() AudienceKind { return a.kind }

// Value returns the department or class name; empty for General
func (a TargetAudience) Value() string { return a.value }

// IsZero reports whether the audience was never set
func (a TargetAudience) IsZero() bool { return a.kind == "" }

func (a TargetAudience) String() string {
	if a.value == "" {
		return string(a.kind)
	}
	return string(a.kind) + ":" + a.value
}

// Equal compares two audiences by variant and value
func (a TargetAudience) Equal(other TargetAudience) bool {
	return a.kind == other.kind && a.value == other.value
}

type audienceJSON struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (a TargetAudience) MarshalJSON() ([]byte, error) {
	return json.Marshal(audienceJSON{Type: string(a.kind), Value: a.value})
}

// UnmarshalJSON implements json.Unmarshaler
func (a *TargetAudience) UnmarshalJSON(data []byte) error {
	var raw audienceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTargetAudience(raw.Type, raw.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
