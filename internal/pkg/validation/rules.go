package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/yigit/eventhub/internal/app/models"
)

// Custom validation tags
const (
	TagNotBlank      = "notblank"
	TagRole          = "role"
	TagAudienceValue = "audience_value"
)

// Register installs the custom rules on v
func Register(v *validator.Validate) error {
	rules := map[string]validator.Func{
		TagNotBlank:      notBlank,
		TagRole:          role,
		TagAudienceValue: audienceValue,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("registering %s rule: %w", tag, err)
		}
	}
	return nil
}

// Message returns the client-facing text for a failed custom rule, or "" for other tags
func Message(field, tag string) string {
	switch tag {
	case TagNotBlank:
		return field + " must not be blank"
	case TagRole:
		return field + " must be one of: admin lecturer student"
	case TagAudienceValue:
		return field + " is required for department and class audiences"
	default:
		return ""
	}
}

// notBlank rejects strings made only of whitespace
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func role(fl validator.FieldLevel) bool {
	_, err := models.ParseRole(fl.Field().String())
	return err == nil
}

// audienceValue requires a value next to a department or class audience type.
// It expects a sibling string field named Type.
func audienceValue(fl validator.FieldLevel) bool {
	kind := fl.Parent().FieldByName("Type")
	if !kind.IsValid() {
		return false
	}
	if models.AudienceKind(strings.ToLower(strings.TrimSpace(kind.String()))) == models.AudienceGeneral {
		return true
	}
	return strings.TrimSpace(fl.Field().String()) != ""
}
