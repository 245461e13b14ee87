package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type audiencePayload struct {
	Type  string
	Value string `validate:"audience_value"`
}

type userPayload struct {
	Name string `validate:"notblank"`
	Role string `validate:"role"`
}

func TestRules(t *testing.T) {
	v := validator.New()
	if err := Register(v); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name    string
		payload interface{}
		valid   bool
	}{
		{"general without value", audiencePayload{Type: "general"}, true},
		{"department with value", audiencePayload{Type: "department", Value: "CENG"}, true},
		{"class without value", audiencePayload{Type: "class", Value: "  "}, false},
		{"department without value", audiencePayload{Type: "Department"}, false},
		{"valid user", userPayload{Name: "Ada", Role: "Lecturer"}, true},
		{"blank name", userPayload{Name: "   ", Role: "student"}, false},
		{"unknown role", userPayload{Name: "Ada", Role: "dean"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.payload)
			if (err == nil) != tt.valid {
				t.Fatalf("valid=%v, got err=%v", tt.valid, err)
			}
		})
	}
}

func TestMessage(t *testing.T) {
	if got := Message("role", TagRole); got != "role must be one of: admin lecturer student" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message("title", "required"); got != "" {
		t.Fatalf("built-in tags have no custom message, got %q", got)
	}
}
