package middleware

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/validation"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	if err := validation.Register(v); err != nil {
		panic(err)
	}
	return v
}

// BindJSON decodes the request body into obj and validates it.
// Failures come back as invalid-argument errors listing each rejected field.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return apperrors.NewInvalidArgumentError("Invalid request format")
	}
	return ValidateStruct(obj)
}

// PathID returns the named path parameter when it is a well-formed UUID
func PathID(c *gin.Context, name string) (string, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewInvalidArgumentError("Invalid " + name + " format")
	}
	return id.String(), nil
}

// ValidateStruct runs the struct's validate tags
func ValidateStruct(obj interface{}) error {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewInvalidArgumentError("Validation failed")
	}

	fields := make([]dto.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fields = append(fields, dto.FieldError{Field: fe.Field(), Message: formatValidationError(fe)})
	}
	custom := apperrors.NewInvalidArgumentError("Validation failed").(*apperrors.CustomError)
	return custom.WithDetails(map[string]interface{}{"fields": fields})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(e validator.FieldError) string {
	if msg := validation.Message(e.Field(), e.Tag()); msg != "" {
		return msg
	}
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "min":
		return e.Field() + " must be at least " + e.Param()
	case "max":
		return e.Field() + " must be at most " + e.Param()
	case "email":
		return e.Field() + " must be a valid email address"
	case "oneof":
		return e.Field() + " must be one of: " + e.Param()
	default:
		return e.Field() + " validation failed: " + e.Tag()
	}
}
