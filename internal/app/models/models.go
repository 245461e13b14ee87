package models

import (
	"strings"

	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

// Role defines the user role type. Role is immutable after creation.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleLecturer Role = "lecturer"
	RoleStudent  Role = "student"
)

// ParseRole converts a raw role name into a Role
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleLecturer:
		return RoleLecturer, nil
	case RoleStudent:
		return RoleStudent, nil
	default:
		return "", apperrors.NewInvalidArgumentError("unknown role: " + raw)
	}
}

// Caller is the authenticated identity performing an operation.
// It is passed explicitly to every service operation.
type Caller struct {
	UserID      string
	Email       string
	Role        Role
	Institution string
}

// Authenticated reports whether the caller carries an identity
func (c *Caller) Authenticated() bool {
	return c != nil && c.UserID != ""
}

// IsAdmin reports whether the caller is an administrator
func (c *Caller) IsAdmin() bool {
	return c.Authenticated() && c.Role == RoleAdmin
}
