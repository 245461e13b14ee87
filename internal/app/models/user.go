package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID          string    `json:"id" db:"id"`
	Email       string    `json:"email" db:"email"`
	DisplayName string    `json:"displayName" db:"display_name"`
	Role        Role      `json:"role" db:"role"`
	Institution string    `json:"institution" db:"institution"`
	Department  *string   `json:"department,omitempty" db:"department"`
	Class       *string   `json:"class,omitempty" db:"class_name"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Credential holds the login secret of a user, stored in 'user_credentials'
type Credential struct {
	UserID             string    `db:"user_id"`
	PasswordHash       string    `db:"password_hash"`
	MustChangePassword bool      `db:"must_change_password"`
	CreatedAt          time.Time `db:"created_at"`
}

// StudentFilter selects students of one institution, optionally narrowed
// to a department or a class
type StudentFilter struct {
	Institution string
	Department  *string
	Class       *string
}
