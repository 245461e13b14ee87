package dto

import (
	"time"

	"github.com/yigit/eventhub/internal/app/models"
)

// CreateUserRequest is the admin payload for provisioning an account.
// The institution is inherited from the calling admin.
type CreateUserRequest struct {
	Email             string  `json:"email" validate:"required,email,max=255"`
	DisplayName       string  `json:"displayName" validate:"required,notblank,min=2,max=255"`
	Role              string  `json:"role" validate:"required,role"`
	Department        *string `json:"department,omitempty" validate:"omitempty,max=255"`
	Class             *string `json:"class,omitempty" validate:"omitempty,max=255"`
	TemporaryPassword string  `json:"temporaryPassword" validate:"required,min=8,max=72"`
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	Institution string    `json:"institution"`
	Department  *string   `json:"department,omitempty"`
	Class       *string   `json:"class,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewUserResponse maps a user model to its response
func NewUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
		Institution: user.Institution,
		Department:  user.Department,
		Class:       user.Class,
		CreatedAt:   user.CreatedAt,
	}
}

// TokenResponse carries a signed access token
type TokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
	TokenType   string `json:"tokenType"`
}
