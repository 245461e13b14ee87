package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	authz "github.com/yigit/eventhub/internal/app/auth"
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/auth"
)

// UserStore is the persistence the user service needs
type UserStore interface {
	CreateWithCredential(ctx context.Context, user *models.User, credential *models.Credential) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService defines the administrative user operations
type UserService interface {
	CreateUser(ctx context.Context, caller *models.Caller, req *dto.CreateUserRequest) (*models.User, error)
	DeleteUser(ctx context.Context, caller *models.Caller, userID string) error
	GetUser(ctx context.Context, caller *models.Caller, userID string) (*models.User, error)
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo UserStore
	logger   zerolog.Logger
	now      func() time.Time
}

// NewUserService creates a new UserService
func NewUserService(userRepo UserStore, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		userRepo: userRepo,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateUser provisions an account with a temporary password in the admin's institution
func (s *userServiceImpl) CreateUser(ctx context.Context, caller *models.Caller, req *dto.CreateUserRequest) (*models.User, error) {
	if err := authz.RequireRole(caller, models.RoleAdmin); err != nil {
		return nil, err
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, apperrors.NewInvalidArgumentError("email is required")
	}
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		return nil, apperrors.NewInvalidArgumentError("display name is required")
	}
	if len(req.TemporaryPassword) < auth.MinPasswordLength {
		return nil, apperrors.NewInvalidArgumentError("temporary password is too short")
	}

	hash, err := auth.HashPassword(req.TemporaryPassword)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &models.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		Role:        role,
		Institution: caller.Institution,
		Department:  optional(req.Department),
		Class:       optional(req.Class),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	credential := &models.Credential{
		UserID:             user.ID,
		PasswordHash:       hash,
		MustChangePassword: true,
		CreatedAt:          now,
	}

	if err := s.userRepo.CreateWithCredential(ctx, user, credential); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("userID", user.ID).
		Str("role", string(user.Role)).
		Str("institution", user.Institution).
		Str("createdBy", caller.UserID).
		Msg("User created")
	return user, nil
}

// DeleteUser removes an account of the admin's institution. Admins cannot delete themselves.
func (s *userServiceImpl) DeleteUser(ctx context.Context, caller *models.Caller, userID string) error {
	if err := authz.RequireRole(caller, models.RoleAdmin); err != nil {
		return err
	}
	if userID == "" {
		return apperrors.NewInvalidArgumentError("user id is required")
	}
	if userID == caller.UserID {
		return apperrors.NewInvalidArgumentError("you cannot delete your own account")
	}

	target, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := authz.RequireInstitution(caller, target.Institution); err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info().Str("userID", userID).Str("deletedBy", caller.UserID).Msg("User deleted")
	return nil
}

// GetUser returns a user of the caller's institution
func (s *userServiceImpl) GetUser(ctx context.Context, caller *models.Caller, userID string) (*models.User, error) {
	if err := authz.RequireCaller(caller); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireInstitution(caller, user.Institution); err != nil {
		return nil, err
	}
	return user, nil
}

func optional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
