package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	appModels "github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/config"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/auth"
)

// AdminStore is the slice of the user repository the seeder needs
type AdminStore interface {
	CountByRole(ctx context.Context, institution string, role appModels.Role) (int64, error)
	CreateWithCredential(ctx context.Context, user *appModels.User, credential *appModels.Credential) error
}

// CreateDefaultAdmin creates the first administrator of the configured institution.
// Nothing happens when seeding is not configured or the institution already has an admin.
func CreateDefaultAdmin(ctx context.Context, users AdminStore, cfg *config.Config, lgr zerolog.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.Seed.AdminEmail))
	if email == "" {
		return nil
	}

	admins, err := users.CountByRole(ctx, cfg.Seed.Institution, appModels.RoleAdmin)
	if err != nil {
		lgr.Error().Err(err).Msg("Error checking for existing admin users")
		return err
	}
	if admins > 0 {
		lgr.Info().Str("institution", cfg.Seed.Institution).Msg("Admin user already exists, skipping creation")
		return nil
	}

	hash, err := auth.HashPassword(cfg.Seed.AdminPassword)
	if err != nil {
		lgr.Error().Err(err).Msg("Error hashing admin password")
		return err
	}

	now := time.Now().UTC()
	admin := &appModels.User{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: cfg.Seed.AdminName,
		Role:        appModels.RoleAdmin,
		Institution: cfg.Seed.Institution,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	credential := &appModels.Credential{
		UserID:             admin.ID,
		PasswordHash:       hash,
		MustChangePassword: true,
		CreatedAt:          now,
	}

	if err := users.CreateWithCredential(ctx, admin, credential); err != nil {
		// The email may belong to a user of another role; leave it alone
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			lgr.Warn().Str("email", email).Msg("Seed admin email is already taken, skipping creation")
			return nil
		}
		lgr.Error().Err(err).Msg("Error creating admin user")
		return err
	}

	lgr.Info().
		Str("adminID", admin.ID).
		Str("institution", admin.Institution).
		Msg("Default admin user created successfully")
	return nil
}
