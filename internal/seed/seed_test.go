package seed

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	appModels "github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/config"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"golang.org/x/crypto/bcrypt"
)

type fakeAdminStore struct {
	admins    int64
	createErr error
	user      *appModels.User
	cred      *appModels.Credential
}

func (f *fakeAdminStore) CountByRole(ctx context.Context, institution string, role appModels.Role) (int64, error) {
	return f.admins, nil
}

func (f *fakeAdminStore) CreateWithCredential(ctx context.Context, user *appModels.User, credential *appModels.Credential) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.user, f.cred = user, credential
	return nil
}

func seedConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Seed.AdminEmail = " Admin@Example.edu "
	cfg.Seed.AdminPassword = "Secret123!"
	cfg.Seed.AdminName = "Root"
	cfg.Seed.Institution = "uni-1"
	return cfg
}

func TestCreateDefaultAdmin(t *testing.T) {
	quiet := zerolog.New(io.Discard)

	t.Run("creates admin with temporary credential", func(t *testing.T) {
		store := &fakeAdminStore{}
		if err := CreateDefaultAdmin(context.Background(), store, seedConfig(), quiet); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if store.user == nil || store.user.Email != "admin@example.edu" || store.user.Role != appModels.RoleAdmin || store.user.Institution != "uni-1" {
			t.Fatalf("unexpected admin: %+v", store.user)
		}
		if store.cred.UserID != store.user.ID || !store.cred.MustChangePassword {
			t.Fatalf("unexpected credential: %+v", store.cred)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(store.cred.PasswordHash), []byte("Secret123!")); err != nil {
			t.Fatalf("password hash mismatch: %v", err)
		}
	})

	t.Run("skips when an admin exists", func(t *testing.T) {
		store := &fakeAdminStore{admins: 1}
		if err := CreateDefaultAdmin(context.Background(), store, seedConfig(), quiet); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if store.user != nil {
			t.Fatalf("no admin should be created")
		}
	})

	t.Run("skips when not configured", func(t *testing.T) {
		store := &fakeAdminStore{}
		if err := CreateDefaultAdmin(context.Background(), store, &config.Config{}, quiet); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if store.user != nil {
			t.Fatalf("no admin should be created")
		}
	})

	t.Run("taken email is not an error", func(t *testing.T) {
		store := &fakeAdminStore{createErr: apperrors.NewAlreadyExistsError("taken")}
		if err := CreateDefaultAdmin(context.Background(), store, seedConfig(), quiet); err != nil {
			t.Fatalf("seed: %v", err)
		}
	})

	t.Run("other failures are returned", func(t *testing.T) {
		boom := errors.New("boom")
		store := &fakeAdminStore{createErr: boom}
		if err := CreateDefaultAdmin(context.Background(), store, seedConfig(), quiet); !errors.Is(err, boom) {
			t.Fatalf("expected failure, got %v", err)
		}
	})
}
