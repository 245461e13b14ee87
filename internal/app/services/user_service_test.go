package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/auth"
)

func newTestUserService(store *fakeUserStore) *userServiceImpl {
	svc := NewUserService(store, testLogger).(*userServiceImpl)
	svc.now = func() time.Time { return testNow }
	return svc
}

func validCreateRequest() *dto.CreateUserRequest {
	cs := "CS"
	return &dto.CreateUserRequest{
		Email:             "  Ada@Example.edu ",
		DisplayName:       "Ada Lovelace",
		Role:              "student",
		Department:        &cs,
		TemporaryPassword: "temporary-pass",
	}
}

func TestCreateUserRequiresAdmin(t *testing.T) {
	svc := newTestUserService(newFakeUserStore())

	tests := []struct {
		name   string
		caller *models.Caller
		want   error
	}{
		{name: "no caller", caller: nil, want: apperrors.ErrUnauthenticated},
		{name: "empty identity", caller: &models.Caller{}, want: apperrors.ErrUnauthenticated},
		{name: "lecturer", caller: lecturerOf("l1", "uni-a"), want: apperrors.ErrPermissionDenied},
		{name: "student", caller: studentOf("s1", "uni-a"), want: apperrors.ErrPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateUser(context.Background(), tt.caller, validCreateRequest()); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateUserInheritsInstitutionAndStoresCredential(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestUserService(store)

	user, err := svc.CreateUser(context.Background(), adminOf("uni-a"), validCreateRequest())
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Institution != "uni-a" || user.Role != models.RoleStudent {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.Email != "ada@example.edu" {
		t.Fatalf("email must be normalized, got %q", user.Email)
	}
	if user.Department == nil || *user.Department != "CS" || user.Class != nil {
		t.Fatalf("unexpected department/class: %v %v", user.Department, user.Class)
	}
	if !user.CreatedAt.Equal(testNow) {
		t.Fatalf("unexpected createdAt: %v", user.CreatedAt)
	}

	cred := store.credentials[user.ID]
	if cred == nil || !cred.MustChangePassword {
		t.Fatalf("expected credential requiring password change, got %+v", cred)
	}
	if !auth.CheckPassword(cred.PasswordHash, "temporary-pass") {
		t.Fatalf("stored hash does not match the temporary password")
	}
}

func TestCreateUserRejectsBadInput(t *testing.T) {
	svc := newTestUserService(newFakeUserStore())

	badRole := validCreateRequest()
	badRole.Role = "dean"
	shortPassword := validCreateRequest()
	shortPassword.TemporaryPassword = "short"

	for _, req := range []*dto.CreateUserRequest{badRole, shortPassword} {
		if _, err := svc.CreateUser(context.Background(), adminOf("uni-a"), req); !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument, got %v", err)
		}
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	svc := newTestUserService(newFakeUserStore())

	if _, err := svc.CreateUser(context.Background(), adminOf("uni-a"), validCreateRequest()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreateUser(context.Background(), adminOf("uni-a"), validCreateRequest()); !errors.Is(err, apperrors.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestDeleteUser(t *testing.T) {
	admin := adminOf("uni-a")
	store := newFakeUserStore(
		&models.User{ID: admin.UserID, Role: models.RoleAdmin, Institution: "uni-a"},
		&models.User{ID: "s1", Role: models.RoleStudent, Institution: "uni-a"},
		&models.User{ID: "s2", Role: models.RoleStudent, Institution: "uni-b"},
	)
	svc := newTestUserService(store)
	ctx := context.Background()

	if err := svc.DeleteUser(ctx, admin, admin.UserID); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("self delete: expected invalid argument, got %v", err)
	}
	if err := svc.DeleteUser(ctx, admin, "s2"); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("cross institution: expected permission denied, got %v", err)
	}
	if err := svc.DeleteUser(ctx, admin, "ghost"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing user: expected not found, got %v", err)
	}
	if err := svc.DeleteUser(ctx, lecturerOf("l1", "uni-a"), "s1"); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Fatalf("lecturer: expected permission denied, got %v", err)
	}
	if err := svc.DeleteUser(ctx, nil, "s1"); !errors.Is(err, apperrors.ErrUnauthenticated) {
		t.Fatalf("anonymous: expected unauthenticated, got %v", err)
	}

	if err := svc.DeleteUser(ctx, admin, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok := store.users["s1"]; ok {
		t.Fatalf("user must be removed")
	}
	if _, ok := store.users["s2"]; !ok {
		t.Fatalf("other institution's user must remain")
	}
}
