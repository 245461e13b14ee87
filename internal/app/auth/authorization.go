package auth

import (
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

// RequireCaller fails with ErrUnauthenticated when no identity is present
func RequireCaller(caller *models.Caller) error {
	if !caller.Authenticated() {
		return apperrors.NewUnauthenticatedError("authentication required")
	}
	return nil
}

// RequireRole checks that the caller is authenticated and holds one of roles
func RequireRole(caller *models.Caller, roles ...models.Role) error {
	if err := RequireCaller(caller); err != nil {
		return err
	}
	for _, role := range roles {
		if caller.Role == role {
			return nil
		}
	}
	return apperrors.NewForbiddenError("your role is not allowed to perform this action")
}

// RequireInstitution rejects callers from another institution
func RequireInstitution(caller *models.Caller, institution string) error {
	if err := RequireCaller(caller); err != nil {
		return err
	}
	if caller.Institution != institution {
		return apperrors.NewForbiddenError("resource belongs to another institution")
	}
	return nil
}

// CanManageEvent allows the event's creator, or an admin of the same institution, to edit or delete it
func CanManageEvent(caller *models.Caller, event *models.Event) error {
	if err := RequireInstitution(caller, event.Institution); err != nil {
		return err
	}
	if caller.UserID == event.CreatorID || caller.Role == models.RoleAdmin {
		return nil
	}
	return apperrors.NewForbiddenError("only the creator or an admin can manage this event")
}
