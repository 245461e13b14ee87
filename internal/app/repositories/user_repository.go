package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/db"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/dberrors"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var userColumns = []string{
	"id", "email", "display_name", "role", "institution", "department", "class_name", "created_at", "updated_at",
}

// UserRepository handles database operations for users and their credentials
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// CreateWithCredential inserts a user and its credential in one transaction
func (r *UserRepository) CreateWithCredential(ctx context.Context, user *models.User, credential *models.Credential) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := psql.Insert("users").
			Columns("id", "email", "display_name", "role", "institution", "department", "class_name", "created_at", "updated_at").
			Values(user.ID, user.Email, user.DisplayName, string(user.Role), user.Institution, user.Department, user.Class, user.CreatedAt, user.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			if dberrors.IsDuplicateConstraintError(err, "users_email_key") {
				return apperrors.NewAlreadyExistsError("a user with this email already exists")
			}
			return fmt.Errorf("error inserting user: %w", err)
		}

		sql, args, err = psql.Insert("user_credentials").
			Columns("user_id", "password_hash", "must_change_password", "created_at").
			Values(credential.UserID, credential.PasswordHash, credential.MustChangePassword, credential.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("error building SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error inserting credential: %w", err)
		}
		return nil
	})
}

// FindByID retrieves a user by id
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	sql, args, err := psql.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	user, err := scanUser(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("user not found")
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return user, nil
}

// Delete removes a user; the credential row goes with it through the foreign key
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := psql.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("user not found")
	}
	return nil
}

// ListStudentIDs returns the ids of students matching filter, oldest accounts first
func (r *UserRepository) ListStudentIDs(ctx context.Context, filter models.StudentFilter) ([]string, error) {
	query := psql.Select("id").
		From("users").
		Where(squirrel.Eq{"institution": filter.Institution, "role": string(models.RoleStudent)}).
		OrderBy("created_at", "id")
	if filter.Department != nil {
		query = query.Where(squirrel.Eq{"department": *filter.Department})
	}
	if filter.Class != nil {
		query = query.Where(squirrel.Eq{"class_name": *filter.Class})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning row: %w", err)
	}
	return ids, nil
}

// CountByRole reports how many users of a role exist in an institution
func (r *UserRepository) CountByRole(ctx context.Context, institution string, role models.Role) (int64, error) {
	sql, args, err := psql.Select("COUNT(*)").
		From("users").
		Where(squirrel.Eq{"institution": institution, "role": string(role)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return count, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var role string
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&role,
		&user.Institution,
		&user.Department,
		&user.Class,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	return &user, nil
}
