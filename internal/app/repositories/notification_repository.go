package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/eventhub/internal/app/models"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
)

var notificationColumns = []string{
	"id", "user_id", "type", "message", "event_id", "link", "is_read", "created_at",
}

// NotificationStore is the persistence contract for per-user notifications
type NotificationStore interface {
	InsertBatch(ctx context.Context, notifications []models.Notification) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset uint64) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, int64, error)
}

// NotificationRepository handles database operations for notifications
type NotificationRepository struct {
	db *pgxpool.Pool
}

// NewNotificationRepository creates a new NotificationRepository
func NewNotificationRepository(db *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertBatch writes all notifications in a single statement, so either every row commits or none does
func (r *NotificationRepository) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	query := psql.Insert("notifications").Columns(notificationColumns...)
	for _, n := range notifications {
		query = query.Values(n.ID, n.UserID, string(n.Type), n.Message, n.EventID, n.Link, n.IsRead, n.CreatedAt)
	}
	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error inserting notifications: %w", err)
	}
	return nil
}

// FindByID retrieves a notification by id
func (r *NotificationRepository) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	sql, args, err := psql.Select(notificationColumns...).
		From("notifications").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building SQL: %w", err)
	}

	n, err := scanNotification(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("notification not found")
		}
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return n, nil
}

// ListByUser returns a page of a user's notifications, newest first, with the total count
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset uint64) ([]models.Notification, int64, error) {
	where := squirrel.And{squirrel.Eq{"user_id": userID}}
	if unreadOnly {
		where = append(where, squirrel.Eq{"is_read": false})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("notifications").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}

	sql, args, err := psql.Select(notificationColumns...).
		From("notifications").
		Where(where).
		OrderBy("created_at DESC", "id").
		Limit(limit).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning row: %w", err)
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating rows: %w", err)
	}
	return notifications, total, nil
}

// CountUnread returns how many unread notifications a user has
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	sql, args, err := psql.Select("COUNT(*)").
		From("notifications").
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
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

// MarkRead flags a single notification of userID as read
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	sql, args, err := psql.Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("notification not found")
	}
	return nil
}

// MarkAllRead flags every unread notification of userID as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	sql, args, err := psql.Update("notifications").
		Set("is_read", true).
		Where(squirrel.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a single notification of userID
func (r *NotificationRepository) Delete(ctx context.Context, id, userID string) error {
	sql, args, err := psql.Delete("notifications").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("notification not found")
	}
	return nil
}

// DeleteOlderThan purges notifications created before cutoff.
// It returns the distinct owners of the purged rows and the number of rows removed.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, int64, error) {
	sql, args, err := psql.Delete("notifications").
		Where(squirrel.Lt{"created_at": cutoff}).
		Suffix("RETURNING user_id").
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("error building SQL: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error executing query: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, 0, fmt.Errorf("error scanning row: %w", err)
	}

	seen := make(map[string]struct{}, len(owners))
	users := make([]string, 0)
	for _, id := range owners {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		users = append(users, id)
	}
	return users, int64(len(owners)), nil
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	var kind string
	if err := row.Scan(&n.ID, &n.UserID, &kind, &n.Message, &n.EventID, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Type = models.NotificationType(kind)
	return &n, nil
}
