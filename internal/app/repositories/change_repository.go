package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/eventhub/internal/app/models"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const claimChangesSQL = `
UPDATE event_changes
SET claimed_until = $1, attempts = attempts + 1
WHERE seq IN (
    SELECT seq FROM event_changes
    WHERE processed_at IS NULL AND (claimed_until IS NULL OR claimed_until < $2)
    ORDER BY seq
    LIMIT $3
    FOR UPDATE SKIP LOCKED
)
RETURNING seq, op, event_id, before, after, student_id, attempts, created_at`

// ChangeRepository is the outbox of committed event mutations
type ChangeRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewChangeRepository creates a new ChangeRepository
func NewChangeRepository(db *pgxpool.Pool) *ChangeRepository {
	return &ChangeRepository{db: db, now: time.Now}
}

// appendChange records a change inside the transaction that performed the mutation
func appendChange(ctx context.Context, q querier, change *models.EventChange) error {
	before, err := snapshot(change.Before)
	if err != nil {
		return err
	}
	after, err := snapshot(change.After)
	if err != nil {
		return err
	}
	var studentID *string
	if change.StudentID != "" {
		studentID = &change.StudentID
	}

	sql, args, err := psql.Insert("event_changes").
		Columns("op", "event_id", "before", "after", "student_id").
		Values(string(change.Op), change.EventID, before, after, studentID).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := q.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error recording event change: %w", err)
	}
	return nil
}

func snapshot(event *models.Event) ([]byte, error) {
	if event == nil {
		return nil, nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("error encoding event snapshot: %w", err)
	}
	return data, nil
}

// Claim leases up to limit unprocessed changes in commit order.
// Rows leased by another worker are skipped until their lease runs out.
func (r *ChangeRepository) Claim(ctx context.Context, limit int, lease time.Duration) ([]*models.EventChange, error) {
	now := r.now().UTC()
	rows, err := r.db.Query(ctx, claimChangesSQL, now.Add(lease), now, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var changes []*models.EventChange
	for rows.Next() {
		var (
			change    models.EventChange
			op        string
			before    []byte
			after     []byte
			studentID *string
		)
		if err := rows.Scan(&change.Seq, &op, &change.EventID, &before, &after, &studentID, &change.Attempts, &change.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		change.Op = models.ChangeOp(op)
		if studentID != nil {
			change.StudentID = *studentID
		}
		if change.Before, err = decodeSnapshot(before); err != nil {
			return nil, fmt.Errorf("change %d: %w", change.Seq, err)
		}
		if change.After, err = decodeSnapshot(after); err != nil {
			return nil, fmt.Errorf("change %d: %w", change.Seq, err)
		}
		changes = append(changes, &change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Seq < changes[j].Seq })
	return changes, nil
}

func decodeSnapshot(data []byte) (*models.Event, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var event models.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("error decoding event snapshot: %w", err)
	}
	return &event, nil
}

// Ack marks changes as processed so they are never claimed again
func (r *ChangeRepository) Ack(ctx context.Context, seqs ...int64) error {
	if len(seqs) == 0 {
		return nil
	}
	sql, args, err := psql.Update("event_changes").
		Set("processed_at", r.now().UTC()).
		Set("claimed_until", nil).
		Where(squirrel.Eq{"seq": seqs}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building SQL: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// PurgeProcessed deletes processed changes older than cutoff
func (r *ChangeRepository) PurgeProcessed(ctx context.Context, cutoff time.Time) (int64, error) {
	sql, args, err := psql.Delete("event_changes").
		Where(squirrel.NotEq{"processed_at": nil}).
		Where(squirrel.Lt{"processed_at": cutoff}).
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
