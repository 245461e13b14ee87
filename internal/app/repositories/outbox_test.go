package repositories

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/yigit/eventhub/internal/app/migrations"
	"github.com/yigit/eventhub/internal/app/models"
)

// testDatabaseEnv names a disposable Postgres database; its tables are truncated by each test
const testDatabaseEnv = "EVENTHUB_TEST_DATABASE_URL"

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv(testDatabaseEnv)
	if dsn == "" {
		t.Skipf("%s not set", testDatabaseEnv)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrations.NewMigrator(pool, zerolog.New(io.Discard)).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE event_changes, event_feedback, event_registrations, events, notifications RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

func newTestEvent(now time.Time) *models.Event {
	return &models.Event{
		ID:          uuid.NewString(),
		Title:       "Career Fair",
		Description: "Meet employers",
		ScheduledAt: now.Add(72 * time.Hour).Truncate(time.Microsecond),
		Location:    "Main Hall",
		CreatorID:   uuid.NewString(),
		CreatorName: "Dr. Grace",
		Institution: "uni-a",
		Audience:    models.DepartmentAudience("CS"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func countChanges(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT count(*) FROM event_changes`).Scan(&n); err != nil {
		t.Fatalf("count changes: %v", err)
	}
	return n
}

func TestOutboxRecordsMutationsInCommitOrder(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	events := NewEventRepository(pool)
	changes := NewChangeRepository(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	event := newTestEvent(now)
	if err := events.Create(ctx, event); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := events.Update(ctx, event.ID, func(e *models.Event) error {
		e.Location = "Room 101"
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	studentID := uuid.NewString()
	if _, err := events.AddRegistration(ctx, event.ID, models.Registration{
		StudentID: studentID, StudentName: "Ada", StudentEmail: "ada@uni-a.edu", RegisteredAt: now,
	}, nil); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := events.Delete(ctx, event.ID, nil); err != nil {
		t.Fatalf("delete: %v", err)
	}

	claimed, err := changes.Claim(ctx, 10, time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	wantOps := []models.ChangeOp{models.ChangeCreated, models.ChangeUpdated, models.ChangeRegistered, models.ChangeDeleted}
	if len(claimed) != len(wantOps) {
		t.Fatalf("expected %d changes, got %d", len(wantOps), len(claimed))
	}
	for i, change := range claimed {
		if change.Op != wantOps[i] || change.EventID != event.ID || change.Attempts != 1 {
			t.Fatalf("change %d: unexpected %+v", i, change)
		}
		if i > 0 && change.Seq <= claimed[i-1].Seq {
			t.Fatalf("changes must come back in commit order")
		}
	}

	updated := claimed[1]
	if updated.Before.Location != "Main Hall" || updated.After.Location != "Room 101" {
		t.Fatalf("update snapshots lost: before=%q after=%q", updated.Before.Location, updated.After.Location)
	}
	if !updated.After.ScheduledAt.Equal(event.ScheduledAt) {
		t.Fatalf("scheduled time drifted through the snapshot: %v", updated.After.ScheduledAt)
	}
	registered := claimed[2]
	if registered.StudentID != studentID || !registered.After.Registrations.Has(studentID) {
		t.Fatalf("registration change must name the student: %+v", registered)
	}
	if deleted := claimed[3]; deleted.Before == nil || deleted.After != nil {
		t.Fatalf("delete change carries only the before snapshot: %+v", deleted)
	}
}

func TestOutboxRollsBackWithRejectedMutation(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	events := NewEventRepository(pool)

	event := newTestEvent(time.Now().UTC().Truncate(time.Microsecond))
	if err := events.Create(ctx, event); err != nil {
		t.Fatalf("create: %v", err)
	}

	denied := errors.New("denied")
	if _, err := events.Update(ctx, event.ID, func(e *models.Event) error {
		e.Title = "Hijacked"
		return denied
	}); !errors.Is(err, denied) {
		t.Fatalf("expected guard error, got %v", err)
	}
	if _, err := events.Delete(ctx, event.ID, func(*models.Event) error { return denied }); !errors.Is(err, denied) {
		t.Fatalf("expected guard error, got %v", err)
	}

	if n := countChanges(t, pool); n != 1 {
		t.Fatalf("rejected mutations must not record changes, got %d rows", n)
	}
	stored, err := events.FindByID(ctx, event.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Title != "Career Fair" {
		t.Fatalf("rejected update was persisted: %q", stored.Title)
	}
}

func TestOutboxLeaseAndAck(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	events := NewEventRepository(pool)
	start := time.Now().UTC()

	for i := 0; i < 3; i++ {
		if err := events.Create(ctx, newTestEvent(start)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	first := &ChangeRepository{db: pool, now: func() time.Time { return start }}
	claimed, err := first.Claim(ctx, 2, time.Minute)
	if err != nil || len(claimed) != 2 {
		t.Fatalf("first claim: %d changes, err=%v", len(claimed), err)
	}

	rest, err := first.Claim(ctx, 10, time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(rest) != 1 || rest[0].Seq <= claimed[1].Seq {
		t.Fatalf("leased rows must be skipped, got %d changes", len(rest))
	}

	if err := first.Ack(ctx, claimed[0].Seq); err != nil {
		t.Fatalf("ack: %v", err)
	}

	later := &ChangeRepository{db: pool, now: func() time.Time { return start.Add(2 * time.Minute) }}
	redelivered, err := later.Claim(ctx, 10, time.Minute)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if len(redelivered) != 2 {
		t.Fatalf("expired leases must be redelivered and acked rows never, got %d", len(redelivered))
	}
	for _, change := range redelivered {
		if change.Seq == claimed[0].Seq {
			t.Fatalf("acked change %d redelivered", change.Seq)
		}
		if change.Attempts != 2 {
			t.Fatalf("change %d: expected attempt 2, got %d", change.Seq, change.Attempts)
		}
	}

	if err := later.Ack(ctx, redelivered[0].Seq, redelivered[1].Seq); err != nil {
		t.Fatalf("ack: %v", err)
	}
	purged, err := later.PurgeProcessed(ctx, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged != 3 || countChanges(t, pool) != 0 {
		t.Fatalf("expected every processed change purged, purged=%d", purged)
	}
}

func TestOutboxConcurrentClaimsDoNotOverlap(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	events := NewEventRepository(pool)
	changes := NewChangeRepository(pool)
	now := time.Now().UTC()

	const total = 20
	for i := 0; i < total; i++ {
		if err := events.Create(ctx, newTestEvent(now)); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	var (
		mu   sync.Mutex
		seen = map[int64]int{}
		wg   sync.WaitGroup
	)
	errs := make(chan error, 4)
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				batch, err := changes.Claim(ctx, 3, time.Minute)
				if err != nil {
					errs <- err
					return
				}
				if len(batch) == 0 {
					return
				}
				mu.Lock()
				for _, change := range batch {
					seen[change.Seq]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("claim: %v", err)
	}

	if len(seen) != total {
		t.Fatalf("expected %d distinct changes claimed, got %d", total, len(seen))
	}
	for seq, n := range seen {
		if n != 1 {
			t.Fatalf("change %d claimed %d times", seq, n)
		}
	}
}
