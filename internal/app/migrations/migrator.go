package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed sql/*.sql
var embedded embed.FS

// Migrator manages database migrations
type Migrator struct {
	db     *pgxpool.Pool
	files  fs.FS
	logger zerolog.Logger
}

// NewMigrator creates a migrator over the migrations embedded in the binary
func NewMigrator(db *pgxpool.Pool, logger zerolog.Logger) *Migrator {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		// embed pattern guarantees the directory exists
		panic(err)
	}
	return &Migrator{db: db, files: sub, logger: logger}
}

// ensureMigrationTableExists creates the migration tracking table if it doesn't exist
func (m *Migrator) ensureMigrationTableExists(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

	if _, err := m.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create migration tracking table: %w", err)
	}
	return nil
}

// isMigrationApplied checks if a specific migration has already been applied
func (m *Migrator) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1);`
	if err := m.db.QueryRow(ctx, query, version).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check migration status: %w", err)
	}
	return exists, nil
}

// Pending lists migration file names not yet applied, in order
func (m *Migrator) Pending(ctx context.Context) ([]string, error) {
	if err := m.ensureMigrationTableExists(ctx); err != nil {
		return nil, err
	}
	names, err := m.fileNames()
	if err != nil {
		return nil, err
	}
	var pending []string
	for _, name := range names {
		applied, err := m.isMigrationApplied(ctx, versionOf(name))
		if err != nil {
			return nil, err
		}
		if !applied {
			pending = append(pending, name)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction
func (m *Migrator) Up(ctx context.Context) error {
	pending, err := m.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		m.logger.Info().Msg("Database schema is up to date")
		return nil
	}
	for _, name := range pending {
		if err := m.apply(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) apply(ctx context.Context, name string) error {
	content, err := fs.ReadFile(m.files, name)
	if err != nil {
		return fmt.Errorf("failed to read migration file %s: %w", name, err)
	}

	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(content)); err != nil {
		return fmt.Errorf("error occurred during SQL migration %s: %w", name, err)
	}

	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)`,
		versionOf(name), time.Now()); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	m.logger.Info().Str("migration", name).Msg("Migration applied")
	return nil
}

func (m *Migrator) fileNames() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// versionOf extracts "001" from "001_init.sql"
func versionOf(name string) string {
	return strings.SplitN(path.Base(name), "_", 2)[0]
}
