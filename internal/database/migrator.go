package database

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool the migrator needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Migrator handles database schema migrations
type Migrator struct {
	pool  Execer
	files fs.FS
}

// NewMigrator creates a new migration runner
//
// Parameters:
//   - pool: PostgreSQL connection pool
//   - files: filesystem holding the *.sql migrations (migrations.FS in production)
//
// Returns:
//   - *Migrator: New migrator instance
func NewMigrator(pool Execer, files fs.FS) *Migrator {
	return &Migrator{
		pool:  pool,
		files: files,
	}
}

// RunMigrations executes all pending database migrations
//
// This function:
//  1. Creates a migrations tracking table if it doesn't exist
//  2. Lists the *.sql files in the migration filesystem
//  3. Skips migrations that have already been run
//  4. Executes new migrations in alphabetical order
//  5. Records successful migrations in the tracking table
//
// Migrations are skipped if:
//   - Filename contains "reset" (destructive operations)
//   - Migration has already been run (tracked in migrations table)
//
// Returns:
//   - int: number of migrations applied by this call
//   - error: If any migration fails
func (m *Migrator) RunMigrations(ctx context.Context) (int, error) {
	log.Println("[Migrator] Starting database migrations...")

	if err := m.createMigrationsTable(ctx); err != nil {
		return 0, fmt.Errorf("failed to create migrations table: %w", err)
	}

	appliedMigrations, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	migrationFiles, err := m.pending()
	if err != nil {
		return 0, err
	}

	migrationsRun := 0
	for _, filename := range migrationFiles {
		if appliedMigrations[filename] {
			log.Printf("[Migrator]   ✓ Already applied: %s", filename)
			continue
		}

		content, err := fs.ReadFile(m.files, filename)
		if err != nil {
			return migrationsRun, fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		log.Printf("[Migrator]   → Running: %s", filename)
		if _, err := m.pool.Exec(ctx, string(content)); err != nil {
			return migrationsRun, fmt.Errorf("failed to run migration %s: %w", filename, err)
		}

		if err := m.recordMigration(ctx, filename); err != nil {
			return migrationsRun, fmt.Errorf("failed to record migration %s: %w", filename, err)
		}

		migrationsRun++
	}

	if migrationsRun > 0 {
		log.Printf("[Migrator] ✓ Successfully ran %d new migration(s)", migrationsRun)
	} else {
		log.Println("[Migrator] ✓ All migrations already applied - database is up to date")
	}

	return migrationsRun, nil
}

// pending lists the runnable migration files in execution order.
func (m *Migrator) pending() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		if strings.Contains(name, "reset") {
			log.Printf("[Migrator]   ⊘ Skipping: %s (reset script)", name)
			continue
		}
		migrationFiles = append(migrationFiles, name)
	}
	sort.Strings(migrationFiles)
	return migrationFiles, nil
}

// createMigrationsTable creates the schema_migrations table if it doesn't exist
//
// Schema:
//   - id: Auto-incrementing primary key
//   - filename: Migration filename (unique)
//   - applied_at: Timestamp when migration was applied
func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`

	_, err := m.pool.Exec(ctx, query)
	return err
}

// getAppliedMigrations returns a map of all migrations that have been applied
func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := m.pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, err
		}
		applied[filename] = true
	}

	return applied, rows.Err()
}

// recordMigration records a successful migration in the tracking table
func (m *Migrator) recordMigration(ctx context.Context, filename string) error {
	query := `
		INSERT INTO schema_migrations (filename)
		VALUES ($1)
		ON CONFLICT (filename) DO NOTHING
	`

	_, err := m.pool.Exec(ctx, query, filename)
	return err
}
