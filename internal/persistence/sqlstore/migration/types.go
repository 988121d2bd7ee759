package migration

import (
	"context"
	"io/fs"
	"time"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
	FilePath    string
	Checksum    string
}

// AppliedMigration is a row of the schema_migrations table.
type AppliedMigration struct {
	Version       string
	AppliedAt     time.Time
	ExecutionTime time.Duration
	Checksum      string
}

// Status summarises the migration state of a database.
type Status struct {
	CurrentVersion string
	Applied        []AppliedMigration
	Pending        []Migration
}

// Scanner discovers migrations in a file system.
type Scanner interface {
	Scan(fsys fs.FS) ([]Migration, error)
}

// Executor applies migrations and tracks them in the version table.
type Executor interface {
	// InitializeVersionTable creates the schema_migrations table if it does not exist.
	InitializeVersionTable(ctx context.Context) error
	// Apply runs the migration statements and records the version in one transaction.
	Apply(ctx context.Context, migration Migration, appliedAt time.Time) (time.Duration, error)
	// AppliedMigrations returns the recorded migrations ordered by version.
	AppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
}
