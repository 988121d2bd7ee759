package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence"
)

const appliedAtLayout = time.RFC3339Nano

// SQLExecutor applies migrations through database/sql.
type SQLExecutor struct {
	db      *sql.DB
	dialect persistence.Dialect
}

// NewSQLExecutor returns an executor for db speaking the given dialect.
func NewSQLExecutor(db *sql.DB, dialect persistence.Dialect) *SQLExecutor {
	return &SQLExecutor{db: db, dialect: dialect}
}

// InitializeVersionTable creates the schema_migrations table if it does not exist.
func (e *SQLExecutor) InitializeVersionTable(ctx context.Context) error {
	const createTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL,
		checksum TEXT NOT NULL DEFAULT '',
		execution_time_ms INTEGER NOT NULL DEFAULT 0
	)`
	if _, err := e.db.ExecContext(ctx, createTable); err != nil {
		return newDatabaseError("", createTable, "create schema_migrations table", err)
	}
	return nil
}

// Apply runs every statement of the migration and records it, all within one transaction.
func (e *SQLExecutor) Apply(ctx context.Context, migration Migration, appliedAt time.Time) (elapsed time.Duration, err error) {
	statements := splitStatements(migration.SQL)
	if len(statements) == 0 {
		return 0, newMigrationError(migration.Version, migration.FilePath, "parse SQL",
			fmt.Errorf("%w: no SQL statements found", ErrInvalidMigrationFile))
	}

	started := time.Now()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, newDatabaseError(migration.Version, "", "begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i, stmt := range statements {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return 0, newDatabaseError(migration.Version, stmt, fmt.Sprintf("execute statement %d", i+1), err)
		}
	}

	elapsed = time.Since(started)
	insert := e.dialect.Rebind(`INSERT INTO schema_migrations (version, applied_at, checksum, execution_time_ms) VALUES (?, ?, ?, ?)`)
	if _, err = tx.ExecContext(ctx, insert, migration.Version, appliedAt.UTC().Format(appliedAtLayout), migration.Checksum, elapsed.Milliseconds()); err != nil {
		return 0, newDatabaseError(migration.Version, insert, "record migration", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, newDatabaseError(migration.Version, "", "commit transaction", err)
	}
	return elapsed, nil
}

// AppliedMigrations returns the recorded migrations ordered by version.
func (e *SQLExecutor) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	const query = `SELECT version, applied_at, checksum, execution_time_ms FROM schema_migrations ORDER BY version ASC`
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, newDatabaseError("", query, "get applied versions", err)
	}
	defer rows.Close()

	applied := make([]AppliedMigration, 0)
	for rows.Next() {
		var (
			m         AppliedMigration
			appliedAt string
			elapsedMs int64
		)
		if err := rows.Scan(&m.Version, &appliedAt, &m.Checksum, &elapsedMs); err != nil {
			return nil, newDatabaseError("", query, "scan applied migration", err)
		}
		if m.AppliedAt, err = time.Parse(appliedAtLayout, appliedAt); err != nil {
			return nil, newDatabaseError(m.Version, query, "parse applied_at", err)
		}
		m.ExecutionTime = time.Duration(elapsedMs) * time.Millisecond
		applied = append(applied, m)
	}
	if err := rows.Err(); err != nil {
		return nil, newDatabaseError("", query, "iterate applied migrations", err)
	}
	return applied, nil
}
