// Package migration applies versioned SQL schema migrations.
//
// Migration files live in an fs.FS (usually an embed.FS) and follow the naming
// convention {version}_{description}.sql, e.g. "001_accounts.sql". An optional
// "-- Description: ..." comment at the top of the file overrides the description
// derived from the file name.
//
// Applied versions are tracked in the schema_migrations table together with the
// checksum of the file that was applied, so edits to an already applied migration
// are detected instead of silently ignored.
//
// Example usage:
//
//	manager := migration.NewManager(migration.NewScanner(), migration.NewSQLExecutor(db, dialect), files, logger)
//	if _, err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
