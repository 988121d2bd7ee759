package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLExecutor_RunAgainstSQLite(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	files := fstest.MapFS{
		"001_widgets.sql": {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY, name TEXT NOT NULL);\nCREATE INDEX idx_widgets_name ON widgets (name);")},
		"002_gadgets.sql": {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
	}
	manager := NewManager(NewScanner(), NewSQLExecutor(db, persistence.DialectSQLite), files, quietLogger())

	applied, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied, got %d", applied)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO widgets (id, name) VALUES ('w1', 'bolt')`); err != nil {
		t.Fatalf("expected widgets table to exist: %v", err)
	}

	recorded, err := NewSQLExecutor(db, persistence.DialectSQLite).AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations failed: %v", err)
	}
	if len(recorded) != 2 || recorded[0].Version != "001" || recorded[0].Checksum == "" || recorded[0].AppliedAt.IsZero() {
		t.Fatalf("unexpected recorded migrations %#v", recorded)
	}

	if applied, err := manager.Run(ctx); err != nil || applied != 0 {
		t.Fatalf("expected rerun to apply nothing, got %d, %v", applied, err)
	}
}

func TestSQLExecutor_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	executor := NewSQLExecutor(db, persistence.DialectSQLite)
	if err := executor.InitializeVersionTable(ctx); err != nil {
		t.Fatalf("InitializeVersionTable failed: %v", err)
	}

	broken := Migration{Version: "001", FilePath: "001_broken.sql", SQL: "CREATE TABLE ok (id TEXT);\nCREATE TABLE ok (id TEXT);"}
	_, err := executor.Apply(ctx, broken, time.Now())
	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DatabaseError, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ok'`).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected the first statement to be rolled back")
	}
	recorded, _ := executor.AppliedMigrations(ctx)
	if len(recorded) != 0 {
		t.Fatalf("expected nothing recorded, got %#v", recorded)
	}
}
