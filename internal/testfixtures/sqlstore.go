package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence/sqlstore"
)

// SQLHarness provides a migrated SQLite store in a temporary directory for
// integration-style persistence tests.
type SQLHarness struct {
	Store *sqlstore.Store

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLHarness opens and migrates a file backed store. The store is closed
// through tb.Cleanup; calling Close earlier is allowed.
func NewSQLHarness(tb testing.TB) *SQLHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "tracker.db")
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: "sqlite", DSN: path}, logger)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}
	if _, err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate store: %v", err)
	}

	harness := &SQLHarness{
		Store:   store,
		cleanup: func() { _ = store.Close() },
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedAccount inserts an account fixture and returns the stored record.
func (h *SQLHarness) SeedAccount(tb testing.TB, opts ...AccountOption) (AccountFixture, application.Account) {
	tb.Helper()
	fixture := NewAccountFixture(opts...)
	account, err := h.Store.CreateAccount(context.Background(), fixture.Credentials())
	if err != nil {
		tb.Fatalf("seed account %s: %v", fixture.ID, err)
	}
	return fixture, account
}

// SeedMeeting inserts a meeting fixture and returns the stored record.
func (h *SQLHarness) SeedMeeting(tb testing.TB, fixture MeetingFixture) application.Meeting {
	tb.Helper()
	meeting, err := h.Store.CreateMeeting(context.Background(), fixture.Application())
	if err != nil {
		tb.Fatalf("seed meeting %s: %v", fixture.ID, err)
	}
	return meeting
}

// SeedTraining inserts a training fixture and returns the stored record.
func (h *SQLHarness) SeedTraining(tb testing.TB, fixture TrainingFixture) application.Training {
	tb.Helper()
	training, err := h.Store.CreateTraining(context.Background(), fixture.Application())
	if err != nil {
		tb.Fatalf("seed training %s: %v", fixture.ID, err)
	}
	return training
}
