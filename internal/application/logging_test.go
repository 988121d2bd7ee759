package application

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var base, scoped bytes.Buffer
	baseLogger := slog.New(slog.NewTextHandler(&base, nil))
	ctx := logging.ContextWithLogger(context.Background(), slog.New(slog.NewTextHandler(&scoped, nil)))

	logger := serviceLogger(ctx, baseLogger, "MeetingService", "EndMeeting", "meeting_id", "m-1")
	logOutcome(ctx, logger, nil, "failed", "meeting ended")

	if base.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %q", base.String())
	}
	line := scoped.String()
	for _, want := range []string{"service=MeetingService", "operation=EndMeeting", "meeting_id=m-1", "meeting ended"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestLogOutcomeRecordsErrorKind(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logOutcome(context.Background(), logger, fmt.Errorf("award: %w", ErrMeetingNotActive), "failed to award point", "point awarded")

	line := buf.String()
	if !strings.Contains(line, "error_kind=meeting_not_active") {
		t.Fatalf("expected error kind in %q", line)
	}
	if !strings.Contains(line, "level=ERROR") {
		t.Fatalf("expected error level in %q", line)
	}
}
