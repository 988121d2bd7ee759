package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func newAuthFixture(t *testing.T) (*AuthService, *memoryStore, *time.Time) {
	t.Helper()
	store := newMemoryStore()
	store.seedAccount("acct-1", "ana@example.com")
	now := referenceTime
	svc := NewAuthService(store, store, fakeHasher{}, sequence("session"), sequence("token"), func() time.Time { return now }, time.Hour)
	return svc, store, &now
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		svc, store, _ := newAuthFixture(t)
		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: " ANA@example.com", Password: "password"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if result.Account.ID != "acct-1" {
			t.Fatalf("expected account acct-1, got %s", result.Account.ID)
		}
		if result.Session.Token != "token-1" || result.Session.ID != "session-1" {
			t.Fatalf("unexpected session %#v", result.Session)
		}
		if !result.Session.ExpiresAt.Equal(referenceTime.Add(time.Hour)) {
			t.Fatalf("expected expiry one hour out, got %v", result.Session.ExpiresAt)
		}
		if _, ok := store.sessions["token-1"]; !ok {
			t.Fatalf("expected session to be persisted")
		}
	})

	t.Run("rejects wrong passwords and unknown emails alike", func(t *testing.T) {
		t.Parallel()

		svc, _, _ := newAuthFixture(t)
		for _, params := range []AuthenticateParams{
			{Email: "ana@example.com", Password: "wrong"},
			{Email: "nobody@example.com", Password: "password"},
			{Email: "", Password: ""},
		} {
			_, err := svc.Authenticate(context.Background(), params)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for %#v, got %v", params, err)
			}
		}
	})

	t.Run("treats malformed stored hashes as a denial", func(t *testing.T) {
		t.Parallel()

		svc, store, _ := newAuthFixture(t)
		creds := store.accounts["acct-1"]
		creds.PasswordHash = "garbage"
		store.accounts["acct-1"] = creds

		_, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "ana@example.com", Password: "password"})
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	svc, _, now := newAuthFixture(t)
	result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "ana@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	principal, err := svc.ValidateSession(context.Background(), result.Session.Token)
	if err != nil {
		t.Fatalf("ValidateSession failed: %v", err)
	}
	if principal.AccountID != "acct-1" || principal.Email != "ana@example.com" {
		t.Fatalf("unexpected principal %#v", principal)
	}

	if _, err := svc.ValidateSession(context.Background(), "unknown"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown token, got %v", err)
	}

	*now = now.Add(2 * time.Hour)
	if _, err := svc.ValidateSession(context.Background(), result.Session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestAuthService_ValidateSessionLogLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	store := newMemoryStore()
	store.seedAccount("acct-1", "ana@example.com")
	now := referenceTime
	svc := NewAuthServiceWithLogger(store, store, fakeHasher{}, sequence("session"), sequence("token"), func() time.Time { return now }, time.Hour, logger)
	ctx := context.Background()

	result, err := svc.Authenticate(ctx, AuthenticateParams{Email: "ana@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	buf.Reset()

	now = now.Add(2 * time.Hour)
	if _, err := svc.ValidateSession(ctx, result.Session.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, err := svc.ValidateSession(ctx, "unknown"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if !strings.Contains(line, `"level":"WARN"`) || !strings.Contains(line, `"msg":"session rejected"`) {
			t.Fatalf("expected rejected tokens to log at warn, got %s", line)
		}
	}

	buf.Reset()
	store.failWith = errors.New("database is locked")
	if _, err := svc.ValidateSession(ctx, result.Session.Token); ErrorKind(err) != "unexpected" {
		t.Fatalf("expected backend error, got %v", err)
	}
	if !strings.Contains(buf.String(), `"level":"ERROR"`) || !strings.Contains(buf.String(), "database is locked") {
		t.Fatalf("expected backend failure to log at error, got %s", buf.String())
	}
}

func TestAuthService_RefreshAndRevoke(t *testing.T) {
	t.Parallel()

	svc, _, now := newAuthFixture(t)
	result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: "ana@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	*now = now.Add(30 * time.Minute)
	refreshed, err := svc.RefreshSession(context.Background(), result.Session.Token)
	if err != nil {
		t.Fatalf("RefreshSession failed: %v", err)
	}
	if refreshed.Token == result.Session.Token {
		t.Fatalf("expected token rotation")
	}
	if !refreshed.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected extended expiry, got %v", refreshed.ExpiresAt)
	}
	if _, err := svc.ValidateSession(context.Background(), result.Session.Token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old token to stop working, got %v", err)
	}

	if err := svc.RevokeSession(context.Background(), refreshed.Token); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), refreshed.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if err := svc.RevokeSession(context.Background(), "missing"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
