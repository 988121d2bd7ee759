package sqlstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/kassemabbassi/meet-tracker-sub000/internal/application"
	"github.com/kassemabbassi/meet-tracker-sub000/internal/persistence"
)

const accountColumns = `id, email, username, display_name, password_hash, created_at, updated_at`

// CreateAccount inserts a new account with its password hash.
func (s *Store) CreateAccount(ctx context.Context, creds application.AccountCredentials) (application.Account, error) {
	if creds.Account.ID == "" || creds.PasswordHash == "" {
		return application.Account{}, persistence.ErrConstraintViolation
	}
	account := creds.Account
	_, err := s.exec(ctx, s.db, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Email,
		account.Username,
		account.DisplayName,
		creds.PasswordHash,
		formatTime(account.CreatedAt),
		formatTime(account.UpdatedAt),
	)
	if err != nil {
		return application.Account{}, err
	}
	return account, nil
}

// GetAccount loads an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (application.Account, error) {
	creds, err := scanAccount(s.queryRow(ctx, s.db, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err != nil {
		return application.Account{}, err
	}
	return creds.Account, nil
}

// GetAccountCredentialsByEmail loads an account and its hash by normalised email.
func (s *Store) GetAccountCredentialsByEmail(ctx context.Context, email string) (application.AccountCredentials, error) {
	return scanAccount(s.queryRow(ctx, s.db, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email))
}

// EmailExists reports whether an account uses the email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.count(ctx, s.db, `SELECT COUNT(*) FROM accounts WHERE email = ?`, email)
	return n > 0, err
}

// AccountEmail resolves an account id to its email.
func (s *Store) AccountEmail(ctx context.Context, id string) (string, error) {
	var email string
	if err := s.queryRow(ctx, s.db, `SELECT email FROM accounts WHERE id = ?`, id).Scan(&email); err != nil {
		return "", mapError(err)
	}
	return email, nil
}

// UpdatePasswordHash replaces the stored hash of an account.
func (s *Store) UpdatePasswordHash(ctx context.Context, accountID, hash string, updatedAt time.Time) error {
	result, err := s.exec(ctx, s.db, `UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(updatedAt), accountID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func scanAccount(row rowScanner) (application.AccountCredentials, error) {
	var (
		creds            application.AccountCredentials
		created, updated string
	)
	err := row.Scan(
		&creds.Account.ID,
		&creds.Account.Email,
		&creds.Account.Username,
		&creds.Account.DisplayName,
		&creds.PasswordHash,
		&created,
		&updated,
	)
	if err != nil {
		return application.AccountCredentials{}, mapError(err)
	}
	if creds.Account.CreatedAt, creds.Account.UpdatedAt, err = timestamps(created, updated); err != nil {
		return application.AccountCredentials{}, err
	}
	return creds, nil
}

const sessionColumns = `id, account_id, token, expires_at, revoked_at, created_at, updated_at`

// CreateSession stores a newly issued session.
func (s *Store) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	if session.ID == "" || session.Token == "" {
		return application.Session{}, persistence.ErrConstraintViolation
	}
	_, err := s.exec(ctx, s.db, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.AccountID,
		session.Token,
		formatTime(session.ExpiresAt),
		nullTime(session.RevokedAt),
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		return application.Session{}, err
	}
	return session, nil
}

// GetSession loads a session by token.
func (s *Store) GetSession(ctx context.Context, token string) (application.Session, error) {
	if token == "" {
		return application.Session{}, persistence.ErrNotFound
	}
	return scanSession(s.queryRow(ctx, s.db, `SELECT `+sessionColumns+` FROM sessions WHERE token = ?`, token))
}

// UpdateSession rewrites the mutable fields of a session identified by id.
func (s *Store) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	updated, err := scanSession(s.queryRow(ctx, s.db, `
		UPDATE sessions
		SET token = ?, expires_at = ?, revoked_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+sessionColumns,
		session.Token,
		formatTime(session.ExpiresAt),
		nullTime(session.RevokedAt),
		formatTime(session.UpdatedAt),
		session.ID,
	))
	if err != nil {
		return application.Session{}, err
	}
	return updated, nil
}

// RevokeSession stamps revoked_at on the session holding token.
func (s *Store) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	if token == "" {
		return application.Session{}, persistence.ErrNotFound
	}
	stamp := formatTime(revokedAt)
	return scanSession(s.queryRow(ctx, s.db, `
		UPDATE sessions
		SET revoked_at = ?, updated_at = ?
		WHERE token = ?
		RETURNING `+sessionColumns,
		stamp, stamp, token,
	))
}

// DeleteExpiredSessions removes sessions that expired on or before reference.
func (s *Store) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	_, err := s.exec(ctx, s.db, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(reference))
	return err
}

func scanSession(row rowScanner) (application.Session, error) {
	var (
		session                   application.Session
		expires, created, updated string
		revoked                   sql.NullString
	)
	err := row.Scan(&session.ID, &session.AccountID, &session.Token, &expires, &revoked, &created, &updated)
	if err != nil {
		return application.Session{}, mapError(err)
	}
	if session.ExpiresAt, err = parseTime(expires); err != nil {
		return application.Session{}, err
	}
	if session.RevokedAt, err = parseNullTime(revoked); err != nil {
		return application.Session{}, err
	}
	if session.CreatedAt, session.UpdatedAt, err = timestamps(created, updated); err != nil {
		return application.Session{}, err
	}
	return session, nil
}
