package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// AccountService manages registered accounts.
type AccountService struct {
	accounts    AccountRepository
	hasher      PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewAccountService constructs an AccountService with the provided dependencies.
func NewAccountService(accounts AccountRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time) *AccountService {
	return NewAccountServiceWithLogger(accounts, hasher, idGenerator, now, nil)
}

// NewAccountServiceWithLogger constructs an AccountService with a specified logger.
func NewAccountServiceWithLogger(accounts AccountRepository, hasher PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AccountService{accounts: accounts, hasher: hasher, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// Register validates the input, hashes the password and persists a new account.
func (s *AccountService) Register(ctx context.Context, input RegisterAccountInput) (account Account, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}
	if s.accounts == nil || s.hasher == nil {
		err = fmt.Errorf("account dependencies not configured")
		return
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)
	input.DisplayName = strings.TrimSpace(input.DisplayName)

	logger := s.loggerWith(ctx, "Register", "email", input.Email)
	defer func() {
		logOutcome(ctx, logger, err, "failed to register account", "account registered", "account_id", account.ID)
	}()

	if vErr := validateInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hasher.Hash(input.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	account = Account{
		ID:          s.idGenerator(),
		Email:       input.Email,
		Username:    input.Username,
		DisplayName: input.DisplayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	account, err = s.accounts.CreateAccount(ctx, AccountCredentials{Account: account, PasswordHash: hash})
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// EmailExists reports whether a registered account uses the email.
func (s *AccountService) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// GetByEmail returns the account registered with the email.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (Account, error) {
	if s == nil || s.accounts == nil {
		return Account{}, fmt.Errorf("account repository not configured")
	}
	normalized := normalizeEmail(email)
	if normalized == "" {
		return Account{}, ErrNotFound
	}
	creds, err := s.accounts.GetAccountCredentialsByEmail(ctx, normalized)
	if err != nil {
		return Account{}, mapRepoError(err)
	}
	return creds.Account, nil
}

// GetAccount returns the account with the given id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (Account, error) {
	if s == nil || s.accounts == nil {
		return Account{}, fmt.Errorf("account repository not configured")
	}
	account, err := s.accounts.GetAccount(ctx, strings.TrimSpace(id))
	if err != nil {
		return Account{}, mapRepoError(err)
	}
	return account, nil
}

// AccountEmail resolves an account id to its email address.
func (s *AccountService) AccountEmail(ctx context.Context, accountID string) (string, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	return account.Email, nil
}
