// Package credential hashes and verifies passwords guarding accounts and meetings.
//
// New hashes are always bcrypt with a cost of at least MinCost. Hashes in the
// PHC argon2id format produced by earlier account imports still verify.
package credential

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest bcrypt cost the hasher will use.
const MinCost = 12

var (
	// ErrCredentialOperation signals that hashing or verification could not be performed.
	// Callers must treat it as a denial.
	ErrCredentialOperation = errors.New("credential: operation failed")
	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("credential: password is empty")
)

// Hasher produces and verifies password hashes.
type Hasher struct {
	cost int
}

// NewHasher returns a hasher using the given bcrypt cost, raised to MinCost when lower.
func NewHasher(cost int) *Hasher {
	if cost < MinCost {
		cost = MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Cost reports the bcrypt cost used for new hashes.
func (h *Hasher) Cost() int {
	if h == nil {
		return MinCost
	}
	return h.cost
}

// Hash returns a salted one-way hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialOperation, err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A mismatch is (false, nil); an
// unreadable hash yields ErrCredentialOperation.
func (h *Hasher) Verify(password, hash string) (bool, error) {
	if hash == "" {
		return false, nil
	}
	if strings.HasPrefix(hash, "$argon2id$") {
		return verifyArgon2id(password, hash)
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrCredentialOperation, err)
	}
}

// NeedsRehash reports whether hash should be replaced with a fresh bcrypt hash.
func (h *Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost < h.Cost()
}

// verifyArgon2id checks $argon2id$v=19$m=...,t=...,p=...$salt$hash encoded values.
func verifyArgon2id(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("%w: invalid argon2id hash format", ErrCredentialOperation)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCredentialOperation, err)
	}
	if version != argon2.Version {
		return false, fmt.Errorf("%w: incompatible argon2 version %d", ErrCredentialOperation, version)
	}

	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCredentialOperation, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCredentialOperation, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCredentialOperation, err)
	}

	got := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}
