package credential

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_RoundTrip(t *testing.T) {
	t.Parallel()

	h := NewHasher(MinCost)
	hash, err := h.Hash("abc123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if hash == "abc123" {
		t.Fatal("hash must not equal the password")
	}

	ok, err := h.Verify("abc123", hash)
	if err != nil || !ok {
		t.Fatalf("expected matching password to verify, got ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong", hash)
	if err != nil {
		t.Fatalf("mismatch must not error: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched password to fail verification")
	}
}

func TestHasher_EnforcesMinimumCost(t *testing.T) {
	t.Parallel()

	h := NewHasher(4)
	if h.Cost() != MinCost {
		t.Fatalf("expected cost to be raised to %d, got %d", MinCost, h.Cost())
	}

	hash, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost failed: %v", err)
	}
	if cost < MinCost {
		t.Fatalf("expected cost >= %d, got %d", MinCost, cost)
	}
}

func TestHasher_RejectsEmptyPassword(t *testing.T) {
	t.Parallel()

	if _, err := NewHasher(MinCost).Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestHasher_MalformedHashDenies(t *testing.T) {
	t.Parallel()

	h := NewHasher(MinCost)
	ok, err := h.Verify("secret", "not-a-hash")
	if ok {
		t.Fatal("malformed hash must never grant access")
	}
	if !errors.Is(err, ErrCredentialOperation) {
		t.Fatalf("expected ErrCredentialOperation, got %v", err)
	}

	ok, err = h.Verify("secret", "")
	if ok || err != nil {
		t.Fatalf("empty hash should be a plain mismatch, got ok=%v err=%v", ok, err)
	}
}

func TestHasher_VerifiesArgon2idHashes(t *testing.T) {
	t.Parallel()

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		t.Fatalf("rand.Read failed: %v", err)
	}
	key := argon2.IDKey([]byte("legacy-pass"), salt, 1, 8*1024, 1, 32)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, 8*1024, 1, 1,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	h := NewHasher(MinCost)
	ok, err := h.Verify("legacy-pass", encoded)
	if err != nil || !ok {
		t.Fatalf("expected argon2id hash to verify, got ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("other", encoded)
	if err != nil || ok {
		t.Fatalf("expected argon2id mismatch, got ok=%v err=%v", ok, err)
	}
	if !h.NeedsRehash(encoded) {
		t.Fatal("argon2id hashes should be flagged for rehash")
	}
}
