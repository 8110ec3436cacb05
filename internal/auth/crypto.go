// Package auth implements the authentication and authorization core: salted
// key derivation for API key secrets, the request path classifier, the
// permission rule table, and the authorizer that combines them into an
// allow/deny decision.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeyScheme is the leading marker on every raw API key.
	KeyScheme = "iv_"

	// KeyPrefixLen is the number of leading characters of a raw key that are
	// stored in the clear and indexed for lookup. The prefix is not secret.
	KeyPrefixLen = 12

	// keyRandomBytes is the entropy of the secret portion of a key.
	keyRandomBytes = 32

	saltLen   = 16
	digestLen = 32

	// maxSecretLen bounds the input to the key derivation so a caller cannot
	// burn CPU with an arbitrarily large secret.
	maxSecretLen = 256

	// DefaultIterations is the PBKDF2 iteration count used when none is
	// configured. Deliberately expensive.
	DefaultIterations = 120_000
)

var (
	ErrEmptySecret   = errors.New("secret is empty")
	ErrSecretTooLong = errors.New("secret exceeds maximum length")
)

// Hasher derives and verifies salted digests of API key secrets using
// PBKDF2-SHA256. It is stateless and safe for concurrent use.
type Hasher struct {
	iterations int
}

// NewHasher returns a Hasher with the given iteration count. Counts below 1
// fall back to DefaultIterations.
func NewHasher(iterations int) *Hasher {
	if iterations < 1 {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

// Hash derives the digest of secret under salt. It is deterministic: the same
// (secret, salt) pair always yields the same digest.
func (h *Hasher) Hash(secret string, salt []byte) ([]byte, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if len(secret) > maxSecretLen {
		return nil, ErrSecretTooLong
	}
	return pbkdf2.Key([]byte(secret), salt, h.iterations, digestLen, sha256.New), nil
}

// Verify recomputes the digest of secret under salt and compares it against
// expected in constant time. Malformed secrets verify as false, never as an
// error, so callers cannot distinguish them from a wrong key.
func (h *Hasher) Verify(secret string, salt, expected []byte) bool {
	digest, err := h.Hash(secret, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(digest, expected) == 1
}

// GenerateSalt returns a fresh random salt for a new credential.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// GenerateKey creates a new raw API key: the scheme marker followed by 64 hex
// characters of entropy. The raw key is shown to the caller exactly once;
// only its prefix, salt, and digest are ever stored.
func GenerateKey() (string, error) {
	buf := make([]byte, keyRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return KeyScheme + hex.EncodeToString(buf), nil
}

// KeyPrefix returns the non-secret leading portion of a raw key, used for
// indexed credential lookup.
func KeyPrefix(rawKey string) string {
	if len(rawKey) <= KeyPrefixLen {
		return rawKey
	}
	return rawKey[:KeyPrefixLen]
}
