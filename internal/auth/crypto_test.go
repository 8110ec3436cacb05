package auth

import (
	"bytes"
	"strings"
	"testing"
)

func TestHashDeterministic(t *testing.T) {
	h := NewHasher(64)
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt: %v", err)
	}

	d1, err := h.Hash("iv_secret", salt)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	d2, err := h.Hash("iv_secret", salt)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !bytes.Equal(d1, d2) {
		t.Error("same secret and salt must produce the same digest")
	}
}

func TestHashSaltSeparation(t *testing.T) {
	h := NewHasher(64)
	s1, _ := GenerateSalt()
	s2, _ := GenerateSalt()

	d1, err := h.Hash("iv_secret", s1)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	d2, err := h.Hash("iv_secret", s2)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if bytes.Equal(d1, d2) {
		t.Error("different salts must produce different digests")
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	h := NewHasher(64)
	salt, _ := GenerateSalt()

	digest, err := h.Hash("iv_correct", salt)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	if !h.Verify("iv_correct", salt, digest) {
		t.Error("correct secret must verify")
	}
	if h.Verify("iv_wrong", salt, digest) {
		t.Error("wrong secret must not verify")
	}

	// One flipped bit in the digest must fail.
	tampered := append([]byte(nil), digest...)
	tampered[0] ^= 1
	if h.Verify("iv_correct", salt, tampered) {
		t.Error("tampered digest must not verify")
	}
}

func TestHashRejectsMalformedSecrets(t *testing.T) {
	h := NewHasher(64)
	salt, _ := GenerateSalt()

	if _, err := h.Hash("", salt); err != ErrEmptySecret {
		t.Errorf("empty secret: got %v, want ErrEmptySecret", err)
	}
	long := strings.Repeat("x", maxSecretLen+1)
	if _, err := h.Hash(long, salt); err != ErrSecretTooLong {
		t.Errorf("oversized secret: got %v, want ErrSecretTooLong", err)
	}

	// Verify maps malformed secrets to false, never an error.
	digest, _ := h.Hash("iv_ok", salt)
	if h.Verify("", salt, digest) {
		t.Error("empty secret must not verify")
	}
	if h.Verify(long, salt, digest) {
		t.Error("oversized secret must not verify")
	}
}

func TestIterationFloor(t *testing.T) {
	for _, n := range []int{0, -5} {
		h := NewHasher(n)
		if h.iterations != DefaultIterations {
			t.Errorf("NewHasher(%d): iterations = %d, want %d", n, h.iterations, DefaultIterations)
		}
	}
}

func TestGenerateKeyFormat(t *testing.T) {
	k1, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	k2, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	if !strings.HasPrefix(k1, KeyScheme) {
		t.Errorf("key %q missing scheme %q", k1, KeyScheme)
	}
	if len(k1) != len(KeyScheme)+2*keyRandomBytes {
		t.Errorf("key length %d, want %d", len(k1), len(KeyScheme)+2*keyRandomBytes)
	}
	if k1 == k2 {
		t.Error("two generated keys must differ")
	}
}

func TestKeyPrefix(t *testing.T) {
	key, _ := GenerateKey()
	prefix := KeyPrefix(key)
	if len(prefix) != KeyPrefixLen {
		t.Errorf("prefix length %d, want %d", len(prefix), KeyPrefixLen)
	}
	if !strings.HasPrefix(key, prefix) {
		t.Errorf("key %q does not start with prefix %q", key, prefix)
	}

	// Short inputs come back unchanged.
	if got := KeyPrefix("iv_ab"); got != "iv_ab" {
		t.Errorf("short key prefix: got %q", got)
	}
}
