package service

import (
	"context"
	"errors"
	"testing"

	"github.com/imgvault/imgvault/internal/auth"
	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/store"
)

func newTestAuth(t *testing.T) (*AuthService, *store.Store) {
	t.Helper()
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	// Low iteration count keeps the tests fast.
	svc, err := NewAuthService(st, auth.NewHasher(16), "test-secret-key-for-tokens", nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, st
}

func TestMintAndAuthenticate(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	cred, rawKey, err := svc.MintCredential(ctx, "ci", model.RoleAdmin, "team-1", "")
	if err != nil {
		t.Fatalf("MintCredential: %v", err)
	}
	if rawKey == "" {
		t.Fatal("expected non-empty raw key")
	}
	if cred.Prefix != auth.KeyPrefix(rawKey) {
		t.Errorf("Prefix: got %q, want %q", cred.Prefix, auth.KeyPrefix(rawKey))
	}

	id, err := svc.Authenticate(ctx, rawKey)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if id.CredentialID != cred.ID {
		t.Errorf("CredentialID: got %q, want %q", id.CredentialID, cred.ID)
	}
	if id.Role != model.RoleAdmin {
		t.Errorf("Role: got %q, want %q", id.Role, model.RoleAdmin)
	}
	if id.TeamID != "team-1" {
		t.Errorf("TeamID: got %q, want %q", id.TeamID, "team-1")
	}
}

func TestAuthenticateUnknownKey(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	for _, key := range []string{"", "iv_totally_unknown_key", "wrong format"} {
		if _, err := svc.Authenticate(ctx, key); !errors.Is(err, auth.ErrUnauthenticated) {
			t.Errorf("Authenticate(%q): got %v, want ErrUnauthenticated", key, err)
		}
	}
}

func TestAuthenticateTamperedKey(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, rawKey, err := svc.MintCredential(ctx, "ci", model.RoleUser, "team-1", "user-1")
	if err != nil {
		t.Fatalf("MintCredential: %v", err)
	}

	// Flip the last character so the prefix still matches.
	tampered := rawKey[:len(rawKey)-1]
	if rawKey[len(rawKey)-1] == 'a' {
		tampered += "b"
	} else {
		tampered += "a"
	}

	if _, err := svc.Authenticate(ctx, tampered); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("Authenticate(tampered): got %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticateRevokedKey(t *testing.T) {
	svc, st := newTestAuth(t)
	ctx := context.Background()

	cred, rawKey, err := svc.MintCredential(ctx, "ci", model.RoleUser, "team-1", "user-1")
	if err != nil {
		t.Fatalf("MintCredential: %v", err)
	}

	if err := st.RevokeCredential(ctx, cred.ID); err != nil {
		t.Fatalf("RevokeCredential: %v", err)
	}
	if _, err := svc.Authenticate(ctx, rawKey); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("Authenticate after revoke: got %v, want ErrUnauthenticated", err)
	}
}

func TestEnsureRootKeyIdempotent(t *testing.T) {
	svc, st := newTestAuth(t)
	ctx := context.Background()

	rootKey, err := auth.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	if err := svc.EnsureRootKey(ctx, rootKey); err != nil {
		t.Fatalf("EnsureRootKey: %v", err)
	}
	if err := svc.EnsureRootKey(ctx, rootKey); err != nil {
		t.Fatalf("EnsureRootKey (second run): %v", err)
	}

	creds, err := st.ListCredentials(ctx)
	if err != nil {
		t.Fatalf("ListCredentials: %v", err)
	}
	if len(creds) != 1 {
		t.Fatalf("expected 1 credential, got %d", len(creds))
	}
	if creds[0].Role != model.RoleRoot {
		t.Errorf("Role: got %q, want %q", creds[0].Role, model.RoleRoot)
	}

	id, err := svc.Authenticate(ctx, rootKey)
	if err != nil {
		t.Fatalf("Authenticate root: %v", err)
	}
	if id.Role != model.RoleRoot {
		t.Errorf("Role: got %q, want %q", id.Role, model.RoleRoot)
	}
}

func TestContentTokenRoundTrip(t *testing.T) {
	svc, _ := newTestAuth(t)

	token, err := svc.SignContentToken("img-42")
	if err != nil {
		t.Fatalf("SignContentToken: %v", err)
	}

	imageID, err := svc.VerifyContentToken(token)
	if err != nil {
		t.Fatalf("VerifyContentToken: %v", err)
	}
	if imageID != "img-42" {
		t.Errorf("image ID: got %q, want %q", imageID, "img-42")
	}
}

func TestContentTokenInvalid(t *testing.T) {
	svc, _ := newTestAuth(t)

	if _, err := svc.VerifyContentToken("garbage.token.here"); !errors.Is(err, ErrInvalidContentToken) {
		t.Errorf("got %v, want ErrInvalidContentToken", err)
	}

	// Token signed with a different key must not verify.
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	other, err := NewAuthService(st, auth.NewHasher(16), "a-different-secret", nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	token, err := other.SignContentToken("img-1")
	if err != nil {
		t.Fatalf("SignContentToken: %v", err)
	}
	if _, err := svc.VerifyContentToken(token); !errors.Is(err, ErrInvalidContentToken) {
		t.Errorf("cross-key verify: got %v, want ErrInvalidContentToken", err)
	}
}
