// Package service holds application logic between the HTTP layer and the
// stores: credential minting and verification, and signed download tokens
// for image content.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/imgvault/imgvault/internal/auth"
	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/store"
)

// DefaultContentTokenTTL is how long a signed image download URL stays valid.
const DefaultContentTokenTTL = 15 * time.Minute

// ErrInvalidContentToken is returned when a download token fails verification.
var ErrInvalidContentToken = errors.New("invalid content token")

// AuthService mints and verifies API credentials and signs short-lived image
// download tokens.
type AuthService struct {
	store      *store.Store
	hasher     *auth.Hasher
	signingKey []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
}

// NewAuthService wires an AuthService. The signing key protects image
// download tokens and must be non-empty.
func NewAuthService(st *store.Store, hasher *auth.Hasher, signingKey string, logger *slog.Logger) (*AuthService, error) {
	if signingKey == "" {
		return nil, errors.New("content signing key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:      st,
		hasher:     hasher,
		signingKey: []byte(signingKey),
		tokenTTL:   DefaultContentTokenTTL,
		logger:     logger,
	}, nil
}

// Authenticate resolves a raw API key to the identity it represents.
//
// The key's non-secret prefix narrows the candidate set via an indexed
// lookup; the full secret is then verified against each candidate's salted
// digest, so prefix collisions resolve correctly. A store failure maps to
// auth.ErrStoreUnavailable rather than an anonymous allow.
func (s *AuthService) Authenticate(ctx context.Context, rawKey string) (*auth.Identity, error) {
	if rawKey == "" {
		return nil, auth.ErrUnauthenticated
	}

	candidates, err := s.store.FindCredentialsByPrefix(ctx, auth.KeyPrefix(rawKey))
	if err != nil {
		s.logger.Error("credential lookup failed", "error", err)
		return nil, auth.ErrStoreUnavailable
	}

	for i := range candidates {
		cred := &candidates[i]
		salt, err := hex.DecodeString(cred.Salt)
		if err != nil {
			s.logger.Error("credential has malformed salt", "credential_id", cred.ID)
			continue
		}
		digest, err := hex.DecodeString(cred.Hash)
		if err != nil {
			s.logger.Error("credential has malformed digest", "credential_id", cred.ID)
			continue
		}
		if s.hasher.Verify(rawKey, salt, digest) {
			return &auth.Identity{
				CredentialID: cred.ID,
				Role:         cred.Role,
				TeamID:       cred.OwnerTeamID,
				UserID:       cred.OwnerUserID,
			}, nil
		}
	}
	return nil, auth.ErrUnauthenticated
}

// MintCredential creates a credential and returns it alongside the raw key.
// The raw key is never stored and cannot be recovered later.
func (s *AuthService) MintCredential(ctx context.Context, name string, role model.Role, teamID, userID string) (*model.Credential, string, error) {
	if !role.Valid() {
		return nil, "", fmt.Errorf("invalid role %q", role)
	}

	rawKey, err := auth.GenerateKey()
	if err != nil {
		return nil, "", err
	}
	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, "", err
	}
	digest, err := s.hasher.Hash(rawKey, salt)
	if err != nil {
		return nil, "", fmt.Errorf("hash key: %w", err)
	}

	cred := &model.Credential{
		Prefix:      auth.KeyPrefix(rawKey),
		Salt:        hex.EncodeToString(salt),
		Hash:        hex.EncodeToString(digest),
		Name:        name,
		Role:        role,
		OwnerTeamID: teamID,
		OwnerUserID: userID,
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return nil, "", fmt.Errorf("store credential: %w", err)
	}
	return cred, rawKey, nil
}

// EnsureRootKey makes sure the configured root key resolves to a root
// credential, storing it salted and hashed like any other key. Re-running
// with the same key is a no-op.
func (s *AuthService) EnsureRootKey(ctx context.Context, rawKey string) error {
	if rawKey == "" {
		return errors.New("root key is required")
	}

	candidates, err := s.store.FindCredentialsByPrefix(ctx, auth.KeyPrefix(rawKey))
	if err != nil {
		return fmt.Errorf("root key lookup: %w", err)
	}
	for i := range candidates {
		cred := &candidates[i]
		salt, err := hex.DecodeString(cred.Salt)
		if err != nil {
			continue
		}
		digest, err := hex.DecodeString(cred.Hash)
		if err != nil {
			continue
		}
		if s.hasher.Verify(rawKey, salt, digest) {
			if cred.Role != model.RoleRoot {
				return fmt.Errorf("root key collides with existing %s credential %s", cred.Role, cred.ID)
			}
			return nil
		}
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return err
	}
	digest, err := s.hasher.Hash(rawKey, salt)
	if err != nil {
		return fmt.Errorf("hash root key: %w", err)
	}
	cred := &model.Credential{
		Prefix: auth.KeyPrefix(rawKey),
		Salt:   hex.EncodeToString(salt),
		Hash:   hex.EncodeToString(digest),
		Name:   "root",
		Role:   model.RoleRoot,
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return fmt.Errorf("store root credential: %w", err)
	}
	s.logger.Info("provisioned root credential", "prefix", cred.Prefix)
	return nil
}

// contentClaims binds a download token to a single image.
type contentClaims struct {
	ImageID string `json:"image_id"`
	jwt.RegisteredClaims
}

// SignContentToken returns a short-lived token granting access to one
// image's bytes through the content endpoint.
func (s *AuthService) SignContentToken(imageID string) (string, error) {
	now := time.Now()
	claims := contentClaims{
		ImageID: imageID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			Issuer:    "imgvault",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign content token: %w", err)
	}
	return signed, nil
}

// VerifyContentToken checks a download token and returns the image ID it
// grants access to.
func (s *AuthService) VerifyContentToken(tokenStr string) (string, error) {
	claims := &contentClaims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.signingKey, nil
	})
	if err != nil || !token.Valid || claims.ImageID == "" {
		return "", ErrInvalidContentToken
	}
	return claims.ImageID, nil
}
