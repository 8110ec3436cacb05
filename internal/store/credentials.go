package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/imgvault/imgvault/internal/model"
)

// CreateCredential inserts a new credential record. The salt and hash must
// already be set; the raw secret is never seen by the store. The ID and
// CreatedAt fields are populated before the insert.
func (s *Store) CreateCredential(ctx context.Context, cred *model.Credential) error {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	cred.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO credentials
		(id, prefix, salt, hash, name, role, owner_team_id, owner_user_id, revoked, created_at)
		VALUES
		(:id, :prefix, :salt, :hash, :name, :role, :owner_team_id, :owner_user_id, :revoked, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, cred); err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredential returns a credential by ID, revoked or not.
func (s *Store) GetCredential(ctx context.Context, id string) (*model.Credential, error) {
	var cred model.Credential
	err := s.db.GetContext(ctx, &cred, s.rebind("SELECT * FROM credentials WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return &cred, nil
}

// FindCredentialsByPrefix returns all non-revoked credentials sharing the
// given key prefix. Prefix collisions are rare but expected; the caller must
// verify the full secret against each candidate's hash.
func (s *Store) FindCredentialsByPrefix(ctx context.Context, prefix string) ([]model.Credential, error) {
	var creds []model.Credential
	err := s.db.SelectContext(ctx, &creds,
		s.rebind("SELECT * FROM credentials WHERE prefix = ? AND NOT revoked ORDER BY created_at"),
		prefix)
	if err != nil {
		return nil, fmt.Errorf("find credentials by prefix: %w", err)
	}
	return creds, nil
}

// ListCredentialsByTeam returns a team's credentials, newest first.
func (s *Store) ListCredentialsByTeam(ctx context.Context, teamID string, limit, offset int) ([]model.Credential, error) {
	var creds []model.Credential
	err := s.db.SelectContext(ctx, &creds,
		s.rebind("SELECT * FROM credentials WHERE owner_team_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?"),
		teamID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list credentials by team: %w", err)
	}
	return creds, nil
}

// ListCredentialsByUser returns the credentials owned by a single user,
// newest first.
func (s *Store) ListCredentialsByUser(ctx context.Context, userID string, limit, offset int) ([]model.Credential, error) {
	var creds []model.Credential
	err := s.db.SelectContext(ctx, &creds,
		s.rebind("SELECT * FROM credentials WHERE owner_user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?"),
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list credentials by user: %w", err)
	}
	return creds, nil
}

// ListCredentials returns every credential, newest first. Used by the CLI.
func (s *Store) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	var creds []model.Credential
	err := s.db.SelectContext(ctx, &creds, "SELECT * FROM credentials ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// RevokeCredential soft-deletes a credential by ID. The record is kept so
// the prefix is never physically reused; the key simply stops
// authenticating. Revoking an already-revoked credential is a no-op.
func (s *Store) RevokeCredential(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE credentials SET revoked = ? WHERE id = ?"), true, id)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	return checkAffected(result, "revoke credential")
}

// RevokeCredentialByPrefix soft-deletes all active credentials with the
// given prefix. Used by the CLI where only the prefix is known.
func (s *Store) RevokeCredentialByPrefix(ctx context.Context, prefix string) error {
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE credentials SET revoked = ? WHERE prefix = ? AND NOT revoked"), true, prefix)
	if err != nil {
		return fmt.Errorf("revoke credential by prefix: %w", err)
	}
	return checkAffected(result, "revoke credential by prefix")
}

// RenameCredential updates a credential's display name.
func (s *Store) RenameCredential(ctx context.Context, id, name string) error {
	result, err := s.db.ExecContext(ctx,
		s.rebind("UPDATE credentials SET name = ? WHERE id = ?"), name, id)
	if err != nil {
		return fmt.Errorf("rename credential: %w", err)
	}
	return checkAffected(result, "rename credential")
}
