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

// CreateUser inserts a new user. The ID and CreatedAt fields are populated
// before the insert. A duplicate username inside the team returns
// ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO users (id, team_id, username, email, created_at)
		VALUES (:id, :team_id, :username, :email, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, user); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.GetContext(ctx, &user, s.rebind("SELECT * FROM users WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// ListUsersByTeam returns a team's users ordered by username.
func (s *Store) ListUsersByTeam(ctx context.Context, teamID string, limit, offset int) ([]model.User, error) {
	var users []model.User
	err := s.db.SelectContext(ctx, &users,
		s.rebind("SELECT * FROM users WHERE team_id = ? ORDER BY username LIMIT ? OFFSET ?"),
		teamID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users by team: %w", err)
	}
	return users, nil
}

// UpdateUser updates a user's username and email.
func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	const q = `UPDATE users SET username = :username, email = :email WHERE id = :id`
	result, err := s.db.NamedExecContext(ctx, q, user)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return checkAffected(result, "update user")
}

// DeleteUser removes a user by ID.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return checkAffected(result, "delete user")
}
