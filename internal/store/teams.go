package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imgvault/imgvault/internal/model"
)

// CreateTeam inserts a new team. The ID and CreatedAt fields on team are
// populated before the insert. Duplicate names return ErrDuplicate.
func (s *Store) CreateTeam(ctx context.Context, team *model.Team) error {
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	team.CreatedAt = time.Now().UTC()

	const q = `INSERT INTO teams (id, name, description, created_at)
		VALUES (:id, :name, :description, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, team); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("team %q: %w", team.Name, ErrDuplicate)
		}
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

// GetTeam returns a team by ID.
func (s *Store) GetTeam(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := s.db.GetContext(ctx, &team, s.rebind("SELECT * FROM teams WHERE id = ?"), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return &team, nil
}

// GetTeamByName returns a team by its unique name.
func (s *Store) GetTeamByName(ctx context.Context, name string) (*model.Team, error) {
	var team model.Team
	err := s.db.GetContext(ctx, &team, s.rebind("SELECT * FROM teams WHERE name = ?"), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get team by name: %w", err)
	}
	return &team, nil
}

// ListTeams returns teams ordered by name, with offset/limit pagination.
func (s *Store) ListTeams(ctx context.Context, limit, offset int) ([]model.Team, error) {
	var teams []model.Team
	err := s.db.SelectContext(ctx, &teams,
		s.rebind("SELECT * FROM teams ORDER BY name LIMIT ? OFFSET ?"), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// UpdateTeam updates a team's name and description.
func (s *Store) UpdateTeam(ctx context.Context, team *model.Team) error {
	const q = `UPDATE teams SET name = :name, description = :description WHERE id = :id`
	result, err := s.db.NamedExecContext(ctx, q, team)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("team %q: %w", team.Name, ErrDuplicate)
		}
		return fmt.Errorf("update team: %w", err)
	}
	return checkAffected(result, "update team")
}

// DeleteTeam removes a team record by ID.
func (s *Store) DeleteTeam(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM teams WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return checkAffected(result, "delete team")
}

// CountUsersByTeam returns the number of users belonging to a team. Used to
// refuse deleting a team that still has members.
func (s *Store) CountUsersByTeam(ctx context.Context, teamID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		s.rebind("SELECT COUNT(*) FROM users WHERE team_id = ?"), teamID)
	if err != nil {
		return 0, fmt.Errorf("count users by team: %w", err)
	}
	return count, nil
}

// checkAffected converts a zero-rows-affected result into ErrNotFound.
func checkAffected(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// isUniqueViolation detects unique constraint errors across both backends.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
