package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/imgvault/imgvault/internal/model"
)

// CreateAuditLog inserts a request audit record.
func (s *Store) CreateAuditLog(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO audit_logs
		(id, credential_id, team_id, user_id, method, path, resource_type, resource_id, status, status_code, ip_address, user_agent, duration_ms, created_at)
		VALUES
		(:id, :credential_id, :team_id, :user_id, :method, :path, :resource_type, :resource_id, :status, :status_code, :ip_address, :user_agent, :duration_ms, :created_at)`

	if _, err := s.db.NamedExecContext(ctx, q, entry); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListAuditLogs returns audit records matching the filter, newest first.
func (s *Store) ListAuditLogs(ctx context.Context, filter model.AuditLogFilter) ([]model.AuditLog, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.TeamID != "" {
		clauses = append(clauses, "team_id = ?")
		args = append(args, filter.TeamID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Method != "" {
		clauses = append(clauses, "method = ?")
		args = append(args, strings.ToUpper(filter.Method))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.To)
	}

	q := "SELECT * FROM audit_logs"
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	var entries []model.AuditLog
	if err := s.db.SelectContext(ctx, &entries, s.rebind(q), args...); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, nil
}

// CountAuditLogs returns the total number of audit records matching the
// filter, ignoring pagination.
func (s *Store) CountAuditLogs(ctx context.Context, filter model.AuditLogFilter) (int, error) {
	var (
		clauses []string
		args    []interface{}
	)
	if filter.TeamID != "" {
		clauses = append(clauses, "team_id = ?")
		args = append(args, filter.TeamID)
	}
	if filter.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Method != "" {
		clauses = append(clauses, "method = ?")
		args = append(args, strings.ToUpper(filter.Method))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, filter.To)
	}

	q := "SELECT COUNT(*) FROM audit_logs"
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.rebind(q), args...); err != nil {
		return 0, fmt.Errorf("count audit logs: %w", err)
	}
	return total, nil
}
