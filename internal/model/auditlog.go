package model

import "time"

// Audit outcome values.
const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

// AuditLog is an immutable record of one handled request, captured by the
// audit middleware after the response is written.
type AuditLog struct {
	ID           string    `json:"id" db:"id"`
	CredentialID string    `json:"credential_id,omitempty" db:"credential_id"`
	TeamID       string    `json:"team_id,omitempty" db:"team_id"`
	UserID       string    `json:"user_id,omitempty" db:"user_id"`
	Method       string    `json:"method" db:"method"`
	Path         string    `json:"path" db:"path"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty" db:"resource_id"`
	Status       string    `json:"status" db:"status"`
	StatusCode   int       `json:"status_code" db:"status_code"`
	IPAddress    string    `json:"ip_address" db:"ip_address"`
	UserAgent    string    `json:"user_agent,omitempty" db:"user_agent"`
	DurationMs   float64   `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AuditLogFilter narrows an audit log query. Zero values mean "no constraint".
type AuditLogFilter struct {
	TeamID     string
	UserID     string
	Method     string
	Status     string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}
