package model

import "time"

// Role is the access breadth of a credential. The three roles form a strict
// total order: root > admin > user. Comparisons must go through Level or
// AtLeast, never string equality, so that inserting a role later cannot
// silently break ordering checks.
type Role string

const (
	RoleRoot  Role = "root"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// roleLevels maps each role to its position in the total order. Higher wins.
var roleLevels = map[Role]int{
	RoleUser:  1,
	RoleAdmin: 2,
	RoleRoot:  3,
}

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the role's position in the total order, or 0 for unknown roles.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether r satisfies a requirement of min. Unknown roles
// never satisfy anything (fail closed).
func (r Role) AtLeast(min Role) bool {
	rl, ok := roleLevels[r]
	if !ok {
		return false
	}
	ml, ok := roleLevels[min]
	if !ok {
		return false
	}
	return rl >= ml
}

// Credential is a stored API key record. The raw secret is never persisted;
// only the non-secret prefix (used for indexed lookup), a per-credential
// random salt, and the PBKDF2 digest of the full key are durable.
type Credential struct {
	ID          string    `json:"id" db:"id"`
	Prefix      string    `json:"key_prefix" db:"prefix"`
	Salt        string    `json:"-" db:"salt"` // hex, never expose
	Hash        string    `json:"-" db:"hash"` // hex PBKDF2 digest, never expose
	Name        string    `json:"name" db:"name"`
	Role        Role      `json:"role" db:"role"`
	OwnerTeamID string    `json:"team_id,omitempty" db:"owner_team_id"`
	OwnerUserID string    `json:"user_id,omitempty" db:"owner_user_id"`
	Revoked     bool      `json:"revoked" db:"revoked"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
