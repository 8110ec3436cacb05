package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/store"
)

// Sentinel errors for the authorization pipeline. The pipeline boundary maps
// them onto HTTP status codes: ErrUnauthenticated and ErrStoreUnavailable
// become 401, ErrForbiddenRole and ErrForbiddenOwnership become 403, and
// ErrNotRoutable / ErrResourceMissing become 404. Any error here means deny;
// there is no error path that results in an allow.
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbiddenRole      = errors.New("insufficient role")
	ErrForbiddenOwnership = errors.New("ownership mismatch")
	ErrNoRule             = errors.New("no permission rule for request")
	ErrResourceMissing    = errors.New("referenced resource not found")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)

// Identity is the resolved identity of an authenticated request, attached to
// the request context for downstream handlers.
type Identity struct {
	CredentialID string     `json:"credential_id"`
	Role         model.Role `json:"role"`
	TeamID       string     `json:"team_id,omitempty"`
	UserID       string     `json:"user_id,omitempty"`
}

// OwnershipStore is the slice of the persistence layer the authorizer needs
// for resource-ownership cross-checks. Implementations signal an absent
// record with an error matching errors.Is(err, store.ErrNotFound); any other
// error is treated as the store being unavailable, which denies the request.
type OwnershipStore interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetCredential(ctx context.Context, id string) (*model.Credential, error)
	GetImage(ctx context.Context, id string) (*model.Image, error)
}

// Authorizer resolves allow/deny decisions from (identity, rule, path).
// The rule table is immutable; the store is only read. Safe for concurrent
// use across requests.
type Authorizer struct {
	rules *RuleTable
	store OwnershipStore
}

func NewAuthorizer(rules *RuleTable, store OwnershipStore) *Authorizer {
	return &Authorizer{rules: rules, store: store}
}

// Authorize runs the decision pipeline for one request, short-circuiting on
// the first failure:
//
//  1. an unauthenticated caller is rejected,
//  2. the request must match a permission rule (default deny),
//  3. the caller's role must satisfy the rule's minimum role,
//  4. the rule's ownership scope is enforced against the path and the
//     caller's team/user ids, including store-backed cross-checks on
//     referenced resources.
//
// Root credentials satisfy any role requirement and skip ownership checks.
func (a *Authorizer) Authorize(ctx context.Context, id *Identity, method string, pc *PathContext) error {
	if id == nil {
		return ErrUnauthenticated
	}

	rule := a.rules.Match(method, pc.Segments)
	if rule == nil {
		return fmt.Errorf("%w: %s", ErrNoRule, method)
	}

	if id.Role == model.RoleRoot {
		return nil
	}

	if !id.Role.AtLeast(rule.MinRole) {
		return fmt.Errorf("%w: %s requires %s", ErrForbiddenRole, rule.String(), rule.MinRole)
	}

	if rule.Scope == ScopeNone {
		return nil
	}
	return a.checkOwnership(ctx, id, rule, method, pc)
}

// checkOwnership enforces the team and self scopes for non-root callers.
func (a *Authorizer) checkOwnership(ctx context.Context, id *Identity, rule *Rule, method string, pc *PathContext) error {
	// Both team and self scope bind the caller to the path's team.
	if pc.TeamID != "" && pc.TeamID != id.TeamID {
		return fmt.Errorf("%w: resource belongs to another team", ErrForbiddenOwnership)
	}

	if pc.UserID != "" {
		if err := a.checkUserAccess(ctx, id, rule, pc.UserID); err != nil {
			return err
		}
	}
	if pc.APIKeyID != "" {
		if err := a.checkCredentialAccess(ctx, id, pc.APIKeyID); err != nil {
			return err
		}
	}
	if pc.ImageID != "" {
		if err := a.checkImageAccess(ctx, id, method, pc.ImageID); err != nil {
			return err
		}
	}
	return nil
}

// checkUserAccess enforces the self scope on a user id appearing in the path.
// User-role credentials may only reach their own user; admins may reach any
// user, but it must actually exist inside their team.
func (a *Authorizer) checkUserAccess(ctx context.Context, id *Identity, rule *Rule, pathUserID string) error {
	switch id.Role {
	case model.RoleUser:
		if rule.Scope == ScopeSelf && pathUserID != id.UserID {
			return fmt.Errorf("%w: not your user resource", ErrForbiddenOwnership)
		}
	case model.RoleAdmin:
		user, err := a.store.GetUser(ctx, pathUserID)
		if err != nil {
			if isNotFound(err) {
				return fmt.Errorf("%w: user %s", ErrResourceMissing, pathUserID)
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if user.TeamID != id.TeamID {
			return fmt.Errorf("%w: user belongs to another team", ErrForbiddenOwnership)
		}
	}
	return nil
}

// checkCredentialAccess verifies that an api-key referenced by id belongs to
// the caller (user role) or to the caller's team (admin role).
func (a *Authorizer) checkCredentialAccess(ctx context.Context, id *Identity, keyID string) error {
	cred, err := a.store.GetCredential(ctx, keyID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: api key %s", ErrResourceMissing, keyID)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	switch id.Role {
	case model.RoleUser:
		if cred.OwnerUserID != id.UserID {
			return fmt.Errorf("%w: not your api key", ErrForbiddenOwnership)
		}
	case model.RoleAdmin:
		if cred.OwnerTeamID != id.TeamID {
			return fmt.Errorf("%w: api key belongs to another team", ErrForbiddenOwnership)
		}
	}
	return nil
}

// checkImageAccess verifies team ownership of a referenced image, and for
// destructive requests narrows user-role access to the user's own images.
func (a *Authorizer) checkImageAccess(ctx context.Context, id *Identity, method, imageID string) error {
	img, err := a.store.GetImage(ctx, imageID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: image %s", ErrResourceMissing, imageID)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if img.TeamID != id.TeamID {
		return fmt.Errorf("%w: image belongs to another team", ErrForbiddenOwnership)
	}
	if method == "DELETE" && id.Role == model.RoleUser && img.UserID != id.UserID {
		return fmt.Errorf("%w: not your image", ErrForbiddenOwnership)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
