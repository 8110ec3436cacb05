package auth

import (
	"fmt"
	"strings"

	"github.com/imgvault/imgvault/internal/model"
)

// Scope is the ownership dimension of a permission rule. It narrows
// role-based access to caller-owned resources.
type Scope string

const (
	// ScopeNone applies no ownership constraint beyond role sufficiency.
	ScopeNone Scope = "none"
	// ScopeTeam requires the caller's team to match the path's team.
	ScopeTeam Scope = "team"
	// ScopeSelf additionally requires the caller's user id to match the
	// path's user id. Admin credentials are exempt from the self narrowing
	// inside their own team.
	ScopeSelf Scope = "self"
)

// PatternSegment is one element of a rule's path pattern: either a literal
// resource keyword or a wildcard matching any single id segment.
type PatternSegment struct {
	Keyword ResourceType // set when Wild is false
	Wild    bool
}

// Rule maps an HTTP method and path pattern to the minimum role required and
// the ownership scope enforced for matching requests.
type Rule struct {
	Method  string
	Pattern []PatternSegment
	MinRole model.Role
	Scope   Scope

	// index is the declaration position, used as the deterministic
	// tie-breaker between equally specific patterns.
	index int
}

// literals counts the literal keyword segments in the rule's pattern.
func (r *Rule) literals() int {
	n := 0
	for _, s := range r.Pattern {
		if !s.Wild {
			n++
		}
	}
	return n
}

// wildcards counts the wildcard segments in the rule's pattern.
func (r *Rule) wildcards() int {
	return len(r.Pattern) - r.literals()
}

// String renders the pattern in template form, e.g. "teams/{id}/users".
func (r *Rule) String() string {
	parts := make([]string, len(r.Pattern))
	for i, s := range r.Pattern {
		if s.Wild {
			parts[i] = "{id}"
		} else {
			parts[i] = string(s.Keyword)
		}
	}
	return r.Method + " /" + strings.Join(parts, "/")
}

// MustParsePattern converts a template such as "teams/{team_id}/images" into
// pattern segments. Segments wrapped in braces are wildcards; everything else
// must be a known resource keyword. Panics on a malformed template, since
// patterns are static configuration fixed at process start.
func MustParsePattern(template string) []PatternSegment {
	var segs []PatternSegment
	for _, part := range splitPath(template) {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			segs = append(segs, PatternSegment{Wild: true})
			continue
		}
		keyword := ResourceType(part)
		if !knownResources[keyword] {
			panic(fmt.Sprintf("permission pattern %q: unknown resource keyword %q", template, part))
		}
		segs = append(segs, PatternSegment{Keyword: keyword})
	}
	return segs
}

// RuleTable is an immutable, ordered set of permission rules. It is built
// once at process start and is safe for unsynchronized concurrent reads.
type RuleTable struct {
	rules []Rule
}

// NewRuleTable builds a table preserving declaration order for tie-breaking.
func NewRuleTable(rules []Rule) *RuleTable {
	owned := make([]Rule, len(rules))
	copy(owned, rules)
	for i := range owned {
		owned[i].index = i
	}
	return &RuleTable{rules: owned}
}

// Match returns the best rule for the given method and classified path, or
// nil when no rule matches. Specificity order: more literal segments win,
// then fewer wildcards, then earliest declaration. The result is fully
// deterministic; an unmatched request is denied by the caller, never allowed.
func (t *RuleTable) Match(method string, segments []Segment) *Rule {
	tokens := flatten(segments)

	var best *Rule
	for i := range t.rules {
		r := &t.rules[i]
		if r.Method != method || !matchPattern(r.Pattern, tokens) {
			continue
		}
		if best == nil || moreSpecific(r, best) {
			best = r
		}
	}
	return best
}

// Rules returns the table's rules in declaration order.
func (t *RuleTable) Rules() []Rule {
	return t.rules
}

// pathToken is a flattened view of a classified path for pattern matching.
type pathToken struct {
	keyword ResourceType // set for resource-type tokens
	isID    bool
}

func flatten(segments []Segment) []pathToken {
	var tokens []pathToken
	for _, s := range segments {
		tokens = append(tokens, pathToken{keyword: s.Type})
		if s.ID != "" {
			tokens = append(tokens, pathToken{isID: true})
		}
	}
	return tokens
}

func matchPattern(pattern []PatternSegment, tokens []pathToken) bool {
	if len(pattern) != len(tokens) {
		return false
	}
	for i, p := range pattern {
		if p.Wild != tokens[i].isID {
			return false
		}
		if !p.Wild && p.Keyword != tokens[i].keyword {
			return false
		}
	}
	return true
}

// moreSpecific reports whether a should be preferred over b.
func moreSpecific(a, b *Rule) bool {
	if a.literals() != b.literals() {
		return a.literals() > b.literals()
	}
	if a.wildcards() != b.wildcards() {
		return a.wildcards() < b.wildcards()
	}
	return a.index < b.index
}

// DefaultRules is the permission table for the resource hierarchy. The order
// of declaration matters only for breaking specificity ties.
func DefaultRules() []Rule {
	rule := func(method, template string, minRole model.Role, scope Scope) Rule {
		return Rule{
			Method:  method,
			Pattern: MustParsePattern(template),
			MinRole: minRole,
			Scope:   scope,
		}
	}

	return []Rule{
		// Team administration is root-only except reads inside the team.
		rule("POST", "teams", model.RoleRoot, ScopeNone),
		rule("GET", "teams", model.RoleRoot, ScopeNone),
		rule("GET", "teams/{team_id}", model.RoleUser, ScopeTeam),
		rule("PUT", "teams/{team_id}", model.RoleAdmin, ScopeTeam),
		rule("DELETE", "teams/{team_id}", model.RoleRoot, ScopeNone),

		// API keys are managed by team admins; users may inspect and revoke
		// their own through the user-scoped routes further down.
		rule("POST", "teams/{team_id}/api-keys", model.RoleAdmin, ScopeTeam),
		rule("GET", "teams/{team_id}/api-keys", model.RoleAdmin, ScopeTeam),
		rule("GET", "teams/{team_id}/api-keys/{key_id}", model.RoleAdmin, ScopeTeam),
		rule("PUT", "teams/{team_id}/api-keys/{key_id}", model.RoleAdmin, ScopeTeam),
		rule("DELETE", "teams/{team_id}/api-keys/{key_id}", model.RoleAdmin, ScopeTeam),

		rule("POST", "teams/{team_id}/users", model.RoleAdmin, ScopeTeam),
		rule("GET", "teams/{team_id}/users", model.RoleUser, ScopeTeam),
		rule("GET", "teams/{team_id}/users/{user_id}", model.RoleUser, ScopeSelf),
		rule("PUT", "teams/{team_id}/users/{user_id}", model.RoleAdmin, ScopeTeam),
		rule("DELETE", "teams/{team_id}/users/{user_id}", model.RoleAdmin, ScopeTeam),

		// Team-wide image pool.
		rule("POST", "teams/{team_id}/images", model.RoleUser, ScopeTeam),
		rule("GET", "teams/{team_id}/images", model.RoleUser, ScopeTeam),
		rule("GET", "teams/{team_id}/images/{image_id}", model.RoleUser, ScopeTeam),
		rule("PUT", "teams/{team_id}/images/{image_id}", model.RoleAdmin, ScopeTeam),
		rule("DELETE", "teams/{team_id}/images/{image_id}", model.RoleAdmin, ScopeTeam),

		// Per-user sub-resources: users touch only their own, admins anything
		// inside the team.
		rule("GET", "teams/{team_id}/users/{user_id}/api-keys", model.RoleUser, ScopeSelf),
		rule("GET", "teams/{team_id}/users/{user_id}/api-keys/{key_id}", model.RoleUser, ScopeSelf),
		rule("DELETE", "teams/{team_id}/users/{user_id}/api-keys/{key_id}", model.RoleUser, ScopeSelf),
		rule("GET", "teams/{team_id}/users/{user_id}/images", model.RoleUser, ScopeSelf),
		rule("GET", "teams/{team_id}/users/{user_id}/images/{image_id}", model.RoleUser, ScopeSelf),
		rule("PUT", "teams/{team_id}/users/{user_id}/images/{image_id}", model.RoleUser, ScopeSelf),
		rule("DELETE", "teams/{team_id}/users/{user_id}/images/{image_id}", model.RoleUser, ScopeSelf),

		rule("GET", "audit-logs", model.RoleRoot, ScopeNone),
	}
}
