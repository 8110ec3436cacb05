package auth

import (
	"testing"

	"github.com/imgvault/imgvault/internal/model"
)

func classify(t *testing.T, path string) *PathContext {
	t.Helper()
	pc, err := ClassifyPath(path)
	if err != nil {
		t.Fatalf("ClassifyPath(%q): %v", path, err)
	}
	return pc
}

func TestMatchDefaultRules(t *testing.T) {
	table := NewRuleTable(DefaultRules())

	tests := []struct {
		method  string
		path    string
		minRole model.Role
		scope   Scope
	}{
		{"POST", "/teams", model.RoleRoot, ScopeNone},
		{"GET", "/teams/t1", model.RoleUser, ScopeTeam},
		{"DELETE", "/teams/t1", model.RoleRoot, ScopeNone},
		{"POST", "/teams/t1/api-keys", model.RoleAdmin, ScopeTeam},
		{"GET", "/teams/t1/users/u1", model.RoleUser, ScopeSelf},
		{"PUT", "/teams/t1/users/u1", model.RoleAdmin, ScopeTeam},
		{"POST", "/teams/t1/images", model.RoleUser, ScopeTeam},
		{"DELETE", "/teams/t1/images/i1", model.RoleAdmin, ScopeTeam},
		{"DELETE", "/teams/t1/users/u1/images/i1", model.RoleUser, ScopeSelf},
		{"GET", "/teams/t1/users/u1/api-keys/k1", model.RoleUser, ScopeSelf},
		{"GET", "/audit-logs", model.RoleRoot, ScopeNone},
	}
	for _, tt := range tests {
		pc := classify(t, tt.path)
		rule := table.Match(tt.method, pc.Segments)
		if rule == nil {
			t.Errorf("%s %s: no rule matched", tt.method, tt.path)
			continue
		}
		if rule.MinRole != tt.minRole {
			t.Errorf("%s %s: min role = %s, want %s", tt.method, tt.path, rule.MinRole, tt.minRole)
		}
		if rule.Scope != tt.scope {
			t.Errorf("%s %s: scope = %s, want %s", tt.method, tt.path, rule.Scope, tt.scope)
		}
	}
}

func TestMatchNoRule(t *testing.T) {
	table := NewRuleTable(DefaultRules())

	tests := []struct {
		method string
		path   string
	}{
		{"PATCH", "/teams/t1"},
		{"DELETE", "/teams"},
		{"POST", "/audit-logs"},
		{"POST", "/teams/t1/users/u1/images"},
	}
	for _, tt := range tests {
		pc := classify(t, tt.path)
		if rule := table.Match(tt.method, pc.Segments); rule != nil {
			t.Errorf("%s %s: matched %s, want no rule", tt.method, tt.path, rule)
		}
	}
}

func TestMatchCollectionVsItem(t *testing.T) {
	table := NewRuleTable(DefaultRules())

	collection := table.Match("GET", classify(t, "/teams").Segments)
	item := table.Match("GET", classify(t, "/teams/t1").Segments)
	if collection == nil || item == nil {
		t.Fatal("expected a rule for both the collection and the item path")
	}
	if collection == item {
		t.Error("collection and item paths must match distinct rules")
	}
	if collection.MinRole != model.RoleRoot || item.MinRole != model.RoleUser {
		t.Errorf("roles = %s / %s, want root / user", collection.MinRole, item.MinRole)
	}
}

// An id that happens to spell a resource keyword still fills the wildcard
// position; it never turns the path into a different rule.
func TestMatchIDCollidingWithKeyword(t *testing.T) {
	table := NewRuleTable(DefaultRules())

	rule := table.Match("GET", classify(t, "/teams/users/users").Segments)
	if rule == nil {
		t.Fatal("no rule matched")
	}
	if got, want := rule.String(), "GET /teams/{id}/users"; got != want {
		t.Errorf("matched %q, want %q", got, want)
	}
}

func TestMatchTieBrokenByOrder(t *testing.T) {
	rules := []Rule{
		{Method: "GET", Pattern: MustParsePattern("teams/{a}"), MinRole: model.RoleUser, Scope: ScopeTeam},
		{Method: "GET", Pattern: MustParsePattern("teams/{b}"), MinRole: model.RoleAdmin, Scope: ScopeTeam},
	}
	table := NewRuleTable(rules)

	rule := table.Match("GET", classify(t, "/teams/t1").Segments)
	if rule == nil {
		t.Fatal("no rule matched")
	}
	if rule.MinRole != model.RoleUser {
		t.Errorf("tie broken in favor of %s, want the first declared rule", rule)
	}
}

func TestMustParsePattern(t *testing.T) {
	segs := MustParsePattern("teams/{team_id}/images/{image_id}")
	if len(segs) != 4 {
		t.Fatalf("segments = %d, want 4", len(segs))
	}
	if segs[0].Wild || segs[0].Keyword != ResourceTeams {
		t.Errorf("segment 0 = %+v, want literal teams", segs[0])
	}
	if !segs[1].Wild || !segs[3].Wild {
		t.Error("brace segments must be wildcards")
	}
	if segs[2].Wild || segs[2].Keyword != ResourceImages {
		t.Errorf("segment 2 = %+v, want literal images", segs[2])
	}
}

func TestMustParsePatternRejectsUnknownKeyword(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on unknown resource keyword")
		}
	}()
	MustParsePattern("teams/{team_id}/widgets")
}

func TestRuleString(t *testing.T) {
	r := Rule{Method: "PUT", Pattern: MustParsePattern("teams/{team_id}/users/{user_id}")}
	if got, want := r.String(), "PUT /teams/{id}/users/{id}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
