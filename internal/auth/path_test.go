package auth

import (
	"errors"
	"testing"
)

func TestClassifyPathExtraction(t *testing.T) {
	tests := []struct {
		path     string
		teamID   string
		userID   string
		imageID  string
		apiKeyID string
		segments int
	}{
		{"/teams", "", "", "", "", 1},
		{"/teams/t1", "t1", "", "", "", 1},
		{"/teams/t1/users", "t1", "", "", "", 2},
		{"/teams/t1/users/u1", "t1", "u1", "", "", 2},
		{"/teams/t1/users/u1/images/i1", "t1", "u1", "i1", "", 3},
		{"/teams/t1/images/i1", "t1", "", "i1", "", 2},
		{"/teams/t1/api-keys/k1", "t1", "", "", "k1", 2},
		{"/teams/t1/users/u1/api-keys/k1", "t1", "u1", "", "k1", 3},
		{"/audit-logs", "", "", "", "", 1},
		// Normalization: trailing and duplicate slashes, case-insensitive keywords.
		{"/teams/t1/", "t1", "", "", "", 1},
		{"//teams//t1//users", "t1", "", "", "", 2},
		{"/TEAMS/t1/Users/u1", "t1", "u1", "", "", 2},
	}

	for _, tt := range tests {
		pc, err := ClassifyPath(tt.path)
		if err != nil {
			t.Errorf("ClassifyPath(%q): unexpected error %v", tt.path, err)
			continue
		}
		if pc.TeamID != tt.teamID || pc.UserID != tt.userID || pc.ImageID != tt.imageID || pc.APIKeyID != tt.apiKeyID {
			t.Errorf("ClassifyPath(%q): got (%q,%q,%q,%q), want (%q,%q,%q,%q)",
				tt.path, pc.TeamID, pc.UserID, pc.ImageID, pc.APIKeyID,
				tt.teamID, tt.userID, tt.imageID, tt.apiKeyID)
		}
		if len(pc.Segments) != tt.segments {
			t.Errorf("ClassifyPath(%q): %d segments, want %d", tt.path, len(pc.Segments), tt.segments)
		}
	}
}

func TestClassifyPathPreservesIDCase(t *testing.T) {
	pc, err := ClassifyPath("/teams/TeamA/users/UserB")
	if err != nil {
		t.Fatalf("ClassifyPath: %v", err)
	}
	if pc.TeamID != "TeamA" || pc.UserID != "UserB" {
		t.Errorf("ids must keep their case, got (%q, %q)", pc.TeamID, pc.UserID)
	}
}

func TestClassifyPathUnroutable(t *testing.T) {
	for _, path := range []string{
		"/widgets",
		"/teams/t1/widgets",
		"/teams/t1/users/u1/widgets/x",
		"/t1/teams",
	} {
		if _, err := ClassifyPath(path); !errors.Is(err, ErrNotRoutable) {
			t.Errorf("ClassifyPath(%q): got %v, want ErrNotRoutable", path, err)
		}
	}
}

func TestClassifyPathIDMayMatchKeyword(t *testing.T) {
	// An id position is never interpreted as a keyword.
	pc, err := ClassifyPath("/teams/users")
	if err != nil {
		t.Fatalf("ClassifyPath: %v", err)
	}
	if pc.TeamID != "users" {
		t.Errorf("TeamID: got %q, want %q", pc.TeamID, "users")
	}
}
