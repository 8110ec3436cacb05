package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotRoutable is returned when a request path cannot be classified into
// the resource hierarchy. It maps to a 404, not an authorization decision.
var ErrNotRoutable = errors.New("path does not route to a known resource")

// ResourceType names one level of the resource hierarchy.
type ResourceType string

const (
	ResourceTeams     ResourceType = "teams"
	ResourceUsers     ResourceType = "users"
	ResourceAPIKeys   ResourceType = "api-keys"
	ResourceImages    ResourceType = "images"
	ResourceAuditLogs ResourceType = "audit-logs"
)

var knownResources = map[ResourceType]bool{
	ResourceTeams:     true,
	ResourceUsers:     true,
	ResourceAPIKeys:   true,
	ResourceImages:    true,
	ResourceAuditLogs: true,
}

// Segment is one (resource type, id) pair of a classified path. ID is empty
// for collection paths such as "/teams".
type Segment struct {
	Type ResourceType
	ID   string
}

// PathContext is the result of classifying a request path: the ordered
// segment list plus the owning identifiers extracted positionally from it.
// It carries no authorization semantics by itself.
type PathContext struct {
	Segments []Segment

	TeamID   string
	UserID   string
	ImageID  string
	APIKeyID string
}

// ClassifyPath parses a raw URL path into alternating (resource type, id)
// segments. Resource keywords are matched case-insensitively; ids keep their
// case. Trailing and duplicate slashes are normalized away. A segment that is
// not a known resource keyword in a position where one is expected makes the
// path unroutable.
func ClassifyPath(rawPath string) (*PathContext, error) {
	parts := splitPath(rawPath)

	pc := &PathContext{}
	for i := 0; i < len(parts); i += 2 {
		keyword := ResourceType(strings.ToLower(parts[i]))
		if !knownResources[keyword] {
			return nil, fmt.Errorf("%w: unknown segment %q", ErrNotRoutable, parts[i])
		}

		seg := Segment{Type: keyword}
		if i+1 < len(parts) {
			seg.ID = parts[i+1]
		}
		pc.Segments = append(pc.Segments, seg)

		switch keyword {
		case ResourceTeams:
			pc.TeamID = seg.ID
		case ResourceUsers:
			pc.UserID = seg.ID
		case ResourceImages:
			pc.ImageID = seg.ID
		case ResourceAPIKeys:
			pc.APIKeyID = seg.ID
		}
	}
	return pc, nil
}

// splitPath breaks a path into its non-empty segments.
func splitPath(rawPath string) []string {
	var parts []string
	for _, p := range strings.Split(rawPath, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
