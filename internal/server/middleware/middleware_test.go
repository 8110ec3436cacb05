package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/imgvault/imgvault/internal/auth"
	"github.com/imgvault/imgvault/internal/model"
	"github.com/imgvault/imgvault/internal/service"
	"github.com/imgvault/imgvault/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id == "" {
			t.Error("expected non-empty request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID == "" {
		t.Error("expected X-Request-ID in response header")
	}
	// UUID v7 format check: 36 chars with dashes
	if len(respID) != 36 {
		t.Errorf("expected UUID-length request ID, got %q (len=%d)", respID, len(respID))
	}
}

func TestRequestIDPreservesClientID(t *testing.T) {
	clientID := "my-custom-trace-id-123"

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetRequestID(r.Context())
		if id != clientID {
			t.Errorf("expected context ID %q, got %q", clientID, id)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	respID := rr.Header().Get("X-Request-ID")
	if respID != clientID {
		t.Errorf("expected response X-Request-ID %q, got %q", clientID, respID)
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	id := GetRequestID(context.Background())
	if id != "" {
		t.Errorf("expected empty string from bare context, got %q", id)
	}
}

// ---------------------------------------------------------------------------
// Authenticate / Authorize middleware tests
// ---------------------------------------------------------------------------

type authEnv struct {
	store   *store.Store
	authSvc *service.AuthService
	chain   http.Handler
}

// newAuthEnv wires Authenticate and Authorize around an inner handler that
// always returns 200.
func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	authSvc, err := service.NewAuthService(st, auth.NewHasher(16), "middleware-test-secret", nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	authorizer := auth.NewAuthorizer(auth.NewRuleTable(auth.DefaultRules()), st)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chain := Authenticate(authSvc, "X-API-Key")(Authorize(authorizer)(inner))

	return &authEnv{store: st, authSvc: authSvc, chain: chain}
}

func (e *authEnv) mintKey(t *testing.T, role model.Role, teamID, userID string) string {
	t.Helper()
	_, rawKey, err := e.authSvc.MintCredential(context.Background(), "test", role, teamID, userID)
	if err != nil {
		t.Fatalf("MintCredential: %v", err)
	}
	return rawKey
}

func (e *authEnv) do(method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rr := httptest.NewRecorder()
	e.chain.ServeHTTP(rr, req)
	return rr
}

func TestAuthenticateMissingKey(t *testing.T) {
	env := newAuthEnv(t)

	rr := env.do("GET", "/teams", "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
	if rr.Header().Get("WWW-Authenticate") != "ApiKey" {
		t.Errorf("expected WWW-Authenticate challenge, got %q", rr.Header().Get("WWW-Authenticate"))
	}
}

func TestAuthenticateWrongKey(t *testing.T) {
	env := newAuthEnv(t)

	rr := env.do("GET", "/teams", "iv_not_a_real_key")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestAuthorizeUnroutablePath(t *testing.T) {
	env := newAuthEnv(t)
	key := env.mintKey(t, model.RoleRoot, "", "")

	for _, path := range []string{"/unknown", "/teams/t1/widgets", "/teams/t1/users/u1/extra/deep/path"} {
		rr := env.do("GET", path, key)
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", path, rr.Code)
		}
	}
}

func TestAuthorizeRoleDenied(t *testing.T) {
	env := newAuthEnv(t)
	key := env.mintKey(t, model.RoleUser, "team-1", "user-1")

	// Team creation requires root.
	rr := env.do("POST", "/teams", key)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestAuthorizeOwnershipDenied(t *testing.T) {
	env := newAuthEnv(t)
	key := env.mintKey(t, model.RoleAdmin, "team-1", "")

	// Admin of team-1 cannot read team-2.
	rr := env.do("GET", "/teams/team-2", key)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestAuthorizeAllowsAndAttachesContext(t *testing.T) {
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	authSvc, err := service.NewAuthService(st, auth.NewHasher(16), "middleware-test-secret", nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	_, rawKey, err := authSvc.MintCredential(context.Background(), "test", model.RoleUser, "team-1", "user-1")
	if err != nil {
		t.Fatalf("MintCredential: %v", err)
	}

	authorizer := auth.NewAuthorizer(auth.NewRuleTable(auth.DefaultRules()), st)
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetIdentity(r.Context())
		if id == nil || id.Role != model.RoleUser {
			t.Error("expected user identity in context")
		}
		pc := GetPathContext(r.Context())
		if pc == nil || pc.TeamID != "team-1" {
			t.Error("expected classified path context with team ID")
		}
		w.WriteHeader(http.StatusOK)
	})
	chain := Authenticate(authSvc, "X-API-Key")(Authorize(authorizer)(inner))

	req := httptest.NewRequest("GET", "/teams/team-1", nil)
	req.Header.Set("X-API-Key", rawKey)
	rr := httptest.NewRecorder()
	chain.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Audit middleware tests
// ---------------------------------------------------------------------------

func TestAuditRecordsRequest(t *testing.T) {
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	handler := Audit(st, testLogger())(inner)

	req := httptest.NewRequest("POST", "/teams", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	entries, err := st.ListAuditLogs(context.Background(), model.AuditLogFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Method != "POST" || e.Path != "/teams" {
		t.Errorf("entry: got %s %s, want POST /teams", e.Method, e.Path)
	}
	if e.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode: got %d, want 201", e.StatusCode)
	}
	if e.Status != model.AuditStatusSuccess {
		t.Errorf("Status: got %q, want %q", e.Status, model.AuditStatusSuccess)
	}
	if e.ResourceType != "teams" {
		t.Errorf("ResourceType: got %q, want teams", e.ResourceType)
	}
}

func TestAuditMarksFailures(t *testing.T) {
	st, err := store.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	handler := Audit(st, testLogger())(inner)

	req := httptest.NewRequest("GET", "/teams/other", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	entries, err := st.ListAuditLogs(context.Background(), model.AuditLogFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListAuditLogs: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Status != model.AuditStatusFailure {
		t.Errorf("Status: got %q, want %q", entries[0].Status, model.AuditStatusFailure)
	}
}

// ---------------------------------------------------------------------------
// GetIdentity tests
// ---------------------------------------------------------------------------

func TestGetIdentityWithValue(t *testing.T) {
	expected := &auth.Identity{CredentialID: "cred-42", Role: model.RoleAdmin, TeamID: "team-1"}
	ctx := context.WithValue(context.Background(), identityKey, expected)

	got := GetIdentity(ctx)
	if got == nil {
		t.Fatal("expected non-nil identity")
	}
	if got.CredentialID != "cred-42" {
		t.Errorf("expected CredentialID cred-42, got %q", got.CredentialID)
	}
	if got.Role != model.RoleAdmin {
		t.Errorf("expected admin role, got %q", got.Role)
	}
}

func TestGetIdentityWithoutValue(t *testing.T) {
	got := GetIdentity(context.Background())
	if got != nil {
		t.Error("expected nil identity from bare context")
	}
}
