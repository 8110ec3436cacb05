package openapi

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestGenerateSpecBasics(t *testing.T) {
	doc := GenerateSpec("http://localhost:8080")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI version: got %q, want 3.1.0", doc.OpenAPI)
	}
	if doc.Info == nil || doc.Info.Title == "" {
		t.Fatal("expected non-empty info title")
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:8080" {
		t.Errorf("unexpected servers: %+v", doc.Servers)
	}
	if _, ok := doc.Components.SecuritySchemes["apiKey"]; !ok {
		t.Error("expected apiKey security scheme")
	}
}

func TestGenerateSpecCoversResourceRoutes(t *testing.T) {
	doc := GenerateSpec("")

	wantPaths := []string{
		"/teams",
		"/teams/{teamID}",
		"/teams/{teamID}/api-keys",
		"/teams/{teamID}/api-keys/{keyID}",
		"/teams/{teamID}/users",
		"/teams/{teamID}/users/{userID}",
		"/teams/{teamID}/users/{userID}/api-keys",
		"/teams/{teamID}/users/{userID}/images",
		"/teams/{teamID}/users/{userID}/images/{imageID}",
		"/teams/{teamID}/images",
		"/teams/{teamID}/images/{imageID}",
		"/audit-logs",
		"/content/{imageID}",
	}
	for _, p := range wantPaths {
		if doc.Paths.Value(p) == nil {
			t.Errorf("missing path %s", p)
		}
	}
}

func TestGenerateSpecSchemas(t *testing.T) {
	doc := GenerateSpec("")

	for _, name := range []string{"Team", "User", "APIKey", "Image", "AuditLog", "ErrorResponse"} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Errorf("missing component schema %s", name)
		}
	}

	// The credential schema must never describe secret material.
	key := doc.Components.Schemas["APIKey"].Value
	for _, secret := range []string{"salt", "hash", "key"} {
		if _, ok := key.Properties[secret]; ok {
			t.Errorf("APIKey schema exposes %q", secret)
		}
	}
}

func TestServeSpec(t *testing.T) {
	h := NewHandler()

	rr := httptest.NewRecorder()
	h.ServeSpec(rr, httptest.NewRequest("GET", "/openapi.json", nil))

	if rr.Code != 200 {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if decoded["openapi"] != "3.1.0" {
		t.Errorf("openapi field: got %v, want 3.1.0", decoded["openapi"])
	}
}
