package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "imgvault.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAMLConfigDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.RateLimit != 300 {
		t.Errorf("RateLimit: got %d, want 300", cfg.Server.RateLimit)
	}
	if cfg.Server.KeyRateLimit != 120 {
		t.Errorf("KeyRateLimit: got %d, want 120", cfg.Server.KeyRateLimit)
	}
	if cfg.Auth.APIKeyHeader != "X-API-Key" {
		t.Errorf("APIKeyHeader: got %q, want X-API-Key", cfg.Auth.APIKeyHeader)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Driver: got %q, want sqlite", cfg.Store.Driver)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level: got %q, want info", cfg.Logging.Level)
	}
}

func TestLoadYAMLConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
  key_rate_limit_per_minute: 10
store:
  driver: postgres
  dsn: postgres://localhost/imgvault
logging:
  format: json
`)

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host: got %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Port: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.KeyRateLimit != 10 {
		t.Errorf("KeyRateLimit: got %d, want 10", cfg.Server.KeyRateLimit)
	}
	if cfg.Store.Driver != "postgres" {
		t.Errorf("Driver: got %q, want postgres", cfg.Store.Driver)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.MaxBodySize != "32MB" {
		t.Errorf("MaxBodySize: got %q, want 32MB", cfg.Server.MaxBodySize)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level: got %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Format: got %q, want json", cfg.Logging.Format)
	}
}

func TestLoadYAMLConfigExpandsEnv(t *testing.T) {
	t.Setenv("IMGVAULT_TEST_SECRET", "hunter2")
	path := writeConfig(t, `
auth:
  signing_secret: ${IMGVAULT_TEST_SECRET}
`)

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	if cfg.Auth.SigningSecret != "hunter2" {
		t.Errorf("SigningSecret: got %q, want hunter2", cfg.Auth.SigningSecret)
	}
}

func TestLoadYAMLConfigMissingFile(t *testing.T) {
	_, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadYAMLConfigBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := LoadYAMLConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWriteDefaultConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig: %v", err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig: %v", err)
	}
	want := DefaultYAMLConfig()
	if cfg.Server.Port != want.Server.Port || cfg.Store.Driver != want.Store.Driver {
		t.Errorf("round trip mismatch: got %+v", cfg)
	}
}
