package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Missing file must not be an error: %v", err)
	}

	if cfg.Backend.URL != "http://localhost:5001" {
		t.Errorf("Unexpected default backend URL %q", cfg.Backend.URL)
	}
	if cfg.Backend.TimeoutSeconds != 30 {
		t.Errorf("Unexpected default timeout %d", cfg.Backend.TimeoutSeconds)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("Unexpected log defaults %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Stub.Port != 5001 || cfg.Stub.Storage != "memory" {
		t.Errorf("Unexpected stub defaults port=%d storage=%q", cfg.Stub.Port, cfg.Stub.Storage)
	}
	if cfg.Stub.Superadmin.Username != "superadmin" {
		t.Errorf("Expected seeded superadmin, got %q", cfg.Stub.Superadmin.Username)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend:
  url: http://backend:9000
  timeout_seconds: 5
log:
  level: debug
  format: json
stub:
  port: 9000
  jwt_secret: file-secret
  storage: minio
  minio:
    endpoint: localhost:9001
    bucket: documentos
  admins:
    - nombre: Ana
      usuario: ana
      contrasena: secreta
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Backend.URL != "http://backend:9000" {
		t.Errorf("Unexpected backend URL %q", cfg.Backend.URL)
	}
	if cfg.Backend.TimeoutSeconds != 5 {
		t.Errorf("Unexpected timeout %d", cfg.Backend.TimeoutSeconds)
	}
	if cfg.Stub.Storage != "minio" || cfg.Stub.Minio.Bucket != "documentos" {
		t.Errorf("Unexpected stub storage config: %+v", cfg.Stub)
	}
	if len(cfg.Stub.Admins) != 1 || cfg.Stub.Admins[0].Username != "ana" {
		t.Errorf("Unexpected seeded admins: %+v", cfg.Stub.Admins)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  url: http://from-file:1\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("BACKEND_URL", "http://from-env:2")
	t.Setenv("JWT_SECRET_KEY", "env-secret")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Backend.URL != "http://from-env:2" {
		t.Errorf("Expected env override, got %q", cfg.Backend.URL)
	}
	if cfg.Stub.JWTSecret != "env-secret" {
		t.Errorf("Expected env secret, got %q", cfg.Stub.JWTSecret)
	}
	if cfg.Stub.Port != 8080 {
		t.Errorf("Expected env port, got %d", cfg.Stub.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected env log level, got %q", cfg.Log.Level)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend: [not: a map"), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for invalid yaml")
	}
}
