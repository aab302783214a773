// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and validation rules

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:3000"
  request_timeout: "15s"

database:
  driver: "sqlite"
  path: "./test.db"

auth:
  jwt_secret: "test-jwt-secret-long-enough-to-pass-validation"
  password_pepper: "test-pepper-long-enough-to-pass-validation-too"
  admin_password: "hunter2"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:3000" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:3000")
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("Server.RequestTimeout = %v, want %v", cfg.Server.RequestTimeout, 15*time.Second)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Auth.AdminPassword != "hunter2" {
		t.Errorf("Auth.AdminPassword = %q, want %q", cfg.Auth.AdminPassword, "hunter2")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("CERGDB_TEST_SECRET", "secret-from-environment-variable-expansion")
	t.Setenv("CERGDB_TEST_PEPPER", "pepper-from-environment-variable-expansion")

	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:3000"

database:
  driver: "sqlite"
  path: "./test.db"

auth:
  jwt_secret: "${CERGDB_TEST_SECRET}"
  password_pepper: "${CERGDB_TEST_PEPPER}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "secret-from-environment-variable-expansion" {
		t.Errorf("Auth.JWTSecret = %q, env var was not expanded", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.PasswordPepper != "pepper-from-environment-variable-expansion" {
		t.Errorf("Auth.PasswordPepper = %q, env var was not expanded", cfg.Auth.PasswordPepper)
	}
}

func TestLoad_EnvVarDefaults(t *testing.T) {
	t.Setenv("CERGDB_TEST_SECRET", "secret-from-environment-variable-expansion")
	os.Unsetenv("CERGDB_TEST_MISSING_PEPPER")

	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:3000"

database:
  driver: "sqlite"
  path: "./test.db"

auth:
  jwt_secret: "${CERGDB_TEST_SECRET:-unused-fallback-secret-value-is-long-enough-x}"
  password_pepper: "${CERGDB_TEST_MISSING_PEPPER:-pepper-fallback-long-enough-to-pass-validation}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWTSecret != "secret-from-environment-variable-expansion" {
		t.Errorf("Auth.JWTSecret = %q, a set variable must win over its fallback", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.PasswordPepper != "pepper-fallback-long-enough-to-pass-validation" {
		t.Errorf("Auth.PasswordPepper = %q, an unset variable must take its fallback", cfg.Auth.PasswordPepper)
	}
}

func TestLoad_DefaultRequestTimeout(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:3000"

database:
  driver: "sqlite"
  path: "./test.db"

auth:
  jwt_secret: "test-jwt-secret-long-enough-to-pass-validation"
  password_pepper: "test-pepper-long-enough-to-pass-validation-too"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("Server.RequestTimeout = %v, want default %v", cfg.Server.RequestTimeout, DefaultRequestTimeout)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	const goodSecret = "test-jwt-secret-long-enough-to-pass-validation"
	const goodPepper = "test-pepper-long-enough-to-pass-validation-too"

	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name: "missing http addr",
			config: `
database:
  driver: "sqlite"
  path: "./test.db"
auth:
  jwt_secret: "` + goodSecret + `"
  password_pepper: "` + goodPepper + `"
`,
			wantErr: "server.http_addr is required",
		},
		{
			name: "cert without key",
			config: `
server:
  http_addr: "127.0.0.1:3000"
  cert_file: "/etc/cergdb/tls.crt"
database:
  driver: "sqlite"
  path: "./test.db"
auth:
  jwt_secret: "` + goodSecret + `"
  password_pepper: "` + goodPepper + `"
`,
			wantErr: "must be set together",
		},
		{
			name: "unknown driver",
			config: `
server:
  http_addr: "127.0.0.1:3000"
database:
  driver: "mysql"
  dsn: "whatever"
auth:
  jwt_secret: "` + goodSecret + `"
  password_pepper: "` + goodPepper + `"
`,
			wantErr: "database.driver",
		},
		{
			name: "sqlite without path",
			config: `
server:
  http_addr: "127.0.0.1:3000"
database:
  driver: "sqlite"
auth:
  jwt_secret: "` + goodSecret + `"
  password_pepper: "` + goodPepper + `"
`,
			wantErr: "database.path is required",
		},
		{
			name: "postgres without dsn",
			config: `
server:
  http_addr: "127.0.0.1:3000"
database:
  driver: "postgres"
auth:
  jwt_secret: "` + goodSecret + `"
  password_pepper: "` + goodPepper + `"
`,
			wantErr: "database.dsn is required",
		},
		{
			name: "short jwt secret",
			config: `
server:
  http_addr: "127.0.0.1:3000"
database:
  driver: "sqlite"
  path: "./test.db"
auth:
  jwt_secret: "short"
  password_pepper: "` + goodPepper + `"
`,
			wantErr: "auth.jwt_secret",
		},
		{
			name: "pepper equals jwt secret",
			config: `
server:
  http_addr: "127.0.0.1:3000"
database:
  driver: "sqlite"
  path: "./test.db"
auth:
  jwt_secret: "` + goodSecret + `"
  password_pepper: "` + goodSecret + `"
`,
			wantErr: "must differ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.config)
			_, err := Load(configPath)
			if err == nil {
				t.Fatal("Load() succeeded, want validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "127.0.0.1:3000"
  request_timeout: "ten seconds"

database:
  driver: "sqlite"
  path: "./test.db"

auth:
  jwt_secret: "test-jwt-secret-long-enough-to-pass-validation"
  password_pepper: "test-pepper-long-enough-to-pass-validation-too"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() succeeded with an unparseable duration")
	}
	if !strings.Contains(err.Error(), "request_timeout") {
		t.Errorf("Load() error = %v, want it to mention request_timeout", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("Load() succeeded on a missing file")
	}
}
