package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes content to a temp config file and points GRAYLOGIC_CONFIG at it.
func writeConfig(t *testing.T, content string) {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", configPath)
}

const baseConfig = `
site:
  id: test-site

alarmdotcom:
  base_url: "http://127.0.0.1:1"
  poll_interval: 60
  max_parallel: 2

mqtt:
  broker:
    host: "127.0.0.1"
    port: 19999
    client_id: "test-client"
  qos: 1

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("error = %v, want loading config failure", err)
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, baseConfig+`
database:
  path: ""
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_APIWithoutSecret verifies the API cannot be enabled unauthenticated.
func TestRun_APIWithoutSecret(t *testing.T) {
	t.Setenv("GRAYLOGIC_JWT_SECRET", "")
	writeConfig(t, baseConfig+`
database:
  path: "`+filepath.Join(t.TempDir(), "test.db")+`"

api:
  enabled: true
  host: "127.0.0.1"
  port: 8081
`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when api is enabled without a JWT secret")
	}
	if !strings.Contains(err.Error(), "security.jwt.secret") {
		t.Errorf("error = %v, want jwt secret validation failure", err)
	}
}

// TestRun_UnreachableBroker verifies startup fails cleanly without MQTT.
func TestRun_UnreachableBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the MQTT connect timeout")
	}
	writeConfig(t, baseConfig+`
database:
  path: "`+filepath.Join(t.TempDir(), "test.db")+`"
`)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the MQTT broker is unreachable")
	}
	if !strings.Contains(err.Error(), "MQTT") {
		t.Errorf("error = %v, want MQTT connection failure", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GRAYLOGIC_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestIssueToken(t *testing.T) {
	t.Setenv("GRAYLOGIC_JWT_SECRET", "an-operator-secret-of-sufficient-length")
	writeConfig(t, baseConfig)

	var out bytes.Buffer
	if err := issueToken(&out, "ha-dashboard", time.Hour); err != nil {
		t.Fatalf("issueToken() error = %v", err)
	}

	token := strings.TrimSpace(out.String())
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("token %q is not a JWT", token)
	}
}

func TestIssueToken_NoSecret(t *testing.T) {
	t.Setenv("GRAYLOGIC_JWT_SECRET", "")
	writeConfig(t, baseConfig)

	var out bytes.Buffer
	if err := issueToken(&out, "ha-dashboard", time.Hour); err == nil {
		t.Fatal("issueToken() should fail without a configured secret")
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}
}
