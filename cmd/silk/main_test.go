package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetConfigPath(t *testing.T) {
	originalEnv := os.Getenv("SILK_CONFIG")
	defer os.Setenv("SILK_CONFIG", originalEnv)

	os.Unsetenv("SILK_CONFIG")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	os.Setenv("SILK_CONFIG", "/etc/silk/config.yaml")
	if got := getConfigPath(); got != "/etc/silk/config.yaml" {
		t.Errorf("getConfigPath() = %q, want the env override", got)
	}
}

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("SILK_CONFIG")
	defer os.Setenv("SILK_CONFIG", originalEnv)

	os.Setenv("SILK_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MinimalBench brings the harness up with external services
// disabled and an empty inventory, then shuts it down via the context.
func TestRun_MinimalBench(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
harness:
  id: test-bench
  wait_timeout: 30

hardware:
  inventory_path: ""

shell:
  path: /bin/sh

database:
  path: ` + filepath.Join(tmpDir, "silk.db") + `
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	originalEnv := os.Getenv("SILK_CONFIG")
	defer os.Setenv("SILK_CONFIG", originalEnv)
	os.Setenv("SILK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}
}

// TestRun_MissingDatabasePath verifies config validation rejects an
// empty database path.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
harness:
  id: test-bench
  wait_timeout: 30

database:
  path: ""

mqtt:
  enabled: false

influxdb:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	originalEnv := os.Getenv("SILK_CONFIG")
	defer os.Setenv("SILK_CONFIG", originalEnv)
	os.Setenv("SILK_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail when database.path is empty")
	}
}
