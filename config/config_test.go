package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigDBPaths(t *testing.T) {
	customDir := t.TempDir()
	t.Setenv("PIXSHIFT_DATA_DIR", customDir)

	if got := GetSettingsDBPath(); got != filepath.Join(customDir, "settings.db") {
		t.Errorf("Unexpected settings path %s", got)
	}
	if got := GetCredentialsDBPath(); got != filepath.Join(customDir, "credentials.db") {
		t.Errorf("Unexpected credentials path %s", got)
	}
	if got := GetUploadDir(); got != filepath.Join(customDir, "uploads") {
		t.Errorf("Unexpected upload dir %s", got)
	}
}

func TestConfigDefaultDataDir(t *testing.T) {
	t.Setenv("PIXSHIFT_DATA_DIR", "")
	if got := GetDataDir(); got != "./data" {
		t.Errorf("Expected default data dir ./data, got %s", got)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pixshift.yaml")
	yamlDoc := `
addr: ":9000"
log_level: debug
publish_concurrency: 2
fetch_timeout: 5s
publish_targets:
  - type: local
    credentials_key: abc
    prefix: mirror
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Setenv("PIXSHIFT_CONFIG", path)
	t.Setenv("PIXSHIFT_DATA_DIR", dir)
	t.Setenv("PIXSHIFT_LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("Expected addr from YAML, got %s", cfg.Addr)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected env to override YAML log level, got %s", cfg.LogLevel)
	}
	if cfg.PublishConcurrency != 2 || cfg.FetchTimeout != 5*time.Second {
		t.Errorf("Unexpected YAML values %+v", cfg)
	}
	if len(cfg.PublishTargets) != 1 || cfg.PublishTargets[0].Prefix != "mirror" {
		t.Errorf("Unexpected publish targets %+v", cfg.PublishTargets)
	}
	if cfg.DataDir != dir {
		t.Errorf("Expected data dir %s, got %s", dir, cfg.DataDir)
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	t.Setenv("PIXSHIFT_CONFIG", "")
	t.Setenv("PIXSHIFT_DATA_DIR", t.TempDir())
	t.Setenv("PIXSHIFT_PUBLISH_CONCURRENCY", "zero")
	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid publish concurrency")
	}
}
