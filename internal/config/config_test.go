package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New(), "")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.LocalDBPath == "" {
		t.Error("no default database path")
	}
	if cfg.SyncInterval != 5*time.Minute {
		t.Errorf("unexpected sync interval %v", cfg.SyncInterval)
	}
	if cfg.DashboardPort != 8345 {
		t.Errorf("unexpected dashboard port %d", cfg.DashboardPort)
	}
	if cfg.Configured() {
		t.Error("configured with no remote URL")
	}
	if cfg.Authenticated() {
		t.Error("authenticated with no credentials")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "neurosync.yaml")
	content := `
local:
  db_path: /data/notes.db
remote:
  url: libsql://notes.example.turso.io
  auth_token: tok-123
  user_id: user-abc
daemon:
  sync_interval: 30s
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(viper.New(), cfgPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.LocalDBPath != "/data/notes.db" {
		t.Errorf("db path = %q", cfg.LocalDBPath)
	}
	if cfg.RemoteURL != "libsql://notes.example.turso.io" {
		t.Errorf("remote url = %q", cfg.RemoteURL)
	}
	if cfg.SyncInterval != 30*time.Second {
		t.Errorf("sync interval = %v", cfg.SyncInterval)
	}
	if !cfg.Configured() || !cfg.Authenticated() {
		t.Error("expected configured and authenticated")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}
