package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cartd.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen_addr: ":9090"
namespace: "store-lisbon-3"
storage:
  backend: redis
  redis:
    addr: "localhost:6379"
catalog:
  base_url: "https://commerce.internal"
  timeout: 2s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != ":9090" || cfg.Namespace != "store-lisbon-3" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Storage.Backend != "redis" || cfg.Storage.Redis.Addr != "localhost:6379" {
		t.Fatalf("storage config lost: %+v", cfg.Storage)
	}
	if cfg.Catalog.Timeout.Std() != 2*time.Second {
		t.Fatalf("timeout = %v", cfg.Catalog.Timeout)
	}
	// Unset sections keep their defaults.
	if cfg.Orders.BaseURL == "" || cfg.RateLimit.RequestsPerSecond != 20 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_Validation(t *testing.T) {
	for name, content := range map[string]string{
		"unknown backend": "storage:\n  backend: cassandra\n",
		"redis no addr":   "storage:\n  backend: redis\n",
		"empty namespace": "namespace: \"\"\n",
	} {
		path := writeConfig(t, content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load or default: %v", err)
	}
	if cfg.Storage.Backend != "memory" || cfg.ListenAddr != ":8080" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}
