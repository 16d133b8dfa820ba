package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServiceName != "valuegraph" || cfg.ListenAddr != ":8080" || cfg.ColdCacheSize != 128 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.DeferToParentPrefixes()) != 0 {
		t.Fatalf("expected empty prefix list, got %v", cfg.DeferToParentPrefixes())
	}
}

func TestLoadConfigFromFileAndHotReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	initial := "service_name: demo\ndefer_to_parent_prefixes:\n  - \"ext:\"\n"
	if err := os.WriteFile(path, []byte(initial), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServiceName != "demo" {
		t.Fatalf("expected service_name demo, got %q", cfg.ServiceName)
	}
	if prefixes := cfg.DeferToParentPrefixes(); len(prefixes) != 1 || prefixes[0] != "ext:" {
		t.Fatalf("unexpected prefixes: %v", prefixes)
	}

	updated := "service_name: demo\ndefer_to_parent_prefixes:\n  - \"ext:\"\n  - \"frame:\"\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(cfg.DeferToParentPrefixes()) == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected hot-reloaded prefix list to grow to 2 entries")
}
