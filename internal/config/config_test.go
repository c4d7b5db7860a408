package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.ReentrancyLimit != DefaultReentrancyLimit {
		t.Fatalf("expected reentrancy limit %d, got %d", DefaultReentrancyLimit, cfg.ReentrancyLimit)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log_level, got %q", cfg.LogLevel)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("# empty\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ReconcileSec != DefaultReconcileSeconds {
		t.Fatalf("expected default reconcile interval, got %d", cfg.ReconcileSec)
	}
}

func TestLoadFromPath_OverridesApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "log_level: debug\nreentrancy_limit: 5\nreconcile_interval_seconds: 60\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log_level override, got %q", cfg.LogLevel)
	}
	if cfg.ReentrancyLimit != 5 {
		t.Fatalf("expected reentrancy_limit override, got %d", cfg.ReentrancyLimit)
	}
	if cfg.ReconcileSec != 60 {
		t.Fatalf("expected reconcile_interval_seconds override, got %d", cfg.ReconcileSec)
	}
	// DatabasePath wasn't overridden; the default must survive untouched.
	if cfg.DatabasePath == "" {
		t.Fatal("expected database_path default to be preserved")
	}
}

func TestLoadFromPath_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("bogus_field: true\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected an error for an unknown config field")
	}
}

func TestLoadFromPath_RejectsInvalidLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: verbose\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected an error for an invalid log_level")
	}
}

func TestLoadFromPath_RejectsInconsistentVirtualScreenBounds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := "virtual_screen_min_x: 100\nvirtual_screen_max_x: 50\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected an error for min_x > max_x")
	}
}
