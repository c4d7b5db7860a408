// Package config loads displayd's single YAML configuration file over
// compiled-in defaults (SPEC_FULL §4.8). Unlike the teacher's multi-file,
// per-project loader, there is no include graph and no Source provenance:
// this daemon has no per-project scoping concept, so a single file over the
// defaults is the whole story. No environment variables are consulted.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config holds displayd's effective configuration.
type Config struct {
	DatabasePath    string `yaml:"database_path"`
	SocketPath      string `yaml:"socket_path,omitempty"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	ReconcileSec    int    `yaml:"reconcile_interval_seconds"`
	ReentrancyLimit int    `yaml:"reentrancy_limit"`

	// VirtualScreenMin/Max are parsed and validated only: no other package
	// reads them, so the backend-reported virtual screen bounds are always
	// the ones used.
	VirtualScreenMinX int `yaml:"virtual_screen_min_x,omitempty"`
	VirtualScreenMinY int `yaml:"virtual_screen_min_y,omitempty"`
	VirtualScreenMaxX int `yaml:"virtual_screen_max_x,omitempty"`
	VirtualScreenMaxY int `yaml:"virtual_screen_max_y,omitempty"`
}

const (
	DefaultReconcileSeconds = 30
	DefaultReentrancyLimit  = 100
)

// DefaultConfig returns the compiled-in defaults (spec §5's re-entrancy
// limit of 100, SPEC_FULL §4.8's 30s reconcile interval).
func DefaultConfig() *Config {
	dbPath, err := defaultDatabasePath()
	if err != nil {
		dbPath = "displayd.db"
	}
	return &Config{
		DatabasePath:    dbPath,
		LogLevel:        "info",
		LogFormat:       "text",
		ReconcileSec:    DefaultReconcileSeconds,
		ReentrancyLimit: DefaultReentrancyLimit,
	}
}

func defaultDatabasePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "displayd", "db"), nil
}

// DefaultConfigPath returns ~/.config/displayd/config.yaml.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "displayd", "config.yaml"), nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return &ValidationError{Path: "database_path", Err: fmt.Errorf("database_path is required")}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return &ValidationError{Path: "log_format", Err: fmt.Errorf("log_format must be one of: text, json")}
	}
	if c.ReconcileSec <= 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("reconcile_interval_seconds must be > 0")}
	}
	if c.ReentrancyLimit <= 0 {
		return &ValidationError{Path: "reentrancy_limit", Err: fmt.Errorf("reentrancy_limit must be > 0")}
	}
	if c.VirtualScreenMinX < 0 || c.VirtualScreenMinY < 0 || c.VirtualScreenMaxX < 0 || c.VirtualScreenMaxY < 0 {
		return &ValidationError{Path: "virtual_screen_min/max", Err: fmt.Errorf("virtual screen bounds must be >= 0")}
	}
	if c.VirtualScreenMaxX > 0 && c.VirtualScreenMinX > c.VirtualScreenMaxX {
		return &ValidationError{Path: "virtual_screen_min_x", Err: fmt.Errorf("virtual_screen_min_x must be <= virtual_screen_max_x")}
	}
	if c.VirtualScreenMaxY > 0 && c.VirtualScreenMinY > c.VirtualScreenMaxY {
		return &ValidationError{Path: "virtual_screen_min_y", Err: fmt.Errorf("virtual_screen_min_y must be <= virtual_screen_max_y")}
	}
	return nil
}

// ValidationError reports the YAML path and cause of a config validation
// failure, in the teacher's format (minus file/line source context, which
// this single-file loader has no use for).
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
