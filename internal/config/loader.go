package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rawConfig mirrors Config with every field optional, so the zero value
// means "not set in the file" rather than "set to the zero value."
type rawConfig struct {
	DatabasePath      *string `yaml:"database_path"`
	SocketPath        *string `yaml:"socket_path"`
	LogLevel          *string `yaml:"log_level"`
	LogFormat         *string `yaml:"log_format"`
	ReconcileSec      *int    `yaml:"reconcile_interval_seconds"`
	ReentrancyLimit   *int    `yaml:"reentrancy_limit"`
	VirtualScreenMinX *int    `yaml:"virtual_screen_min_x"`
	VirtualScreenMinY *int    `yaml:"virtual_screen_min_y"`
	VirtualScreenMaxX *int    `yaml:"virtual_screen_max_x"`
	VirtualScreenMaxY *int    `yaml:"virtual_screen_max_y"`
}

// Load reads the merged configuration from the standard location.
func Load() (*Config, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads defaults, then overlays path if it exists. A missing
// file is not an error: the compiled-in defaults are valid on their own.
func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
	}

	applyRaw(cfg, &raw)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyRaw(cfg *Config, raw *rawConfig) {
	if raw.DatabasePath != nil {
		cfg.DatabasePath = *raw.DatabasePath
	}
	if raw.SocketPath != nil {
		cfg.SocketPath = *raw.SocketPath
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = *raw.LogLevel
	}
	if raw.LogFormat != nil {
		cfg.LogFormat = *raw.LogFormat
	}
	if raw.ReconcileSec != nil {
		cfg.ReconcileSec = *raw.ReconcileSec
	}
	if raw.ReentrancyLimit != nil {
		cfg.ReentrancyLimit = *raw.ReentrancyLimit
	}
	if raw.VirtualScreenMinX != nil {
		cfg.VirtualScreenMinX = *raw.VirtualScreenMinX
	}
	if raw.VirtualScreenMinY != nil {
		cfg.VirtualScreenMinY = *raw.VirtualScreenMinY
	}
	if raw.VirtualScreenMaxX != nil {
		cfg.VirtualScreenMaxX = *raw.VirtualScreenMaxX
	}
	if raw.VirtualScreenMaxY != nil {
		cfg.VirtualScreenMaxY = *raw.VirtualScreenMaxY
	}
}
