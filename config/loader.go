package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Loader handles configuration loading with file layers and env overrides.
// Layers are applied in order, later layers overriding earlier ones, then
// environment variables override everything.
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader with the BREWBLOX env prefix
func NewLoader() *Loader {
	return &Loader{
		validation: true,
		envPrefix:  "BREWBLOX",
	}
}

// AddLayer adds a configuration file layer
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	l.applyEnvOverrides(cfg)

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(l.envPrefix + "_SERVICE_NAME"); val != "" {
		cfg.Service.Name = val
	}
	if val := os.Getenv(l.envPrefix + "_HOST"); val != "" {
		cfg.Service.Host = val
	}
	if val := os.Getenv(l.envPrefix + "_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			cfg.Service.Port = port
		}
	}

	if val := os.Getenv(l.envPrefix + "_BUS_URL"); val != "" {
		cfg.Bus.URL = val
	}
	if val := os.Getenv(l.envPrefix + "_BUS_USERNAME"); val != "" {
		cfg.Bus.Username = val
	}
	if val := os.Getenv(l.envPrefix + "_BUS_PASSWORD"); val != "" {
		cfg.Bus.Password = val
	}
	if val := os.Getenv(l.envPrefix + "_BUS_TOKEN"); val != "" {
		cfg.Bus.Token = val
	}
	if val := os.Getenv(l.envPrefix + "_BUS_RECONNECT_WAIT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Bus.ReconnectWait = Duration(d)
		}
	}
	if val := os.Getenv(l.envPrefix + "_BUS_MAX_BACKOFF"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Bus.MaxBackoff = Duration(d)
		}
	}

	if val := os.Getenv(l.envPrefix + "_DEBUG"); val != "" {
		if debug, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = debug
		}
	}
}
