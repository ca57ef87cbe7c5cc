// Package config provides service configuration loading with layered JSON
// files and environment variable overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Duration wraps time.Duration for JSON config files.
// It accepts either a duration string ("30s", "1m30s") or a number of seconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value * float64(time.Second)))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
		return nil
	default:
		return fmt.Errorf("invalid duration type %T", v)
	}
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete service configuration
type Config struct {
	Service   ServiceConfig   `json:"service"`
	Bus       BusConfig       `json:"bus"`
	Announcer AnnouncerConfig `json:"announcer,omitempty"`
	Shutdown  ShutdownConfig  `json:"shutdown,omitempty"`
	Debug     bool            `json:"debug,omitempty"`
}

// ServiceConfig defines service identity and HTTP settings
type ServiceConfig struct {
	Name string `json:"name"`
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// BusConfig defines event bus connection settings
type BusConfig struct {
	URL            string       `json:"url,omitempty"`
	Username       string       `json:"username,omitempty"`
	Password       string       `json:"password,omitempty"`
	Token          string       `json:"token,omitempty"`
	TLS            BusTLSConfig `json:"tls,omitempty"`
	ConnectTimeout Duration     `json:"connect_timeout,omitempty"`
	ReconnectWait  Duration     `json:"reconnect_wait,omitempty"`
	MaxBackoff     Duration     `json:"max_backoff,omitempty"`
	DrainTimeout   Duration     `json:"drain_timeout,omitempty"`
}

// BusTLSConfig for secure broker connections
type BusTLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
	CAFile   string `json:"ca_file,omitempty"`
}

// AnnouncerConfig defines periodic state announcement settings
type AnnouncerConfig struct {
	Enabled  bool     `json:"enabled"`
	Interval Duration `json:"interval,omitempty"`
}

// ShutdownConfig defines graceful shutdown settings
type ShutdownConfig struct {
	Timeout Duration `json:"timeout,omitempty"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name: "brewblox-service",
			Host: "0.0.0.0",
			Port: 5000,
		},
		Bus: BusConfig{
			URL:            "nats://eventbus:4222",
			ConnectTimeout: Duration(5 * time.Second),
			ReconnectWait:  Duration(2 * time.Second),
			MaxBackoff:     Duration(time.Minute),
			DrainTimeout:   Duration(5 * time.Second),
		},
		Announcer: AnnouncerConfig{
			Enabled:  true,
			Interval: Duration(5 * time.Second),
		},
		Shutdown: ShutdownConfig{
			Timeout: Duration(10 * time.Second),
		},
	}
}

// Validate checks if the config is valid.
// The service name is normalized to lowercase and must be usable as a topic
// segment since it appears in announcement topics.
func (c *Config) Validate() error {
	if c.Service.Name == "" {
		return errors.New("service.name is required")
	}

	c.Service.Name = strings.ToLower(c.Service.Name)

	if !isValidTopicSegment(c.Service.Name) {
		return fmt.Errorf(
			"service.name %q is not valid for topics (must be alphanumeric with dashes or underscores)",
			c.Service.Name,
		)
	}

	if c.Service.Port < 0 || c.Service.Port > 65535 {
		return fmt.Errorf("service.port %d out of range", c.Service.Port)
	}

	if c.Bus.URL == "" {
		return errors.New("bus.url is required")
	}

	if c.Bus.TLS.Enabled {
		if c.Bus.TLS.CertFile != "" && c.Bus.TLS.KeyFile == "" {
			return errors.New("bus.tls.key_file is required when cert_file is set")
		}
		if c.Bus.TLS.KeyFile != "" && c.Bus.TLS.CertFile == "" {
			return errors.New("bus.tls.cert_file is required when key_file is set")
		}
	}

	if c.Announcer.Enabled && c.Announcer.Interval.Std() <= 0 {
		return errors.New("announcer.interval must be positive when the announcer is enabled")
	}

	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{}
	}

	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}

	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}

	return &clone
}

// isValidTopicSegment checks if a string is valid as a single topic segment.
// Valid characters are alphanumeric, dashes, and underscores.
func isValidTopicSegment(s string) bool {
	if len(s) == 0 {
		return false
	}

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}
