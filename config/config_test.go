package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "brewblox-service", cfg.Service.Name)
	assert.Equal(t, 5000, cfg.Service.Port)
	assert.Equal(t, "nats://eventbus:4222", cfg.Bus.URL)
	assert.Equal(t, 2*time.Second, cfg.Bus.ReconnectWait.Std())
	assert.True(t, cfg.Announcer.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, `{
		"service": {"name": "spark-one", "port": 5001},
		"bus": {"url": "nats://broker:4222", "reconnect_wait": "500ms"}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "spark-one", cfg.Service.Name)
	assert.Equal(t, 5001, cfg.Service.Port)
	assert.Equal(t, "nats://broker:4222", cfg.Bus.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.Bus.ReconnectWait.Std())

	// Unset fields keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.Service.Host)
	assert.Equal(t, time.Minute, cfg.Bus.MaxBackoff.Std())
}

func TestLoadLayered(t *testing.T) {
	base := writeConfigFile(t, `{"service": {"name": "base", "port": 5001}}`)
	override := writeConfigFile(t, `{"service": {"name": "override"}}`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "override", cfg.Service.Name)
	assert.Equal(t, 5001, cfg.Service.Port, "later layers only override what they set")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader().LoadFile("/does/not/exist.json")
	assert.Error(t, err)
}

func TestLoadInvalidJSON(t *testing.T) {
	path := writeConfigFile(t, `{not json`)
	_, err := NewLoader().LoadFile(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BREWBLOX_SERVICE_NAME", "env-service")
	t.Setenv("BREWBLOX_PORT", "8080")
	t.Setenv("BREWBLOX_BUS_URL", "nats://env-broker:4222")
	t.Setenv("BREWBLOX_BUS_RECONNECT_WAIT", "3s")
	t.Setenv("BREWBLOX_DEBUG", "true")

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "env-service", cfg.Service.Name)
	assert.Equal(t, 8080, cfg.Service.Port)
	assert.Equal(t, "nats://env-broker:4222", cfg.Bus.URL)
	assert.Equal(t, 3*time.Second, cfg.Bus.ReconnectWait.Std())
	assert.True(t, cfg.Debug)
}

func TestEnvOverridesBeatFile(t *testing.T) {
	path := writeConfigFile(t, `{"service": {"name": "from-file"}}`)
	t.Setenv("BREWBLOX_SERVICE_NAME", "from-env")

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Service.Name)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(*Config) {}, false},
		{"empty name", func(c *Config) { c.Service.Name = "" }, true},
		{"name with slash", func(c *Config) { c.Service.Name = "a/b" }, true},
		{"name with wildcard", func(c *Config) { c.Service.Name = "spark+" }, true},
		{"negative port", func(c *Config) { c.Service.Port = -1 }, true},
		{"huge port", func(c *Config) { c.Service.Port = 70000 }, true},
		{"empty bus url", func(c *Config) { c.Bus.URL = "" }, true},
		{"cert without key", func(c *Config) {
			c.Bus.TLS.Enabled = true
			c.Bus.TLS.CertFile = "/tmp/cert.pem"
		}, true},
		{"announcer without interval", func(c *Config) {
			c.Announcer.Enabled = true
			c.Announcer.Interval = 0
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNormalizesName(t *testing.T) {
	cfg := Default()
	cfg.Service.Name = "SparkOne"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sparkone", cfg.Service.Name)
}

func TestDurationUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"string duration", `"1m30s"`, 90 * time.Second, false},
		{"numeric seconds", `2.5`, 2500 * time.Millisecond, false},
		{"integer seconds", `10`, 10 * time.Second, false},
		{"bad string", `"not-a-duration"`, 0, true},
		{"bad type", `["nope"]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d.Std())
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	d := Duration(90 * time.Second)
	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(data))

	var decoded Duration
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, d, decoded)
}

func TestClone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()

	clone.Service.Name = "changed"
	assert.Equal(t, "brewblox-service", cfg.Service.Name)
}
