package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/filestreams/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.json", `{}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "filestreams", cfg.Platform.ID)
	assert.Equal(t, TransportMemory, cfg.Platform.Transport)
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.NATS.URLs)
	assert.Equal(t, 2*time.Second, cfg.NATS.ReconnectWait)
	assert.Equal(t, "FILESTREAMS", cfg.NATS.JetStream.Stream.Name)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoader_JSONLayers(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.json", `{
		"platform": {"id": "edge-1"},
		"nats": {"reconnect_wait": "5s"},
		"components": {
			"reader": {"type": "input", "name": "file-source", "enabled": true,
			           "config": {"directory": "/data/in", "watch": true}},
			"writer": {"type": "output", "name": "file-sink", "enabled": true,
			           "config": {"directory": "/data/out"}}
		}
	}`)
	override := writeFile(t, dir, "prod.json", `{
		"platform": {"transport": "nats"},
		"nats": {"urls": ["nats://a:4222", "nats://b:4222"],
		         "jetstream": {"enabled": true, "stream": {"max_age": "7d", "ack_wait": "45s"}}},
		"components": {
			"reader": {"config": {"directory": "/srv/in"}},
			"writer": {"enabled": false}
		}
	}`)

	l := NewLoader()
	l.AddLayer(base)
	l.AddLayer(override)
	l.EnableValidation(true)

	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, "edge-1", cfg.Platform.ID)
	assert.Equal(t, TransportNATS, cfg.Platform.Transport)
	assert.Equal(t, "nats://a:4222,nats://b:4222", cfg.NATS.URL())
	assert.Equal(t, 5*time.Second, cfg.NATS.ReconnectWait)
	assert.True(t, cfg.NATS.JetStream.Enabled)
	assert.Equal(t, 7*24*time.Hour, cfg.NATS.JetStream.Stream.MaxAge)
	assert.Equal(t, 45*time.Second, cfg.NATS.JetStream.Stream.AckWait)
	assert.Equal(t, []string{"file.>"}, cfg.NATS.JetStream.Stream.Subjects)

	reader := cfg.Components["reader"]
	assert.Equal(t, types.ComponentTypeInput, reader.Type)
	assert.JSONEq(t, `{"directory":"/srv/in"}`, string(reader.Config))

	assert.False(t, cfg.Components["writer"].Enabled)
	assert.Len(t, cfg.EnabledComponents(), 1)
}

func TestLoader_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
platform:
  id: edge-2
metrics:
  port: 0
components:
  writer:
    type: output
    name: file-sink
    enabled: true
    config:
      directory: /data/out
      name_expression: "substring(payload, 0, 4)"
      workers: 2
`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "edge-2", cfg.Platform.ID)
	assert.Equal(t, 0, cfg.Metrics.Port)

	var sinkCfg map[string]any
	require.NoError(t, json.Unmarshal(cfg.Components["writer"].Config, &sinkCfg))
	assert.Equal(t, "substring(payload, 0, 4)", sinkCfg["name_expression"])
	assert.Equal(t, float64(2), sinkCfg["workers"])
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.json")},
		{"wrong extension", writeFile(t, dir, "config.toml", `x = 1`)},
		{"malformed json", writeFile(t, dir, "bad.json", `{"platform":`)},
		{"malformed yaml", writeFile(t, dir, "bad.yaml", "platform: [\n")},
		{"bad duration", writeFile(t, dir, "dur.json", `{"nats":{"reconnect_wait":"soon"}}`)},
		{"too deep", writeFile(t, dir, "deep.json", strings.Repeat(`{"a":`, 101)+"1"+strings.Repeat("}", 101))},
		{"directory", dir + string(filepath.Separator) + "sub.json"},
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().LoadFile(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestLoader_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.json", `{"platform":{"id":"from-file"}}`)

	t.Setenv("FILESTREAMS_PLATFORM_ID", "from-env")
	t.Setenv("FILESTREAMS_TRANSPORT", "nats")
	t.Setenv("FILESTREAMS_NATS_URLS", "nats://x:4222,nats://y:4222")
	t.Setenv("FILESTREAMS_NATS_TOKEN", "secret")
	t.Setenv("FILESTREAMS_METRICS_PORT", "9191")

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Platform.ID)
	assert.Equal(t, TransportNATS, cfg.Platform.Transport)
	assert.Equal(t, []string{"nats://x:4222", "nats://y:4222"}, cfg.NATS.URLs)
	assert.Equal(t, "secret", cfg.NATS.Token)
	assert.Equal(t, 9191, cfg.Metrics.Port)
	assert.NotContains(t, cfg.String(), "secret")

	t.Setenv("FILESTREAMS_METRICS_PORT", "ninety")
	_, err = NewLoader().LoadFile(path)
	assert.Error(t, err)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.json", `{}`)

	t.Setenv("EDGE_PLATFORM_ID", "edge-9")
	l := NewLoader()
	l.SetEnvPrefix("EDGE")
	cfg, err := l.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "edge-9", cfg.Platform.ID)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.Components["reader"] = types.ComponentConfig{
			Type: types.ComponentTypeInput, Name: "file-source", Enabled: true,
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing id", func(c *Config) { c.Platform.ID = "" }, "platform.id is required"},
		{"bad id", func(c *Config) { c.Platform.ID = "edge 1" }, "not valid for NATS"},
		{"bad transport", func(c *Config) { c.Platform.Transport = "kafka" }, "must be 'memory' or 'nats'"},
		{"jetstream on memory", func(c *Config) { c.NATS.JetStream.Enabled = true }, "requires platform.transport"},
		{"nats without urls", func(c *Config) {
			c.Platform.Transport = TransportNATS
			c.NATS.URLs = nil
		}, "nats.urls is required"},
		{"stream without subjects", func(c *Config) {
			c.Platform.Transport = TransportNATS
			c.NATS.JetStream.Enabled = true
			c.NATS.JetStream.Stream.Subjects = nil
		}, "name and subjects"},
		{"metrics port", func(c *Config) { c.Metrics.Port = 70000 }, "out of range"},
		{"bad instance name", func(c *Config) {
			c.Components["bad name"] = types.ComponentConfig{Type: types.ComponentTypeInput, Name: "file-source"}
		}, "bad name"},
		{"bad component", func(c *Config) {
			c.Components["x"] = types.ComponentConfig{Type: "gateway", Name: "http"}
		}, "component x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSub == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestConfig_CloneIsDeep(t *testing.T) {
	cfg := Defaults()
	clone := cfg.Clone()
	clone.NATS.URLs[0] = "nats://changed:4222"
	clone.Platform.ID = "other"

	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URLs[0])
	assert.Equal(t, "filestreams", cfg.Platform.ID)

	var nilCfg *Config
	assert.NotNil(t, nilCfg.Clone())
}

func TestConfig_SaveToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.json")

	cfg := Defaults()
	cfg.Platform.ID = "saved"
	require.NoError(t, cfg.SaveToFile(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "saved", loaded.Platform.ID)
	assert.Equal(t, cfg.NATS.JetStream.Stream, loaded.NATS.JetStream.Stream)
}

func TestParseDurationWithDays(t *testing.T) {
	d, err := parseDurationWithDays("14d")
	require.NoError(t, err)
	assert.Equal(t, 14*24*time.Hour, d)

	d, err = parseDurationWithDays("90s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	_, err = parseDurationWithDays("xd")
	assert.Error(t, err)
}
