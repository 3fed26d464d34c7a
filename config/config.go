package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/types"
)

// Transport constants
const (
	TransportMemory = bus.TransportMemory
	TransportNATS   = bus.TransportNATS
)

// DefaultEnvPrefix prefixes environment overrides, e.g. FILESTREAMS_PLATFORM_ID.
const DefaultEnvPrefix = "FILESTREAMS"

// ComponentConfigs holds component instance configurations.
// The map key is the instance name (e.g., "csv-reader").
// Components are only created if their factory is registered and
// their entry has enabled=true.
type ComponentConfigs map[string]types.ComponentConfig

// Config represents the complete application configuration
type Config struct {
	Version    string           `json:"version,omitempty"`
	Platform   PlatformConfig   `json:"platform"`
	NATS       NATSConfig       `json:"nats"`
	Metrics    MetricsConfig    `json:"metrics"`
	Components ComponentConfigs `json:"components"`
}

// PlatformConfig defines platform identity and the bus transport
type PlatformConfig struct {
	ID          string `json:"id"`
	Transport   string `json:"transport"`             // memory or nats
	Environment string `json:"environment,omitempty"` // "prod", "dev", "test"
}

// NATSConfig defines NATS connection settings
type NATSConfig struct {
	URLs          []string        `json:"urls,omitempty"`
	MaxReconnects int             `json:"max_reconnects,omitempty"`
	ReconnectWait time.Duration   `json:"reconnect_wait,omitempty"`
	Username      string          `json:"username,omitempty"`
	Password      string          `json:"password,omitempty"`
	Token         string          `json:"token,omitempty"`
	JetStream     JetStreamConfig `json:"jetstream"`
}

// JetStreamConfig enables the durable bus and describes its stream
type JetStreamConfig struct {
	Enabled bool             `json:"enabled"`
	Stream  bus.StreamConfig `json:"stream"`
}

// MetricsConfig configures the Prometheus/health HTTP server. Port 0
// disables it.
type MetricsConfig struct {
	Port int    `json:"port"`
	Path string `json:"path,omitempty"`
}

// URL joins the configured servers into a single NATS connect URL
func (n NATSConfig) URL() string {
	return strings.Join(n.URLs, ",")
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

// Validate checks if the config is valid
func (c *Config) Validate() error {
	if c.Platform.ID == "" {
		return errors.New("platform.id is required")
	}
	if !isValidNATSSubjectPart(c.Platform.ID) {
		return fmt.Errorf(
			"platform.id '%s' is not valid for NATS subjects (must be alphanumeric with dots, dashes, underscores)",
			c.Platform.ID)
	}

	switch c.Platform.Transport {
	case TransportMemory:
		if c.NATS.JetStream.Enabled {
			return errors.New("nats.jetstream.enabled requires platform.transport 'nats'")
		}
	case TransportNATS:
		if len(c.NATS.URLs) == 0 {
			return errors.New("nats.urls is required when platform.transport is 'nats'")
		}
		if c.NATS.JetStream.Enabled {
			if c.NATS.JetStream.Stream.Name == "" || len(c.NATS.JetStream.Stream.Subjects) == 0 {
				return errors.New("nats.jetstream.stream requires a name and subjects")
			}
		}
	default:
		return fmt.Errorf("platform.transport '%s' must be 'memory' or 'nats'", c.Platform.Transport)
	}

	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port %d out of range", c.Metrics.Port)
	}

	for instanceName, cc := range c.Components {
		if err := component.ValidateComponentName(instanceName); err != nil {
			return fmt.Errorf("component instance name '%s': %w", instanceName, err)
		}
		if err := cc.Validate(); err != nil {
			return fmt.Errorf("component %s: %w", instanceName, err)
		}
	}

	return nil
}

// EnabledComponents returns the enabled component configs
func (c *Config) EnabledComponents() ComponentConfigs {
	enabled := make(ComponentConfigs, len(c.Components))
	for name, cc := range c.Components {
		if cc.Enabled {
			enabled[name] = cc
		}
	}
	return enabled
}

// isValidNATSSubjectPart checks if a string is valid for use in NATS subjects.
func isValidNATSSubjectPart(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) &&
			r != '-' && r != '_' && r != '.' {
			return false
		}
	}
	return true
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := c.Clone()
	if masked.NATS.Password != "" {
		masked.NATS.Password = "****"
	}
	if masked.NATS.Token != "" {
		masked.NATS.Token = "****"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:    []string{},
		envPrefix: DefaultEnvPrefix,
	}
}

// AddLayer adds a configuration file layer. Later layers override earlier ones.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// SetEnvPrefix changes the environment override prefix
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers over the defaults, then
// applies environment overrides.
func (l *Loader) Load() (*Config, error) {
	base, err := toMap(Defaults())
	if err != nil {
		return nil, err
	}

	for _, path := range l.layers {
		raw, err := l.loadRaw(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
		base = deepMergeMaps(base, raw)
	}

	merged, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("merge layers: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(merged, &cfg); err != nil {
		return nil, fmt.Errorf("decode merged config: %w", err)
	}

	if err := l.applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Platform: PlatformConfig{
			ID:        "filestreams",
			Transport: TransportMemory,
		},
		NATS: NATSConfig{
			URLs:          []string{"nats://localhost:4222"},
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			JetStream: JetStreamConfig{
				Stream: bus.DefaultStreamConfig(),
			},
		},
		Metrics: MetricsConfig{
			Port: 9090,
			Path: "/metrics",
		},
		Components: ComponentConfigs{},
	}
}

// loadRaw reads a JSON or YAML layer into a generic map
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		// Component configs are json.RawMessage; normalise through JSON
		data, err = json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("convert YAML: %w", err)
		}
		raw = nil
	}

	if err := validateJSONDepth(data); err != nil {
		return nil, fmt.Errorf("invalid JSON structure: %w", err)
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if err := parseDurations(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence.
// The components map is replaced per instance rather than merged, so a
// layer can swap a component's whole config.
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}
		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				if k == "config" {
					result[k] = overrideMap
					continue
				}
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}
		result[k] = v
	}

	return result
}

// durationFields lists the nested keys holding durations
var durationFields = [][]string{
	{"nats", "reconnect_wait"},
	{"nats", "jetstream", "stream", "max_age"},
	{"nats", "jetstream", "stream", "ack_wait"},
}

// parseDurations converts duration strings to nanoseconds for JSON decoding
func parseDurations(data map[string]any) error {
	for _, path := range durationFields {
		parent := data
		for _, key := range path[:len(path)-1] {
			next, ok := parent[key].(map[string]any)
			if !ok {
				parent = nil
				break
			}
			parent = next
		}
		if parent == nil {
			continue
		}

		leaf := path[len(path)-1]
		s, ok := parent[leaf].(string)
		if !ok {
			continue
		}
		d, err := parseDurationWithDays(s)
		if err != nil {
			return fmt.Errorf("%s: %w", strings.Join(path, "."), err)
		}
		parent[leaf] = d.Nanoseconds()
	}
	return nil
}

// parseDurationWithDays parses durations that may include days (e.g., "14d")
func parseDurationWithDays(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	get := func(suffix string) (string, error) {
		key := l.envPrefix + suffix
		val := os.Getenv(key)
		return val, validateEnvVar(key, val)
	}

	overrides := []struct {
		suffix string
		apply  func(string) error
	}{
		{"_PLATFORM_ID", func(v string) error { cfg.Platform.ID = v; return nil }},
		{"_TRANSPORT", func(v string) error { cfg.Platform.Transport = v; return nil }},
		{"_NATS_URLS", func(v string) error { cfg.NATS.URLs = strings.Split(v, ","); return nil }},
		{"_NATS_USERNAME", func(v string) error { cfg.NATS.Username = v; return nil }},
		{"_NATS_PASSWORD", func(v string) error { cfg.NATS.Password = v; return nil }},
		{"_NATS_TOKEN", func(v string) error { cfg.NATS.Token = v; return nil }},
		{"_METRICS_PORT", func(v string) error {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid metrics port %q", v)
			}
			cfg.Metrics.Port = port
			return nil
		}},
	}

	for _, o := range overrides {
		val, err := get(o.suffix)
		if err != nil {
			return err
		}
		if val == "" {
			continue
		}
		if err := o.apply(val); err != nil {
			return fmt.Errorf("%s%s: %w", l.envPrefix, o.suffix, err)
		}
	}
	return nil
}

// SaveToFile saves the configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return safeWriteFile(path, data)
}
