package config

import (
	"fmt"
	"time"
)

// Config represents the complete hearth configuration.
type Config struct {
	Include []string              `yaml:"include,omitempty"`
	Engine  EngineConfig          `yaml:"engine"`
	State   StateConfig           `yaml:"state"`
	API     APIConfig             `yaml:"api,omitempty"`
	Profile ProfileConfig         `yaml:"profile,omitempty"`
	Modules map[string]ModuleConf `yaml:"modules,omitempty"`

	// SourceFiles lists every file the config was assembled from, root first.
	SourceFiles []string `yaml:"-"`
	// Hash is the BLAKE3 digest over the contents of SourceFiles.
	Hash string `yaml:"-"`
}

// EngineConfig defines the tick loop.
type EngineConfig struct {
	Name      string        `yaml:"name"`
	TickRate  time.Duration `yaml:"tick_rate"`
	Workers   int           `yaml:"workers"`
	MaxTicks  uint64        `yaml:"max_ticks"`
	LogLevel  string        `yaml:"log_level"`
	LogFormat string        `yaml:"log_format"`
	// TickEventEvery publishes engine.tick every N ticks. Zero disables it.
	TickEventEvery uint64 `yaml:"tick_event_every"`
}

// StateConfig defines state storage settings.
type StateConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines the debug HTTP API.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is a single bearer token with full access.
	// Prefer Tokens for scoped access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// ProfileConfig controls the per-tick profiler.
type ProfileConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CSVEvery uint64 `yaml:"csv_every"`
}

// ModuleConf configures one builtin module. Modules are enabled unless
// enabled is explicitly false.
type ModuleConf struct {
	Enabled *bool          `yaml:"enabled,omitempty"`
	Options map[string]any `yaml:"options,omitempty"`
}

// IsEnabled reports whether the module should be loaded.
func (m ModuleConf) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// Float returns a numeric option or def.
func (m ModuleConf) Float(key string, def float64) float64 {
	switch v := m.Options[key].(type) {
	case int:
		return float64(v)
	case float64:
		return v
	default:
		return def
	}
}

// Int returns an integer option or def.
func (m ModuleConf) Int(key string, def int) int {
	switch v := m.Options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// Text returns a string option or def.
func (m ModuleConf) Text(key, def string) string {
	if v, ok := m.Options[key].(string); ok {
		return v
	}
	return def
}

// Module returns the configuration of a module, zero when absent.
func (c *Config) Module(name string) ModuleConf {
	return c.Modules[name]
}

// ModuleEnabled reports whether the named module should be loaded.
func (c *Config) ModuleEnabled(name string) bool {
	return c.Module(name).IsEnabled()
}

// StateDir returns the directory holding the state database.
func (c *Config) StateDir() string {
	return dirOf(c.State.Path)
}

func (c *Config) String() string {
	return fmt.Sprintf("engine=%s tick_rate=%s workers=%d state=%s", c.Engine.Name, c.Engine.TickRate, c.Engine.Workers, c.State.Path)
}

// Defaults returns a Config with defaults for a local engine.
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			Name:      "hearth",
			TickRate:  16 * time.Millisecond,
			Workers:   0,
			LogLevel:  "info",
			LogFormat: "json",
		},
		State: StateConfig{
			Path: "./data/hearth.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8090",
		},
		Profile: ProfileConfig{
			Enabled:  false,
			CSVEvery: 600,
		},
		Modules: make(map[string]ModuleConf),
	}
}
