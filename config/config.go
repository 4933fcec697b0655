// Package config loads and persists the vellum configuration.
//
// Configuration merges, lowest precedence first: built-in defaults, the
// system file (/etc/vellum/vellum.toml), the user file (~/.vellum/vellum.toml),
// a project vellum.toml found by walking up from the working directory, and
// finally VELLUM_* environment variables.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config represents the vellum canvas server configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" toml:"server" json:"server" yaml:"server"`
	Log       LogConfig       `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
	Agent     AgentConfig     `mapstructure:"agent" toml:"agent" json:"agent" yaml:"agent"`
	Correlate CorrelateConfig `mapstructure:"correlate" toml:"correlate" json:"correlate" yaml:"correlate"`
}

// ServerConfig configures the HTTP/WebSocket listener
type ServerConfig struct {
	Port         *int  `mapstructure:"port" toml:"port" json:"port" yaml:"port"`                                         // nil = default 3100; 0 is invalid (omit for default)
	MaxBodyBytes int64 `mapstructure:"max_body_bytes" toml:"max_body_bytes" json:"max_body_bytes" yaml:"max_body_bytes"` // request body cap (default: 50 MB)
	MaxClients   int   `mapstructure:"max_clients" toml:"max_clients" json:"max_clients" yaml:"max_clients"`             // WebSocket peer cap (default: 100)
}

// LogConfig configures logging output
type LogConfig struct {
	Verbosity int  `mapstructure:"verbosity" toml:"verbosity" json:"verbosity" yaml:"verbosity"` // 0 = warnings, 1 = info, 2 = debug
	JSON      bool `mapstructure:"json" toml:"json" json:"json" yaml:"json"`                     // machine-readable JSON output
}

// AgentConfig configures the stdio tool agent the supervisor manages
type AgentConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"` // spawn the agent at startup (default: true)
	Command string `mapstructure:"command" toml:"command" json:"command" yaml:"command"` // explicit command line, overrides probing
	Path    string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`             // extra directory to probe for agent binaries
}

// CorrelateConfig configures deadlines for editor-delegated calls
type CorrelateConfig struct {
	MermaidTimeoutSeconds  int `mapstructure:"mermaid_timeout_seconds" toml:"mermaid_timeout_seconds" json:"mermaid_timeout_seconds" yaml:"mermaid_timeout_seconds"`
	ExportTimeoutSeconds   int `mapstructure:"export_timeout_seconds" toml:"export_timeout_seconds" json:"export_timeout_seconds" yaml:"export_timeout_seconds"`
	ViewportTimeoutSeconds int `mapstructure:"viewport_timeout_seconds" toml:"viewport_timeout_seconds" json:"viewport_timeout_seconds" yaml:"viewport_timeout_seconds"`
}

const (
	// DefaultServerPort is the canvas server's default listen port
	DefaultServerPort = 3100

	// DefaultMaxBodyBytes caps inbound request bodies (scenes can be large)
	DefaultMaxBodyBytes = 50 << 20

	// DefaultMaxClients caps concurrent WebSocket peers
	DefaultMaxClients = 100

	// Correlated request deadlines in seconds
	DefaultMermaidTimeoutSeconds  = 30
	DefaultExportTimeoutSeconds   = 30
	DefaultViewportTimeoutSeconds = 10

	// DefaultDirPermissions for created config directories
	DefaultDirPermissions = 0750
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.max_body_bytes", DefaultMaxBodyBytes)
	v.SetDefault("server.max_clients", DefaultMaxClients)

	v.SetDefault("log.verbosity", 1)
	v.SetDefault("log.json", false)

	v.SetDefault("agent.enabled", true)
	v.SetDefault("agent.command", "")
	v.SetDefault("agent.path", "")

	v.SetDefault("correlate.mermaid_timeout_seconds", DefaultMermaidTimeoutSeconds)
	v.SetDefault("correlate.export_timeout_seconds", DefaultExportTimeoutSeconds)
	v.SetDefault("correlate.viewport_timeout_seconds", DefaultViewportTimeoutSeconds)
}

// EffectivePort resolves the configured port, falling back to the default
func (c *Config) EffectivePort() int {
	if c.Server.Port == nil || *c.Server.Port == 0 {
		return DefaultServerPort
	}
	return *c.Server.Port
}

// EffectiveMaxBodyBytes resolves the request body cap
func (c *Config) EffectiveMaxBodyBytes() int64 {
	if c.Server.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return c.Server.MaxBodyBytes
}

// EffectiveMaxClients resolves the WebSocket peer cap
func (c *Config) EffectiveMaxClients() int {
	if c.Server.MaxClients <= 0 {
		return DefaultMaxClients
	}
	return c.Server.MaxClients
}

// MermaidTimeout resolves the mermaid conversion deadline
func (c *CorrelateConfig) MermaidTimeout() time.Duration {
	return effectiveSeconds(c.MermaidTimeoutSeconds, DefaultMermaidTimeoutSeconds)
}

// ExportTimeout resolves the image export deadline
func (c *CorrelateConfig) ExportTimeout() time.Duration {
	return effectiveSeconds(c.ExportTimeoutSeconds, DefaultExportTimeoutSeconds)
}

// ViewportTimeout resolves the viewport change deadline
func (c *CorrelateConfig) ViewportTimeout() time.Duration {
	return effectiveSeconds(c.ViewportTimeoutSeconds, DefaultViewportTimeoutSeconds)
}

func effectiveSeconds(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
