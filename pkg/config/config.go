// Package config provides unified configuration for the plauder chat
// client.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (PLAUDER_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the plauder chat client.
type Config struct {
	Backend       BackendConfig       `yaml:"backend"`
	Chat          ChatConfig          `yaml:"chat"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Log           LogConfig           `yaml:"log"`
}

// BackendConfig holds model backend connection settings.
type BackendConfig struct {
	URL        string        `yaml:"url"`          // required
	APIKey     string        `yaml:"api_key"`      // optional
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Model      string        `yaml:"model"`        // required
	Timeout    time.Duration `yaml:"timeout"`      // default: 120s (non-streaming calls)
}

// ChatConfig holds conversation settings.
type ChatConfig struct {
	SystemPrompt string   `yaml:"system_prompt"` // optional
	MaxTurns     int      `yaml:"max_turns"`     // default: 10
	Temperature  *float64 `yaml:"temperature"`   // optional, passed through
	TopP         *float64 `yaml:"top_p"`         // optional, passed through
	MaxTokens    *int     `yaml:"max_tokens"`    // optional, passed through
}

// MCPConfig holds external tool provider settings. Servers can come
// from a dedicated JSON file, inline YAML, or the PLAUDER_MCP_SERVERS
// environment variable; inline and env definitions win over the file
// on name collision.
type MCPConfig struct {
	ConfigFile string                     `yaml:"config_file"`
	Servers    map[string]MCPServerConfig `yaml:"servers"`
}

// MCPServerConfig describes how to reach a single tool provider.
type MCPServerConfig struct {
	Transport string   `yaml:"transport" json:"transport"` // "stdio" (default)
	Command   string   `yaml:"command" json:"command"`
	Args      []string `yaml:"args" json:"args"`
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	// MetricsAddr, when set (e.g. "localhost:9090"), serves Prometheus
	// metrics on /metrics at that address.
	MetricsAddr string `yaml:"metrics_addr"`
}

// LogConfig holds logging settings. The PLAUDER_LOG_LEVEL,
// PLAUDER_LOG_FORMAT and PLAUDER_DEBUG environment variables override
// these at logger setup.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error; default: info
	Format string `yaml:"format"` // "text" or "json"; default: text
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			Timeout: 120 * time.Second,
		},
		Chat: ChatConfig{
			MaxTurns: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
