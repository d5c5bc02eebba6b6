package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/rhuss/plauder/pkg/debug"
)

// Config holds the MCP provider connections to establish.
type Config struct {
	// Servers maps provider name to its connection settings.
	Servers map[string]ServerConfig `json:"servers" yaml:"servers"`
}

// ServerConfig describes how to reach a single MCP provider.
type ServerConfig struct {
	// Transport selects the connection type. Only "stdio" is supported;
	// empty defaults to stdio.
	Transport string `json:"transport,omitempty" yaml:"transport,omitempty"`

	// Command is the executable that speaks MCP on its stdio.
	Command string `json:"command" yaml:"command"`

	// Args are passed to the command.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// LoadConfig reads a provider configuration file, a JSON document of
// the form {"servers": {name: {"command": ..., "args": [...]}}}.
//
// A missing or unreadable file is not an error: it yields an empty
// configuration so the chat runs without external providers. A file
// that exists but does not parse is a configuration error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		slog.Info("no MCP provider config, continuing without external tools",
			"path", path, "error", err)
		return Config{}, nil
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing MCP config %q: %w", path, err)
	}
	debug.Log("config", "loaded MCP provider config", "path", path, "servers", len(cfg.Servers))
	return cfg, nil
}

// ParseServers parses a JSON object mapping provider names to server
// configurations: the shape of the Config "servers" field and of the
// PLAUDER_MCP_SERVERS environment variable.
func ParseServers(data []byte) (map[string]ServerConfig, error) {
	var servers map[string]ServerConfig
	if err := json.Unmarshal(data, &servers); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	return servers, nil
}
