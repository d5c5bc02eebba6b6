package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, PLAUDER_CONFIG env, ./plauder.yaml,
//     $HOME/.config/plauder/config.yaml)
//  3. Environment variable overrides (PLAUDER_ prefix)
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. PLAUDER_CONFIG environment variable
// 3. ./plauder.yaml in the current directory
// 4. $HOME/.config/plauder/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check PLAUDER_CONFIG env var.
	if envPath := os.Getenv("PLAUDER_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{"plauder.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "plauder", "config.yaml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps environment variables to config fields.
// Log-related variables (PLAUDER_LOG_LEVEL, PLAUDER_LOG_FORMAT,
// PLAUDER_DEBUG) are applied by the debug package at logger setup so
// they work even without the config layer.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PLAUDER_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("PLAUDER_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("PLAUDER_MODEL"); v != "" {
		cfg.Backend.Model = v
	}
	if v := os.Getenv("PLAUDER_SYSTEM_PROMPT"); v != "" {
		cfg.Chat.SystemPrompt = v
	}
	if v := os.Getenv("PLAUDER_MAX_TURNS"); v != "" {
		if turns, err := strconv.Atoi(v); err == nil {
			cfg.Chat.MaxTurns = turns
		}
	}
	if v := os.Getenv("PLAUDER_MCP_CONFIG"); v != "" {
		cfg.MCP.ConfigFile = v
	}
	if v := os.Getenv("PLAUDER_METRICS_ADDR"); v != "" {
		cfg.Observability.MetricsAddr = v
	}

	// PLAUDER_MCP_SERVERS: JSON object keyed by provider name, same
	// shape as the "servers" mapping in the YAML file.
	if v := os.Getenv("PLAUDER_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err == nil && len(servers) > 0 {
			if cfg.MCP.Servers == nil {
				cfg.MCP.Servers = make(map[string]MCPServerConfig)
			}
			for name, sc := range servers {
				cfg.MCP.Servers[name] = sc
			}
		}
	}
}

// parseMCPServersJSON parses a JSON object of provider configurations.
func parseMCPServersJSON(jsonStr string) (map[string]MCPServerConfig, error) {
	var servers map[string]MCPServerConfig
	if err := json.Unmarshal([]byte(jsonStr), &servers); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	return servers, nil
}

// resolveFileReferences reads _file fields and populates the
// corresponding value fields. The file field is only consulted when the
// value field is empty; its content is read with surrounding whitespace
// trimmed.
func resolveFileReferences(cfg *Config) error {
	// backend.api_key_file -> backend.api_key
	if cfg.Backend.APIKeyFile != "" && cfg.Backend.APIKey == "" {
		val, err := readSecretFile(cfg.Backend.APIKeyFile)
		if err != nil {
			return fmt.Errorf("backend.api_key_file: %w", err)
		}
		cfg.Backend.APIKey = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
