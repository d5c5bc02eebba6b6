package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid
// values. All problems are reported at once, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	// backend.url is required.
	if c.Backend.URL == "" {
		errs = append(errs, fmt.Errorf("backend.url is required"))
	}

	// backend.model is required; chat requests always name a model.
	if c.Backend.Model == "" {
		errs = append(errs, fmt.Errorf("backend.model is required"))
	}

	if c.Chat.MaxTurns <= 0 {
		errs = append(errs, fmt.Errorf("chat.max_turns must be > 0, got %d", c.Chat.MaxTurns))
	}

	switch c.Log.Format {
	case "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	switch c.Log.Level {
	case "", "trace", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of trace, debug, info, warn, error, got %q", c.Log.Level))
	}

	for name, sc := range c.MCP.Servers {
		switch sc.Transport {
		case "", "stdio":
			// valid
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%s].transport must be \"stdio\", got %q", name, sc.Transport))
		}
		if sc.Command == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%s].command is required", name))
		}
	}

	return errors.Join(errs...)
}
