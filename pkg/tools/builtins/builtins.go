// Package builtins provides the built-in tools shipped with plauder:
// calculator, get_weather, and current_time. They run in-process, need
// no network access, and double as the reference implementations for
// the tool registry contract.
//
// Parameter schemas are derived from the argument struct tags via
// tools.GenerateSchema.
package builtins

import (
	"fmt"

	"github.com/rhuss/plauder/pkg/tools"
)

// All returns descriptors for every built-in tool.
func All() []tools.Descriptor {
	return []tools.Descriptor{
		Calculator(),
		Weather(),
		CurrentTime(),
	}
}

// RegisterAll adds every built-in tool to the registry.
func RegisterAll(r *tools.Registry) error {
	for _, d := range All() {
		if err := r.Register(d); err != nil {
			return fmt.Errorf("registering builtin %q: %w", d.Name, err)
		}
	}
	return nil
}
