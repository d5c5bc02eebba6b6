package mcp

import "fmt"

// NotConnectedError reports an invocation routed to a provider that is
// not in the connected set: never configured, failed its handshake, or
// already shut down.
type NotConnectedError struct {
	// Provider is the requested provider name.
	Provider string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("MCP provider %q is not connected", e.Provider)
}
