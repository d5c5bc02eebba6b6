package provider

import "context"

// Provider abstracts a conversational LLM backend. The interface is
// protocol-agnostic: each adapter handles its own wire protocol
// internally and reports stream progress as Event values.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai-compat").
	Name() string

	// Stream performs streaming inference. The returned channel receives
	// Event values and is closed by the provider when the stream
	// completes or errors. Tool calls arrive as raw fragments; assembly
	// is the caller's concern.
	Stream(ctx context.Context, req *Request) (<-chan Event, error)

	// ListModels returns available models from the backend.
	ListModels(ctx context.Context) ([]Model, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
