package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/plauder/pkg/chat"
	"github.com/rhuss/plauder/pkg/debug"
	"github.com/rhuss/plauder/pkg/observability"
)

// Kind classifies where a tool is executed.
type Kind int

const (
	// KindBuiltin is a tool implemented as a Go function in-process.
	KindBuiltin Kind = iota

	// KindMCP is a tool hosted by an out-of-process MCP server and
	// invoked through the provider manager.
	KindMCP
)

// String returns the kind label used in logs.
func (k Kind) String() string {
	switch k {
	case KindBuiltin:
		return "builtin"
	case KindMCP:
		return "mcp"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Handler executes a tool call. args is the complete arguments object,
// already validated to be well-formed JSON. The returned string becomes
// the content of the tool-result message, so handlers should return
// something the model can read back (usually JSON).
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Descriptor describes one callable tool: the schema advertised to the
// model and the handler that runs it.
type Descriptor struct {
	// Name is the unique tool name within a registry. MCP-sourced tools
	// arrive pre-namespaced as providerName_toolName.
	Name string

	// Description tells the model what the tool does.
	Description string

	// Parameters is the JSON schema of the arguments object.
	Parameters json.RawMessage

	// Kind records where the tool executes.
	Kind Kind

	// Handler runs the tool.
	Handler Handler
}

// Registry maps tool names to descriptors. Registration order is
// preserved for listing and schema advertisement.
//
// The conversation loop is the single caller of Execute; registration
// happens at startup and after provider discovery. All methods are safe
// for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	names  []string
	byName map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Descriptor),
	}
}

// Register adds a tool. Names are resolved first-come, first-served: a
// later registration under an existing name is rejected with an error
// and a warning log, so a provider tool can never silently shadow a
// built-in.
func (r *Registry) Register(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool descriptor has empty name")
	}
	if d.Handler == nil {
		return fmt.Errorf("tool %q has nil handler", d.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[d.Name]; exists {
		slog.Warn("tool name conflict, keeping first registration",
			"tool", d.Name,
			"rejected_kind", d.Kind.String(),
		)
		return fmt.Errorf("tool %q is already registered", d.Name)
	}

	r.byName[d.Name] = d
	r.names = append(r.names, d.Name)
	debug.Log("tools", "registered tool", "tool", d.Name, "kind", d.Kind.String())
	return nil
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.byName[name])
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}

// Definitions returns the tool schemas to advertise in a model request,
// in registration order. Returns nil when the registry is empty so the
// request marshals without a tools field.
func (r *Registry) Definitions() []chat.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.names) == 0 {
		return nil
	}
	defs := make([]chat.ToolDefinition, 0, len(r.names))
	for _, name := range r.names {
		d := r.byName[name]
		params := d.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{"type":"object"}`)
		}
		defs = append(defs, chat.ToolDefinition{
			Type: "function",
			Function: chat.FunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return defs
}

// Execute runs the named tool with the given JSON arguments string and
// returns its textual result. An empty arguments string is treated as
// an empty object. Failures are classified: *MalformedArgumentsError
// when the arguments do not parse, *UnknownToolError when no descriptor
// matches, *ExecutionError for handler errors and recovered panics.
// There is no retry.
func (r *Registry) Execute(ctx context.Context, name, argumentsJSON string) (out string, err error) {
	args := json.RawMessage(argumentsJSON)
	if strings.TrimSpace(argumentsJSON) == "" {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		observability.ToolExecutionsTotal.WithLabelValues(name, "malformed").Inc()
		return "", &MalformedArgumentsError{Tool: name, Arguments: argumentsJSON}
	}

	d, ok := r.Lookup(name)
	if !ok {
		observability.ToolExecutionsTotal.WithLabelValues(name, "unknown").Inc()
		return "", &UnknownToolError{Tool: name}
	}

	start := time.Now()

	// A buggy handler must not take the process down.
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("tool handler panicked", "tool", name, "panic", rec)
			out = ""
			err = &ExecutionError{Tool: name, Err: fmt.Errorf("handler panicked: %v", rec)}
			observability.ToolExecutionsTotal.WithLabelValues(name, "panic").Inc()
			observability.ToolDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}
	}()

	out, err = d.Handler(ctx, args)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
	}
	observability.ToolExecutionsTotal.WithLabelValues(name, status).Inc()
	observability.ToolDuration.WithLabelValues(name).Observe(duration.Seconds())
	debug.Log("tools", "tool executed",
		"tool", name,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	)

	if err != nil {
		return "", &ExecutionError{Tool: name, Err: err}
	}
	return out, nil
}
