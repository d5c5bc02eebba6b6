package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rhuss/plauder/pkg/debug"
	"github.com/rhuss/plauder/pkg/observability"
	"github.com/rhuss/plauder/pkg/tools"
)

// connection is the manager's record of one provider.
type connection struct {
	client    *Client
	connected bool
	tools     []ToolInfo
	err       error
}

// ProviderStatus is a diagnostic snapshot of one provider, connected or
// not.
type ProviderStatus struct {
	// Name is the provider name.
	Name string

	// Connected reports whether the provider survived handshake and
	// discovery.
	Connected bool

	// ToolCount is the number of tools the provider advertises.
	ToolCount int

	// Err is the handshake or discovery failure, if any.
	Err error
}

// Manager owns the set of MCP provider connections. Initialize connects
// them, Tools exposes their aggregated tools, Invoke routes a call to
// the right session, Shutdown disconnects everything.
type Manager struct {
	mu      sync.RWMutex
	conns   map[string]*connection
	handler ElicitationHandler

	// newTransport overrides transport creation; tests substitute
	// in-memory transports here. Returning a nil transport defers to
	// the client's own configuration-based transport.
	newTransport func(name string, cfg ServerConfig) (mcp.Transport, error)
}

// failureResult is the payload returned to the model when a remote tool
// call fails.
type failureResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewManager creates a manager with no connections.
func NewManager() *Manager {
	return &Manager{
		newTransport: func(name string, cfg ServerConfig) (mcp.Transport, error) {
			return nil, nil
		},
	}
}

// SetElicitationHandler installs the callback relayed to every
// provider session. It may be called before or after Initialize and
// replaces any previous handler. Without one installed, an incoming
// elicitation is answered with an error.
func (m *Manager) SetElicitationHandler(h ElicitationHandler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// Initialize connects all configured providers in parallel, best
// effort. A provider that fails to spawn, handshake, or enumerate its
// tools is logged and recorded as disconnected; the others proceed.
func (m *Manager) Initialize(ctx context.Context, cfg Config) {
	if len(cfg.Servers) == 0 {
		debug.Log("mcp", "no MCP providers configured")
		return
	}

	var wg sync.WaitGroup
	for name, sc := range cfg.Servers {
		wg.Add(1)
		go func(name string, sc ServerConfig) {
			defer wg.Done()
			m.connect(ctx, name, sc)
		}(name, sc)
	}
	wg.Wait()
}

// connect establishes one provider connection and records the outcome.
func (m *Manager) connect(ctx context.Context, name string, cfg ServerConfig) {
	client := NewClient(name, cfg)
	client.setElicitationRelay(m.relayElicitation(name))
	conn := &connection{client: client}

	transport, err := m.newTransport(name, cfg)
	if err == nil {
		err = client.ConnectWithTransport(ctx, transport)
	}
	if err == nil {
		conn.tools, err = client.Tools(ctx)
	}

	if err != nil {
		slog.Error("MCP provider unavailable", "provider", name, "error", err)
		conn.err = err
		_ = client.Close()
	} else {
		conn.connected = true
		slog.Info("connected to MCP provider", "provider", name, "tools", len(conn.tools))
	}

	m.mu.Lock()
	if m.conns == nil {
		m.conns = make(map[string]*connection)
	}
	m.conns[name] = conn
	m.mu.Unlock()
}

// relayElicitation builds the SDK-facing elicitation callback for one
// provider, dispatching to the currently installed handler.
func (m *Manager) relayElicitation(provider string) func(context.Context, *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
	return func(ctx context.Context, req *mcp.ElicitRequest) (*mcp.ElicitResult, error) {
		m.mu.RLock()
		h := m.handler
		m.mu.RUnlock()

		if h == nil {
			observability.ElicitationsTotal.WithLabelValues(provider, "unhandled").Inc()
			return nil, fmt.Errorf("provider %q requested user input but no elicitation handler is installed", provider)
		}

		er := &ElicitationRequest{
			Provider: provider,
			Message:  req.Params.Message,
			Schema:   requestedSchema(req.Params.RequestedSchema),
		}
		debug.Log("mcp", "relaying elicitation",
			"provider", provider,
			"message", debug.Truncate(er.Message, 80),
		)

		resp, err := h(ctx, er)
		if err != nil {
			observability.ElicitationsTotal.WithLabelValues(provider, "error").Inc()
			return nil, err
		}
		observability.ElicitationsTotal.WithLabelValues(provider, resp.Action).Inc()
		return &mcp.ElicitResult{
			Action:  resp.Action,
			Content: resp.Content,
		}, nil
	}
}

// Tools aggregates the connected providers' tools as registry
// descriptors, namespaced providerName_toolName. Providers are visited
// in name order so registration order is deterministic.
func (m *Manager) Tools() []tools.Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.conns))
	for name := range m.conns {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []tools.Descriptor
	for _, name := range names {
		conn := m.conns[name]
		if !conn.connected {
			continue
		}
		for _, ti := range conn.tools {
			provider, remote := name, ti.Name
			out = append(out, tools.Descriptor{
				Name:        provider + "_" + remote,
				Description: ti.Description,
				Parameters:  ti.InputSchema,
				Kind:        tools.KindMCP,
				Handler: func(ctx context.Context, args json.RawMessage) (string, error) {
					return m.Invoke(ctx, provider, remote, args)
				},
			})
		}
	}
	return out
}

// Invoke calls a tool on a provider. An absent or disconnected provider
// yields a *NotConnectedError. Remote failures, including results
// flagged IsError, come back as a {"success":false,"error":...} payload
// with a nil error so the conversation can absorb them.
func (m *Manager) Invoke(ctx context.Context, provider, tool string, args json.RawMessage) (string, error) {
	m.mu.RLock()
	conn, ok := m.conns[provider]
	m.mu.RUnlock()

	if !ok || !conn.connected {
		return "", &NotConnectedError{Provider: provider}
	}

	var argMap map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argMap); err != nil {
			return failurePayload(fmt.Sprintf("arguments are not a JSON object: %v", err)), nil
		}
	}

	debug.Log("mcp", "invoking provider tool", "provider", provider, "tool", tool)
	result, err := conn.client.CallTool(ctx, tool, argMap)
	if err != nil {
		slog.Warn("MCP tool call failed", "provider", provider, "tool", tool, "error", err)
		return failurePayload(err.Error()), nil
	}

	output := textContent(result)
	if result.IsError {
		return failurePayload(output), nil
	}
	return output, nil
}

// Statuses returns a diagnostic snapshot of every known provider,
// sorted by name.
func (m *Manager) Statuses() []ProviderStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ProviderStatus, 0, len(m.conns))
	for name, conn := range m.conns {
		out = append(out, ProviderStatus{
			Name:      name,
			Connected: conn.connected,
			ToolCount: len(conn.tools),
			Err:       conn.err,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Shutdown disconnects all providers concurrently. Individual close
// errors are logged, never raised. Safe to call repeatedly and from
// multiple goroutines; later calls are no-ops.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	conns := m.conns
	m.conns = nil
	m.mu.Unlock()

	if len(conns) == 0 {
		return
	}

	var wg sync.WaitGroup
	for name, conn := range conns {
		if conn.client == nil {
			continue
		}
		wg.Add(1)
		go func(name string, c *Client) {
			defer wg.Done()
			if err := c.Close(); err != nil {
				slog.Warn("closing MCP provider", "provider", name, "error", err)
			}
		}(name, conn.client)
	}
	wg.Wait()
	slog.Info("MCP providers shut down", "count", len(conns))
}

// failurePayload encodes a remote failure so the model can read it.
func failurePayload(message string) string {
	data, err := json.Marshal(failureResult{Success: false, Error: message})
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, message)
	}
	return string(data)
}
