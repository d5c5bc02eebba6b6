package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Implementation info announced during the MCP handshake.
const (
	clientName    = "plauder"
	clientVersion = "1.0.0"
)

// ToolInfo describes one tool as advertised by a provider, before
// namespacing.
type ToolInfo struct {
	// Name is the tool name as the provider knows it.
	Name string

	// Description tells the model what the tool does.
	Description string

	// InputSchema is the tool's argument schema as raw JSON.
	InputSchema json.RawMessage
}

// Client wraps an MCP SDK client and session for a single provider
// connection: lifecycle, tool discovery, and tool invocation.
type Client struct {
	name string
	cfg  ServerConfig

	client  *mcp.Client
	session *mcp.ClientSession

	// elicit, when set before Connect, answers the provider's
	// elicitation requests.
	elicit func(context.Context, *mcp.ElicitRequest) (*mcp.ElicitResult, error)

	mu            sync.Mutex
	cachedTools   []ToolInfo
	toolsResolved bool
}

// NewClient creates a client for the named provider. Call Connect to
// establish the connection.
func NewClient(name string, cfg ServerConfig) *Client {
	return &Client{name: name, cfg: cfg}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return c.name
}

// setElicitationRelay installs the callback invoked when the provider
// requests user input. Must be set before Connect.
func (c *Client) setElicitationRelay(f func(context.Context, *mcp.ElicitRequest) (*mcp.ElicitResult, error)) {
	c.elicit = f
}

// Connect spawns the provider per its configuration and performs the
// MCP handshake.
func (c *Client) Connect(ctx context.Context) error {
	return c.ConnectWithTransport(ctx, nil)
}

// ConnectWithTransport performs the MCP handshake over the given
// transport. A nil transport is created from the server configuration;
// tests pass an in-memory transport instead.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	opts := &mcp.ClientOptions{}
	if c.elicit != nil {
		opts.ElicitationHandler = c.elicit
	}
	c.client = mcp.NewClient(
		&mcp.Implementation{Name: clientName, Version: clientVersion},
		opts,
	)

	if transport == nil {
		t, err := c.createTransport(ctx)
		if err != nil {
			return fmt.Errorf("creating transport for %q: %w", c.name, err)
		}
		transport = t
	}

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP provider %q: %w", c.name, err)
	}
	c.session = session
	return nil
}

// createTransport builds the transport from the server configuration.
// The subprocess lifetime is tied to ctx.
func (c *Client) createTransport(ctx context.Context) (mcp.Transport, error) {
	switch c.cfg.Transport {
	case "stdio", "":
		if c.cfg.Command == "" {
			return nil, fmt.Errorf("no command configured")
		}
		cmd := exec.CommandContext(ctx, c.cfg.Command, c.cfg.Args...)
		return &mcp.CommandTransport{Command: cmd}, nil
	default:
		return nil, fmt.Errorf("unsupported transport type %q", c.cfg.Transport)
	}
}

// Tools enumerates the provider's tools. Results are cached; subsequent
// calls return the cached list.
func (c *Client) Tools(ctx context.Context) ([]ToolInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.toolsResolved {
		return c.cachedTools, nil
	}
	if c.session == nil {
		return nil, &NotConnectedError{Provider: c.name}
	}

	var infos []ToolInfo
	for tool, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.name, err)
		}
		info, convErr := convertTool(tool)
		if convErr != nil {
			return nil, fmt.Errorf("converting tool %q from %q: %w", tool.Name, c.name, convErr)
		}
		infos = append(infos, info)
	}

	c.cachedTools = infos
	c.toolsResolved = true
	return infos, nil
}

// CallTool invokes a tool on the provider. The raw SDK result is
// returned; payload extraction is the caller's concern.
func (c *Client) CallTool(ctx context.Context, tool string, args map[string]any) (*mcp.CallToolResult, error) {
	if c.session == nil {
		return nil, &NotConnectedError{Provider: c.name}
	}
	return c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
}

// Close terminates the session. Safe on a client that never connected.
func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// convertTool flattens an SDK tool into a ToolInfo.
func convertTool(t *mcp.Tool) (ToolInfo, error) {
	var schema json.RawMessage
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return ToolInfo{}, fmt.Errorf("marshaling input schema: %w", err)
		}
		schema = data
	}
	return ToolInfo{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: schema,
	}, nil
}

// textContent joins the text blocks of a tool result with newlines.
// Non-text content is ignored.
func textContent(result *mcp.CallToolResult) string {
	var out string
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			if out != "" {
				out += "\n"
			}
			out += tc.Text
		}
	}
	return out
}
