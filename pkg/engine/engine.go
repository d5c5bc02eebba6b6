package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rhuss/plauder/pkg/chat"
	"github.com/rhuss/plauder/pkg/debug"
	"github.com/rhuss/plauder/pkg/mcp"
	"github.com/rhuss/plauder/pkg/provider"
	"github.com/rhuss/plauder/pkg/tools"
)

// ErrConversationBusy is returned by Send while a previous turn is
// still in progress. A conversation is a single cooperative sequence;
// callers must drain the event channel of one turn before starting the
// next.
var ErrConversationBusy = errors.New("a conversation turn is already in progress")

// Engine owns a single conversation: its history, the tool registry
// advertised to the model, and the external tool providers. It drives
// the orchestration loop for each Send call.
type Engine struct {
	provider provider.Provider
	registry *tools.Registry
	history  *chat.History
	manager  *mcp.Manager
	cfg      Config

	sending atomic.Bool
}

// New creates an Engine talking to the given provider. The provider
// and a configured model are required. A nil registry gets replaced by
// an empty one.
func New(p provider.Provider, registry *tools.Registry, cfg Config) (*Engine, error) {
	if p == nil {
		return nil, fmt.Errorf("engine: provider must not be nil")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("engine: model must not be empty")
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	return &Engine{
		provider: p,
		registry: registry,
		history:  chat.NewHistory(cfg.SystemPrompt),
		manager:  mcp.NewManager(),
		cfg:      cfg,
	}, nil
}

// Send starts one conversation turn for the given user message and
// returns a channel of events: text deltas as they stream in, tool
// notices, and at most one terminal error. The channel is closed when
// the turn ends; callers must drain it. Only one turn may be in flight
// at a time.
func (e *Engine) Send(ctx context.Context, text string) (<-chan Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("engine: message must not be empty")
	}
	if !e.sending.CompareAndSwap(false, true) {
		return nil, ErrConversationBusy
	}

	debug.Log("chat", "user message", "text", debug.Truncate(text, 120))
	e.history.Append(chat.UserMessage(text))

	ch := make(chan Event, 16)
	go func() {
		defer close(ch)
		defer e.sending.Store(false)
		e.run(ctx, ch)
	}()
	return ch, nil
}

// History returns a copy of the conversation so far.
func (e *Engine) History() []chat.Message {
	return e.history.Snapshot()
}

// ResetHistory clears the conversation, keeping the system prompt.
func (e *Engine) ResetHistory() {
	e.history.Reset()
}

// SetElicitationHandler installs the callback invoked when an external
// tool provider requests input from the user. It must be set before
// InitializeProviders.
func (e *Engine) SetElicitationHandler(h mcp.ElicitationHandler) {
	e.manager.SetElicitationHandler(h)
}

// InitializeProviders connects the configured external tool providers
// and registers their tools. Individual provider failures are logged
// and skipped; the conversation works with whatever connected.
func (e *Engine) InitializeProviders(ctx context.Context, cfg mcp.Config) {
	e.manager.Initialize(ctx, cfg)
	for _, d := range e.manager.Tools() {
		// Register logs a warning when the name is already taken;
		// the existing tool wins.
		_ = e.registry.Register(d)
	}
}

// Tools returns the registered tool descriptors in registration order.
func (e *Engine) Tools() []tools.Descriptor {
	return e.registry.List()
}

// Providers returns the connection status of all external tool
// providers.
func (e *Engine) Providers() []mcp.ProviderStatus {
	return e.manager.Statuses()
}

// Models lists the models the backend reports.
func (e *Engine) Models(ctx context.Context) ([]provider.Model, error) {
	return e.provider.ListModels(ctx)
}

// Shutdown closes all external tool provider connections. Safe to call
// more than once.
func (e *Engine) Shutdown() {
	e.manager.Shutdown()
}
