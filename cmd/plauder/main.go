// Command plauder runs an interactive terminal chat against an
// OpenAI-compatible backend, with built-in and MCP-provided tools.
//
// Configuration is loaded from a YAML file (-config flag, PLAUDER_CONFIG,
// ./plauder.yaml, or ~/.config/plauder/config.yaml) with environment
// overrides:
//
//	PLAUDER_BACKEND_URL   - Chat Completions backend URL (required)
//	PLAUDER_MODEL         - Model name (required)
//	PLAUDER_API_KEY       - Backend API key (optional)
//	PLAUDER_SYSTEM_PROMPT - System prompt for new conversations
//	PLAUDER_MAX_TURNS     - Model round-trips per message (default: 10)
//	PLAUDER_MCP_CONFIG    - Path to MCP provider config JSON
//	PLAUDER_MCP_SERVERS   - Inline MCP providers as JSON
//	PLAUDER_METRICS_ADDR  - Address for the Prometheus endpoint
//	PLAUDER_DEBUG         - Debug categories: chat,provider,tools,mcp,config or "all"
//
// See pkg/config for the full set.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/plauder/pkg/chat"
	"github.com/rhuss/plauder/pkg/config"
	"github.com/rhuss/plauder/pkg/debug"
	"github.com/rhuss/plauder/pkg/engine"
	"github.com/rhuss/plauder/pkg/mcp"
	"github.com/rhuss/plauder/pkg/provider/openaicompat"
	"github.com/rhuss/plauder/pkg/tools"
	"github.com/rhuss/plauder/pkg/tools/builtins"
)

func main() {
	if err := run(); err != nil {
		slog.Error("plauder failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Log.Debug, cfg.Log.Level, cfg.Log.Format)

	// Create provider.
	client := openaicompat.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	defer client.Close()

	// Register built-in tools.
	registry := tools.NewRegistry()
	if err := builtins.RegisterAll(registry); err != nil {
		return fmt.Errorf("registering built-in tools: %w", err)
	}

	// Create engine.
	eng, err := engine.New(client, registry, engine.Config{
		Model:        cfg.Backend.Model,
		SystemPrompt: cfg.Chat.SystemPrompt,
		MaxTurns:     cfg.Chat.MaxTurns,
		Temperature:  cfg.Chat.Temperature,
		TopP:         cfg.Chat.TopP,
		MaxTokens:    cfg.Chat.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One reader serves both the chat prompt and elicitation prompts;
	// only one of them reads at a time.
	term := newTerminal(os.Stdin, os.Stdout)

	// Connect MCP providers. The elicitation handler must be in place
	// first so providers can ask for input during discovery.
	eng.SetElicitationHandler(term.promptElicitation)
	mcpCfg, err := assembleMCPConfig(cfg)
	if err != nil {
		return err
	}
	eng.InitializeProviders(ctx, mcpCfg)
	defer eng.Shutdown()

	// Optional metrics endpoint.
	if addr := cfg.Observability.MetricsAddr; addr != "" {
		go serveMetrics(addr)
	}

	slog.Info("plauder starting", "backend", cfg.Backend.URL, "model", cfg.Backend.Model, "tools", len(eng.Tools()))

	// Run the chat loop in the background so a signal can interrupt a
	// blocked stdin read.
	errCh := make(chan error, 1)
	go func() {
		errCh <- term.repl(ctx, eng)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stdout)
		slog.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// assembleMCPConfig merges provider definitions from the dedicated MCP
// config file with the ones embedded in the main configuration. Embedded
// definitions win on name collision.
func assembleMCPConfig(cfg *config.Config) (mcp.Config, error) {
	mcpCfg, err := mcp.LoadConfig(cfg.MCP.ConfigFile)
	if err != nil {
		return mcp.Config{}, err
	}
	if len(cfg.MCP.Servers) > 0 && mcpCfg.Servers == nil {
		mcpCfg.Servers = make(map[string]mcp.ServerConfig, len(cfg.MCP.Servers))
	}
	for name, sc := range cfg.MCP.Servers {
		mcpCfg.Servers[name] = mcp.ServerConfig{
			Transport: sc.Transport,
			Command:   sc.Command,
			Args:      sc.Args,
		}
	}
	return mcpCfg, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics endpoint listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Warn("metrics endpoint failed", "error", err)
	}
}

// terminal owns interactive stdin/stdout for the chat loop and for
// elicitation prompts raised by MCP providers mid-turn.
type terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	return &terminal{in: bufio.NewReader(in), out: out}
}

// readLine prints a prompt and returns the next input line, trimmed.
func (t *terminal) readLine(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

const helpText = `Commands:
  /help       show this help
  /history    print the conversation so far
  /reset      clear the conversation, keeping the system prompt
  /tools      list available tools
  /providers  show MCP provider status
  /models     list models the backend serves
  /quit       leave the chat
Anything else is sent to the model.
`

func (t *terminal) repl(ctx context.Context, eng *engine.Engine) error {
	fmt.Fprintln(t.out, "plauder interactive chat. /help for commands, /quit to leave.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := t.readLine("You: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(t.out)
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := t.command(ctx, eng, line); quit {
				return nil
			}
			continue
		}
		if err := t.converse(ctx, eng, line); err != nil {
			return err
		}
	}
}

// converse sends one user message and streams the answer, printing
// text deltas as they arrive and tool notices on their own lines.
func (t *terminal) converse(ctx context.Context, eng *engine.Engine, text string) error {
	events, err := eng.Send(ctx, text)
	if err != nil {
		if errors.Is(err, engine.ErrConversationBusy) {
			fmt.Fprintln(t.out, "still working on the previous message")
			return nil
		}
		return err
	}

	midLine := false
	for ev := range events {
		switch ev.Type {
		case engine.EventText:
			if !midLine {
				fmt.Fprint(t.out, "Assistant: ")
				midLine = true
			}
			fmt.Fprint(t.out, ev.Text)
		case engine.EventToolNotice:
			if midLine {
				fmt.Fprintln(t.out)
				midLine = false
			}
			fmt.Fprintln(t.out, ev.Text)
		case engine.EventError:
			if midLine {
				fmt.Fprintln(t.out)
				midLine = false
			}
			fmt.Fprintln(t.out, "error:", ev.Err)
		}
	}
	if midLine {
		fmt.Fprintln(t.out)
	}
	return nil
}

// command dispatches a slash command. Returns true when the user quits.
func (t *terminal) command(ctx context.Context, eng *engine.Engine, line string) bool {
	switch cmd := strings.Fields(line)[0]; cmd {
	case "/help":
		fmt.Fprint(t.out, helpText)
	case "/history":
		for _, msg := range eng.History() {
			printMessage(t.out, msg)
		}
	case "/reset":
		eng.ResetHistory()
		fmt.Fprintln(t.out, "conversation cleared")
	case "/tools":
		descriptors := eng.Tools()
		if len(descriptors) == 0 {
			fmt.Fprintln(t.out, "no tools registered")
		}
		for _, d := range descriptors {
			fmt.Fprintf(t.out, "%-28s [%s] %s\n", d.Name, d.Kind, d.Description)
		}
	case "/providers":
		statuses := eng.Providers()
		if len(statuses) == 0 {
			fmt.Fprintln(t.out, "no MCP providers configured")
		}
		for _, st := range statuses {
			if st.Connected {
				fmt.Fprintf(t.out, "%-20s connected, %d tools\n", st.Name, st.ToolCount)
			} else {
				fmt.Fprintf(t.out, "%-20s failed: %v\n", st.Name, st.Err)
			}
		}
	case "/models":
		models, err := eng.Models(ctx)
		if err != nil {
			fmt.Fprintln(t.out, "error:", err)
			break
		}
		for _, m := range models {
			fmt.Fprintln(t.out, m.ID)
		}
	case "/quit", "/exit":
		return true
	default:
		fmt.Fprintf(t.out, "unknown command %s, try /help\n", cmd)
	}
	return false
}

func printMessage(out io.Writer, msg chat.Message) {
	switch msg.Role {
	case chat.RoleSystem:
		fmt.Fprintf(out, "[system] %s\n", msg.Content)
	case chat.RoleUser:
		fmt.Fprintf(out, "You: %s\n", msg.Content)
	case chat.RoleAssistant:
		if len(msg.ToolCalls) > 0 {
			names := make([]string, len(msg.ToolCalls))
			for i, call := range msg.ToolCalls {
				names[i] = call.Function.Name
			}
			fmt.Fprintf(out, "[assistant called: %s]\n", strings.Join(names, ", "))
		}
		if msg.Content != "" {
			fmt.Fprintf(out, "Assistant: %s\n", msg.Content)
		}
	case chat.RoleTool:
		fmt.Fprintf(out, "[tool %s] %s\n", msg.Name, msg.Content)
	}
}

// promptElicitation answers an MCP provider's request for user input.
// The user confirms first, then fills in one prompt per requested field.
func (t *terminal) promptElicitation(ctx context.Context, req *mcp.ElicitationRequest) (*mcp.ElicitationResponse, error) {
	fmt.Fprintf(t.out, "\n[%s] requests input: %s\n", req.Provider, req.Message)

	confirm, err := t.readLine("Answer the request? [y/N] ")
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(confirm, "y") && !strings.EqualFold(confirm, "yes") {
		return &mcp.ElicitationResponse{Action: mcp.ElicitationDecline}, nil
	}

	content := make(map[string]any)
	for _, field := range elicitationFields(req.Schema) {
		label := field.name
		if field.title != "" {
			label = field.title
		}
		prompt := label + ": "
		if field.required {
			prompt = label + " (required): "
		}
		value, err := t.readLine(prompt)
		if err != nil {
			return nil, err
		}
		for value == "" && field.required {
			fmt.Fprintln(t.out, "a value is required")
			if value, err = t.readLine(prompt); err != nil {
				return nil, err
			}
		}
		if value == "" {
			continue
		}
		content[field.name] = convertElicited(value, field.typ)
	}
	return &mcp.ElicitationResponse{Action: mcp.ElicitationAccept, Content: content}, nil
}

type elicitField struct {
	name     string
	title    string
	typ      string
	required bool
}

// elicitationFields flattens the requested object schema into a stable
// prompt order.
func elicitationFields(schema *jsonschema.Schema) []elicitField {
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]elicitField, 0, len(names))
	for _, name := range names {
		f := elicitField{name: name, required: required[name]}
		if prop := schema.Properties[name]; prop != nil {
			f.title = prop.Title
			f.typ = prop.Type
		}
		fields = append(fields, f)
	}
	return fields
}

// convertElicited converts entered text to the schema-declared primitive
// type. Unparseable values pass through as strings and fail provider-side
// validation instead of silently losing the answer.
func convertElicited(value, typ string) any {
	switch typ {
	case "number":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	case "integer":
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	case "boolean":
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return value
}
