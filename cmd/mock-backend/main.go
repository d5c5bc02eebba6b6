// Command mock-backend runs a deterministic Chat Completions server
// for demos and end-to-end testing. Responses are derived from the
// request content: when tools are advertised and the user message
// contains a matching request (an arithmetic expression, a weather
// question, a time question) it produces the corresponding tool call,
// streamed as three argument fragments; once a tool message is present
// in the conversation it produces a final text answer from the tool
// result.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rhuss/plauder/pkg/chat"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []chatMessage    `json:"messages"`
	Tools    []toolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type toolDefinition struct {
	Type     string `json:"type"`
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role      string     `json:"role"`
	Content   *string    `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Function funcCall `json:"function"`
}

type funcCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// scenario is the deterministic reaction to one request: either a tool
// call or a plain text answer.
type scenario struct {
	toolName string
	toolArgs string
	text     string
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	sc := classify(&req)

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	if req.Stream {
		streamScenario(w, model, sc)
		return
	}

	resp := scenarioResponse(model, sc)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// classify picks the scenario for a request. A conversation that
// already contains a tool result always gets a final text answer, so
// the model-tool cycle terminates after one round.
func classify(req *chatRequest) scenario {
	if result, ok := lastToolResult(req); ok {
		return scenario{text: followUpAnswer(result)}
	}

	userMsg := lastUserMessage(req)

	if hasTool(req, "calculator") {
		if args, ok := parseArithmetic(userMsg); ok {
			return scenario{toolName: "calculator", toolArgs: args}
		}
	}
	if hasTool(req, "get_weather") {
		if location, ok := parseWeatherQuestion(userMsg); ok {
			args, _ := json.Marshal(map[string]string{"location": location})
			return scenario{toolName: "get_weather", toolArgs: string(args)}
		}
	}
	if hasTool(req, "current_time") && strings.Contains(strings.ToLower(userMsg), "time") {
		return scenario{toolName: "current_time", toolArgs: "{}"}
	}

	if strings.Contains(strings.ToLower(userMsg), "count from 1 to 5") {
		return scenario{text: "1, 2, 3, 4, 5"}
	}

	return scenario{text: "Hello! Ask me to calculate something, or about weather or time."}
}

// followUpAnswer turns a tool result into the final assistant text.
// Calculator results get a spelled-out answer; everything else is
// repeated verbatim.
func followUpAnswer(result string) string {
	var calc struct {
		Calculation string   `json:"calculation"`
		Result      *float64 `json:"result"`
	}
	if err := json.Unmarshal([]byte(result), &calc); err == nil && calc.Result != nil {
		return fmt.Sprintf("The answer is %s.", strconv.FormatFloat(*calc.Result, 'f', -1, 64))
	}
	return "The tool returned: " + result
}

var arithmeticPattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*([-+*/x])\s*(-?\d+(?:\.\d+)?)`)

// parseArithmetic extracts the first "A op B" expression from the
// message and renders calculator arguments for it.
func parseArithmetic(msg string) (string, bool) {
	m := arithmeticPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	a, errA := strconv.ParseFloat(m[1], 64)
	b, errB := strconv.ParseFloat(m[3], 64)
	if errA != nil || errB != nil {
		return "", false
	}

	var op string
	switch m[2] {
	case "+":
		op = "add"
	case "-":
		op = "subtract"
	case "*", "x":
		op = "multiply"
	case "/":
		op = "divide"
	}

	args, _ := json.Marshal(struct {
		Operation string  `json:"operation"`
		A         float64 `json:"a"`
		B         float64 `json:"b"`
	}{op, a, b})
	return string(args), true
}

var weatherPattern = regexp.MustCompile(`(?i)weather\s+(?:in|for|at)\s+([A-Za-z][A-Za-z .'-]*)`)

func parseWeatherQuestion(msg string) (string, bool) {
	m := weatherPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	return strings.TrimRight(strings.TrimSpace(m[1]), ".!?"), true
}

func scenarioResponse(model string, sc scenario) chatResponse {
	if sc.toolName != "" {
		return chatResponse{
			ID:     "chatcmpl-mock-tool",
			Object: "chat.completion",
			Model:  model,
			Choices: []chatChoice{
				{
					Index: 0,
					Message: chatMsg{
						Role:    "assistant",
						Content: nil,
						ToolCalls: []toolCall{
							{
								ID:       chat.NewCallID(),
								Type:     "function",
								Function: funcCall{Name: sc.toolName, Arguments: sc.toolArgs},
							},
						},
					},
					FinishReason: "tool_calls",
				},
			},
			Usage: chatUsage{PromptTokens: 20, CompletionTokens: 15, TotalTokens: 35},
		}
	}

	text := sc.text
	return chatResponse{
		ID:     "chatcmpl-mock-text",
		Object: "chat.completion",
		Model:  model,
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMsg{Role: "assistant", Content: &text},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// --- Streaming ---

func streamScenario(w http.ResponseWriter, model string, sc scenario) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if sc.toolName != "" {
		streamToolCall(w, flusher, model, sc.toolName, sc.toolArgs)
		return
	}

	// Role chunk first, then word-sized content chunks.
	writeChunk(w, model, map[string]any{"role": "assistant"}, nil, nil)
	flusher.Flush()

	tokens := tokenize(sc.text)
	for _, token := range tokens {
		writeChunk(w, model, map[string]any{"content": token}, nil, nil)
		flusher.Flush()
	}

	finish := "stop"
	writeChunk(w, model, map[string]any{}, &finish, &chatUsage{
		PromptTokens:     10,
		CompletionTokens: len(tokens),
		TotalTokens:      10 + len(tokens),
	})
	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// streamToolCall emits the call in three fragments: the introducing
// fragment carries id, type and function name; the argument string is
// split over the remaining two.
func streamToolCall(w http.ResponseWriter, flusher http.Flusher, model, name, args string) {
	callID := chat.NewCallID()
	half := len(args) / 2

	fragments := []map[string]any{
		{
			"index": 0,
			"id":    callID,
			"type":  "function",
			"function": map[string]any{
				"name":      name,
				"arguments": "",
			},
		},
		{
			"index":    0,
			"function": map[string]any{"arguments": args[:half]},
		},
		{
			"index":    0,
			"function": map[string]any{"arguments": args[half:]},
		},
	}

	writeChunk(w, model, map[string]any{"role": "assistant"}, nil, nil)
	flusher.Flush()
	for _, frag := range fragments {
		writeChunk(w, model, map[string]any{"tool_calls": []any{frag}}, nil, nil)
		flusher.Flush()
	}

	finish := "tool_calls"
	writeChunk(w, model, map[string]any{}, &finish, &chatUsage{
		PromptTokens:     20,
		CompletionTokens: 15,
		TotalTokens:      35,
	})
	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func writeChunk(w http.ResponseWriter, model string, delta map[string]any, finishReason *string, usage *chatUsage) {
	chunk := map[string]any{
		"id":     "chatcmpl-mock-stream",
		"object": "chat.completion.chunk",
		"model":  model,
		"choices": []any{
			map[string]any{
				"index":         0,
				"delta":         delta,
				"finish_reason": finishReason,
			},
		},
	}
	if usage != nil {
		chunk["usage"] = usage
	}

	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// tokenize splits text into word-ish streaming chunks, keeping the
// whitespace attached so concatenation reproduces the input.
func tokenize(text string) []string {
	var tokens []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			tokens = append(tokens, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		tokens = append(tokens, text[start:])
	}
	return tokens
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "plauder-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return messageText(req.Messages[i])
		}
	}
	return ""
}

// lastToolResult returns the content of the newest tool message, if
// the conversation contains one.
func lastToolResult(req *chatRequest) (string, bool) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "tool" {
			return messageText(req.Messages[i]), true
		}
	}
	return "", false
}

func messageText(msg chatMessage) string {
	switch v := msg.Content.(type) {
	case string:
		return v
	case []any:
		// Content part array: concatenate the text parts.
		var b strings.Builder
		for _, part := range v {
			if m, ok := part.(map[string]any); ok {
				if t, ok := m["type"].(string); ok && t == "text" {
					if text, ok := m["text"].(string); ok {
						b.WriteString(text)
					}
				}
			}
		}
		return b.String()
	}
	return ""
}

func hasTool(req *chatRequest, name string) bool {
	for _, t := range req.Tools {
		if t.Function.Name == name {
			return true
		}
	}
	return false
}
