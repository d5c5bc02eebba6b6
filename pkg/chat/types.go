package chat

import "encoding/json"

// Message roles in the Chat Completions conversation format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a single entry in the conversation history. A "tool" message
// always carries ToolCallID and Name; an "assistant" message carries
// ToolCalls only when the model invoked at least one tool in that turn.
// Messages are never mutated once appended to a History.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a model-issued request to invoke a tool by name. Calls are
// assembled incrementally from stream fragments and are complete only
// after the stream ends.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition advertises a callable tool to the model.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a function-type tool: its name, what it does,
// and the JSON schema of its arguments.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// Usage reports token consumption for a single model call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// SystemMessage builds a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user-role message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds an assistant-role message. ToolCalls are
// attached only when calls is non-empty.
func AssistantMessage(text string, calls []ToolCall) Message {
	msg := Message{Role: RoleAssistant, Content: text}
	if len(calls) > 0 {
		msg.ToolCalls = calls
	}
	return msg
}

// ToolMessage builds a tool-role message carrying the result of the
// tool call identified by callID.
func ToolMessage(callID, name, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, Name: name}
}
