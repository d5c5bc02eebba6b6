package openaicompat

import "github.com/rhuss/plauder/pkg/chat"

// Chat Completions wire types. The conversation model in pkg/chat is
// already Chat-Completions-shaped, so requests embed those types
// directly; only the streaming chunk shapes are protocol-specific.

// ChatCompletionRequest is the request body for /v1/chat/completions.
type ChatCompletionRequest struct {
	Model         string                `json:"model"`
	Messages      []chat.Message        `json:"messages"`
	Tools         []chat.ToolDefinition `json:"tools,omitempty"`
	Temperature   *float64              `json:"temperature,omitempty"`
	TopP          *float64              `json:"top_p,omitempty"`
	MaxTokens     *int                  `json:"max_tokens,omitempty"`
	Stream        bool                  `json:"stream"`
	StreamOptions *ChatStreamOptions    `json:"stream_options,omitempty"`
}

// ChatStreamOptions controls streaming behavior.
type ChatStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// ChatCompletionChunk is a single SSE chunk in a streaming response.
type ChatCompletionChunk struct {
	ID      string            `json:"id"`
	Object  string            `json:"object"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
	Usage   *chat.Usage       `json:"usage,omitempty"`
}

// ChatChunkChoice represents a streaming choice delta.
type ChatChunkChoice struct {
	Index        int            `json:"index"`
	Delta        ChatChunkDelta `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

// ChatChunkDelta holds incremental content in a streaming chunk.
type ChatChunkDelta struct {
	Role      string              `json:"role,omitempty"`
	Content   *string             `json:"content,omitempty"`
	ToolCalls []ChatChunkToolCall `json:"tool_calls,omitempty"`
}

// ChatChunkToolCall is an incremental tool call fragment. Index
// addresses the call being assembled; ID appears only on the fragment
// that introduces the call; Name and Arguments may each arrive whole or
// split across any number of fragments.
type ChatChunkToolCall struct {
	Index    int                   `json:"index"`
	ID       string                `json:"id,omitempty"`
	Type     string                `json:"type,omitempty"`
	Function ChatChunkFunctionCall `json:"function"`
}

// ChatChunkFunctionCall holds incremental function call data.
type ChatChunkFunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ChatErrorResponse is the error format returned by Chat Completions
// backends.
type ChatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// ChatModelsResponse is the response from /v1/models.
type ChatModelsResponse struct {
	Object string      `json:"object"`
	Data   []ChatModel `json:"data"`
}

// ChatModel represents a model in the /v1/models response.
type ChatModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}
