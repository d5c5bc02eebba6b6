package provider

import "github.com/rhuss/plauder/pkg/chat"

// Request is the backend-facing request: the full conversation so far
// plus the tool schemas currently advertised to the model.
type Request struct {
	Model       string
	Messages    []chat.Message
	Tools       []chat.ToolDefinition
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// EventType classifies a streaming event from the backend.
type EventType int

const (
	EventTextDelta     EventType = iota // incremental assistant text
	EventToolCallDelta                  // fragment of a tool call at some index
	EventDone                           // stream finished
	EventError                          // stream failed
)

// Event is a single streaming event from the backend. A tool call
// fragment carries the positional index assigned by the stream plus
// whichever parts of the call this fragment happens to contain;
// reconstruction into complete calls happens downstream.
type Event struct {
	// Type indicates what kind of event this is.
	Type EventType

	// Delta contains incremental text for EventTextDelta, or an
	// arguments fragment for EventToolCallDelta.
	Delta string

	// ToolCallIndex identifies which tool call a fragment belongs to.
	ToolCallIndex int

	// ToolCallID is set on the fragment that introduces the call.
	ToolCallID string

	// FunctionName is a fragment of the function name, possibly partial.
	FunctionName string

	// Usage is populated on the final event when the backend reports it.
	Usage *chat.Usage

	// Err is populated for EventError.
	Err error
}

// Model holds information about a model served by the provider.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
