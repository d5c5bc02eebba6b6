package mcp

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Action values a handler can return for an elicitation request.
const (
	ElicitationAccept  = "accept"
	ElicitationDecline = "decline"
	ElicitationCancel  = "cancel"
)

// ElicitationRequest is a provider's request for structured user input,
// relayed while one of its tool calls is in flight.
type ElicitationRequest struct {
	// Provider is the name of the provider asking.
	Provider string

	// Message is the human-readable prompt to present.
	Message string

	// Schema describes the requested fields in the MCP restricted form:
	// a flat object of primitive-typed properties. May be nil.
	Schema *jsonschema.Schema
}

// ElicitationResponse is the user's answer.
type ElicitationResponse struct {
	// Action is accept, decline, or cancel.
	Action string

	// Content holds the field values when Action is accept.
	Content map[string]any
}

// ElicitationHandler answers elicitation requests. It is invoked exactly
// once per request and may block; the provider's tool call waits for it.
type ElicitationHandler func(ctx context.Context, req *ElicitationRequest) (*ElicitationResponse, error)

// requestedSchema normalizes the schema attached to an incoming
// elicitation through a JSON round trip. Anything that does not
// describe fields comes back as nil.
func requestedSchema(raw any) *jsonschema.Schema {
	if raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil || string(data) == "null" {
		return nil
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	return &s
}
