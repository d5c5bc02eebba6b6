// Package provider defines the model backend abstraction: a streaming
// Provider interface, the request and event types exchanged with it,
// and the transport error reported when a backend cannot be reached.
//
// Adapters live in subpackages; openaicompat speaks the OpenAI Chat
// Completions protocol.
package provider
