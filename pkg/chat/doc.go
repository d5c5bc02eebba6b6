// Package chat defines the conversation data model shared across the
// module: messages in Chat Completions wire format, tool call records,
// tool definitions advertised to the model, and the in-memory
// conversation history.
package chat
