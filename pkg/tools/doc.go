// Package tools provides the tool registry for the plauder conversation
// loop. A Registry maps tool names to Descriptors, each pairing the JSON
// schema advertised to the model with the Handler that executes the call.
//
// Tools come from two sources: built-in Go functions (pkg/tools/builtins)
// and tools discovered from MCP servers (pkg/mcp), namespaced by their
// provider. The registry treats both uniformly; Kind exists only for
// diagnostics.
//
// Execute validates arguments, dispatches to the handler, recovers
// panics, and classifies failures into the typed errors in errors.go.
package tools
