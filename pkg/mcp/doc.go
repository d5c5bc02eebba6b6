// Package mcp manages connections to out-of-process tool providers
// speaking the Model Context Protocol over stdio. The Manager owns zero
// or more provider subprocesses, discovers their tools, exposes them in
// the registry's descriptor shape namespaced providerName_toolName, and
// relays elicitation requests (a provider asking the user for input
// mid-call) to a caller-installed handler.
//
// Provider failures are isolated: a provider that cannot be spawned or
// fails its handshake is logged and excluded, the others keep working.
// A failed remote tool call degrades to a structured failure payload
// the model can read, never a Go error.
//
// Transport and session mechanics are delegated to
// github.com/modelcontextprotocol/go-sdk.
package mcp
