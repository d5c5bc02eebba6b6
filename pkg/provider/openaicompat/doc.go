// Package openaicompat implements the provider interface for backends
// speaking the OpenAI Chat Completions protocol (OpenAI, vLLM, Ollama,
// LiteLLM, llama.cpp server, and most local inference gateways).
//
// Streaming responses are parsed from SSE and forwarded as raw fragment
// events; tool-call assembly is left to the consumer.
package openaicompat
