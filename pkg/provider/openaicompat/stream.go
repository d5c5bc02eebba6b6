package openaicompat

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/rhuss/plauder/pkg/provider"
)

// ParseSSEStream reads Chat Completions SSE chunks from the given
// reader, translates each chunk to provider.Event values, and sends
// them on ch. The channel is NOT closed by this function; the caller is
// responsible for closing it.
//
// SSE format expected:
//
//	data: {"id":"...","choices":[...]}\n
//	\n
//	data: [DONE]\n
//	\n
//
// Malformed chunks are logged and skipped. Context cancellation stops
// reading immediately.
//
// Tool calls are forwarded as raw fragments carrying the stream's
// positional index; no assembly happens here.
func ParseSSEStream(ctx context.Context, providerName string, body io.Reader, ch chan<- provider.Event) {
	scanner := bufio.NewScanner(body)

	for scanner.Scan() {
		// Check for context cancellation between lines.
		if ctx.Err() != nil {
			return
		}

		line := scanner.Text()

		// SSE lines that don't start with "data: " are ignored
		// (e.g., empty lines, comments starting with ":").
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		payload := strings.TrimPrefix(line, "data: ")

		// Handle the [DONE] sentinel.
		if payload == "[DONE]" {
			return
		}

		var chunk ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			slog.Warn("skipping malformed SSE chunk",
				"error", err.Error(),
				"data", truncate(payload, 200),
			)
			continue
		}

		translateChunk(&chunk, ch)
	}

	// Scanner error (e.g., connection dropped).
	if err := scanner.Err(); err != nil {
		// Context cancellation is not an error from our perspective.
		if ctx.Err() != nil {
			return
		}
		ch <- provider.Event{
			Type: provider.EventError,
			Err: &provider.TransportError{
				Provider: providerName,
				Op:       "stream",
				Message:  "SSE stream read error",
				Err:      err,
			},
		}
	}
}

// translateChunk converts a single ChatCompletionChunk into zero or
// more provider.Event values sent on the channel.
func translateChunk(chunk *ChatCompletionChunk, ch chan<- provider.Event) {
	// No choices means nothing to translate except a possible
	// usage-only final chunk (sent with stream_options.include_usage).
	if len(chunk.Choices) == 0 {
		if chunk.Usage != nil {
			usage := *chunk.Usage
			ch <- provider.Event{
				Type:  provider.EventDone,
				Usage: &usage,
			}
		}
		return
	}

	choice := chunk.Choices[0]
	delta := choice.Delta

	// finish_reason signals stream completion for this choice.
	if choice.FinishReason != nil {
		done := provider.Event{Type: provider.EventDone}
		if chunk.Usage != nil {
			usage := *chunk.Usage
			done.Usage = &usage
		}
		ch <- done
		return
	}

	// Tool call fragments. Each is forwarded as-is: the id appears on
	// the fragment introducing the call, name and arguments may arrive
	// in arbitrary pieces.
	if len(delta.ToolCalls) > 0 {
		for _, tc := range delta.ToolCalls {
			ch <- provider.Event{
				Type:          provider.EventToolCallDelta,
				ToolCallIndex: tc.Index,
				ToolCallID:    tc.ID,
				FunctionName:  tc.Function.Name,
				Delta:         tc.Function.Arguments,
			}
		}
		return
	}

	// Text content delta.
	if delta.Content != nil && *delta.Content != "" {
		ch <- provider.Event{
			Type:  provider.EventTextDelta,
			Delta: *delta.Content,
		}
		return
	}

	// Role-only chunks (first chunk of a message) and empty deltas
	// carry no information for the consumer. Silently skip.
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
