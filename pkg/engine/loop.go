package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/rhuss/plauder/pkg/chat"
	"github.com/rhuss/plauder/pkg/debug"
	"github.com/rhuss/plauder/pkg/observability"
	"github.com/rhuss/plauder/pkg/provider"
)

// run executes the multi-turn cycle for one conversation turn. It
// streams a model response, emits text deltas as they arrive, executes
// any tool calls the model produced, feeds the results back into the
// history, and repeats until the model answers without tool calls or
// the turn bound is hit.
func (e *Engine) run(ctx context.Context, ch chan<- Event) {
	maxTurns := e.cfg.maxTurns()
	provName := e.provider.Name()

	for turn := 0; turn < maxTurns; turn++ {
		if ctx.Err() != nil {
			e.failTurn(ctx, ch, ctx.Err())
			return
		}

		req := &provider.Request{
			Model:       e.cfg.Model,
			Messages:    e.history.Snapshot(),
			Tools:       e.registry.Definitions(),
			Temperature: e.cfg.Temperature,
			TopP:        e.cfg.TopP,
			MaxTokens:   e.cfg.MaxTokens,
		}
		debug.Log("chat", "model request", "turn", turn, "messages", len(req.Messages), "tools", len(req.Tools))

		start := time.Now()
		events, err := e.provider.Stream(ctx, req)
		if err != nil {
			observability.ProviderRequestsTotal.WithLabelValues(provName, e.cfg.Model, "error").Inc()
			e.failTurn(ctx, ch, err)
			return
		}

		// Drain the stream completely even after an error or a lost
		// caller context so the producer goroutine can finish.
		var acc Accumulator
		var usage *chat.Usage
		var streamErr error
		for ev := range events {
			switch ev.Type {
			case provider.EventTextDelta:
				if ev.Delta == "" {
					continue
				}
				acc.AddText(ev.Delta)
				e.emit(ctx, ch, Event{Type: EventText, Text: ev.Delta})
			case provider.EventToolCallDelta:
				acc.AddToolCall(ev.ToolCallIndex, ev.ToolCallID, ev.FunctionName, ev.Delta)
			case provider.EventDone:
				if ev.Usage != nil {
					usage = ev.Usage
				}
			case provider.EventError:
				if streamErr == nil {
					streamErr = ev.Err
				}
			}
		}
		observability.ProviderLatency.WithLabelValues(provName, e.cfg.Model).Observe(time.Since(start).Seconds())

		if streamErr != nil {
			observability.ProviderRequestsTotal.WithLabelValues(provName, e.cfg.Model, "error").Inc()
			e.failTurn(ctx, ch, streamErr)
			return
		}
		observability.ProviderRequestsTotal.WithLabelValues(provName, e.cfg.Model, "success").Inc()

		if usage != nil {
			observability.ProviderTokensTotal.WithLabelValues(provName, e.cfg.Model, "input").Add(float64(usage.PromptTokens))
			observability.ProviderTokensTotal.WithLabelValues(provName, e.cfg.Model, "output").Add(float64(usage.CompletionTokens))
			debug.Log("chat", "token usage",
				"prompt", usage.PromptTokens,
				"completion", usage.CompletionTokens,
				"total", usage.TotalTokens)
		}

		calls, err := acc.ToolCalls()
		if err != nil {
			e.failTurn(ctx, ch, err)
			return
		}

		e.history.Append(chat.AssistantMessage(acc.Text(), calls))

		// No tool calls: the model gave its final answer.
		if len(calls) == 0 {
			observability.ConversationTurnsTotal.WithLabelValues("final").Inc()
			return
		}
		observability.ConversationTurnsTotal.WithLabelValues("tool_calls").Inc()

		e.executeToolCalls(ctx, ch, calls)
	}

	slog.Warn("conversation turn limit reached", "max_turns", maxTurns)
	observability.ConversationTurnsTotal.WithLabelValues("turn_limit").Inc()
}

// executeToolCalls runs the assembled calls strictly in order, feeding
// each result into the history as a tool message. A failing tool is
// absorbed as an error string in its tool message so the model can see
// and react to it; it never terminates the turn.
func (e *Engine) executeToolCalls(ctx context.Context, ch chan<- Event, calls []chat.ToolCall) {
	names := make([]string, len(calls))
	for i, call := range calls {
		names[i] = call.Function.Name
	}
	e.emit(ctx, ch, Event{Type: EventToolNotice, Text: "[tool] " + strings.Join(names, ", ")})

	for _, call := range calls {
		out, err := e.registry.Execute(ctx, call.Function.Name, call.Function.Arguments)
		if err != nil {
			slog.Warn("tool execution failed", "tool", call.Function.Name, "error", err)
			out = "Error: " + err.Error()
		}
		e.history.Append(chat.ToolMessage(call.ID, call.Function.Name, out))
	}

	e.emit(ctx, ch, Event{Type: EventToolNotice, Text: "[tool] done"})
}

// failTurn records a terminal failure: the error becomes an assistant
// message so it stays visible in the history, and is yielded once as
// an error event.
func (e *Engine) failTurn(ctx context.Context, ch chan<- Event, err error) {
	slog.Error("conversation turn failed", "error", err)
	observability.ConversationTurnsTotal.WithLabelValues("error").Inc()
	e.history.Append(chat.AssistantMessage("Error: "+err.Error(), nil))
	e.emit(ctx, ch, Event{Type: EventError, Err: err})
}

// emit delivers an event unless the caller's context is gone.
func (e *Engine) emit(ctx context.Context, ch chan<- Event, ev Event) {
	select {
	case ch <- ev:
	case <-ctx.Done():
	}
}
