package openaicompat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/rhuss/plauder/pkg/provider"
)

// collectEvents runs ParseSSEStream and returns all events.
func collectEvents(t *testing.T, sseData string) []provider.Event {
	t.Helper()
	ch := make(chan provider.Event, 64)
	ctx := context.Background()

	go func() {
		defer close(ch)
		ParseSSEStream(ctx, "openai-compat", strings.NewReader(sseData), ch)
	}()

	var events []provider.Event
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func assertTextDelta(t *testing.T, ev provider.Event, want string) {
	t.Helper()
	if ev.Type != provider.EventTextDelta {
		t.Errorf("event type = %d, want EventTextDelta", ev.Type)
	}
	if ev.Delta != want {
		t.Errorf("delta = %q, want %q", ev.Delta, want)
	}
}

func TestParseSSEStream_TextDeltas(t *testing.T) {
	sseData := `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":"Hello"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	// Role-only chunk is skipped: "Hello", " world", done.
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %+v", len(events), events)
	}
	assertTextDelta(t, events[0], "Hello")
	assertTextDelta(t, events[1], " world")
	if events[2].Type != provider.EventDone {
		t.Errorf("last event type = %d, want EventDone", events[2].Type)
	}
}

func TestParseSSEStream_ToolCallFragments(t *testing.T) {
	// A calculator call split across three fragments: id+name first,
	// then two argument pieces.
	sseData := `data: {"id":"chatcmpl-2","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_abc","type":"function","function":{"name":"calculator","arguments":""}}]},"finish_reason":null}]}

data: {"id":"chatcmpl-2","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"operation\":\"add\","}}]},"finish_reason":null}]}

data: {"id":"chatcmpl-2","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"a\":25,\"b\":17}"}}]},"finish_reason":null}]}

data: {"id":"chatcmpl-2","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(events), events)
	}

	// First fragment introduces the call.
	first := events[0]
	if first.Type != provider.EventToolCallDelta {
		t.Fatalf("event 0 type = %d, want EventToolCallDelta", first.Type)
	}
	if first.ToolCallIndex != 0 {
		t.Errorf("event 0 index = %d, want 0", first.ToolCallIndex)
	}
	if first.ToolCallID != "call_abc" {
		t.Errorf("event 0 id = %q, want %q", first.ToolCallID, "call_abc")
	}
	if first.FunctionName != "calculator" {
		t.Errorf("event 0 name = %q, want %q", first.FunctionName, "calculator")
	}

	// Continuation fragments carry only argument pieces.
	var args strings.Builder
	for _, ev := range events[:3] {
		if ev.Type != provider.EventToolCallDelta {
			t.Fatalf("expected tool call delta, got type %d", ev.Type)
		}
		args.WriteString(ev.Delta)
	}
	want := `{"operation":"add","a":25,"b":17}`
	if args.String() != want {
		t.Errorf("concatenated arguments = %q, want %q", args.String(), want)
	}
	if events[1].ToolCallID != "" || events[1].FunctionName != "" {
		t.Errorf("continuation fragment should carry neither id nor name: %+v", events[1])
	}

	if events[3].Type != provider.EventDone {
		t.Errorf("last event type = %d, want EventDone", events[3].Type)
	}
}

func TestParseSSEStream_ParallelToolCalls(t *testing.T) {
	// Two calls interleaved at indices 0 and 1.
	sseData := `data: {"id":"c","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"id":"call_a","type":"function","function":{"name":"get_weather","arguments":""}}]},"finish_reason":null}]}

data: {"id":"c","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":1,"id":"call_b","type":"function","function":{"name":"current_time","arguments":""}}]},"finish_reason":null}]}

data: {"id":"c","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{}"}},{"index":1,"function":{"arguments":"{}"}}]},"finish_reason":null}]}

data: {"id":"c","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	var indices []int
	for _, ev := range events {
		if ev.Type == provider.EventToolCallDelta {
			indices = append(indices, ev.ToolCallIndex)
		}
	}
	want := []int{0, 1, 0, 1}
	if len(indices) != len(want) {
		t.Fatalf("expected %d fragments, got %d", len(want), len(indices))
	}
	for i, w := range want {
		if indices[i] != w {
			t.Errorf("fragment %d index = %d, want %d", i, indices[i], w)
		}
	}
}

func TestParseSSEStream_MalformedChunkSkipped(t *testing.T) {
	sseData := `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}

data: {this is not valid json}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":"!"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: [DONE]
`
	events := collectEvents(t, sseData)

	var textDeltas []string
	for _, ev := range events {
		if ev.Type == provider.EventTextDelta {
			textDeltas = append(textDeltas, ev.Delta)
		}
	}
	if len(textDeltas) != 2 {
		t.Errorf("expected 2 text deltas (malformed skipped), got %d: %v", len(textDeltas), textDeltas)
	}
	for _, ev := range events {
		if ev.Type == provider.EventError {
			t.Errorf("malformed chunk must be skipped, not reported: %+v", ev)
		}
	}
}

func TestParseSSEStream_UsageInFinalChunk(t *testing.T) {
	sseData := `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}

data: [DONE]
`
	events := collectEvents(t, sseData)

	var usageEvent *provider.Event
	for i := range events {
		if events[i].Type == provider.EventDone && events[i].Usage != nil {
			usageEvent = &events[i]
		}
	}
	if usageEvent == nil {
		t.Fatal("expected a done event carrying usage")
	}
	if usageEvent.Usage.PromptTokens != 10 || usageEvent.Usage.CompletionTokens != 5 || usageEvent.Usage.TotalTokens != 15 {
		t.Errorf("unexpected usage: %+v", usageEvent.Usage)
	}
}

func TestParseSSEStream_UsageOnlyChunk(t *testing.T) {
	// With stream_options.include_usage some backends send usage in a
	// trailing chunk with an empty choices array.
	sseData := `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"gpt-4","choices":[],"usage":{"prompt_tokens":7,"completion_tokens":3,"total_tokens":10}}

data: [DONE]
`
	events := collectEvents(t, sseData)

	var usage *provider.Event
	for i := range events {
		if events[i].Type == provider.EventDone && events[i].Usage != nil {
			usage = &events[i]
		}
	}
	if usage == nil {
		t.Fatal("expected usage from the trailing usage-only chunk")
	}
	if usage.Usage.TotalTokens != 10 {
		t.Errorf("total tokens = %d, want 10", usage.Usage.TotalTokens)
	}
}

func TestParseSSEStream_ReadError(t *testing.T) {
	// A reader that fails mid-stream produces a single error event.
	r := io.MultiReader(
		strings.NewReader("data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hi\"},\"finish_reason\":null}]}\n\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)

	ch := make(chan provider.Event, 16)
	go func() {
		defer close(ch)
		ParseSSEStream(context.Background(), "openai-compat", r, ch)
	}()

	var events []provider.Event
	for ev := range ch {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("expected at least one event")
	}
	last := events[len(events)-1]
	if last.Type != provider.EventError {
		t.Fatalf("last event type = %d, want EventError", last.Type)
	}
	var terr *provider.TransportError
	if !errors.As(last.Err, &terr) {
		t.Fatalf("expected TransportError, got %T", last.Err)
	}
}

func TestParseSSEStream_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sseData := `data: {"id":"c","object":"chat.completion.chunk","model":"m","choices":[{"index":0,"delta":{"content":"Hi"},"finish_reason":null}]}

data: [DONE]
`
	ch := make(chan provider.Event, 16)
	go func() {
		defer close(ch)
		ParseSSEStream(ctx, "openai-compat", strings.NewReader(sseData), ch)
	}()

	var events []provider.Event
	for ev := range ch {
		events = append(events, ev)
	}
	if len(events) != 0 {
		t.Errorf("expected no events after cancellation, got %d", len(events))
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a longer string", 8); got != "a longer..." {
		t.Errorf("truncate = %q, want %q", got, "a longer...")
	}
}
