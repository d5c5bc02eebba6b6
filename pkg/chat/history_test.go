package chat

import (
	"sync"
	"testing"
)

func TestNewHistoryWithSystemPrompt(t *testing.T) {
	h := NewHistory("You are a helpful assistant.")

	msgs := h.Snapshot()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Errorf("expected role %q, got %q", RoleSystem, msgs[0].Role)
	}
	if msgs[0].Content != "You are a helpful assistant." {
		t.Errorf("unexpected system prompt content: %q", msgs[0].Content)
	}
}

func TestNewHistoryEmptyPrompt(t *testing.T) {
	h := NewHistory("")
	if h.Len() != 0 {
		t.Errorf("expected empty history, got %d messages", h.Len())
	}
}

func TestHistoryAppendOrder(t *testing.T) {
	h := NewHistory("system prompt")
	h.Append(UserMessage("first"))
	h.Append(AssistantMessage("second", nil))
	h.Append(UserMessage("third"))

	msgs := h.Snapshot()
	want := []string{"system prompt", "first", "second", "third"}
	if len(msgs) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(msgs))
	}
	for i, w := range want {
		if msgs[i].Content != w {
			t.Errorf("message %d: expected content %q, got %q", i, w, msgs[i].Content)
		}
	}
}

func TestHistorySnapshotIsCopy(t *testing.T) {
	h := NewHistory("")
	h.Append(UserMessage("hello"))

	snap := h.Snapshot()
	snap[0] = UserMessage("mutated")

	if got := h.Snapshot()[0].Content; got != "hello" {
		t.Errorf("snapshot mutation leaked into history: %q", got)
	}
}

func TestHistoryResetKeepsSystemMessage(t *testing.T) {
	h := NewHistory("system prompt")
	for i := 0; i < 5; i++ {
		h.Append(UserMessage("question"))
		h.Append(AssistantMessage("answer", nil))
	}
	if h.Len() != 11 {
		t.Fatalf("expected 11 messages before reset, got %d", h.Len())
	}

	h.Reset()

	msgs := h.Snapshot()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message after reset, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[0].Content != "system prompt" {
		t.Errorf("reset did not preserve the system message: %+v", msgs[0])
	}
}

func TestHistoryResetWithoutSystemMessage(t *testing.T) {
	h := NewHistory("")
	h.Append(UserMessage("hello"))
	h.Append(AssistantMessage("hi", nil))

	h.Reset()

	if h.Len() != 0 {
		t.Errorf("expected empty history after reset, got %d messages", h.Len())
	}
}

func TestHistoryResetIdempotent(t *testing.T) {
	h := NewHistory("system prompt")
	h.Append(UserMessage("hello"))

	h.Reset()
	h.Reset()
	h.Reset()

	if h.Len() != 1 {
		t.Errorf("expected 1 message after repeated resets, got %d", h.Len())
	}
}

func TestHistoryAppendSystemReplacesLeading(t *testing.T) {
	h := NewHistory("original prompt")
	h.Append(UserMessage("hello"))
	h.Append(SystemMessage("replacement prompt"))

	msgs := h.Snapshot()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[0].Content != "replacement prompt" {
		t.Errorf("expected leading system message to be replaced, got %+v", msgs[0])
	}
	if msgs[1].Content != "hello" {
		t.Errorf("user message displaced: %+v", msgs[1])
	}
}

func TestHistoryAppendSystemInsertsFirst(t *testing.T) {
	h := NewHistory("")
	h.Append(UserMessage("hello"))
	h.Append(SystemMessage("late prompt"))

	msgs := h.Snapshot()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Errorf("expected system message first, got role %q", msgs[0].Role)
	}
	if msgs[1].Role != RoleUser {
		t.Errorf("expected user message second, got role %q", msgs[1].Role)
	}
}

func TestHistoryConcurrentSnapshot(t *testing.T) {
	h := NewHistory("system prompt")

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = h.Snapshot()
				_ = h.Len()
			}
		}()
	}
	for i := 0; i < 100; i++ {
		h.Append(UserMessage("msg"))
	}
	wg.Wait()

	if h.Len() != 101 {
		t.Errorf("expected 101 messages, got %d", h.Len())
	}
}

func TestAssistantMessageToolCalls(t *testing.T) {
	withCalls := AssistantMessage("", []ToolCall{
		{ID: "call_1", Type: "function", Function: FunctionCall{Name: "calculator", Arguments: "{}"}},
	})
	if len(withCalls.ToolCalls) != 1 {
		t.Errorf("expected 1 tool call, got %d", len(withCalls.ToolCalls))
	}

	withoutCalls := AssistantMessage("plain answer", nil)
	if withoutCalls.ToolCalls != nil {
		t.Errorf("expected nil ToolCalls for a plain answer, got %v", withoutCalls.ToolCalls)
	}

	emptyCalls := AssistantMessage("answer", []ToolCall{})
	if emptyCalls.ToolCalls != nil {
		t.Errorf("expected nil ToolCalls for empty slice, got %v", emptyCalls.ToolCalls)
	}
}

func TestToolMessageFields(t *testing.T) {
	msg := ToolMessage("call_abc", "get_weather", `{"conditions":"sunny"}`)
	if msg.Role != RoleTool {
		t.Errorf("expected role %q, got %q", RoleTool, msg.Role)
	}
	if msg.ToolCallID != "call_abc" {
		t.Errorf("expected tool_call_id %q, got %q", "call_abc", msg.ToolCallID)
	}
	if msg.Name != "get_weather" {
		t.Errorf("expected name %q, got %q", "get_weather", msg.Name)
	}
}
