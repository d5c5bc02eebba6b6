package engine

import (
	"errors"
	"testing"
)

func TestAccumulator_TextOnly(t *testing.T) {
	var acc Accumulator
	acc.AddText("Hello")
	acc.AddText(", ")
	acc.AddText("world")

	if got := acc.Text(); got != "Hello, world" {
		t.Errorf("Text() = %q, want %q", got, "Hello, world")
	}
	if acc.HasToolCalls() {
		t.Error("HasToolCalls() = true, want false")
	}
	calls, err := acc.ToolCalls()
	if err != nil {
		t.Fatalf("ToolCalls() error: %v", err)
	}
	if calls != nil {
		t.Errorf("ToolCalls() = %v, want nil", calls)
	}
}

// TestAccumulator_SplitPoints verifies that the assembled call does not
// depend on where the backend splits the fragments: a call delivered in
// one piece and the same call split at every boundary must come out
// identical.
func TestAccumulator_SplitPoints(t *testing.T) {
	type fragment struct {
		id, name, args string
	}
	tests := []struct {
		name      string
		fragments []fragment
	}{
		{
			name:      "single fragment",
			fragments: []fragment{{id: "call_1", name: "calculator", args: `{"operation":"add","a":25,"b":17}`}},
		},
		{
			name: "name and arguments separate",
			fragments: []fragment{
				{id: "call_1", name: "calculator"},
				{args: `{"operation":"add","a":25,"b":17}`},
			},
		},
		{
			name: "arguments split mid-token",
			fragments: []fragment{
				{id: "call_1", name: "calculator", args: `{"operation":"a`},
				{args: `dd","a":25,`},
				{args: `"b":17}`},
			},
		},
		{
			name: "name split across fragments",
			fragments: []fragment{
				{id: "call_1", name: "calcu"},
				{name: "lator", args: `{"operation":"add",`},
				{args: `"a":25,"b":17}`},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var acc Accumulator
			for _, f := range tt.fragments {
				acc.AddToolCall(0, f.id, f.name, f.args)
			}

			calls, err := acc.ToolCalls()
			if err != nil {
				t.Fatalf("ToolCalls() error: %v", err)
			}
			if len(calls) != 1 {
				t.Fatalf("got %d calls, want 1", len(calls))
			}
			call := calls[0]
			if call.ID != "call_1" {
				t.Errorf("ID = %q, want %q", call.ID, "call_1")
			}
			if call.Type != "function" {
				t.Errorf("Type = %q, want %q", call.Type, "function")
			}
			if call.Function.Name != "calculator" {
				t.Errorf("Name = %q, want %q", call.Function.Name, "calculator")
			}
			want := `{"operation":"add","a":25,"b":17}`
			if call.Function.Arguments != want {
				t.Errorf("Arguments = %q, want %q", call.Function.Arguments, want)
			}
		})
	}
}

// TestAccumulator_InterleavedCalls feeds fragments of two calls in
// interleaved, out-of-order fashion and expects read-back in index order.
func TestAccumulator_InterleavedCalls(t *testing.T) {
	var acc Accumulator
	acc.AddToolCall(1, "call_b", "get_weather", `{"locat`)
	acc.AddToolCall(0, "call_a", "calculator", `{"operation":"add",`)
	acc.AddToolCall(1, "", "", `ion":"Berlin"}`)
	acc.AddToolCall(0, "", "", `"a":1,"b":2}`)

	calls, err := acc.ToolCalls()
	if err != nil {
		t.Fatalf("ToolCalls() error: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].ID != "call_a" || calls[0].Function.Name != "calculator" {
		t.Errorf("calls[0] = %s/%s, want call_a/calculator", calls[0].ID, calls[0].Function.Name)
	}
	if calls[0].Function.Arguments != `{"operation":"add","a":1,"b":2}` {
		t.Errorf("calls[0].Arguments = %q", calls[0].Function.Arguments)
	}
	if calls[1].ID != "call_b" || calls[1].Function.Name != "get_weather" {
		t.Errorf("calls[1] = %s/%s, want call_b/get_weather", calls[1].ID, calls[1].Function.Name)
	}
	if calls[1].Function.Arguments != `{"location":"Berlin"}` {
		t.Errorf("calls[1].Arguments = %q", calls[1].Function.Arguments)
	}
}

func TestAccumulator_TextAndCalls(t *testing.T) {
	var acc Accumulator
	acc.AddText("Let me check that.")
	acc.AddToolCall(0, "call_1", "current_time", "{}")

	if got := acc.Text(); got != "Let me check that." {
		t.Errorf("Text() = %q", got)
	}
	if !acc.HasToolCalls() {
		t.Error("HasToolCalls() = false, want true")
	}
	calls, err := acc.ToolCalls()
	if err != nil {
		t.Fatalf("ToolCalls() error: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
}

func TestAccumulator_IndexGap(t *testing.T) {
	var acc Accumulator
	acc.AddToolCall(0, "call_a", "calculator", "{}")
	acc.AddToolCall(2, "call_c", "get_weather", "{}")

	_, err := acc.ToolCalls()
	if err == nil {
		t.Fatal("ToolCalls() with gap succeeded, want error")
	}
	if !errors.Is(err, ErrToolCallGap) {
		t.Errorf("error = %v, want ErrToolCallGap", err)
	}
}

func TestAccumulator_GapWhenFirstIndexMissing(t *testing.T) {
	var acc Accumulator
	acc.AddToolCall(1, "call_b", "calculator", "{}")

	_, err := acc.ToolCalls()
	if !errors.Is(err, ErrToolCallGap) {
		t.Errorf("error = %v, want ErrToolCallGap", err)
	}
}

func TestAccumulator_GeneratesMissingCallID(t *testing.T) {
	var acc Accumulator
	acc.AddToolCall(0, "", "calculator", "{}")

	calls, err := acc.ToolCalls()
	if err != nil {
		t.Fatalf("ToolCalls() error: %v", err)
	}
	if calls[0].ID == "" {
		t.Error("expected a generated call ID, got empty string")
	}
}

func TestAccumulator_IDKeptFromIntroducingFragment(t *testing.T) {
	var acc Accumulator
	acc.AddToolCall(0, "call_first", "echo", `{"a"`)
	acc.AddToolCall(0, "", "", `:1}`)

	calls, err := acc.ToolCalls()
	if err != nil {
		t.Fatalf("ToolCalls() error: %v", err)
	}
	if calls[0].ID != "call_first" {
		t.Errorf("ID = %q, want %q", calls[0].ID, "call_first")
	}
}
