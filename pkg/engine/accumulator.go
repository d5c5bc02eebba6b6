package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rhuss/plauder/pkg/chat"
)

// ErrToolCallGap reports that the tool call indices observed on a
// stream do not form a contiguous range starting at zero, meaning
// fragments were lost or the backend produced a malformed stream.
var ErrToolCallGap = errors.New("tool call indices not contiguous")

// Accumulator assembles a model's streamed output into a complete
// assistant message. Text fragments are concatenated in arrival order.
// Tool call fragments are grouped by the index the backend assigns to
// each call, so fragments of different calls may interleave freely and
// a call's name and arguments may be split across any number of
// fragments.
//
// An Accumulator serves a single stream and is not safe for concurrent
// use.
type Accumulator struct {
	text  strings.Builder
	calls map[int]*toolCallBuilder
}

// toolCallBuilder collects the fragments of one streamed tool call.
type toolCallBuilder struct {
	id   string
	name strings.Builder
	args strings.Builder
}

// AddText appends a text fragment to the accumulated assistant text.
func (a *Accumulator) AddText(delta string) {
	a.text.WriteString(delta)
}

// AddToolCall merges one tool call fragment into the builder at the
// given index, creating it on first sight. A non-empty id replaces any
// previous value; name and argument fragments are concatenated.
func (a *Accumulator) AddToolCall(index int, id, name, args string) {
	if a.calls == nil {
		a.calls = make(map[int]*toolCallBuilder)
	}
	b, ok := a.calls[index]
	if !ok {
		b = &toolCallBuilder{}
		a.calls[index] = b
	}
	if id != "" {
		b.id = id
	}
	b.name.WriteString(name)
	b.args.WriteString(args)
}

// Text returns the accumulated assistant text.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// HasToolCalls reports whether any tool call fragments have arrived.
func (a *Accumulator) HasToolCalls() bool {
	return len(a.calls) > 0
}

// ToolCalls returns the assembled tool calls in ascending index order.
// The indices seen on the stream must form 0..n-1; anything else fails
// with an error wrapping ErrToolCallGap. Calls that never received an
// id get a generated one.
func (a *Accumulator) ToolCalls() ([]chat.ToolCall, error) {
	if len(a.calls) == 0 {
		return nil, nil
	}

	indices := make([]int, 0, len(a.calls))
	for i := range a.calls {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	calls := make([]chat.ToolCall, 0, len(indices))
	for want, index := range indices {
		if index != want {
			return nil, fmt.Errorf("%w: expected index %d, got %d", ErrToolCallGap, want, index)
		}
		b := a.calls[index]
		id := b.id
		if id == "" {
			id = chat.NewCallID()
		}
		calls = append(calls, chat.ToolCall{
			ID:   id,
			Type: "function",
			Function: chat.FunctionCall{
				Name:      b.name.String(),
				Arguments: b.args.String(),
			},
		})
	}
	return calls, nil
}
