package tools

import (
	"fmt"

	"github.com/rhuss/plauder/pkg/debug"
)

// MalformedArgumentsError reports that the model produced an arguments
// string that is not valid JSON. The call never reaches a handler.
type MalformedArgumentsError struct {
	// Tool is the requested tool name.
	Tool string

	// Arguments is the raw arguments string as received.
	Arguments string
}

func (e *MalformedArgumentsError) Error() string {
	return fmt.Sprintf("tool %q: arguments are not valid JSON: %s", e.Tool, debug.Truncate(e.Arguments, 120))
}

// UnknownToolError reports a call to a tool name that no descriptor
// claims. Typically the model hallucinated a name or a provider
// disconnected after advertising its tools.
type UnknownToolError struct {
	// Tool is the requested tool name.
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("tool %q is not registered", e.Tool)
}

// ExecutionError wraps a failure inside a tool handler, including
// recovered panics. The conversation loop absorbs it into a tool-result
// message; it is never fatal.
type ExecutionError struct {
	// Tool is the tool that failed.
	Tool string

	// Err is the underlying cause.
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
