package engine

// EventType identifies the kind of event emitted during a conversation
// turn.
type EventType int

const (
	// EventText carries a fragment of assistant text, yielded as soon
	// as it arrives from the backend.
	EventText EventType = iota

	// EventToolNotice carries a short status line about tool execution
	// (for display only, never part of the conversation history).
	EventToolNotice

	// EventError carries a terminal error. It is the last event emitted
	// before the channel closes.
	EventError
)

// String returns the event type name for logging.
func (t EventType) String() string {
	switch t {
	case EventText:
		return "text"
	case EventToolNotice:
		return "tool_notice"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single observable step of a conversation turn as emitted
// on the channel returned by Send.
type Event struct {
	Type EventType

	// Text holds the delta for EventText and the notice line for
	// EventToolNotice.
	Text string

	// Err is set for EventError.
	Err error
}
