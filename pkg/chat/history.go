package chat

import "sync"

// History is the ordered conversation log. It is an append-only store
// with one exception: Reset clears everything except the leading system
// message. At most one system message exists and it is always first.
//
// The conversation loop is the single writer; Snapshot may be called
// concurrently from other goroutines.
type History struct {
	mu       sync.Mutex
	messages []Message
}

// NewHistory creates an empty history. A non-empty systemPrompt becomes
// the leading system message.
func NewHistory(systemPrompt string) *History {
	h := &History{}
	if systemPrompt != "" {
		h.messages = append(h.messages, SystemMessage(systemPrompt))
	}
	return h
}

// Append adds a message to the end of the history. A system message is
// special-cased to preserve the single-leading-system-message invariant:
// it replaces the existing leading system message, or is inserted at the
// front if none exists.
func (h *History) Append(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if msg.Role == RoleSystem {
		if len(h.messages) > 0 && h.messages[0].Role == RoleSystem {
			h.messages[0] = msg
			return
		}
		h.messages = append([]Message{msg}, h.messages...)
		return
	}
	h.messages = append(h.messages, msg)
}

// Snapshot returns an ordered copy of the history. The returned slice is
// owned by the caller; the messages themselves are shared but immutable.
func (h *History) Snapshot() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of messages currently stored.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// Reset removes all messages except the leading system message, if
// present. It is idempotent and never errors.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.messages) > 0 && h.messages[0].Role == RoleSystem {
		h.messages = h.messages[:1]
		return
	}
	h.messages = nil
}
