package provider

import "fmt"

// TransportError reports a failure to reach the model backend or to
// read its stream: connection refusals, non-2xx responses, malformed
// response bodies. It terminates the current conversation turn but
// never the process.
type TransportError struct {
	// Provider is the name of the provider that failed.
	Provider string

	// Op is the operation that failed ("stream", "list_models").
	Op string

	// StatusCode is the HTTP status, or 0 for network-level failures.
	StatusCode int

	// Message carries backend-supplied error detail, if any.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("provider %q: %s failed", e.Provider, e.Op)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
