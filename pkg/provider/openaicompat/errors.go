package openaicompat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/plauder/pkg/provider"
)

// mapHTTPError converts an HTTP response with a non-2xx status code
// into a TransportError. It attempts to parse the response body as a
// ChatErrorResponse to extract a descriptive message.
func (c *Client) mapHTTPError(op string, resp *http.Response) *provider.TransportError {
	message := extractErrorMessage(resp.Body)
	if message == "" {
		message = fmt.Sprintf("backend error (HTTP %d)", resp.StatusCode)
	}

	return &provider.TransportError{
		Provider:   c.Name(),
		Op:         op,
		StatusCode: resp.StatusCode,
		Message:    message,
	}
}

// mapNetworkError converts a network-level error (connection refused,
// timeout, DNS resolution failure) into a TransportError.
func (c *Client) mapNetworkError(op string, err error) *provider.TransportError {
	return &provider.TransportError{
		Provider: c.Name(),
		Op:       op,
		Message:  "backend connection error",
		Err:      err,
	}
}

// extractErrorMessage tries to parse the response body as a
// ChatErrorResponse and returns the error message if found.
func extractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}

	var errResp ChatErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}

	return ""
}
