package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/plauder/pkg/provider"
)

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend. It implements provider.Provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

var _ provider.Provider = (*Client)(nil)

// NewClient creates a new Client for an OpenAI-compatible backend.
// baseURL points at the server root without the /v1 suffix
// (e.g. "http://localhost:11434"); the versioned paths are appended
// per endpoint.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	// Normalize: remove trailing slash from base URL.
	baseURL = strings.TrimRight(baseURL, "/")

	if timeout == 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "openai-compat"
}

// Stream performs streaming inference against the Chat Completions
// endpoint. The returned channel carries raw fragment events and is
// closed when the stream completes, errors, or the context is
// cancelled.
//
// The HTTP client timeout is not applied for streaming requests because
// a stream can legitimately last longer than any fixed timeout.
// Lifecycle control relies on context cancellation instead.
func (c *Client) Stream(ctx context.Context, req *provider.Request) (<-chan provider.Event, error) {
	chatReq := &ChatCompletionRequest{
		Model:         req.Model,
		Messages:      req.Messages,
		Tools:         req.Tools,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		MaxTokens:     req.MaxTokens,
		Stream:        true,
		StreamOptions: &ChatStreamOptions{IncludeUsage: true},
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, &provider.TransportError{
			Provider: c.Name(),
			Op:       "stream",
			Message:  fmt.Sprintf("failed to marshal request: %s", err.Error()),
		}
	}

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &provider.TransportError{
			Provider: c.Name(),
			Op:       "stream",
			Err:      err,
		}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	// Use a client without timeout for streaming. The context controls
	// the request lifetime instead.
	streamClient := &http.Client{
		Transport: c.httpClient.Transport,
	}

	httpResp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, c.mapNetworkError("stream", err)
	}

	// Check for error status codes before starting the stream.
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		defer httpResp.Body.Close()
		return nil, c.mapHTTPError("stream", httpResp)
	}

	ch := make(chan provider.Event, 16)

	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		ParseSSEStream(ctx, c.Name(), httpResp.Body, ch)
	}()

	return ch, nil
}

// ListModels returns available models from the backend by querying the
// /v1/models endpoint.
func (c *Client) ListModels(ctx context.Context) ([]provider.Model, error) {
	url := c.baseURL + "/v1/models"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &provider.TransportError{
			Provider: c.Name(),
			Op:       "list_models",
			Err:      err,
		}
	}

	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.mapNetworkError("list_models", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, c.mapHTTPError("list_models", httpResp)
	}

	var modelsResp ChatModelsResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&modelsResp); err != nil {
		return nil, &provider.TransportError{
			Provider: c.Name(),
			Op:       "list_models",
			Message:  "failed to parse models response",
			Err:      err,
		}
	}

	models := make([]provider.Model, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		models = append(models, provider.Model{
			ID:      m.ID,
			Object:  m.Object,
			OwnedBy: m.OwnedBy,
		})
	}

	return models, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
