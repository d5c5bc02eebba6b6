package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rhuss/plauder/pkg/chat"
	"github.com/rhuss/plauder/pkg/provider"
)

func TestClient_Stream(t *testing.T) {
	sseBody := `data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"test-model","choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"test-model","choices":[{"index":0,"delta":{"content":"Hello"},"finish_reason":null}]}

data: {"id":"chatcmpl-1","object":"chat.completion.chunk","model":"test-model","choices":[{"index":0,"delta":{},"finish_reason":"stop"}],"usage":{"prompt_tokens":4,"completion_tokens":1,"total_tokens":5}}

data: [DONE]
`

	var gotBody ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("expected path /v1/chat/completions, got %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("expected bearer auth header, got %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("failed to parse request body: %v", err)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", 5*time.Second)
	defer c.Close()

	ch, err := c.Stream(context.Background(), &provider.Request{
		Model:    "test-model",
		Messages: []chat.Message{chat.UserMessage("hi")},
	})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	var events []provider.Event
	for ev := range ch {
		events = append(events, ev)
	}

	if !gotBody.Stream {
		t.Error("expected stream:true in request body")
	}
	if gotBody.StreamOptions == nil || !gotBody.StreamOptions.IncludeUsage {
		t.Error("expected stream_options.include_usage in request body")
	}
	if gotBody.Model != "test-model" {
		t.Errorf("expected model test-model, got %q", gotBody.Model)
	}

	var text strings.Builder
	var usage *chat.Usage
	for _, ev := range events {
		switch ev.Type {
		case provider.EventTextDelta:
			text.WriteString(ev.Delta)
		case provider.EventDone:
			if ev.Usage != nil {
				usage = ev.Usage
			}
		case provider.EventError:
			t.Fatalf("unexpected error event: %v", ev.Err)
		}
	}
	if text.String() != "Hello" {
		t.Errorf("expected text %q, got %q", "Hello", text.String())
	}
	if usage == nil || usage.TotalTokens != 5 {
		t.Errorf("expected usage with 5 total tokens, got %+v", usage)
	}
}

func TestClient_Stream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"model overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	defer c.Close()

	_, err := c.Stream(context.Background(), &provider.Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	var terr *provider.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if terr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", terr.StatusCode)
	}
	if !strings.Contains(terr.Message, "model overloaded") {
		t.Errorf("expected backend message in error, got %q", terr.Message)
	}
}

func TestClient_Stream_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // immediately, so the connection is refused

	c := NewClient(srv.URL, "", time.Second)
	defer c.Close()

	_, err := c.Stream(context.Background(), &provider.Request{Model: "m"})
	if err == nil {
		t.Fatal("expected error for unreachable backend")
	}

	var terr *provider.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %T: %v", err, err)
	}
	if terr.StatusCode != 0 {
		t.Errorf("expected status 0 for network error, got %d", terr.StatusCode)
	}
}

func TestClient_ListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("expected path /v1/models, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"object":"list","data":[{"id":"small","object":"model","owned_by":"local"},{"id":"large","object":"model","owned_by":"local"}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", 5*time.Second)
	defer c.Close()

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if models[0].ID != "small" || models[1].ID != "large" {
		t.Errorf("unexpected models: %+v", models)
	}
}

func TestClient_BaseURLNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("trailing slash not normalized, path: %s", r.URL.Path)
		}
		io.WriteString(w, `{"object":"list","data":[]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "", 5*time.Second)
	defer c.Close()

	if _, err := c.ListModels(context.Background()); err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
}
