// Command mcp-test-server runs a stdio MCP server for exercising the
// plauder provider integration. It provides "echo", "get_time" and
// "ask_user" tools; ask_user elicits an answer from the connected
// client's user and returns it, which makes it handy for trying the
// interactive elicitation path end to end:
//
//	{"servers": {"test": {"command": "mcp-test-server"}}}
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	server := mcp.NewServer(
		&mcp.Implementation{Name: "plauder-test-mcp", Version: "v1.0.0"},
		nil,
	)

	// Add "get_time" tool.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_time",
		Description: "Returns the current UTC time",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, struct{}, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Current time: %s", time.Now().UTC().Format(time.RFC3339))},
			},
		}, struct{}{}, nil
	})

	// Add "echo" tool.
	type EchoInput struct {
		Message string `json:"message" jsonschema_description:"The message to echo back"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "echo",
		Description: "Echoes the provided message back",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input EchoInput) (*mcp.CallToolResult, struct{}, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Echo: %s", input.Message)},
			},
		}, struct{}{}, nil
	})

	// Add "ask_user" tool with a raw handler; it needs the session to
	// send the elicitation request back to the client.
	server.AddTool(&mcp.Tool{
		Name:        "ask_user",
		Description: "Asks the user a question and returns the answer",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to ask the user",
				},
			},
			"required": []any{"question"},
		},
	}, askUser)

	// Stdio transport: the protocol owns stdout, logs go to stderr.
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func askUser(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := questionFromArgs(req.Params.Arguments)

	res, err := req.Session.Elicit(ctx, &mcp.ElicitParams{
		Message: question,
		RequestedSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"answer": {Type: "string", Title: "Answer"},
			},
			Required: []string{"answer"},
		},
	})
	if err != nil {
		return nil, err
	}

	if res.Action != "accept" {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "The user declined to answer."}},
		}, nil
	}

	answer, _ := res.Content["answer"].(string)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "The user answered: " + answer}},
	}, nil
}

// questionFromArgs digs the question out of the raw tool arguments,
// falling back to a generic prompt.
func questionFromArgs(args any) string {
	var m map[string]any
	switch v := args.(type) {
	case map[string]any:
		m = v
	case json.RawMessage:
		if err := json.Unmarshal(v, &m); err != nil {
			return "Please provide a value"
		}
	}
	if q, ok := m["question"].(string); ok && q != "" {
		return q
	}
	return "Please provide a value"
}
