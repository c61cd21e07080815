package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/agentgw/internal/tools"
)

func registryWithEcho(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	err := tools.Register(r, "echo", "Echoes its input back.",
		func(ctx context.Context, args struct {
			Text string `json:"text" jsonschema:"required"`
		}) (any, error) {
			return map[string]string{"echoed": args.Text}, nil
		})
	if err != nil {
		t.Fatalf("registering echo: %v", err)
	}
	return r
}

func TestNewServerExposesEveryRegisteredTool(t *testing.T) {
	srv := NewServer(registryWithEcho(t))
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandlerForInvokesUnderlyingTool(t *testing.T) {
	reg := registryWithEcho(t)
	srv := NewServer(reg)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"text": "hello"}

	result, err := srv.handlerFor("echo")(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}
}

func TestHandlerForSurfacesToolErrorsAsResultText(t *testing.T) {
	reg := tools.NewRegistry()
	srv := NewServer(reg)

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{}

	result, err := srv.handlerFor("nonexistent")(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected Go error: %v", err)
	}
	if result.IsError {
		t.Fatal("unknown-tool errors are reported as structured result text, not an MCP error result")
	}

	text := result.Content[0].(mcp.TextContent).Text
	var decoded map[string]string
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("decoding result text: %v", err)
	}
	if decoded["error"] == "" {
		t.Fatalf("expected an error field, got %+v", decoded)
	}
}
