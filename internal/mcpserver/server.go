// Package mcpserver exposes a tools.Registry over the Model Context
// Protocol, so an external MCP-speaking agent host can drive the same
// tools the daemon's own AgentLoop calls.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/agentgw/internal/tools"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes every tool in a Registry.
type Server struct {
	tools *tools.Registry
	mcp   *server.MCPServer
}

// NewServer creates an MCP server advertising every tool currently
// registered in reg. Tools added to reg after construction are not picked
// up; call NewServer again after the registry has settled.
func NewServer(reg *tools.Registry) *Server {
	s := &Server{
		tools: reg,
		mcp: server.NewMCPServer(
			"agentgw",
			Version,
			server.WithToolCapabilities(false),
		),
	}
	s.registerTools()
	return s
}

// registerTools mirrors each tools.Spec onto the MCP server, driven by
// whatever is actually registered rather than a fixed list: the schema
// advertised to MCP clients is the exact same invopop/jsonschema document
// the AgentLoop advertises to the LLM, marshaled as a tool's raw input
// schema.
func (s *Server) registerTools() {
	for _, spec := range s.tools.SchemaFor(s.tools.Names()) {
		schemaJSON, err := json.Marshal(spec.Schema)
		if err != nil {
			// An unmarshalable schema means Register derived it from a
			// pathological Args type; skip rather than advertise garbage.
			continue
		}
		tool := mcp.Tool{
			Name:           spec.Name,
			Description:    spec.Description,
			RawInputSchema: schemaJSON,
		}
		s.mcp.AddTool(tool, s.handlerFor(spec.Name))
	}
}

// handlerFor adapts tools.Registry.Invoke's string-JSON contract to MCP's
// CallToolResult shape. Invoke never returns a Go error for tool-level
// failures (unknown tool, bad args, handler error) -- those already come
// back as a structured {"error": ...} JSON string, which is surfaced as
// plain result text rather than an MCP-level error, consistent with how
// the AgentLoop feeds the same string back to the model as a tool message.
func (s *Server) handlerFor(name string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsJSON, err := json.Marshal(request.Params.Arguments)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshaling arguments: %v", err)), nil
		}
		result := s.tools.Invoke(ctx, name, argsJSON)
		return mcp.NewToolResultText(result), nil
	}
}

// Serve starts the MCP server on stdio. Stdout is reserved for MCP
// protocol messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
