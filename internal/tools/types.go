// Package tools implements the process-wide ToolRegistry: schema
// derivation from Go argument types, and a uniform invocation surface that
// converts handler failures into structured errors instead of propagating
// them to callers.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/invopop/jsonschema"
)

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// HandlerFunc is the type-erased form every registered tool is reduced to.
// It receives raw JSON arguments and an ambient context, and returns a
// JSON-serializable result or an error.
type HandlerFunc func(ctx context.Context, argsJSON json.RawMessage) (any, error)

// Spec is the schema and metadata advertised to an LLM for one tool.
type Spec struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Schema      *jsonschema.Schema `json:"parameters"`

	handler HandlerFunc
}

// ToolError is the structured payload fed back to the AgentLoop (and from
// there to the model) when a tool invocation fails for any reason: unknown
// tool, malformed arguments, or a handler error. It is never propagated as
// a Go error to the HTTP/CLI caller.
type ToolError struct {
	Error string `json:"error"`
}

func errorResult(format string, args ...any) string {
	b, _ := json.Marshal(ToolError{Error: fmt.Sprintf(format, args...)})
	return string(b)
}
