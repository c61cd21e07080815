package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/ziadkadry99/agentgw/internal/agentgwerr"
)

// Registry is the process-wide mapping from tool name to Spec, plus a
// uniform invocation surface.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{specs: map[string]Spec{}}
}

// Register derives a JSON schema from the zero value of Args (via
// jsonschema struct tags), reflecting the handler's parameter shape into
// the contract exchanged with the LLM. Re-registering the same name
// replaces the previous entry.
func Register[Args any](r *Registry, name, description string, fn func(ctx context.Context, args Args) (any, error)) error {
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("tool name %q is not a valid identifier", name)
	}

	reflector := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	schema := reflector.Reflect(new(Args))
	schema.Title = name
	schema.Description = description
	schema.Version = ""

	handler := func(ctx context.Context, argsJSON json.RawMessage) (any, error) {
		var args Args
		if len(argsJSON) > 0 {
			if err := json.Unmarshal(argsJSON, &args); err != nil {
				return nil, fmt.Errorf("%w: parsing arguments: %w", agentgwerr.ErrToolArgument, err)
			}
		}
		result, err := fn(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", agentgwerr.ErrToolHandler, err)
		}
		return result, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[name] = Spec{Name: name, Description: description, Schema: schema, handler: handler}
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[name]
	return ok
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for n := range r.specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SchemaFor returns the schema list to advertise to the LLM, filtered to
// the caller's allow-list. Unknown names are silently skipped since the
// caller (a skill's tool allow-list) may reference a tool that failed to
// register; the AgentLoop surfaces that mismatch separately.
func (r *Registry) SchemaFor(names []string) []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(names))
	for _, n := range names {
		if s, ok := r.specs[n]; ok {
			specs = append(specs, s)
		}
	}
	return specs
}

// Invoke parses argsJSON against the named tool's schema, calls its
// handler, and serializes the result to a JSON string. Parse failures,
// missing tools, and handler errors are converted into a structured
// {"error": "..."} JSON payload rather than returned as a Go error, since
// that payload becomes the content of the tool message fed back to the
// model.
func (r *Registry) Invoke(ctx context.Context, name string, argsJSON json.RawMessage) string {
	r.mu.RLock()
	spec, ok := r.specs[name]
	r.mu.RUnlock()

	if !ok {
		log.Printf("tools: %v: %s", agentgwerr.ErrToolNotFound, name)
		return errorResult("unknown tool: %s", name)
	}

	result, err := spec.handler(ctx, argsJSON)
	if err != nil {
		log.Printf("tools: invoking %s: %v", name, err)
		return errorResult("%s", err.Error())
	}

	if s, ok := result.(string); ok {
		return s
	}

	b, err := json.Marshal(result)
	if err != nil {
		// Non-serializable returns are coerced to their string form.
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}
