// Package agentgwerr defines the sentinel error categories referenced
// throughout the daemon. Handlers wrap one of these with fmt.Errorf's %w
// so callers can classify a failure with errors.Is while the human-facing
// message stays specific to the call site.
package agentgwerr

import "errors"

var (
	// ErrConfig marks a fatal startup configuration problem.
	ErrConfig = errors.New("configuration error")

	// ErrSkillValidation marks a skill that failed validation at load
	// time. Loading continues; the offending skill is excluded.
	ErrSkillValidation = errors.New("skill validation error")

	// ErrToolArgument marks malformed arguments passed to a tool call.
	ErrToolArgument = errors.New("tool argument error")

	// ErrToolNotFound marks a tool name with no registered handler.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolHandler marks a tool handler that returned an error.
	ErrToolHandler = errors.New("tool handler error")

	// ErrProvider marks an LLM provider transport, stream, or rate-limit
	// failure that degrades the current AgentLoop iteration.
	ErrProvider = errors.New("provider error")

	// ErrDepthExceeded marks a delegation that would exceed
	// max_orchestration_depth.
	ErrDepthExceeded = errors.New("max orchestration depth exceeded")

	// ErrCancelled marks a request short-circuited by context
	// cancellation before it produced output worth persisting.
	ErrCancelled = errors.New("cancelled")

	// ErrPersistence marks a failure to read or write durable state
	// (SQLite, vector store). Fatal to the request; the façade maps it
	// to a 5xx.
	ErrPersistence = errors.New("persistence error")

	// ErrAuth marks a request that failed façade authentication.
	ErrAuth = errors.New("authentication error")

	// ErrWebhookDelivery marks a webhook delivery failure observed only
	// by the dispatcher's own retry logic; never surfaced to clients.
	ErrWebhookDelivery = errors.New("webhook delivery error")
)
