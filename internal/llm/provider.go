package llm

import "context"

// Provider is implemented by each LLM backend (OpenAI-family, Anthropic-
// family, xAI/Grok). Stream is responsible for reconstructing coherent
// tool-call tuples from possibly-fragmented deltas before emitting
// Finish(tool_calls); a malformed arguments stream at finish time is
// reported as FinishError, never as a Go error from Stream itself — Stream
// only returns an error for failures that occur before any token is
// streamed (e.g. a rejected request).
type Provider interface {
	// Stream sends a request and returns a channel of StreamChunk values,
	// terminated by exactly one ChunkFinish chunk. The channel is closed
	// after the Finish chunk is delivered, or immediately if ctx is
	// cancelled.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// Name returns the name of this provider.
	Name() string
}
