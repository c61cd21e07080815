package agent

import "context"

// depthKey is the context key carrying the ambient orchestration depth.
// Using an explicit context value (rather than a goroutine-local or
// package-level variable) keeps the flow-local contract visible at every
// call site and isolates concurrent requests from one another, per the
// preferred strategy for a typed systems language.
type depthKey struct{}

// WithDepth returns a context carrying the given orchestration depth.
// Nested delegation wraps the parent context with depth+1.
func WithDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

// DepthFromContext returns the ambient orchestration depth, or 0 if none
// was set.
func DepthFromContext(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}
