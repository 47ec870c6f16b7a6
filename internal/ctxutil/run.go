// Package ctxutil provides context utilities that can be safely imported anywhere.
// This package has no internal dependencies to avoid import cycles.
package ctxutil

import "context"

// RunKey is the context key for the scrape run ID.
// Exported so it can be used consistently across packages.
type RunKey struct{}

// WithRunID returns a context with the scrape run ID embedded.
func WithRunID(ctx context.Context, runID int64) context.Context {
	return context.WithValue(ctx, RunKey{}, runID)
}

// RunIDFromContext returns the scrape run ID from context.
func RunIDFromContext(ctx context.Context) (int64, bool) {
	if v, ok := ctx.Value(RunKey{}).(int64); ok {
		return v, true
	}
	return 0, false
}
