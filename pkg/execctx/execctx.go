// Package execctx carries the identity of the concurrency unit issuing a
// request. The id is used only for diagnostic correlation of samples; it is
// stored on the context so the host load generator can tag each worker's
// requests without the reporter knowing how workers are scheduled.
package execctx

import "context"

// None is the sentinel reported when no worker identity is present on the
// context, typically when a request is issued outside a worker loop.
const None = -1

type workerIDKey struct{}

// WithWorkerID returns a context tagged with the given worker id.
func WithWorkerID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, workerIDKey{}, id)
}

// WorkerID returns the worker id carried by ctx, or None.
func WorkerID(ctx context.Context) int {
	if ctx == nil {
		return None
	}
	if id, ok := ctx.Value(workerIDKey{}).(int); ok {
		return id
	}
	return None
}
