// Package events is the notification bus between a load generator and its
// listeners. The host fires one notification per completed request plus a
// single quitting notification; listeners register handler functions.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// SuccessHandler receives one completed request that succeeded.
// responseTime is in milliseconds, responseLength in bytes.
type SuccessHandler func(ctx context.Context, requestType, name string, responseTime float64, responseLength int64)

// FailureHandler receives one completed request that failed.
type FailureHandler func(ctx context.Context, requestType, name string, responseTime float64, err error)

// QuittingHandler receives the run-termination notification.
type QuittingHandler func()

// Bus dispatches request outcome and lifecycle notifications to registered
// handlers. A panic inside a handler is recovered and logged so a broken
// listener cannot take down the request-issuing path.
type Bus struct {
	logger zerolog.Logger

	mu       sync.Mutex
	success  []SuccessHandler
	failure  []FailureHandler
	quitting []QuittingHandler
}

// NewBus creates an empty notification bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger}
}

// OnSuccess registers a handler for successful request outcomes.
func (b *Bus) OnSuccess(h SuccessHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.success = append(b.success, h)
}

// OnFailure registers a handler for failed request outcomes.
func (b *Bus) OnFailure(h FailureHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failure = append(b.failure, h)
}

// OnQuitting registers a handler for the quitting notification.
func (b *Bus) OnQuitting(h QuittingHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quitting = append(b.quitting, h)
}

// FireSuccess dispatches a successful request outcome to all handlers.
func (b *Bus) FireSuccess(ctx context.Context, requestType, name string, responseTime float64, responseLength int64) {
	b.mu.Lock()
	handlers := b.success
	b.mu.Unlock()

	for _, h := range handlers {
		b.dispatch("success", func() {
			h(ctx, requestType, name, responseTime, responseLength)
		})
	}
}

// FireFailure dispatches a failed request outcome to all handlers.
func (b *Bus) FireFailure(ctx context.Context, requestType, name string, responseTime float64, err error) {
	b.mu.Lock()
	handlers := b.failure
	b.mu.Unlock()

	for _, h := range handlers {
		b.dispatch("failure", func() {
			h(ctx, requestType, name, responseTime, err)
		})
	}
}

// FireQuitting dispatches the quitting notification. Handlers may block;
// the reporter uses this to hold the host until its final flush completes.
func (b *Bus) FireQuitting() {
	b.mu.Lock()
	handlers := b.quitting
	b.mu.Unlock()

	for _, h := range handlers {
		b.dispatch("quitting", func() { h() })
	}
}

func (b *Bus) dispatch(event string, fire func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event", event).
				Interface("panic", r).
				Msg("event handler panicked, continuing dispatch")
		}
	}()
	fire()
}
