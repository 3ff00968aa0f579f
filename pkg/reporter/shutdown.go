package reporter

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Hook is one step of the exit sequence.
type Hook func(ctx context.Context)

// ShutdownCoordinator sequences termination: stop the flusher, wait for its
// final drain, then run the exit hooks in order. The hook list is owned and
// explicit, handed over at construction, so teardown order never depends on
// ambient process-global registration.
type ShutdownCoordinator struct {
	flusher  *Flusher
	hooks    []Hook
	logger   zerolog.Logger
	exitOnce sync.Once
}

// NewShutdownCoordinator creates a coordinator that will invoke hooks in the
// given order during the exit sequence.
func NewShutdownCoordinator(flusher *Flusher, logger zerolog.Logger, hooks ...Hook) *ShutdownCoordinator {
	return &ShutdownCoordinator{
		flusher: flusher,
		hooks:   hooks,
		logger:  logger,
	}
}

// Quit handles the quitting notification: flag the flusher finished, block
// until its final epoch has been drained and a persistence attempt made,
// then run the exit sequence. Safe to call more than once.
func (c *ShutdownCoordinator) Quit() {
	c.flusher.Finish()
	<-c.flusher.Done()
	c.Exit()
}

// Exit runs the exit sequence exactly once; later calls are no-ops. It is
// the process-exit path for hosts that terminate without a quitting
// notification, so it does not wait on the flusher.
func (c *ShutdownCoordinator) Exit() {
	c.exitOnce.Do(func() {
		c.logger.Debug().Msg("running exit sequence")
		ctx := context.Background()
		for _, hook := range c.hooks {
			hook(ctx)
		}
	})
}
