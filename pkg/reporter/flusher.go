package reporter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Flusher drains the buffer on a fixed interval and hands each epoch to the
// sink as one batch. A failed write is logged and the batch dropped; the
// telemetry store is not a system of record and a requeue would only grow
// the buffer while the store is unhappy.
type Flusher struct {
	buf      *SwapBuffer
	sink     Sink
	interval time.Duration
	logger   zerolog.Logger

	finished atomic.Bool
	done     chan struct{}
}

// NewFlusher creates a flusher; Start launches it.
func NewFlusher(buf *SwapBuffer, sink Sink, interval time.Duration, logger zerolog.Logger) *Flusher {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Flusher{
		buf:      buf,
		sink:     sink,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the background flush loop.
func (f *Flusher) Start() {
	go f.run()
}

// run loops until Finish has been called and the buffer is empty. The
// finished flag is only honored on an empty drain, so the epoch buffered at
// quitting time always gets a write attempt before the loop exits.
func (f *Flusher) run() {
	defer close(f.done)

	for {
		if batch := f.buf.DrainAll(); len(batch) > 0 {
			if err := f.sink.WriteSamples(context.Background(), batch); err != nil {
				f.logger.Error().Err(err).
					Int("samples", len(batch)).
					Msg("failed to write sample batch, dropping it")
			}
		} else if f.finished.Load() {
			return
		}
		time.Sleep(f.interval)
	}
}

// Finish tells the loop to exit once the buffer is drained.
func (f *Flusher) Finish() {
	f.finished.Store(true)
}

// Done is closed when the flush loop has exited, after its final drain.
func (f *Flusher) Done() <-chan struct{} {
	return f.done
}
