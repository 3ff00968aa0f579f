// Package reporter logs load-test samples and run lifecycle records to a
// Postgres/TimescaleDB database.
//
// Samples are buffered in memory on the request path and persisted in
// batches by a background flusher, so recording an outcome never costs the
// request a round trip to the store. On shutdown the final epoch is drained
// and a write attempted before the connection is released.
package reporter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/host"

	"loadreport/pkg/events"
	"loadreport/pkg/execctx"
)

// Reporter observes per-request outcomes and writes them to the telemetry
// store. Attach registers its handlers on the host's event bus; the handlers
// only append to the buffer and never touch the store themselves.
type Reporter struct {
	buf      *SwapBuffer
	sink     Sink
	tracker  *Tracker
	flusher  *Flusher
	shutdown *ShutdownCoordinator
	logger   zerolog.Logger

	origin   string
	testplan string
}

// New connects to the database and assembles a reporter for the given
// configuration. args is the host program's argument list, inspected for the
// leader/worker markers and the client count. A connection failure is fatal:
// without a store there is nothing to report to.
func New(ctx context.Context, cfg Config, args []string, logger zerolog.Logger) (*Reporter, error) {
	sink, err := ConnectPGSink(ctx)
	if err != nil {
		return nil, err
	}

	r, err := NewWithSink(ctx, cfg, args, sink, logger)
	if err != nil {
		_ = sink.Close(ctx)
		return nil, err
	}
	return r, nil
}

// NewWithSink assembles a reporter over an already-open sink. The run-start
// record is written (coordinator roles) and the background flusher launched
// before this returns.
func NewWithSink(ctx context.Context, cfg Config, args []string, sink Sink, logger zerolog.Logger) (*Reporter, error) {
	if cfg.Testplan == "" {
		return nil, fmt.Errorf("testplan must not be empty")
	}

	inv := ParseInvocation(args)
	tracker, err := NewTracker(cfg, inv, sink, logger)
	if err != nil {
		return nil, err
	}

	buf := NewSwapBuffer()
	flusher := NewFlusher(buf, sink, cfg.FlushInterval, logger)
	shutdown := NewShutdownCoordinator(flusher, logger,
		func(ctx context.Context) {
			tracker.Close(ctx, time.Now().UTC())
		},
		func(ctx context.Context) {
			if err := sink.Close(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to close storage sink")
			}
		},
	)

	r := &Reporter{
		buf:      buf,
		sink:     sink,
		tracker:  tracker,
		flusher:  flusher,
		shutdown: shutdown,
		logger:   logger,
		origin:   originHostname(),
		testplan: cfg.Testplan,
	}

	if err := tracker.Start(ctx); err != nil {
		return nil, err
	}
	flusher.Start()

	logger.Info().
		Str("testplan", cfg.Testplan).
		Str("role", tracker.Role().String()).
		Time("run_id", tracker.RunID()).
		Msg("reporter started")
	return r, nil
}

// Attach registers the reporter's handlers on the host's event bus.
func (r *Reporter) Attach(bus *events.Bus) {
	bus.OnSuccess(r.HandleSuccess)
	bus.OnFailure(r.HandleFailure)
	bus.OnQuitting(r.HandleQuitting)
}

// HandleSuccess records a successful request outcome. It only appends to
// the in-memory buffer; no I/O happens on the caller's path.
func (r *Reporter) HandleSuccess(ctx context.Context, requestType, name string, responseTime float64, responseLength int64) {
	r.buf.Append(NewSuccessSample(
		time.Now().UTC(), r.tracker.RunID(), execctx.WorkerID(ctx),
		r.origin, r.testplan, requestType, name, responseTime, responseLength))
}

// HandleFailure records a failed request outcome.
func (r *Reporter) HandleFailure(ctx context.Context, requestType, name string, responseTime float64, err error) {
	r.buf.Append(NewFailureSample(
		time.Now().UTC(), r.tracker.RunID(), execctx.WorkerID(ctx),
		r.origin, r.testplan, requestType, name, responseTime, err))
}

// HandleQuitting blocks until the final epoch has been drained, then runs
// the exit sequence (run-end record, connection release).
func (r *Reporter) HandleQuitting() {
	r.shutdown.Quit()
}

// Exit runs the exit sequence without waiting for the flusher. It is meant
// for a host's last-resort exit path and is a no-op if the sequence already
// ran.
func (r *Reporter) Exit() {
	r.shutdown.Exit()
}

// RunID returns this run's shared identifier.
func (r *Reporter) RunID() time.Time {
	return r.tracker.RunID()
}

// originHostname names the load generator this reporter runs on.
func originHostname() string {
	if info, err := host.Info(); err == nil && info.Hostname != "" {
		return info.Hostname
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "unknown"
}
