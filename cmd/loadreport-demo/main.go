// loadreport-demo drives a toy load test against a local dummy target and
// reports every request outcome to the timescale database through the
// reporter, the same way a real load generator would.
//
// Database location comes from the standard libpq env vars (PGHOST, PGUSER,
// PGPASSWORD, PGDATABASE), the dashboard base URL from
// LOADREPORT_DASHBOARD_URL. Run with --master/--worker plus
// LOADREPORT_RUN_ID to exercise the distributed roles.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"loadreport/pkg/events"
	"loadreport/pkg/execctx"
	"loadreport/pkg/reporter"
)

func main() {
	testplan := pflag.String("testplan", "demo", "testplan name recorded with every sample")
	profile := pflag.String("profile", "", "profile name recorded on the testrun")
	description := pflag.String("description", "loadreport demo run", "testrun description")
	clients := pflag.IntP("clients", "c", 4, "number of concurrent client workers")
	rps := pflag.Float64("rps", 10, "target requests per second per worker")
	duration := pflag.Duration("duration", 30*time.Second, "how long to run")
	target := pflag.String("target", "", "base URL to load, empty starts a local dummy target")
	pflag.Bool("master", false, "run as the coordinating leader of a distributed run")
	pflag.Bool("worker", false, "run as a worker of a distributed run")
	pflag.Parse()

	_ = godotenv.Load()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if err := run(logger, *testplan, *profile, *description, *clients, *rps, *duration, *target); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

func run(logger zerolog.Logger, testplan, profile, description string, clients int, rps float64, duration time.Duration, target string) error {
	if target == "" {
		dummy, err := newDummyTarget()
		if err != nil {
			return err
		}
		defer dummy.Close()
		target = dummy.URL()
		logger.Info().Str("url", target).Msg("started dummy target")
	}

	cfg := reporter.ConfigFromEnv(testplan, profile, description)
	if cfg.TargetRPS == "0" {
		cfg.TargetRPS = fmt.Sprintf("%g", rps*float64(clients))
	}

	rep, err := reporter.New(context.Background(), cfg, os.Args[1:], logger)
	if err != nil {
		return err
	}
	// Last-resort teardown if we bail out before the quitting notification.
	defer rep.Exit()

	bus := events.NewBus(logger)
	rep.Attach(bus)

	hist := newLatencyRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(execctx.WithWorkerID(ctx, id), bus, hist, target, rps)
		}(i)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-time.After(duration):
		logger.Info().Msg("duration elapsed, stopping")
	case sig := <-sigs:
		logger.Info().Str("signal", sig.String()).Msg("interrupted, stopping")
	}
	// Later signals kill the process the default way instead of re-entering
	// the shutdown sequence.
	signal.Stop(sigs)

	cancel()
	wg.Wait()

	// Blocks until the final epoch has been drained and the run closed out.
	bus.FireQuitting()

	hist.report(logger)
	return nil
}

// worker issues requests at the target rate until ctx is cancelled, firing
// one success or failure notification per request.
func worker(ctx context.Context, bus *events.Bus, hist *latencyRecorder, target string, rps float64) {
	if rps <= 0 {
		rps = 1
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rps))
	defer ticker.Stop()

	client := &http.Client{Timeout: 5 * time.Second}
	paths := []string{"/ok", "/ok", "/slow", "/flaky"}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			path := paths[rand.Intn(len(paths))]
			issue(ctx, bus, hist, client, target, path)
		}
	}
}

func issue(ctx context.Context, bus *events.Bus, hist *latencyRecorder, client *http.Client, target, path string) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+path, nil)
	if err != nil {
		bus.FireFailure(ctx, http.MethodGet, path, 0, err)
		return
	}

	resp, err := client.Do(req)
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	if err != nil {
		bus.FireFailure(ctx, http.MethodGet, path, elapsed, err)
		return
	}
	length, _ := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	hist.record(elapsed)
	if resp.StatusCode < http.StatusBadRequest {
		bus.FireSuccess(ctx, http.MethodGet, path, elapsed, length)
	} else {
		bus.FireFailure(ctx, http.MethodGet, path, elapsed, fmt.Errorf("HTTP %d", resp.StatusCode))
	}
}

// latencyRecorder aggregates response times across workers for the end-of-run
// summary. Histograms are not safe for concurrent use, hence the mutex.
type latencyRecorder struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
}

func newLatencyRecorder() *latencyRecorder {
	return &latencyRecorder{
		// 1us..60s at 3 significant figures, recorded in microseconds.
		hist: hdrhistogram.New(1, 60_000_000, 3),
	}
}

func (r *latencyRecorder) record(ms float64) {
	r.mu.Lock()
	_ = r.hist.RecordValue(int64(ms * 1000))
	r.mu.Unlock()
}

func (r *latencyRecorder) report(logger zerolog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.hist.TotalCount() == 0 {
		logger.Info().Msg("no requests completed")
		return
	}
	logger.Info().
		Int64("requests", r.hist.TotalCount()).
		Float64("p50_ms", float64(r.hist.ValueAtQuantile(50))/1000).
		Float64("p95_ms", float64(r.hist.ValueAtQuantile(95))/1000).
		Float64("p99_ms", float64(r.hist.ValueAtQuantile(99))/1000).
		Float64("max_ms", float64(r.hist.Max())/1000).
		Msg("latency summary")
}
