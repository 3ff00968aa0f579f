package reporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Tracker owns the run's identity and lifecycle records. Coordinators
// (standalone and leader) write the run-start and run-end rows and emit the
// dashboard link; workers reuse the leader's run id and write neither.
type Tracker struct {
	run          Run
	role         Role
	sink         Sink
	logger       zerolog.Logger
	dashboardURL string

	startOnce sync.Once
	closeOnce sync.Once
}

// NewTracker determines the run id for the given role. Distributed roles
// parse the id the leader published in Config.RunID; standalone runs stamp
// the current wall clock.
func NewTracker(cfg Config, inv Invocation, sink Sink, logger zerolog.Logger) (*Tracker, error) {
	var runID time.Time
	if inv.Role.Distributed() {
		if cfg.RunID == "" {
			return nil, fmt.Errorf("distributed run requires a shared run id, set LOADREPORT_RUN_ID on every node")
		}
		parsed, err := time.Parse(time.RFC3339, cfg.RunID)
		if err != nil {
			return nil, fmt.Errorf("failed to parse run id %q: %w", cfg.RunID, err)
		}
		runID = parsed.UTC()
	} else {
		runID = time.Now().UTC()
	}

	return &Tracker{
		run: Run{
			ID:          runID,
			Testplan:    cfg.Testplan,
			ProfileName: cfg.ProfileName,
			NumClients:  inv.NumClients,
			TargetRPS:   cfg.TargetRPS,
			Description: cfg.Description,
		},
		role:         inv.Role,
		sink:         sink,
		logger:       logger,
		dashboardURL: cfg.DashboardURL,
	}, nil
}

// RunID returns the run identifier shared by every sample of this run.
func (t *Tracker) RunID() time.Time {
	return t.run.ID
}

// Role returns the role the tracker was constructed with.
func (t *Tracker) Role() Role {
	return t.role
}

// Start writes the run-start record. Workers skip it; repeated calls write
// at most one record. A failure here is fatal to construction: a run that
// cannot record its start will not produce a usable report.
func (t *Tracker) Start(ctx context.Context) error {
	if !t.role.Coordinator() {
		return nil
	}

	var err error
	t.startOnce.Do(func() {
		if werr := t.sink.WriteRunStart(ctx, t.run); werr != nil {
			err = fmt.Errorf("failed to record run start: %w", werr)
		}
	})
	return err
}

// Close writes the run-end record and logs the dashboard link. Workers skip
// it; repeated calls are no-ops. Write failures are logged and swallowed so
// they never block process exit.
func (t *Tracker) Close(ctx context.Context, endTime time.Time) {
	if !t.role.Coordinator() {
		return
	}

	t.closeOnce.Do(func() {
		end := endTime.UTC()
		t.run.EndTime = &end
		if err := t.sink.WriteRunEnd(ctx, t.run, end); err != nil {
			t.logger.Error().Err(err).Msg("failed to record run end")
		}
		if url := t.DashboardURL(end); url != "" {
			t.logger.Info().Str("report", url).Msg("run report")
		}
	})
}

// DashboardURL renders the report link for the [start, end+1s] window, in
// the epoch-millisecond from/to parameters the dashboard expects.
func (t *Tracker) DashboardURL(endTime time.Time) string {
	if t.dashboardURL == "" {
		return ""
	}
	return fmt.Sprintf("%s&var-testplan=%s&from=%d&to=%d",
		t.dashboardURL, t.run.Testplan, t.run.ID.UnixMilli(), endTime.Add(time.Second).UnixMilli())
}
