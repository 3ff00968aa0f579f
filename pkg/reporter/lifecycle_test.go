package reporter

import (
	"context"
	"testing"
	"time"
)

func TestTrackerCoordinatorWritesStartAndEndOnce(t *testing.T) {
	sink := &fakeSink{}
	tracker, err := NewTracker(testConfig(), Invocation{Role: RoleStandalone, NumClients: 1}, sink, testLogger())
	if err != nil {
		t.Fatalf("failed to create tracker: %v", err)
	}

	ctx := context.Background()
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	end := time.Now().UTC()
	tracker.Close(ctx, end)
	tracker.Close(ctx, end.Add(time.Hour))

	_, starts, ends, _ := sink.counts()
	if starts != 1 {
		t.Errorf("expected exactly one run-start write, got %d", starts)
	}
	if ends != 1 {
		t.Errorf("expected exactly one run-end write, got %d", ends)
	}
	if !sink.endTimes[0].Equal(end) {
		t.Errorf("expected end time %v, got %v", end, sink.endTimes[0])
	}
}

func TestTrackerParticipantWritesNothing(t *testing.T) {
	cfg := testConfig()
	cfg.RunID = "2026-08-25T10:00:00Z"
	sink := &fakeSink{}

	tracker, err := NewTracker(cfg, Invocation{Role: RoleWorker, NumClients: 1}, sink, testLogger())
	if err != nil {
		t.Fatalf("failed to create tracker: %v", err)
	}

	ctx := context.Background()
	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	tracker.Close(ctx, time.Now())

	_, starts, ends, _ := sink.counts()
	if starts != 0 || ends != 0 {
		t.Errorf("participant wrote lifecycle records: starts=%d ends=%d", starts, ends)
	}
}

func TestTrackerDistributedRunID(t *testing.T) {
	cfg := testConfig()
	cfg.RunID = "2026-08-25T10:00:00Z"

	tracker, err := NewTracker(cfg, Invocation{Role: RoleLeader, NumClients: 4}, &fakeSink{}, testLogger())
	if err != nil {
		t.Fatalf("failed to create tracker: %v", err)
	}

	want := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	if !tracker.RunID().Equal(want) {
		t.Errorf("expected run id %v, got %v", want, tracker.RunID())
	}
}

func TestTrackerDistributedRequiresRunID(t *testing.T) {
	cfg := testConfig()
	cfg.RunID = ""

	if _, err := NewTracker(cfg, Invocation{Role: RoleWorker}, &fakeSink{}, testLogger()); err == nil {
		t.Fatal("expected error when distributed run id is missing")
	}

	cfg.RunID = "not-a-timestamp"
	if _, err := NewTracker(cfg, Invocation{Role: RoleLeader}, &fakeSink{}, testLogger()); err == nil {
		t.Fatal("expected error for unparsable run id")
	}
}

func TestTrackerDashboardURLWindow(t *testing.T) {
	cfg := testConfig()
	cfg.DashboardURL = "https://grafana.example.com/d/load?orgId=1"
	cfg.RunID = "2026-08-25T10:00:00Z"

	tracker, err := NewTracker(cfg, Invocation{Role: RoleLeader, NumClients: 1}, &fakeSink{}, testLogger())
	if err != nil {
		t.Fatalf("failed to create tracker: %v", err)
	}

	end := time.Date(2026, 8, 25, 10, 5, 30, 0, time.UTC)
	got := tracker.DashboardURL(end)
	want := "https://grafana.example.com/d/load?orgId=1&var-testplan=checkout-flow&from=1787652000000&to=1787652331000"
	if got != want {
		t.Errorf("dashboard url mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestTrackerDashboardURLDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.DashboardURL = ""

	tracker, err := NewTracker(cfg, Invocation{Role: RoleStandalone}, &fakeSink{}, testLogger())
	if err != nil {
		t.Fatalf("failed to create tracker: %v", err)
	}
	if got := tracker.DashboardURL(time.Now()); got != "" {
		t.Errorf("expected empty url, got %q", got)
	}
}
