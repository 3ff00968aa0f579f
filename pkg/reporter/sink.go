package reporter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Sink persists samples and run lifecycle records. Write failures are the
// caller's to log; telemetry is best effort and no method retries.
type Sink interface {
	WriteSamples(ctx context.Context, batch []Sample) error
	WriteRunStart(ctx context.Context, run Run) error
	WriteRunEnd(ctx context.Context, run Run, endTime time.Time) error
	Close(ctx context.Context) error
}

// PGSink writes to a Postgres/TimescaleDB instance with this schema:
//
//	CREATE TABLE request (
//	    "time"          timestamp with time zone NOT NULL,
//	    run_id          timestamp with time zone NOT NULL,
//	    exception       text,
//	    worker_id       integer NOT NULL,
//	    origin          text NOT NULL,
//	    name            text NOT NULL,
//	    request_type    text NOT NULL,
//	    response_length integer,
//	    response_time   double precision,
//	    success         smallint NOT NULL,
//	    testplan        text
//	);
//	CREATE TABLE testrun (
//	    id           timestamp with time zone PRIMARY KEY,
//	    testplan     text,
//	    profile_name text,
//	    num_clients  integer,
//	    rps          text,
//	    description  text,
//	    end_time     timestamp with time zone
//	);
//	CREATE TABLE events ("time" timestamp with time zone, text text);
//
// A single connection is shared by the flusher and the shutdown path, so
// every method serializes on a mutex.
type PGSink struct {
	mu     sync.Mutex
	conn   *pgx.Conn
	closed bool
}

const insertSampleSQL = `INSERT INTO request
    (time, run_id, worker_id, origin, name, request_type, response_time, success, testplan, response_length, exception)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// ConnectPGSink opens the shared database connection. Connection parameters
// come from the standard libpq environment variables (PGHOST, PGUSER,
// PGPASSWORD, PGDATABASE, ...).
func ConnectPGSink(ctx context.Context) (*PGSink, error) {
	cfg, err := pgx.ParseConfig("")
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres configuration: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres, set the standard libpq env vars (PGHOST, PGUSER, PGPASSWORD, PGDATABASE) to point at the timescale database: %w", err)
	}

	return &PGSink{conn: conn}, nil
}

// WriteSamples persists one epoch as a single batched insert. The batch
// either lands or is reported as one error; the caller drops it on failure.
func (s *PGSink) WriteSamples(ctx context.Context, batch []Sample) error {
	if len(batch) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink is closed")
	}

	b := &pgx.Batch{}
	for _, sample := range batch {
		b.Queue(insertSampleSQL,
			sample.Time,
			sample.RunID,
			sample.WorkerID,
			sample.Origin,
			sample.Name,
			sample.RequestType,
			sample.ResponseTime,
			boolToSmallint(sample.Success),
			sample.Testplan,
			sample.ResponseLength,
			sample.Exception,
		)
	}

	if err := s.conn.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("failed to write %d samples: %w", len(batch), err)
	}
	return nil
}

// WriteRunStart inserts the testrun row and a "<testplan> started" event.
func (s *PGSink) WriteRunStart(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink is closed")
	}

	_, err := s.conn.Exec(ctx,
		`INSERT INTO testrun (id, testplan, profile_name, num_clients, rps, description) VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.Testplan, run.ProfileName, run.NumClients, run.TargetRPS, run.Description)
	if err != nil {
		return fmt.Errorf("failed to insert testrun record: %w", err)
	}

	_, err = s.conn.Exec(ctx,
		`INSERT INTO events (time, text) VALUES ($1, $2)`,
		time.Now().UTC(), run.Testplan+" started")
	if err != nil {
		return fmt.Errorf("failed to insert start event: %w", err)
	}
	return nil
}

// WriteRunEnd stamps the testrun row with its end time and inserts a
// "<testplan> finished" event.
func (s *PGSink) WriteRunEnd(ctx context.Context, run Run, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("sink is closed")
	}

	_, err := s.conn.Exec(ctx,
		`UPDATE testrun SET end_time = $1 WHERE id = $2`,
		endTime, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update testrun end time: %w", err)
	}

	_, err = s.conn.Exec(ctx,
		`INSERT INTO events (time, text) VALUES ($1, $2)`,
		endTime, run.Testplan+" finished")
	if err != nil {
		return fmt.Errorf("failed to insert finish event: %w", err)
	}
	return nil
}

// Close releases the connection. Calling it again is a no-op.
func (s *PGSink) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.conn.Close(ctx); err != nil {
		return fmt.Errorf("failed to close postgres connection: %w", err)
	}
	return nil
}

func boolToSmallint(b bool) int16 {
	if b {
		return 1
	}
	return 0
}
