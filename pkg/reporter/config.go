package reporter

import (
	"os"
	"time"
)

// Default flush interval: batches accumulate for up to this long before
// being written, trading a bounded staleness for one round trip per epoch.
const DefaultFlushInterval = 500 * time.Millisecond

// Config carries the reporter's settings. Testplan is the only required
// field. Database location and credentials are not here: the sink reads the
// standard libpq environment variables directly.
type Config struct {
	// Testplan names the test being run; it tags every sample and the
	// testrun record.
	Testplan string

	// ProfileName and Description annotate the testrun record.
	ProfileName string
	Description string

	// DashboardURL is the dashboard base URL the report link is built from.
	// Empty disables the report link.
	DashboardURL string

	// RunID is the externally supplied run identifier (RFC 3339), set by the
	// leader and propagated to every participant of a distributed run.
	// Ignored in standalone runs.
	RunID string

	// TargetRPS is the informational target request rate recorded on the
	// testrun row.
	TargetRPS string

	// FlushInterval overrides DefaultFlushInterval when positive.
	FlushInterval time.Duration
}

// ConfigFromEnv builds a Config from the environment:
//
//	LOADREPORT_DASHBOARD_URL  dashboard base URL
//	LOADREPORT_RUN_ID         shared run id for distributed runs
//	LOADREPORT_RPS            informational target request rate
func ConfigFromEnv(testplan, profileName, description string) Config {
	return Config{
		Testplan:     testplan,
		ProfileName:  profileName,
		Description:  description,
		DashboardURL: os.Getenv("LOADREPORT_DASHBOARD_URL"),
		RunID:        os.Getenv("LOADREPORT_RUN_ID"),
		TargetRPS:    getEnv("LOADREPORT_RPS", "0"),
	}
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
