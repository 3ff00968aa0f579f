package reporter

import (
	"fmt"
	"time"
)

// Sample is the immutable record of one completed request outcome.
//
// ResponseLength is nil exactly when the request failed; Exception is nil
// exactly when it succeeded.
type Sample struct {
	Time           time.Time
	RunID          time.Time
	WorkerID       int
	Origin         string
	Name           string
	RequestType    string
	ResponseTime   float64
	Success        bool
	Testplan       string
	ResponseLength *int64
	Exception      *string
}

// Run describes one logical test run. ID doubles as the run's start time;
// in a distributed run every participant shares the leader's ID.
type Run struct {
	ID          time.Time
	Testplan    string
	ProfileName string
	NumClients  int
	TargetRPS   string
	Description string
	EndTime     *time.Time
}

// NewSuccessSample builds the record for a successful request. A negative
// responseLength means the host did not measure one and is stored as null.
func NewSuccessSample(now, runID time.Time, workerID int, origin, testplan, requestType, name string, responseTime float64, responseLength int64) Sample {
	s := Sample{
		Time:         now,
		RunID:        runID,
		WorkerID:     workerID,
		Origin:       origin,
		Name:         name,
		RequestType:  requestType,
		ResponseTime: responseTime,
		Success:      true,
		Testplan:     testplan,
	}
	if responseLength >= 0 {
		s.ResponseLength = &responseLength
	}
	return s
}

// NewFailureSample builds the record for a failed request.
func NewFailureSample(now, runID time.Time, workerID int, origin, testplan, requestType, name string, responseTime float64, err error) Sample {
	exc := errString(err)
	return Sample{
		Time:         now,
		RunID:        runID,
		WorkerID:     workerID,
		Origin:       origin,
		Name:         name,
		RequestType:  requestType,
		ResponseTime: responseTime,
		Success:      false,
		Testplan:     testplan,
		Exception:    &exc,
	}
}

// errString renders the failure cause with its concrete type, so distinct
// error kinds stay distinguishable in the store.
func errString(err error) string {
	if err == nil {
		return "unknown failure"
	}
	return fmt.Sprintf("%T(%v)", err, err)
}
