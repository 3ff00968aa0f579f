package reporter

import (
	"errors"
	"testing"
	"time"
)

func TestFlusherWritesEpochsAsBatches(t *testing.T) {
	buf := NewSwapBuffer()
	sink := &fakeSink{}
	flusher := NewFlusher(buf, sink, 5*time.Millisecond, testLogger())
	flusher.Start()

	buf.Append(Sample{Name: "a"})
	buf.Append(Sample{Name: "b"})

	waitFor(t, 2*time.Second, func() bool {
		return len(sink.allSamples()) == 2
	}, "both samples to be flushed")

	flusher.Finish()
	<-flusher.Done()
}

func TestFlusherFinalDrainBeforeExit(t *testing.T) {
	buf := NewSwapBuffer()
	sink := &fakeSink{}
	// A long interval: the final epoch must still be drained promptly on the
	// first loop pass after Finish, not after another sleep cycle completes
	// with data pending.
	flusher := NewFlusher(buf, sink, 20*time.Millisecond, testLogger())

	buf.Append(Sample{Name: "last"})
	flusher.Finish()
	flusher.Start()

	select {
	case <-flusher.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flusher did not exit")
	}

	if got := len(sink.allSamples()); got != 1 {
		t.Fatalf("final epoch lost: expected 1 sample persisted, got %d", got)
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer not empty after final drain")
	}
}

func TestFlusherExitsOnEmptyBufferWhenFinished(t *testing.T) {
	flusher := NewFlusher(NewSwapBuffer(), &fakeSink{}, 5*time.Millisecond, testLogger())
	flusher.Start()
	flusher.Finish()

	select {
	case <-flusher.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("flusher did not exit on empty buffer")
	}
}

func TestFlusherDropsFailedBatchAndContinues(t *testing.T) {
	buf := NewSwapBuffer()
	sink := &fakeSink{}
	sink.setWriteErr(errors.New("database gone"))

	flusher := NewFlusher(buf, sink, 5*time.Millisecond, testLogger())
	flusher.Start()

	buf.Append(Sample{Name: "doomed"})
	// Give the loop time to attempt and drop the batch.
	waitFor(t, 2*time.Second, func() bool { return buf.Len() == 0 }, "failed batch to be drained")

	sink.setWriteErr(nil)
	buf.Append(Sample{Name: "survivor"})

	waitFor(t, 2*time.Second, func() bool {
		samples := sink.allSamples()
		return len(samples) == 1 && samples[0].Name == "survivor"
	}, "flusher to continue after a failed write")

	flusher.Finish()
	<-flusher.Done()
}
