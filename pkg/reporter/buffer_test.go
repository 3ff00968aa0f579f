package reporter

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestSwapBufferDrainEmpty(t *testing.T) {
	buf := NewSwapBuffer()
	if got := buf.DrainAll(); len(got) != 0 {
		t.Fatalf("expected empty drain, got %d samples", len(got))
	}
}

func TestSwapBufferDrainTakesEpochExactlyOnce(t *testing.T) {
	buf := NewSwapBuffer()
	for i := 0; i < 3; i++ {
		buf.Append(Sample{Name: fmt.Sprintf("s%d", i)})
	}

	first := buf.DrainAll()
	if len(first) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(first))
	}
	for i, s := range first {
		if want := fmt.Sprintf("s%d", i); s.Name != want {
			t.Errorf("append order lost: sample %d is %q, want %q", i, s.Name, want)
		}
	}

	if second := buf.DrainAll(); len(second) != 0 {
		t.Fatalf("second drain re-observed %d samples", len(second))
	}
	if buf.Len() != 0 {
		t.Fatalf("buffer not empty after drain: %d", buf.Len())
	}
}

func TestSwapBufferConcurrentAppendsAndDrains(t *testing.T) {
	const workers = 8
	const perWorker = 500

	buf := NewSwapBuffer()

	var drained [][]Sample
	stop := make(chan struct{})
	drainerDone := make(chan struct{})
	go func() {
		defer close(drainerDone)
		for {
			drained = append(drained, buf.DrainAll())
			select {
			case <-stop:
				drained = append(drained, buf.DrainAll())
				return
			default:
				time.Sleep(time.Millisecond)
			}
		}
	}()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				buf.Append(Sample{WorkerID: worker, ResponseTime: float64(i)})
			}
		}(w)
	}
	wg.Wait()
	close(stop)
	<-drainerDone

	// The union of all drained batches must be the full append sequence,
	// no duplicates, each worker's own order preserved.
	next := make([]int, workers)
	total := 0
	for _, batch := range drained {
		for _, s := range batch {
			total++
			if int(s.ResponseTime) != next[s.WorkerID] {
				t.Fatalf("worker %d order broken: got sample %v, want %d",
					s.WorkerID, s.ResponseTime, next[s.WorkerID])
			}
			next[s.WorkerID]++
		}
	}
	if total != workers*perWorker {
		t.Fatalf("expected %d samples across all drains, got %d", workers*perWorker, total)
	}
}
