package reporter

import "sync"

// SwapBuffer accumulates samples between flushes. Append adds to the current
// epoch; DrainAll hands the whole epoch to the caller and starts a new one.
// The swap is a single step under the mutex, so a sample is observed by
// exactly one drain: appends racing with a drain land either in the drained
// epoch or in the fresh one, never in both and never nowhere.
type SwapBuffer struct {
	mu      sync.Mutex
	samples []Sample
}

// NewSwapBuffer creates an empty buffer.
func NewSwapBuffer() *SwapBuffer {
	return &SwapBuffer{}
}

// Append adds a sample to the current epoch. It never blocks on I/O.
func (b *SwapBuffer) Append(s Sample) {
	b.mu.Lock()
	b.samples = append(b.samples, s)
	b.mu.Unlock()
}

// DrainAll atomically takes the current epoch and resets the buffer.
// Draining an empty buffer returns nil.
func (b *SwapBuffer) DrainAll() []Sample {
	b.mu.Lock()
	drained := b.samples
	b.samples = nil
	b.mu.Unlock()
	return drained
}

// Len reports the number of samples in the current epoch.
func (b *SwapBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}
