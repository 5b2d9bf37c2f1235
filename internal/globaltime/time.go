// Package globaltime is the single clock for the pipeline. Every service
// that stamps rows, measures elapsed time against thresholds or computes a
// retention cutoff reads it through UTC(), so tests can pin the clock for
// window and transition assertions.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	current = time.Now
)

// Now returns the current time from the active clock.
func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return current()
}

// UTC returns the current time in UTC. All persisted timestamps go
// through this.
func UTC() time.Time {
	return Now().UTC()
}

// SetMockTime freezes the clock at t until ResetTime is called.
func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	current = func() time.Time { return t }
}

// ResetTime restores the wall clock.
func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	current = time.Now
}
