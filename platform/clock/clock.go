// Package clock provides an injectable time source.
// This is part of the platform layer and contains no business logic.
package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Services take a Clock instead of calling
// time.Now directly so tests can pin routing-stat timestamps.
type Clock interface {
	Now() time.Time
}

// System is the real clock.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time {
	return time.Now()
}

// Fake is a manually advanced clock for tests.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake creates a fake clock pinned to the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the pinned instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set pins the fake clock to a new instant.
func (f *Fake) Set(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = now
}
