// Package clock provides an injectable time source so that streak and
// timestamp logic is testable without touching the system clock.
package clock

import "time"

// Clock supplies wall-clock "now".
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock in UTC.
type System struct{}

// Now returns the current UTC time.
func (System) Now() time.Time { return time.Now().UTC() }

// Fixed is a test clock pinned to a settable instant.
type Fixed struct {
	T time.Time
}

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time { return f.T }

// Advance moves the pinned instant forward.
func (f *Fixed) Advance(d time.Duration) { f.T = f.T.Add(d) }
