// internal/clock/clock.go
//
// Time abstraction for the game engine.
// Responsibilities:
//   - Expose "now" and one-shot scheduling behind an interface.
//   - Real implementation backed by the time package.
//   - Fake implementation (fake.go) that only moves when told to, so countdowns,
//     resume reconciliation and debounced writes are testable without sleeping.

package clock

import "time"

// Clock abstracts wall-clock reads and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback. Stop reports whether it
// prevented the callback from running.
type Timer interface {
	Stop() bool
}

// Real is the system clock.
type Real struct{}

// Now returns the current time using the system clock.
func (Real) Now() time.Time {
	return time.Now()
}

// AfterFunc runs f on its own goroutine once d has elapsed.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
