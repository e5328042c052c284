// Package clock provides the monotonic microsecond time source consumed by
// the frame scheduler and animation engine (spec.md §6).
package clock

import "time"

// Clock is the abstract monotonic time source named in spec.md §6. Tests
// substitute FakeClock; production wiring uses System.
type Clock interface {
	// NowMicros returns a monotonically increasing microsecond timestamp.
	// The epoch is unspecified; only differences between calls are meaningful.
	NowMicros() int64
}

// System is the production Clock, backed by the Go runtime's monotonic timer.
type System struct {
	start time.Time
}

var _ Clock = System{}

// NewSystem returns a System clock anchored to the current instant.
func NewSystem() System {
	return System{start: time.Now()}
}

// NowMicros implements Clock.
func (s System) NowMicros() int64 {
	return time.Since(s.start).Microseconds()
}

// FakeClock is a manually-advanced Clock for deterministic tests.
type FakeClock struct {
	micros int64
}

var _ Clock = (*FakeClock)(nil)

// NewFakeClock returns a FakeClock starting at the given microsecond instant.
func NewFakeClock(startMicros int64) *FakeClock {
	return &FakeClock{micros: startMicros}
}

// NowMicros implements Clock.
func (f *FakeClock) NowMicros() int64 {
	return f.micros
}

// Advance moves the fake clock forward by delta microseconds (delta may be
// negative only in tests that intentionally exercise backward-going
// counters, e.g. the vblank MSC regression case in spec.md §4.4).
func (f *FakeClock) Advance(delta int64) {
	f.micros += delta
}

// Set pins the fake clock to an absolute microsecond instant.
func (f *FakeClock) Set(micros int64) {
	f.micros = micros
}
