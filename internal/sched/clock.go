package sched

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock exposes the monotonic microsecond counter spec.md §4.1 requires:
// "now() returns a monotonic microsecond counter (never wall-clock)." It is
// backed by clockwork.Clock so tests can drive a clockwork.FakeClock
// deterministically instead of sleeping real time (grounded on
// jonboulle/clockwork's use in the doublezero manifest for exactly this
// purpose).
type Clock struct {
	underlying clockwork.Clock
	epoch      time.Time
}

// NewClock wraps a clockwork.Clock, anchoring the monotonic counter at the
// clock's current instant.
func NewClock(underlying clockwork.Clock) *Clock {
	return &Clock{underlying: underlying, epoch: underlying.Now()}
}

// NewRealClock is the production constructor.
func NewRealClock() *Clock {
	return NewClock(clockwork.NewRealClock())
}

// NowMicros returns microseconds elapsed since the clock was constructed —
// monotonic, immune to wall-clock adjustment, matching spec's now().
func (c *Clock) NowMicros() int64 {
	return c.underlying.Now().Sub(c.epoch).Microseconds()
}

// Underlying exposes the wrapped clockwork.Clock, e.g. for tests that need
// to Advance a clockwork.FakeClock.
func (c *Clock) Underlying() clockwork.Clock {
	return c.underlying
}

// MicrosToDuration converts a microsecond count (as used throughout this
// module) to a time.Duration.
func MicrosToDuration(us int64) time.Duration {
	return time.Duration(us) * time.Microsecond
}

// DurationToMicros converts a time.Duration to the microsecond units this
// module schedules in.
func DurationToMicros(d time.Duration) int64 {
	return d.Microseconds()
}
