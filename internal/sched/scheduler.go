package sched

// Call is a scheduled callback: a function plus an opaque argument it
// owns, matching spec.md's "Scheduled call: (callback, opaque arg,
// fire-time)." Go's garbage collector retires the need for the spec's
// explicit "scheduler must free [the arg] after invocation" note — arg is
// simply dropped once Fn returns and nothing else references it.
type Call struct {
	Fn  func(arg any)
	Arg any
}

// Scheduler orders scheduled calls by fire time, breaking ties FIFO, and
// fires everything due on each RunDue pass. It knows nothing about
// remotes' scheduled messages or reconnect deadlines; the event loop
// (internal/loop) aggregates this scheduler's NextCallDeadline with the
// remote registry's own deadlines to implement spec §4.1's next_deadline().
type Scheduler struct {
	clock *Clock
	calls *Queue[Call]
}

// New constructs a Scheduler driven by clock.
func New(clock *Clock) *Scheduler {
	return &Scheduler{clock: clock, calls: NewQueue[Call]()}
}

// Clock returns the scheduler's clock.
func (s *Scheduler) Clock() *Clock { return s.clock }

// ScheduleCall inserts fn (with its owned arg) to fire at fireAtMicros.
func (s *Scheduler) ScheduleCall(fn func(arg any), arg any, fireAtMicros int64) {
	s.calls.Insert(fireAtMicros, Call{Fn: fn, Arg: arg})
}

// ScheduleAfter is a convenience wrapper scheduling fn to fire delayMicros
// microseconds from now.
func (s *Scheduler) ScheduleAfter(fn func(arg any), arg any, delayMicros int64) {
	s.ScheduleCall(fn, arg, s.clock.NowMicros()+delayMicros)
}

// RunDue fires, in fire-time/FIFO order, every call due at or before now.
// Due calls are fully dequeued before any of them run, so a callback that
// schedules further calls lands those in the next RunDue pass rather than
// being reentered into this one (spec §4.1).
func (s *Scheduler) RunDue(now int64) {
	due := s.calls.DrainDue(now)
	for _, c := range due {
		c.Fn(c.Arg)
	}
}

// NextCallDeadline reports the earliest pending call's fire time.
func (s *Scheduler) NextCallDeadline() (int64, bool) {
	return s.calls.PeekDeadline()
}

// PendingCallCount reports the number of calls currently queued, used by
// tests asserting the ordering invariant.
func (s *Scheduler) PendingCallCount() int {
	return s.calls.Len()
}

// CallDeadlines returns every pending call's fire time in heap-pop order,
// for asserting the monotonic non-decreasing invariant in tests.
func (s *Scheduler) CallDeadlines() []int64 {
	return s.calls.Snapshot()
}
