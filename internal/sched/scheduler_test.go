package sched

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerFiresInTimeThenFIFOOrder(t *testing.T) {
	fc := clockwork.NewFakeClock()
	clock := NewClock(fc)
	s := New(clock)

	var fired []string
	record := func(name string, at int64) {
		s.ScheduleCall(func(arg any) { fired = append(fired, arg.(string)) }, name, at)
	}

	record("third", 300)
	record("first-a", 100)
	record("second", 200)
	record("first-b", 100) // same fire time as first-a, inserted after: FIFO tie-break

	s.RunDue(250)
	assert.Equal(t, []string{"first-a", "first-b", "second"}, fired)

	s.RunDue(1000)
	assert.Equal(t, []string{"first-a", "first-b", "second", "third"}, fired)
}

func TestSchedulerDoesNotReenterCallbackScheduledCalls(t *testing.T) {
	fc := clockwork.NewFakeClock()
	clock := NewClock(fc)
	s := New(clock)

	var fired []string
	s.ScheduleCall(func(arg any) {
		fired = append(fired, "outer")
		// schedule a call due now -- must not run until the *next* RunDue.
		s.ScheduleCall(func(arg any) { fired = append(fired, "inner") }, nil, 0)
	}, nil, 0)

	s.RunDue(0)
	assert.Equal(t, []string{"outer"}, fired)

	s.RunDue(0)
	assert.Equal(t, []string{"outer", "inner"}, fired)
}

func TestQueueDeadlinesAreMonotonicNonDecreasing(t *testing.T) {
	q := NewQueue[int]()
	q.Insert(50, 1)
	q.Insert(10, 2)
	q.Insert(30, 3)
	q.Insert(10, 4)

	deadlines := q.Snapshot()
	require.Len(t, deadlines, 4)
	for i := 1; i < len(deadlines); i++ {
		assert.LessOrEqual(t, deadlines[i-1], deadlines[i])
	}
	assert.Equal(t, []int64{10, 10, 30, 50}, deadlines)
}

func TestNextCallDeadlineReportsEarliest(t *testing.T) {
	fc := clockwork.NewFakeClock()
	s := New(NewClock(fc))
	_, ok := s.NextCallDeadline()
	assert.False(t, ok)

	s.ScheduleCall(func(any) {}, nil, 500)
	s.ScheduleCall(func(any) {}, nil, 100)
	d, ok := s.NextCallDeadline()
	require.True(t, ok)
	assert.Equal(t, int64(100), d)
}
