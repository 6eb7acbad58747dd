// Package sched implements the monotonic clock and time-ordered scheduling
// primitives described in spec.md §4.1: a queue of scheduled callbacks, and
// (via Queue) the same ordering machinery reused by internal/remote for the
// per-remote scheduled-message queue.
//
// The underlying ordering structure is a container/heap min-heap keyed on
// (fire-time, sequence number), the same shape as the doublezero liveness
// scheduler's EventQueue: a monotonically increasing sequence number breaks
// ties between equal timestamps so insertion order is preserved (spec's
// "insertion is stable with respect to equal timestamps (FIFO among
// ties)").
package sched

import "container/heap"

// entry is one queued value with its fire time and tie-break sequence;
// Queue's heap holds pointers to entries.
type entry[T any] struct {
	fireAt int64
	seq    uint64
	value  T
}

type entryHeap[T any] []*entry[T]

func (h entryHeap[T]) Len() int { return len(h) }
func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].fireAt == h[j].fireAt {
		return h[i].seq < h[j].seq
	}
	return h[i].fireAt < h[j].fireAt
}
func (h entryHeap[T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap[T]) Push(x any)   { *h = append(*h, x.(*entry[T])) }
func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// Queue is a time-ordered, FIFO-among-ties queue of arbitrary payloads,
// generic over the payload type so it backs both the scheduler's callback
// list and a remote's scheduled-message list.
type Queue[T any] struct {
	h   entryHeap[T]
	seq uint64
}

// NewQueue constructs an empty time-ordered queue.
func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	heap.Init(&q.h)
	return q
}

// Insert adds value to the queue, due at fireAt (scheduler time units,
// implementation-defined but consistently microseconds throughout this
// module). Equal fireAt values preserve insertion order.
func (q *Queue[T]) Insert(fireAt int64, value T) {
	q.seq++
	heap.Push(&q.h, &entry[T]{fireAt: fireAt, seq: q.seq, value: value})
}

// Len reports the number of queued entries.
func (q *Queue[T]) Len() int { return q.h.Len() }

// PeekDeadline returns the fire time of the earliest entry and true, or
// (0, false) if the queue is empty.
func (q *Queue[T]) PeekDeadline() (int64, bool) {
	if q.h.Len() == 0 {
		return 0, false
	}
	return q.h[0].fireAt, true
}

// DrainDue removes and returns, in fire-time/insertion order, every entry
// whose fireAt is <= now. Entries are removed before this returns, matching
// the spec's requirement that due callbacks are dequeued before invocation
// so that callbacks scheduling further entries land in a later pass.
func (q *Queue[T]) DrainDue(now int64) []T {
	var due []T
	for q.h.Len() > 0 && q.h[0].fireAt <= now {
		e := heap.Pop(&q.h).(*entry[T])
		due = append(due, e.value)
	}
	return due
}

// Snapshot returns every queued value's fire time, for invariant checks
// (tests assert monotonic non-decreasing order head to tail once sorted by
// the same key the heap uses).
func (q *Queue[T]) Snapshot() []int64 {
	times := make([]int64, len(q.h))
	cp := append(entryHeap[T]{}, q.h...)
	for i := 0; cp.Len() > 0; i++ {
		e := heap.Pop(&cp).(*entry[T])
		times[i] = e.fireAt
	}
	return times
}
