package remote

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// cappedDoublingBackOff implements cenkalti/backoff.BackOff with the exact
// policy spec.md §4.3 mandates: next_reconnect_time = now +
// min(2^(failcount-1), 60) × 0.5s, i.e. doubling delay starting at 0.5s and
// saturating at 30s. The library's BackOff interface is reused so reconnect
// scheduling composes the way the rest of the pack uses the library, but
// the policy itself is this spec's formula rather than backoff's default
// exponential-with-jitter/max-elapsed-time policy (which has no notion of
// "saturate then repeat forever" — this remote must keep retrying at the
// 30s ceiling indefinitely until PermFailed, not give up after a max
// elapsed time).
type cappedDoublingBackOff struct {
	failCount int
}

var _ backoff.BackOff = (*cappedDoublingBackOff)(nil)

// NextBackOff advances the failure counter and returns the delay before the
// next reconnect attempt.
func (b *cappedDoublingBackOff) NextBackOff() time.Duration {
	b.failCount++
	return delayForFailCount(b.failCount)
}

// Reset clears the failure counter, as RECONNECT does for every remote
// (spec §4.3).
func (b *cappedDoublingBackOff) Reset() {
	b.failCount = 0
}

// FailCount reports the current failure counter without advancing it.
func (b *cappedDoublingBackOff) FailCount() int {
	return b.failCount
}

func delayForFailCount(failCount int) time.Duration {
	if failCount < 1 {
		return 0
	}
	shift := failCount - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	steps := int64(1) << uint(shift)
	if steps > 60 {
		steps = 60
	}
	return time.Duration(steps) * 500 * time.Millisecond
}
