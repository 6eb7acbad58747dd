package remote

import (
	"io"

	"github.com/edceza/enthrall/internal/msgchan"
)

// dialOutcome is what the background dial goroutine reports back to the
// brain loop via a buffered channel, never by touching Remote state
// directly: spec §4.1's single-threaded discipline means the blocking SSH
// handshake happens on a throwaway goroutine, and only this envelope
// crosses back for the loop to pick up on its next non-blocking poll.
type dialOutcome struct {
	handle io.Closer
	stream io.ReadWriteCloser
	err    error
}

// BeginSetup starts spec §4.3's setup(remote): moves the remote to
// SETTINGUP and kicks off the (blocking) transport dial on a background
// goroutine. Call PollSetup on subsequent loop ticks to learn the outcome.
func (r *Remote) BeginSetup(dialer Dialer) {
	r.mu.Lock()
	r.state = SettingUp
	out := make(chan dialOutcome, 1)
	r.dialResult = out
	cfg := r.Transport
	r.mu.Unlock()

	go func() {
		handle, stream, err := dialer.Dial(cfg)
		out <- dialOutcome{handle: handle, stream: stream, err: err}
	}()
}

// PollSetup is a non-blocking check for BeginSetup's outcome. It returns
// true once the dial has resolved (in either direction); the caller should
// inspect State() afterward. On success the remote remains SETTINGUP, now
// with a live Channel the loop polls for the peer's READY message (see
// OnReady); on failure it has already transitioned to Failed via fail().
func (r *Remote) PollSetup(now int64) bool {
	r.mu.Lock()
	ch := r.dialResult
	r.mu.Unlock()
	if ch == nil {
		return false
	}

	select {
	case outcome := <-ch:
		r.mu.Lock()
		r.dialResult = nil
		r.mu.Unlock()
		if outcome.err != nil {
			r.Fail(now, outcome.err)
			return true
		}
		r.mu.Lock()
		r.conn = outcome.handle
		r.channel = msgchan.New(outcome.stream, 0)
		r.mu.Unlock()
		return true
	default:
		return false
	}
}

// OnReady implements "On READY received while SETTINGUP: transition to
// CONNECTED" (spec §4.3). It is a no-op if the remote is not currently
// SETTINGUP: the caller passes every READY through, and a stray READY on an
// already-connected or failed remote is ignored here.
func (r *Remote) OnReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == SettingUp {
		r.state = Connected
	}
}

// Fail implements spec §4.3's fail(remote, reason): tear down the
// transport, drop scheduled messages, increment the failure counter, and
// schedule the next reconnect attempt per the capped-doubling backoff --
// or, once the counter exceeds MaxFailCount, move to PermFailed instead
// (spec: "after some maximum failure count, give up permanently").
func (r *Remote) Fail(now int64, reason error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closeTransportLocked()
	r.scheduledMsgs.DrainDue(maxInt64) // discard everything regardless of send-time
	r.lastFail = reason

	if r.state == PermFailed {
		return
	}

	delay := r.backoff.NextBackOff()
	if r.backoff.FailCount() > MaxFailCount {
		r.state = PermFailed
		return
	}
	r.state = Failed
	r.nextReconn = now + delay.Microseconds()
}

// Reconnect implements the RECONNECT action from spec §4.3: "clears
// PERMFAILED and failcount, immediately retries." Per spec §8's
// all-healthy scenario, this must not disturb a remote that is already
// live: only PERMFAILED is torn down and forced back into a fresh dial;
// FAILED just has its backoff deadline pulled to now; SETTINGUP/CONNECTED
// are left untouched (state, transport, and focus all unaffected).
func (r *Remote) Reconnect(now int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backoff.Reset()
	switch r.state {
	case PermFailed:
		r.closeTransportLocked()
		r.state = Failed
		r.nextReconn = now // due immediately
	case Failed:
		r.nextReconn = now // due immediately
	default: // SettingUp, Connected: already live, leave alone
	}
}

// ReadyToSetup reports whether a Failed remote's backoff deadline has
// elapsed and setup(remote) should be invoked again.
func (r *Remote) ReadyToSetup(now int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == Failed && now >= r.nextReconn
}

// closeTransportLocked tears down any live connection and channel. Caller
// must hold r.mu. Mirrors spec §9's design note that the transport must be
// killed unconditionally rather than given a chance to exit gracefully.
func (r *Remote) closeTransportLocked() {
	if r.channel != nil {
		_ = r.channel.Close()
		r.channel = nil
	}
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}

const maxInt64 = int64(^uint64(0) >> 1)
