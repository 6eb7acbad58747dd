package remote

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edceza/enthrall/internal/wireproto"
)

// fakeDialer hands back one end of a net.Pipe, letting tests drive the
// Message Channel without a real SSH dial.
type fakeDialer struct {
	err error
}

type pipeHandle struct{ conn net.Conn }

func (h *pipeHandle) Close() error { return h.conn.Close() }

func (d *fakeDialer) Dial(cfg TransportConfig) (io.Closer, io.ReadWriteCloser, error) {
	if d.err != nil {
		return nil, nil, d.err
	}
	client, server := net.Pipe()
	go io.Copy(io.Discard, server) // drain so client writes never block
	return &pipeHandle{conn: client}, client, nil
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Fail(t, "condition never became true")
}

func TestSetupSucceedsAndReady(t *testing.T) {
	r := NewRemote("alpha", "alpha.example", nil, TransportConfig{Host: "alpha.example"})
	r.BeginSetup(&fakeDialer{})

	waitUntil(t, time.Second, func() bool { return r.PollSetup(0) })
	assert.Equal(t, SettingUp, r.State())
	assert.NotNil(t, r.Channel())

	r.OnReady()
	assert.Equal(t, Connected, r.State())
}

func TestSetupFailureSchedulesReconnect(t *testing.T) {
	r := NewRemote("beta", "beta.example", nil, TransportConfig{})
	r.BeginSetup(&fakeDialer{err: errors.New("dial refused")})

	waitUntil(t, time.Second, func() bool { return r.PollSetup(1_000_000) })
	assert.Equal(t, Failed, r.State())
	assert.Equal(t, 1, r.FailCount())
	assert.Equal(t, int64(1_000_000)+500_000, r.NextReconnectMicros())
	assert.ErrorContains(t, r.LastFailReason(), "dial refused")
}

func TestRepeatedFailuresEventuallyPermFail(t *testing.T) {
	r := NewRemote("gamma", "gamma.example", nil, TransportConfig{})
	for i := 0; i < MaxFailCount+1; i++ {
		r.Fail(int64(i), errors.New("boom"))
	}
	assert.Equal(t, PermFailed, r.State())
}

func TestReconnectClearsPermFailedAndBackoff(t *testing.T) {
	r := NewRemote("delta", "delta.example", nil, TransportConfig{})
	for i := 0; i < MaxFailCount+1; i++ {
		r.Fail(int64(i), errors.New("boom"))
	}
	require.Equal(t, PermFailed, r.State())

	r.Reconnect(500)
	assert.Equal(t, Failed, r.State())
	assert.Equal(t, 0, r.FailCount())
	assert.True(t, r.ReadyToSetup(500))
}

func TestReconnectLeavesConnectedRemoteUntouched(t *testing.T) {
	r := NewRemote("zeta", "zeta.example", nil, TransportConfig{})
	r.BeginSetup(&fakeDialer{})
	waitUntil(t, time.Second, func() bool { return r.PollSetup(0) })
	require.Equal(t, SettingUp, r.State())
	r.OnReady()
	require.Equal(t, Connected, r.State())
	chBefore := r.Channel()

	r.Reconnect(1000)

	assert.Equal(t, Connected, r.State())
	assert.Same(t, chBefore, r.Channel())
}

func TestScheduleAndDrainDueMessages(t *testing.T) {
	r := NewRemote("epsilon", "epsilon.example", nil, TransportConfig{})
	r.BeginSetup(&fakeDialer{})
	waitUntil(t, time.Second, func() bool { return r.PollSetup(0) })

	msg := &wireproto.Message{Kind: wireproto.KindReady}
	r.ScheduleMessage(msg, 100)

	due, err := r.DrainDueMessages(50)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = r.DrainDueMessages(100)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.True(t, r.Channel().HasOutbound())
}

func TestFailDropsScheduledMessages(t *testing.T) {
	r := NewRemote("zeta", "zeta.example", nil, TransportConfig{})
	r.ScheduleMessage(&wireproto.Message{Kind: wireproto.KindReady}, 10)
	r.Fail(0, errors.New("boom"))

	_, ok := r.NextScheduledMessageMicros()
	assert.False(t, ok)
}
