package focus

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edceza/enthrall/internal/platform"
	"github.com/edceza/enthrall/internal/remote"
	"github.com/edceza/enthrall/internal/sched"
)

type pipeHandle struct{ conn net.Conn }

func (h *pipeHandle) Close() error { return h.conn.Close() }

type pipeDialer struct{}

func (pipeDialer) Dial(cfg remote.TransportConfig) (io.Closer, io.ReadWriteCloser, error) {
	client, server := net.Pipe()
	go io.Copy(io.Discard, server)
	return &pipeHandle{conn: client}, client, nil
}

// connectedRemote returns a Remote driven all the way to CONNECTED through
// its real lifecycle (dial over a net.Pipe, then the READY transition),
// exercising the same path production code does rather than poking at
// unexported state.
func connectedRemote(t *testing.T, alias string) *remote.Remote {
	t.Helper()
	r := remote.NewRemote(alias, alias+".example", nil, remote.TransportConfig{})
	r.BeginSetup(pipeDialer{})
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if r.PollSetup(0) {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, remote.SettingUp, r.State())
	r.OnReady()
	require.Equal(t, remote.Connected, r.State())
	return r
}

func newTestController(cfg Config) (*Controller, *remote.Registry, *platform.Fake) {
	fake := platform.NewFake()
	registry := remote.NewRegistry()
	scheduler := sched.New(sched.NewClock(clockwork.NewFakeClock()))
	c := New(cfg, fake, registry, scheduler, zerolog.Nop())
	return c, registry, fake
}

func TestFocusNodeSwitchesMasterToRemote(t *testing.T) {
	c, registry, fake := newTestController(Config{Hint: HintConfig{Type: HintNone}})
	r := connectedRemote(t, "alpha")
	require.NoError(t, registry.Add(r))
	fake.MouseX, fake.MouseY = 0.3, 0.4

	did := c.FocusNode(remote.RemoteRef("alpha"), nil, true)
	assert.True(t, did)
	assert.Equal(t, remote.RemoteRef("alpha"), c.Focused())
	assert.True(t, fake.Grabbed)
}

func TestFocusNodeRestoresSavedMasterPosition(t *testing.T) {
	c, registry, fake := newTestController(Config{})
	r := connectedRemote(t, "beta")
	require.NoError(t, registry.Add(r))
	fake.MouseX, fake.MouseY = 0.7, 0.9

	require.True(t, c.FocusNode(remote.RemoteRef("beta"), nil, true))
	require.True(t, c.FocusNode(remote.Master(), nil, true))

	assert.False(t, fake.Grabbed)
	assert.Equal(t, float32(0.7), fake.MouseX)
	assert.Equal(t, float32(0.9), fake.MouseY)
}

func TestFocusNodeRejectsDisconnectedRemote(t *testing.T) {
	c, registry, _ := newTestController(Config{})
	r := remote.NewRemote("gamma", "gamma.example", nil, remote.TransportConfig{})
	require.NoError(t, registry.Add(r))

	did := c.FocusNode(remote.RemoteRef("gamma"), nil, true)
	assert.False(t, did)
	assert.Equal(t, remote.Master(), c.Focused())
}

func TestFocusNodeNullSwitchIsNoOp(t *testing.T) {
	c, _, _ := newTestController(Config{})
	did := c.FocusNode(remote.Master(), nil, true)
	assert.False(t, did)
}

func TestModifierAndClipboardTransferOnSwitch(t *testing.T) {
	c, registry, fake := newTestController(Config{})
	r := connectedRemote(t, "delta")
	fake.Clipboard = "hello"
	require.NoError(t, registry.Add(r))

	require.True(t, c.FocusNode(remote.RemoteRef("delta"), []uint32{42}, true))

	due, err := r.DrainDueMessages(0)
	require.NoError(t, err)

	var sawPress, sawClipboard bool
	for _, m := range due {
		if m.Kind.String() == "KEYEVENT" && m.KeyCode == 42 {
			sawPress = true
		}
		if m.Kind.String() == "SETCLIPBOARD" && string(m.Clipboard) == "hello" {
			sawClipboard = true
		}
	}
	assert.True(t, sawPress)
	assert.True(t, sawClipboard)
}

func TestOnClipboardReceivedUpdatesLocalUnconditionally(t *testing.T) {
	c, _, fake := newTestController(Config{})
	c.OnClipboardReceived([]byte("world"))
	assert.Equal(t, "world", fake.Clipboard)
}

func TestOnClipboardReceivedForwardsToFocusedRemote(t *testing.T) {
	c, registry, _ := newTestController(Config{})
	r := connectedRemote(t, "epsilon")
	require.NoError(t, registry.Add(r))
	require.True(t, c.FocusNode(remote.RemoteRef("epsilon"), nil, true))
	_, _ = r.DrainDueMessages(0) // drain the switch's own clipboard/transfer messages

	c.OnClipboardReceived([]byte("world"))

	due, err := r.DrainDueMessages(0)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "world", string(due[0].Clipboard))
}
