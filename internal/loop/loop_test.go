package loop

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edceza/enthrall/internal/config"
	"github.com/edceza/enthrall/internal/edgedet"
	"github.com/edceza/enthrall/internal/focus"
	"github.com/edceza/enthrall/internal/platform"
	"github.com/edceza/enthrall/internal/remote"
	"github.com/edceza/enthrall/internal/topo"
	"github.com/edceza/enthrall/internal/wireproto"
)

type pipeHandle struct{ conn net.Conn }

func (h *pipeHandle) Close() error { return h.conn.Close() }

// readyDialer simulates a remote peer that immediately sends READY and
// then goes quiet, the way a real remote-side binary does once its own
// setup completes.
type readyDialer struct{}

func (readyDialer) Dial(cfg remote.TransportConfig) (io.Closer, io.ReadWriteCloser, error) {
	client, server := net.Pipe()
	go func() {
		encoded, _ := wireproto.Encode(&wireproto.Message{Kind: wireproto.KindReady})
		_, _ = server.Write(encoded)
		_, _ = io.Copy(io.Discard, server)
	}()
	return &pipeHandle{conn: client}, client, nil
}

func buildTopology(t *testing.T) *topo.Topology {
	t.Helper()
	doc := &config.Document{
		Master: config.NodeEntry{Neighbors: config.NeighborNames{Right: "alpha"}},
		Remotes: []config.NodeEntry{
			{Alias: "alpha", Hostname: "alpha.example", Neighbors: config.NeighborNames{Left: "master"}},
		},
	}
	top, err := topo.Resolve(doc)
	require.NoError(t, err)
	return top
}

func TestLoopDialsAndTransitionsRemoteToConnected(t *testing.T) {
	top := buildTopology(t)
	driver := platform.NewFake()
	l := New(top, driver, readyDialer{}, edgedet.Config{N: 2, WindowMicros: int64(500 * time.Millisecond / time.Microsecond)}, focus.Config{}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	r, ok := top.Registry.Lookup("alpha")
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return r.State() == remote.Connected
	}, 2*time.Second, 2*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestLoopHotkeySwitchToAndQuit(t *testing.T) {
	top := buildTopology(t)
	driver := platform.NewFake()
	l := New(top, driver, readyDialer{}, edgedet.Config{N: 2, WindowMicros: int64(500 * time.Millisecond / time.Microsecond)}, focus.Config{}, zerolog.Nop())
	require.NoError(t, l.BindHotkeys([]config.HotkeyEntry{
		{Combo: "ctrl+alt+right", Action: "switchto", Target: "alpha"},
		{Combo: "ctrl+alt+q", Action: "quit"},
	}))

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	r, ok := top.Registry.Lookup("alpha")
	require.True(t, ok)
	require.Eventually(t, func() bool {
		return r.State() == remote.Connected
	}, 2*time.Second, 2*time.Millisecond)

	assert.True(t, driver.Fire("ctrl+alt+right"))
	require.Eventually(t, func() bool {
		return l.focus.Focused() == remote.RemoteRef("alpha")
	}, time.Second, 2*time.Millisecond)

	assert.True(t, driver.Fire("ctrl+alt+q"))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after quit hotkey")
	}
}
