package wireproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []*Message{
		{Kind: KindReady},
		{Kind: KindSetup, ProtocolVersion: 3, Params: map[string]string{"alias": "office"}},
		{Kind: KindKeyEvent, KeyCode: 42, KeyAct: ActionPress},
		{Kind: KindMoveRel, DX: -5, DY: 12},
		{Kind: KindClickEvent, Button: 1, ClickAct: ActionRelease},
		{Kind: KindSetMousePosScreenRel, X: 1.0, Y: 0.25},
		{Kind: KindGetClipboard},
		{Kind: KindSetClipboard, Clipboard: []byte("hello")},
		{Kind: KindSetBrightness, Brightness: 0.3},
		{Kind: KindEdgeMaskChange, OldMask: 0, NewMask: 1 << DirRight, X: 0.9, Y: 0.5},
		{Kind: KindLogMsg, Log: "remote came up"},
	}

	for _, m := range cases {
		encoded, err := Encode(m)
		require.NoError(t, err)

		var f Framer
		f.Feed(encoded)
		decoded, ok, err := f.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, m.Kind, decoded.Kind)
		switch m.Kind {
		case KindSetup:
			assert.Equal(t, m.ProtocolVersion, decoded.ProtocolVersion)
			assert.Equal(t, m.Params, decoded.Params)
		case KindSetClipboard:
			assert.Equal(t, m.Clipboard, decoded.Clipboard)
		case KindLogMsg:
			assert.Equal(t, m.Log, decoded.Log)
		}
	}
}

func TestFramerIncompleteFrame(t *testing.T) {
	encoded, err := Encode(&Message{Kind: KindSetClipboard, Clipboard: []byte("world")})
	require.NoError(t, err)

	var f Framer
	f.Feed(encoded[:3])
	_, ok, err := f.Next()
	assert.NoError(t, err)
	assert.False(t, ok)

	f.Feed(encoded[3:])
	msg, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("world"), msg.Clipboard)
}

func TestFramerTwoMessagesInOneFeed(t *testing.T) {
	a, _ := Encode(&Message{Kind: KindReady})
	b, _ := Encode(&Message{Kind: KindGetClipboard})

	var f Framer
	f.Feed(append(append([]byte{}, a...), b...))

	m1, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindReady, m1.Kind)

	m2, ok, err := f.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindGetClipboard, m2.Kind)

	assert.False(t, f.Pending())
}

func TestValidateMaskRejectsInvalidBits(t *testing.T) {
	assert.NoError(t, ValidateMask(0))
	assert.NoError(t, ValidateMask(1<<DirLeft|1<<DirUp))
	assert.ErrorIs(t, ValidateMask(1<<4), ErrInvalidMask)
}

func TestFramerRejectsOversizedLength(t *testing.T) {
	var f Framer
	header := []byte{byte(KindReady), 0xFF, 0xFF, 0xFF, 0xFF}
	f.Feed(header)
	_, ok, err := f.Next()
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}
