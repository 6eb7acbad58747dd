package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStubBrightnessRoundTrips(t *testing.T) {
	s := NewStub()
	assert.Equal(t, float32(1.0), s.GetDisplayBrightness())
	assert.NoError(t, s.SetDisplayBrightness(0.25))
	assert.Equal(t, float32(0.25), s.GetDisplayBrightness())
}

func TestStubInputSurfaceIsUnimplemented(t *testing.T) {
	s := NewStub()
	assert.ErrorIs(t, s.GrabInputs(), ErrNoNativeInputBackend)
	assert.ErrorIs(t, s.UngrabInputs(), ErrNoNativeInputBackend)
	assert.ErrorIs(t, s.BindHotkey("ctrl+alt+right", func() {}), ErrNoNativeInputBackend)
}

func TestStubModifiersDefaultEmpty(t *testing.T) {
	s := NewStub()
	assert.Empty(t, s.GetCurrentModifiers())
}
