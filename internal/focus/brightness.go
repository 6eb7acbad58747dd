package focus

import (
	"github.com/edceza/enthrall/internal/remote"
	"github.com/edceza/enthrall/internal/wireproto"
)

// HintType selects the visual focus-hint variant, spec §4.5.
type HintType uint8

const (
	HintNone HintType = iota
	HintDimInactive
	HintFlashActive
)

// HintConfig is the focus-hint configuration from spec §6's config file:
// "focus-hint config (type, brightness ∈ [0,1], duration μs, fade_steps)."
type HintConfig struct {
	Type           HintType
	Brightness     float32
	DurationMicros int64
	FadeSteps      int
}

// scheduleFade schedules FadeSteps scheduled events, evenly spaced over
// DurationMicros, linearly interpolating target's brightness from `from`
// to `to`. Each event sets brightness locally (target == nil, i.e. master)
// via the scheduler, or enqueues a scheduled SETBRIGHTNESS message on the
// given Remote -- exactly the dispatch spec §4.5 describes ("either calls
// the local gamma setter ... or enqueues a scheduled SETBRIGHTNESS message
// on the remote").
func (c *Controller) scheduleFade(target *remote.Remote, from, to float32, cfg HintConfig) {
	steps := cfg.FadeSteps
	if steps < 1 {
		steps = 1
	}
	now := c.scheduler.Clock().NowMicros()
	for i := 1; i <= steps; i++ {
		frac := float32(i) / float32(steps)
		value := from + (to-from)*frac
		at := now + cfg.DurationMicros*int64(i)/int64(steps)

		if target == nil {
			c.scheduler.ScheduleCall(func(arg any) {
				level := arg.(float32)
				_ = c.driver.SetDisplayBrightness(level)
			}, value, at)
		} else {
			target.ScheduleMessage(&wireproto.Message{Kind: wireproto.KindSetBrightness, Brightness: value}, at)
		}
	}
}

// indicateHint applies the spec's brightness-hint variants to the
// departing and arriving nodes of a switch (departing == arriving for a
// null/self switch). A nil *remote.Remote stands for MASTER.
func (c *Controller) indicateHint(departing, arriving *remote.Remote) {
	cfg := c.cfg.Hint
	switch cfg.Type {
	case HintNone:
		return
	case HintDimInactive:
		c.scheduleFade(departing, 1.0, cfg.Brightness, cfg)
		c.scheduleFade(arriving, cfg.Brightness, 1.0, cfg)
	case HintFlashActive:
		c.scheduleFade(arriving, cfg.Brightness, 1.0, cfg)
	}
}

// DimNewlyReadyRemote implements spec §4.3's "On READY received while
// SETTINGUP: ... if dim-inactive hint is configured, begin transition to
// inactive brightness" -- a newly-connected remote is assumed not focused,
// so it fades toward the configured inactive level exactly like a
// departing node would on a real switch.
func (c *Controller) DimNewlyReadyRemote(r *remote.Remote) {
	if c.cfg.Hint.Type != HintDimInactive {
		return
	}
	c.scheduleFade(r, 1.0, c.cfg.Hint.Brightness, c.cfg.Hint)
}
