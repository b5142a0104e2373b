package actuator

import (
	"actuatorcore/internal/broker"
	"actuatorcore/internal/mixer"
	"actuatorcore/internal/servo"
	"actuatorcore/internal/uavobjects"
)

// SettingsCache owns the compiled mixer and the settings snapshots it was
// built from (spec.md §4.1 "Settings Cache & Mixer Compiler"). It is
// task-owned state: only Refresh, called from the task loop, mutates it.
type SettingsCache struct {
	ActuatorSettings uavobjects.ActuatorSettings
	MixerSettings    uavobjects.MixerSettings
	SystemSettings   uavobjects.SystemSettings
	Compiled         *mixer.Compiled
}

// Refresh polls the broker's dirty flags and rebuilds whatever changed,
// reprogramming the PWM driver's bank modes whenever actuator settings
// change (spec.md §4.1 "PWM bank setup"). It is always safe to call every
// tick; a tick with nothing dirty is a no-op.
func (c *SettingsCache) Refresh(b *broker.Broker, driver servo.Driver) error {
	if b.ActuatorSettingsDirty() {
		c.ActuatorSettings = b.ActuatorSettings()
		if driver != nil {
			if err := driver.SetMode(servo.BankConfig{
				TimerUpdateFreq: c.ActuatorSettings.TimerUpdateFreq,
				ChannelMax:      c.ActuatorSettings.ChannelMax,
				ChannelMin:      c.ActuatorSettings.ChannelMin,
			}); err != nil {
				return err
			}
		}
	}

	if b.MixerSettingsDirty() {
		c.MixerSettings = b.MixerSettings()
		c.SystemSettings = b.SystemSettings()
		c.Compiled = mixer.Compile(c.MixerSettings)
	}

	if c.Compiled == nil {
		// First tick before any MixerSettings has ever arrived: compile an
		// all-Disabled matrix rather than leaving it nil, matching
		// "the loop proceeds with the previous cache" (spec.md §4.1
		// "Failure") degraded to "there is no previous cache yet."
		c.Compiled = mixer.Compile(c.MixerSettings)
	}

	return nil
}

// ReprogramPWM re-asserts the cached ActuatorSettings onto driver
// unconditionally, independent of the ActuatorSettings dirty flag
// (spec.md §4.4 step 6: "on exit, re-program PWM"). A second agent may
// have driven the hardware directly while the interlock held the loop
// stopped without ever touching ActuatorSettings itself, so the dirty-flag
// gate in Refresh is not enough here; the core must reclaim the bank
// config every time the interlock releases.
func (c *SettingsCache) ReprogramPWM(driver servo.Driver) error {
	if driver == nil {
		return nil
	}
	return driver.SetMode(servo.BankConfig{
		TimerUpdateFreq: c.ActuatorSettings.TimerUpdateFreq,
		ChannelMax:      c.ActuatorSettings.ChannelMax,
		ChannelMin:      c.ActuatorSettings.ChannelMin,
	})
}
