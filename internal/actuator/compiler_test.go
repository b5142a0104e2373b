package actuator

import (
	"testing"

	"actuatorcore/internal/broker"
	"actuatorcore/internal/servo"
	"actuatorcore/internal/uavobjects"
)

type fakeDriver struct {
	setModeCalls int
	lastCfg      servo.BankConfig
	closed       bool
}

func (f *fakeDriver) SetMode(cfg servo.BankConfig) error {
	f.setModeCalls++
	f.lastCfg = cfg
	return nil
}
func (f *fakeDriver) Set(channel int, microseconds float64) error { return nil }
func (f *fakeDriver) Update() error                               { return nil }
func (f *fakeDriver) Close() error                                { f.closed = true; return nil }

func TestSettingsCache_RefreshReprogramsOnlyWhenActuatorSettingsDirty(t *testing.T) {
	b := broker.New() // all dirty flags start true
	driver := &fakeDriver{}
	var cache SettingsCache

	if err := cache.Refresh(b, driver); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if driver.setModeCalls != 1 {
		t.Fatalf("setModeCalls after first refresh = %d, want 1", driver.setModeCalls)
	}

	// Nothing dirty now: second refresh should not reprogram the driver.
	if err := cache.Refresh(b, driver); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if driver.setModeCalls != 1 {
		t.Fatalf("setModeCalls after second (clean) refresh = %d, want still 1", driver.setModeCalls)
	}

	// Dirtying only ActuatorSettings should reprogram again.
	b.SetActuatorSettings(uavobjects.ActuatorSettings{})
	if err := cache.Refresh(b, driver); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if driver.setModeCalls != 2 {
		t.Fatalf("setModeCalls after actuator-settings dirty = %d, want 2", driver.setModeCalls)
	}
}

func TestSettingsCache_RefreshRecompilesOnlyWhenMixerSettingsDirty(t *testing.T) {
	b := broker.New()
	driver := &fakeDriver{}
	var cache SettingsCache

	if err := cache.Refresh(b, driver); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	firstCompiled := cache.Compiled
	if firstCompiled == nil {
		t.Fatalf("Compiled is nil after first refresh")
	}

	if err := cache.Refresh(b, driver); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if cache.Compiled != firstCompiled {
		t.Fatalf("Compiled pointer changed on a clean refresh")
	}

	var mixerSettings uavobjects.MixerSettings
	mixerSettings.MixerType[0] = uavobjects.ChannelMotor
	b.SetMixerSettings(mixerSettings)
	if err := cache.Refresh(b, driver); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if cache.Compiled == firstCompiled {
		t.Fatalf("Compiled pointer unchanged after mixer settings dirty")
	}
	if cache.MixerSettings.MixerType[0] != uavobjects.ChannelMotor {
		t.Fatalf("cached MixerSettings not refreshed")
	}
}

func TestSettingsCache_ReprogramPWMIsUnconditional(t *testing.T) {
	b := broker.New()
	driver := &fakeDriver{}
	var cache SettingsCache

	if err := cache.Refresh(b, driver); err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	calls := driver.setModeCalls

	// Nothing dirty, but ReprogramPWM must still call SetMode again: a
	// second agent may have reconfigured hardware directly while the
	// interlock was stopped, without ever touching ActuatorSettings.
	if err := cache.ReprogramPWM(driver); err != nil {
		t.Fatalf("ReprogramPWM() error: %v", err)
	}
	if driver.setModeCalls != calls+1 {
		t.Fatalf("setModeCalls after ReprogramPWM = %d, want %d", driver.setModeCalls, calls+1)
	}
}

func TestSettingsCache_ReprogramPWMWithNilDriverNeverPanics(t *testing.T) {
	var cache SettingsCache
	if err := cache.ReprogramPWM(nil); err != nil {
		t.Fatalf("ReprogramPWM() with nil driver error: %v", err)
	}
}

func TestSettingsCache_RefreshWithNilDriverNeverPanics(t *testing.T) {
	b := broker.New()
	var cache SettingsCache

	if err := cache.Refresh(b, nil); err != nil {
		t.Fatalf("Refresh() with nil driver error: %v", err)
	}
	if cache.Compiled == nil {
		t.Fatalf("Compiled is nil after refresh with nil driver")
	}
}
