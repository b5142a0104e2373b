// Package servo drives the physical PWM outputs the actuator core commits to
// each tick: one of NCHAN channels, grouped into NBANK timer banks that each
// carry a single update frequency.
package servo

import "actuatorcore/internal/uavobjects"

// BankConfig is the per-bank update-frequency and per-channel min/max the
// driver needs to decide output range and idle behavior (spec.md §4.1 "PWM
// bank setup").
type BankConfig struct {
	TimerUpdateFreq [uavobjects.NBANK]int32
	ChannelMax      [uavobjects.NCHAN]int32
	ChannelMin      [uavobjects.NCHAN]int32
}

// Driver is the minimal interface the actuator core needs from a servo/PWM
// backend: mode-configure on settings change, set one channel's pulse width,
// and latch all channels together.
//
// Implementations are called only from the actuator task; they must not
// block beyond what a single tick can tolerate.
type Driver interface {
	SetMode(cfg BankConfig) error
	Set(channel int, microseconds float64) error
	Update() error
	Close() error
}
