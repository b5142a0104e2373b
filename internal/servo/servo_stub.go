//go:build !linux || (!arm && !arm64)

package servo

import (
	"fmt"

	"actuatorcore/internal/uavobjects"
)

// stubDriver is used on platforms without the Linux sysfs PWM subsystem. It
// accepts every call and records the last commanded value per channel so
// tests and non-hardware builds can still drive the actuator task.
type stubDriver struct {
	last [uavobjects.NCHAN]float64
}

// Open returns a software stand-in backend. Always succeeds.
func Open() (Driver, error) {
	return &stubDriver{}, nil
}

func (s *stubDriver) SetMode(cfg BankConfig) error { return nil }

func (s *stubDriver) Set(channel int, microseconds float64) error {
	if channel < 0 || channel >= len(s.last) {
		return fmt.Errorf("servo: channel %d out of range", channel)
	}
	s.last[channel] = microseconds
	return nil
}

func (s *stubDriver) Update() error { return nil }

func (s *stubDriver) Close() error { return nil }
