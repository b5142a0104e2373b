// Package alarm tracks the actuator core's single alarm slot
// (SYSTEMALARMS_ALARM_ACTUATOR) and optionally drives a GPIO indicator line
// when that alarm is Critical.
package alarm

import "sync"

// Level mirrors the alarm severities the core cares about. Uninitialized and
// intermediate severities from the original alarm subsystem collapse to OK
// and Warning respectively; only OK/Warning/Critical are meaningful here.
type Level int

const (
	OK Level = iota
	Warning
	Critical
)

func (l Level) String() string {
	switch l {
	case OK:
		return "OK"
	case Warning:
		return "Warning"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// Indicator is an optional physical alarm output, e.g. an LED or buzzer GPIO
// line. Set(true) is driven whenever the tracked level is Critical.
type Indicator interface {
	Set(on bool) error
	Close() error
}

// Tracker holds the current actuator alarm level and drives an optional
// Indicator on every transition (spec.md §4.4 "alarm Critical" / §4.3 step 6
// "Clear the actuator alarm").
type Tracker struct {
	mu        sync.Mutex
	level     Level
	indicator Indicator
}

// New creates a Tracker starting at OK. indicator may be nil.
func New(indicator Indicator) *Tracker {
	return &Tracker{indicator: indicator}
}

// Set raises the alarm to level, driving the indicator if present.
func (t *Tracker) Set(level Level) {
	t.mu.Lock()
	t.level = level
	ind := t.indicator
	t.mu.Unlock()

	if ind != nil {
		_ = ind.Set(level == Critical)
	}
}

// Clear lowers the alarm to OK (spec.md §4.3 step 6, §4.4 step 8).
func (t *Tracker) Clear() {
	t.Set(OK)
}

// Snapshot returns the current level.
func (t *Tracker) Snapshot() Level {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// Close releases the indicator, if any.
func (t *Tracker) Close() error {
	t.mu.Lock()
	ind := t.indicator
	t.indicator = nil
	t.mu.Unlock()

	if ind != nil {
		return ind.Close()
	}
	return nil
}
