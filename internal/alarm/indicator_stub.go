//go:build !linux || (!arm && !arm64)

package alarm

import "fmt"

// OpenGPIOIndicator returns an error on platforms without the Linux GPIO
// character device; callers should treat a nil Indicator as "none" and keep
// running without one (spec.md has no hard requirement on a physical alarm
// output).
func OpenGPIOIndicator(lineName string) (Indicator, error) {
	return nil, fmt.Errorf("alarm: gpio indicator unsupported on this platform")
}
