//go:build !linux || (!arm && !arm64)

package watchdog

import (
	"fmt"
	"sync"
	"time"
)

// softwareWatchdog tracks the last-kick time per registered flag in memory.
// It never actually resets anything; it exists so non-Linux builds and tests
// can exercise the actuator task's watchdog contract.
type softwareWatchdog struct {
	mu       sync.Mutex
	lastKick map[Flag]time.Time
}

// Open returns the in-memory stand-in watchdog.
func Open(path string) (Watchdog, error) {
	return &softwareWatchdog{lastKick: make(map[Flag]time.Time)}, nil
}

func (w *softwareWatchdog) RegisterFlag(f Flag) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastKick[f] = time.Now()
	return nil
}

func (w *softwareWatchdog) Kick(f Flag) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.lastKick[f]; !ok {
		return fmt.Errorf("watchdog: flag %d not registered", f)
	}
	w.lastKick[f] = time.Now()
	return nil
}

// LastKick reports when f was last kicked, for tests.
func (w *softwareWatchdog) LastKick(f Flag) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.lastKick[f]
	return t, ok
}

func (w *softwareWatchdog) Close() error { return nil }
