//go:build linux && (arm || arm64)

package watchdog

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// WDIOC ioctl numbers from linux/watchdog.h.
const (
	wdiocKeepalive  = 0x80045705
	wdiocSetTimeout = 0xc0045706
)

// hardwareWatchdog kicks /dev/watchdog via the standard WDIOC_KEEPALIVE
// ioctl. Only one flag is meaningful since the actuator core registers a
// single ACTUATOR slot, but the registry is kept generic like the stub so
// both backends present the same contract.
type hardwareWatchdog struct {
	f *os.File

	mu         sync.Mutex
	registered map[Flag]bool
}

// Open opens the watchdog character device at path (typically
// "/dev/watchdog") and sets its timeout, matching spec.md §4.4's "register
// the watchdog slot" start-up step.
func Open(path string) (Watchdog, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("watchdog: open %s: %w", path, err)
	}

	w := &hardwareWatchdog{f: f, registered: make(map[Flag]bool)}

	timeout := 1 // seconds; comfortably above the 100ms failsafe timeout
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), wdiocSetTimeout, uintptr(unsafe.Pointer(&timeout))); errno != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("watchdog: set timeout: %w", errno)
	}

	return w, nil
}

func (w *hardwareWatchdog) RegisterFlag(f Flag) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.registered[f] = true
	return nil
}

func (w *hardwareWatchdog) Kick(f Flag) error {
	w.mu.Lock()
	ok := w.registered[f]
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("watchdog: flag %d not registered", f)
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, w.f.Fd(), wdiocKeepalive, 0); errno != 0 {
		return fmt.Errorf("watchdog: keepalive: %w", errno)
	}
	return nil
}

func (w *hardwareWatchdog) Close() error {
	// Writing "V" before close requests a graceful disarm on most drivers
	// instead of resetting the machine when the fd goes away.
	_, _ = w.f.WriteString("V")
	return w.f.Close()
}
