//go:build linux && (arm || arm64)

package servo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"actuatorcore/internal/uavobjects"
)

// sysfsDriver drives NCHAN channels over /sys/class/pwm, one pwmchip per
// bank (spec.md §4.1 "PWM bank setup": NBANK banks, each with its own update
// frequency). Channel i is assumed to live on bank i % NBANK, a fixed
// convention rather than anything read back from hardware.
type sysfsDriver struct {
	chans [uavobjects.NCHAN]*sysfsChannel
	banks [uavobjects.NBANK]string // pwmchip path per bank
}

type sysfsChannel struct {
	pwmPath  string
	periodNS uint64
}

var pwmSysfsBase = "/sys/class/pwm"

// Open discovers up to NBANK pwmchips and exports one PWM line per channel.
func Open() (Driver, error) {
	chips, err := discoverChips(uavobjects.NBANK)
	if err != nil {
		return nil, err
	}

	d := &sysfsDriver{}
	copy(d.banks[:], chips)

	for ch := 0; ch < uavobjects.NCHAN; ch++ {
		bank := ch % uavobjects.NBANK
		chipPath := d.banks[bank]
		if chipPath == "" {
			return nil, fmt.Errorf("servo: no pwmchip available for bank %d", bank)
		}
		sc, err := exportChannel(chipPath, ch/uavobjects.NBANK)
		if err != nil {
			return nil, fmt.Errorf("servo: channel %d: %w", ch, err)
		}
		d.chans[ch] = sc
	}

	return d, nil
}

func discoverChips(want int) ([]string, error) {
	entries, err := os.ReadDir(pwmSysfsBase)
	if err != nil {
		return nil, fmt.Errorf("servo: read %s: %w", pwmSysfsBase, err)
	}

	var chips []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pwmchip") {
			chips = append(chips, filepath.Join(pwmSysfsBase, e.Name()))
		}
	}
	if len(chips) == 0 {
		return nil, fmt.Errorf("servo: no sysfs pwmchip found (is a pwm overlay enabled?)")
	}
	// Recycle chips round-robin if there are fewer than NBANK physical chips;
	// banks are a logical grouping, not a 1:1 hardware requirement.
	out := make([]string, want)
	for i := 0; i < want; i++ {
		out[i] = chips[i%len(chips)]
	}
	return out, nil
}

func exportChannel(chipPath string, offset int) (*sysfsChannel, error) {
	pwmPath := filepath.Join(chipPath, fmt.Sprintf("pwm%d", offset))
	if _, err := os.Stat(pwmPath); err != nil {
		if err := writeSysfs(filepath.Join(chipPath, "export"), strconv.Itoa(offset)); err != nil {
			if _, statErr := os.Stat(pwmPath); statErr != nil {
				return nil, fmt.Errorf("export pwm%d: %w", offset, err)
			}
		}
		deadline := time.Now().Add(500 * time.Millisecond)
		for time.Now().Before(deadline) {
			if _, err := os.Stat(pwmPath); err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	return &sysfsChannel{pwmPath: pwmPath}, nil
}

// SetMode reprograms each bank's period from TimerUpdateFreq (spec.md §4.1).
// ChannelMax/ChannelMin are accepted for interface symmetry with the driver
// contract but sysfs PWM has no native concept of servo end-points; the
// post-processor already clamps to them before calling Set.
func (d *sysfsDriver) SetMode(cfg BankConfig) error {
	for ch := 0; ch < uavobjects.NCHAN; ch++ {
		bank := ch % uavobjects.NBANK
		hz := cfg.TimerUpdateFreq[bank]
		if hz <= 0 {
			continue
		}
		periodNS := uint64(1_000_000_000 / hz)
		sc := d.chans[ch]
		if sc == nil {
			continue
		}
		if err := writeSysfs(filepath.Join(sc.pwmPath, "enable"), "0"); err != nil {
			return err
		}
		if err := writeSysfs(filepath.Join(sc.pwmPath, "period"), strconv.FormatUint(periodNS, 10)); err != nil {
			return err
		}
		sc.periodNS = periodNS
		if err := writeSysfs(filepath.Join(sc.pwmPath, "enable"), "1"); err != nil {
			return err
		}
	}
	return nil
}

// Set programs channel's duty cycle from a pulse width in microseconds. The
// write is staged but not guaranteed visible until Update.
func (d *sysfsDriver) Set(channel int, microseconds float64) error {
	if channel < 0 || channel >= uavobjects.NCHAN {
		return fmt.Errorf("servo: channel %d out of range", channel)
	}
	sc := d.chans[channel]
	if sc == nil {
		return fmt.Errorf("servo: channel %d not configured", channel)
	}
	if sc.periodNS == 0 {
		return fmt.Errorf("servo: channel %d period not set, call SetMode first", channel)
	}

	dutyNS := uint64(microseconds * 1000)
	if dutyNS > sc.periodNS {
		dutyNS = sc.periodNS
	}
	return writeSysfs(filepath.Join(sc.pwmPath, "duty_cycle"), strconv.FormatUint(dutyNS, 10))
}

// Update is a no-op: each sysfs duty_cycle write is already atomic per
// channel at the kernel level, so there is nothing to batch-commit.
func (d *sysfsDriver) Update() error { return nil }

func (d *sysfsDriver) Close() error {
	var firstErr error
	for _, sc := range d.chans {
		if sc == nil {
			continue
		}
		if err := writeSysfs(filepath.Join(sc.pwmPath, "enable"), "0"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeSysfs(path string, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	var lastErr error
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			lastErr = err
			if time.Now().Before(deadline) && isRetryableSysfsErr(err) {
				time.Sleep(25 * time.Millisecond)
				continue
			}
			return err
		}
		_, werr := f.WriteString(value)
		cerr := f.Close()
		if werr == nil && cerr == nil {
			return nil
		}
		if werr != nil {
			lastErr = werr
		} else {
			lastErr = cerr
		}
		if time.Now().Before(deadline) && isRetryableSysfsErr(lastErr) {
			time.Sleep(25 * time.Millisecond)
			continue
		}
		if werr != nil && cerr != nil {
			return errors.Join(werr, cerr)
		}
		if werr != nil {
			return werr
		}
		return cerr
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) || errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}
