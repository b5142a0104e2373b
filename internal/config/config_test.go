package config

import (
	"os"
	"path/filepath"
	"testing"

	"actuatorcore/internal/uavobjects"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "actuator: {}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Actuator.MotorInputOutputCurveFit != 1.0 {
		t.Fatalf("MotorInputOutputCurveFit=%v want 1.0", cfg.Actuator.MotorInputOutputCurveFit)
	}
	for i, hz := range cfg.Actuator.TimerUpdateFreq {
		if hz != 400 {
			t.Fatalf("TimerUpdateFreq[%d]=%v want 400", i, hz)
		}
	}
	if cfg.Watchdog.Device != "/dev/watchdog" {
		t.Fatalf("Watchdog.Device=%q want /dev/watchdog", cfg.Watchdog.Device)
	}
}

func TestLoad_RejectsUnknownChannelType(t *testing.T) {
	path := writeTempConfig(t, "mixer:\n  channels:\n    - type: quadcopter\n")
	_, err := Load(path)
	requireErrEq(t, err, `mixer.channels[0].type "quadcopter" is not a recognized channel type`)
}

func TestLoad_RejectsUnknownAirframe(t *testing.T) {
	path := writeTempConfig(t, "system:\n  airframe_type: spaceship\n")
	_, err := Load(path)
	requireErrEq(t, err, `system.airframe_type "spaceship" is not a recognized airframe`)
}

func TestLoad_RecorderRequiresPath(t *testing.T) {
	path := writeTempConfig(t, "recorder:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "recorder.path is required when recorder.enable is true")
}

func TestLoad_ConsoleRequiresDevice(t *testing.T) {
	path := writeTempConfig(t, "console:\n  enable: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "console.device is required when console.enable is true")
}

func TestLoad_ConsoleDefaultsBaudRate(t *testing.T) {
	path := writeTempConfig(t, "console:\n  enable: true\n  device: /dev/ttyUSB0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Console.BaudRate != 57600 {
		t.Fatalf("BaudRate=%d want 57600", cfg.Console.BaudRate)
	}
}

func TestLoad_MixerAndActuatorRoundTrip(t *testing.T) {
	path := writeTempConfig(t, `
actuator:
  channel_min: [1000, 1000, 1000, 1000, 0, 0, 0, 0, 0, 0]
  channel_max: [2000, 2000, 2000, 2000, 0, 0, 0, 0, 0, 0]
  channel_neutral: [1500, 1500, 1500, 1500, 0, 0, 0, 0, 0, 0]
  motors_spin_while_armed: true
mixer:
  channels:
    - type: motor
      vector: [128, 0, 128, 128, 128, 0, 0, 0]
    - type: motor
      vector: [128, 0, -128, -128, 128, 0, 0, 0]
  throttle_curve1: [0, 0.25, 0.5, 0.75, 1.0]
  curve2_source: collective
system:
  airframe_type: multirotor
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	settings := cfg.Mixer.ToSettings()
	if settings.MixerType[0] != uavobjects.ChannelMotor {
		t.Fatalf("MixerType[0]=%v want Motor", settings.MixerType[0])
	}
	if settings.Curve2Source != uavobjects.Curve2SourceCollective {
		t.Fatalf("Curve2Source=%v want Collective", settings.Curve2Source)
	}
	if cfg.AirframeType() != uavobjects.AirframeMultiRotor {
		t.Fatalf("AirframeType=%v want MultiRotor", cfg.AirframeType())
	}
	if !cfg.Actuator.ToSettings().MotorsSpinWhileArmed {
		t.Fatalf("MotorsSpinWhileArmed not round-tripped")
	}
}
