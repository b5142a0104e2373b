// Package config loads actuatorcore's YAML configuration: channel
// calibration and mixer geometry (ActuatorSettings/MixerSettings), the
// airframe tag (SystemSettings), and the optional console/recorder/alarm
// sub-configs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"actuatorcore/internal/uavobjects"
)

// Config is the top-level document.
type Config struct {
	Actuator ActuatorConfig `yaml:"actuator"`
	Mixer    MixerConfig    `yaml:"mixer"`
	System   SystemConfig   `yaml:"system"`
	Console  ConsoleConfig  `yaml:"console"`
	Recorder RecorderConfig `yaml:"recorder"`
	Alarm    AlarmConfig    `yaml:"alarm"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

// ActuatorConfig mirrors uavobjects.ActuatorSettings.
type ActuatorConfig struct {
	ChannelMin     [uavobjects.NCHAN]int32 `yaml:"channel_min"`
	ChannelMax     [uavobjects.NCHAN]int32 `yaml:"channel_max"`
	ChannelNeutral [uavobjects.NCHAN]int32 `yaml:"channel_neutral"`

	TimerUpdateFreq [uavobjects.NBANK]int32 `yaml:"timer_update_freq"`

	MotorsSpinWhileArmed bool `yaml:"motors_spin_while_armed"`

	LowPowerStabilizationMaxTimeS    int32   `yaml:"low_power_stabilization_max_time_s"`
	LowPowerStabilizationMaxPowerAdd float64 `yaml:"low_power_stabilization_max_power_add"`
	MotorInputOutputCurveFit         float64 `yaml:"motor_input_output_curve_fit"`
}

// ToSettings converts the YAML shape into uavobjects.ActuatorSettings.
func (a ActuatorConfig) ToSettings() uavobjects.ActuatorSettings {
	return uavobjects.ActuatorSettings{
		ChannelMin:                       a.ChannelMin,
		ChannelMax:                       a.ChannelMax,
		ChannelNeutral:                   a.ChannelNeutral,
		TimerUpdateFreq:                  a.TimerUpdateFreq,
		MotorsSpinWhileArmed:             a.MotorsSpinWhileArmed,
		LowPowerStabilizationMaxTime:     a.LowPowerStabilizationMaxTimeS,
		LowPowerStabilizationMaxPowerAdd: a.LowPowerStabilizationMaxPowerAdd,
		MotorInputOutputCurveFit:         a.MotorInputOutputCurveFit,
	}
}

// MixerChannelConfig is one row of the mixer: a type tag plus its NAXIS-wide
// coefficient row, expressed in the same int16-scaled-by-128 units as the
// wire format (spec.md §3).
type MixerChannelConfig struct {
	Type   string                  `yaml:"type"`
	Vector [uavobjects.NAXIS]int16 `yaml:"vector"`
}

// MixerConfig mirrors uavobjects.MixerSettings. Channels may list fewer than
// NCHAN rows; the unlisted channels stay Disabled.
type MixerConfig struct {
	Channels       []MixerChannelConfig `yaml:"channels"`
	ThrottleCurve1 []float64            `yaml:"throttle_curve1"`
	ThrottleCurve2 []float64            `yaml:"throttle_curve2"`
	Curve2Source   string               `yaml:"curve2_source"`
}

var channelTypeNames = map[string]uavobjects.ChannelType{
	"disabled":     uavobjects.ChannelDisabled,
	"motor":        uavobjects.ChannelMotor,
	"servo":        uavobjects.ChannelServo,
	"camera_pitch": uavobjects.ChannelCameraPitch,
	"camera_roll":  uavobjects.ChannelCameraRoll,
	"camera_yaw":   uavobjects.ChannelCameraYaw,
}

var curve2SourceNames = map[string]uavobjects.Curve2Source{
	"throttle":   uavobjects.Curve2SourceThrottle,
	"roll":       uavobjects.Curve2SourceRoll,
	"pitch":      uavobjects.Curve2SourcePitch,
	"yaw":        uavobjects.Curve2SourceYaw,
	"collective": uavobjects.Curve2SourceCollective,
	"accessory0": uavobjects.Curve2SourceAccessory0,
	"accessory1": uavobjects.Curve2SourceAccessory1,
	"accessory2": uavobjects.Curve2SourceAccessory2,
}

var airframeTypeNames = map[string]uavobjects.AirframeType{
	"generic":    uavobjects.AirframeGeneric,
	"multirotor": uavobjects.AirframeMultiRotor,
	"fixed_wing": uavobjects.AirframeFixedWing,
	"helicp":     uavobjects.AirframeHeliCP,
	"vtol":       uavobjects.AirframeVTOL,
}

// ToSettings converts the YAML shape into uavobjects.MixerSettings. Unknown
// channel type or curve2_source names are left at their zero value; Load
// validates them before returning.
func (m MixerConfig) ToSettings() uavobjects.MixerSettings {
	var out uavobjects.MixerSettings
	for i, ch := range m.Channels {
		if i >= uavobjects.NCHAN {
			break
		}
		out.MixerType[i] = channelTypeNames[ch.Type]
		out.MixerVector[i] = ch.Vector
	}
	out.ThrottleCurve1 = m.ThrottleCurve1
	out.ThrottleCurve2 = m.ThrottleCurve2
	out.Curve2Source = curve2SourceNames[m.Curve2Source]
	return out
}

// SystemConfig mirrors uavobjects.SystemSettings.
type SystemConfig struct {
	AirframeType string `yaml:"airframe_type"`
}

// ConsoleConfig configures the optional serial operator console.
type ConsoleConfig struct {
	Enable   bool   `yaml:"enable"`
	Device   string `yaml:"device"`
	BaudRate int    `yaml:"baud_rate"`
}

// RecorderConfig configures the optional SQLite black-box recorder.
type RecorderConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// AlarmConfig configures the optional GPIO alarm indicator.
type AlarmConfig struct {
	GPIOLine string `yaml:"gpio_line"`
}

// WatchdogConfig configures the hardware watchdog device path.
type WatchdogConfig struct {
	Device string `yaml:"device"`
}

// Load reads, unmarshals, validates, and defaults the configuration at path.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if err := validateChannelTypes(cfg.Mixer); err != nil {
		return Config{}, err
	}

	if cfg.Mixer.Curve2Source != "" {
		if _, ok := curve2SourceNames[cfg.Mixer.Curve2Source]; !ok {
			return Config{}, fmt.Errorf("mixer.curve2_source %q is not a recognized source", cfg.Mixer.Curve2Source)
		}
	}

	if cfg.System.AirframeType != "" {
		if _, ok := airframeTypeNames[cfg.System.AirframeType]; !ok {
			return Config{}, fmt.Errorf("system.airframe_type %q is not a recognized airframe", cfg.System.AirframeType)
		}
	}

	if cfg.Actuator.MotorInputOutputCurveFit <= 0 {
		cfg.Actuator.MotorInputOutputCurveFit = 1.0
	}
	for b := range cfg.Actuator.TimerUpdateFreq {
		if cfg.Actuator.TimerUpdateFreq[b] <= 0 {
			cfg.Actuator.TimerUpdateFreq[b] = 400
		}
	}

	if cfg.Recorder.Enable && cfg.Recorder.Path == "" {
		return Config{}, fmt.Errorf("recorder.path is required when recorder.enable is true")
	}

	if cfg.Console.Enable {
		if cfg.Console.Device == "" {
			return Config{}, fmt.Errorf("console.device is required when console.enable is true")
		}
		if cfg.Console.BaudRate <= 0 {
			cfg.Console.BaudRate = 57600
		}
	}

	if cfg.Watchdog.Device == "" {
		cfg.Watchdog.Device = "/dev/watchdog"
	}

	return cfg, nil
}

func validateChannelTypes(m MixerConfig) error {
	for i, ch := range m.Channels {
		if ch.Type == "" {
			continue
		}
		if _, ok := channelTypeNames[ch.Type]; !ok {
			return fmt.Errorf("mixer.channels[%d].type %q is not a recognized channel type", i, ch.Type)
		}
	}
	return nil
}

// AirframeType resolves the configured airframe name, defaulting to Generic.
func (c Config) AirframeType() uavobjects.AirframeType {
	if t, ok := airframeTypeNames[c.System.AirframeType]; ok {
		return t
	}
	return uavobjects.AirframeGeneric
}

// SystemSettings converts the YAML shape into uavobjects.SystemSettings.
func (c Config) SystemSettings() uavobjects.SystemSettings {
	return uavobjects.SystemSettings{AirframeType: c.AirframeType()}
}
