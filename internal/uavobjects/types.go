// Package uavobjects holds the plain data structs the actuator core consumes
// and produces: ActuatorDesired, FlightStatus, ManualControlCommand,
// ActuatorSettings, MixerSettings, SystemSettings, CameraDesired and
// ActuatorCommand. In the original firmware these are published/subscribed
// objects on a broker; here they are ordinary structs handed around by the
// broker and actuator packages.
package uavobjects

// NCHAN is the compile-time number of output channels.
const NCHAN = 10

// NAXIS is the number of mixer columns, in canonical order (see Axis below).
const NAXIS = 8

// NBANK is the number of PWM timer banks the servo driver can be told about.
const NBANK = 4

// NAccessory is the number of accessory channels carried by
// ManualControlCommand and sourced by MixerSettings' Curve2Source.
const NAccessory = 3

// MixerScale is the integer-to-float scale factor for MixerSettings vectors:
// an int16 coefficient of 128 means "1.0" on that axis.
const MixerScale = 128

func init() {
	// Compile-time invariants (spec.md §6), approximated with an init-time
	// panic since Go has no DONT_BUILD_IF.
	if NBANK > maxServoBanks {
		panic("uavobjects: NBANK exceeds MaxServoBanks")
	}
	if NCHAN > maxMixActuators {
		panic("uavobjects: NCHAN exceeds MaxMixActuators")
	}
	if NAccessory > NAxisAccessorySlots() {
		panic("uavobjects: MixerSettings accessory columns cannot cover ManualControlCommand accessories")
	}
}

const maxServoBanks = 8
const maxMixActuators = NCHAN

// NAxisAccessorySlots returns how many of the NAXIS columns are accessory
// slots (Accessory0..AccessoryN-1).
func NAxisAccessorySlots() int {
	return NAXIS - int(AxisAccessory0)
}

// Axis indexes one column of the mixer matrix.
type Axis int

const (
	AxisThrottleCurve1 Axis = iota
	AxisThrottleCurve2
	AxisRoll
	AxisPitch
	AxisYaw
	AxisAccessory0
	AxisAccessory1
	AxisAccessory2
)

// ChannelType is the per-output-channel role.
type ChannelType int

const (
	ChannelDisabled ChannelType = iota
	ChannelMotor
	ChannelServo
	ChannelCameraPitch
	ChannelCameraRoll
	ChannelCameraYaw
)

func (t ChannelType) String() string {
	switch t {
	case ChannelDisabled:
		return "disabled"
	case ChannelMotor:
		return "motor"
	case ChannelServo:
		return "servo"
	case ChannelCameraPitch:
		return "camera_pitch"
	case ChannelCameraRoll:
		return "camera_roll"
	case ChannelCameraYaw:
		return "camera_yaw"
	default:
		return "unknown"
	}
}

// Curve2Source selects what feeds the second throttle curve.
type Curve2Source int

const (
	Curve2SourceThrottle Curve2Source = iota
	Curve2SourceRoll
	Curve2SourcePitch
	Curve2SourceYaw
	Curve2SourceCollective
	Curve2SourceAccessory0
	Curve2SourceAccessory1
	Curve2SourceAccessory2
)

// AirframeType selects mixer interpretation quirks.
type AirframeType int

const (
	AirframeGeneric AirframeType = iota
	AirframeMultiRotor
	AirframeFixedWing
	AirframeHeliCP
	AirframeVTOL
)

// ArmedState mirrors FlightStatus.Armed.
type ArmedState int

const (
	Disarmed ArmedState = iota
	Arming
	Armed
)

// FlightMode mirrors FlightStatus.FlightMode; only Failsafe is meaningful to
// the actuator core, the rest exist so FlightStatus round-trips realistically.
type FlightMode int

const (
	FlightModeManual FlightMode = iota
	FlightModeStabilized
	FlightModeAltitudeHold
	FlightModePositionHold
	FlightModeAutoTune
	FlightModeFailsafe
)

// Interlock is the three-state operator interlock word from spec.md §4.4.
type Interlock int32

const (
	InterlockOK Interlock = iota
	InterlockStopRequest
	InterlockStopped
)

func (i Interlock) String() string {
	switch i {
	case InterlockOK:
		return "OK"
	case InterlockStopRequest:
		return "STOPREQUEST"
	case InterlockStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// ActuatorDesired is the primary per-tick input: roll/pitch/yaw torque
// requests and a thrust scalar, all nominally in [-1,1] (Thrust in [0,1]).
type ActuatorDesired struct {
	Roll   float64
	Pitch  float64
	Yaw    float64
	Thrust float64
}

// FlightStatus carries the arming state and active flight mode.
type FlightStatus struct {
	Armed      ArmedState
	FlightMode FlightMode
}

// ManualControlCommand carries raw stick/channel values not otherwise routed
// through ActuatorDesired: throttle (used directly by HeliCP airframes),
// collective, and up to NAccessory auxiliary channels.
type ManualControlCommand struct {
	Throttle   float64
	Collective float64
	Accessory  [NAccessory]float64
}

// CameraDesired is optional: when absent (nil in the broker), camera output
// channels fall back to -1 per spec.md §4.3 Step 2.
type CameraDesired struct {
	Pitch float64
	Roll  float64
	Yaw   float64
}

// ActuatorSettings holds per-channel calibration and the handful of scalar
// tuning knobs the post-processor needs.
type ActuatorSettings struct {
	ChannelMin     [NCHAN]int32
	ChannelMax     [NCHAN]int32
	ChannelNeutral [NCHAN]int32

	TimerUpdateFreq [NBANK]int32

	MotorsSpinWhileArmed bool

	// LowPowerStabilizationMaxTime, in seconds; 0 disables hang-time. The
	// hang-time window compared against elapsed time is 1000 times this
	// value, expressed in milliseconds (spec.md §4.2 step 6).
	LowPowerStabilizationMaxTime int32
	// LowPowerStabilizationMaxPowerAdd is the max extra throttle (normalized
	// [0,1]) the low-side clip recovery is allowed to synthesize.
	LowPowerStabilizationMaxPowerAdd float64
	// MotorInputOutputCurveFit is the exponent k in x^k (spec.md §4.3 Step 5).
	MotorInputOutputCurveFit float64
}

// MixerSettings holds the per-channel type/vector rows and the two curves.
type MixerSettings struct {
	MixerType   [NCHAN]ChannelType
	MixerVector [NCHAN][NAXIS]int16 // scaled by MixerScale

	ThrottleCurve1 []float64 // K1 points, domain [0,1]
	ThrottleCurve2 []float64 // K2 points, domain [-1,1]

	Curve2Source Curve2Source
}

// SystemSettings carries the airframe tag.
type SystemSettings struct {
	AirframeType AirframeType
}

// ActuatorCommand is the committed per-tick output.
type ActuatorCommand struct {
	Channel       [NCHAN]float64 // microseconds
	UpdateTime    float64        // milliseconds
	MaxUpdateTime float64        // milliseconds, running peak
}
