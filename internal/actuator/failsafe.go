package actuator

import "actuatorcore/internal/uavobjects"

// FailsafeValue returns the raw microsecond pulse committed for channel idx
// of type t while in failsafe (spec.md §4.4 "Failsafe policy"):
//
//	Motor    -> the channel's minimum pulse
//	Servo    -> the channel's neutral pulse
//	Disabled -> -1 (sentinel; channel is not physically wired)
//	Camera{Pitch,Roll,Yaw} -> 0 (centered)
func FailsafeValue(t uavobjects.ChannelType, settings uavobjects.ActuatorSettings, idx int) float64 {
	switch t {
	case uavobjects.ChannelMotor:
		return float64(settings.ChannelMin[idx])
	case uavobjects.ChannelServo:
		return float64(settings.ChannelNeutral[idx])
	case uavobjects.ChannelDisabled:
		return -1
	default:
		// Camera axes: center them.
		return 0
	}
}

// Failsafe computes the full per-channel failsafe command (spec.md §4.4
// "set_failsafe"): every channel set to its FailsafeValue, regardless of
// arming state.
func Failsafe(channelType [uavobjects.NCHAN]uavobjects.ChannelType, settings uavobjects.ActuatorSettings) [uavobjects.NCHAN]float64 {
	var out [uavobjects.NCHAN]float64
	for i := 0; i < uavobjects.NCHAN; i++ {
		out[i] = FailsafeValue(channelType[i], settings, i)
	}
	return out
}
