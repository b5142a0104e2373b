package mixer

import "actuatorcore/internal/uavobjects"

// Interpolate evaluates a piecewise-linear curve of evenly spaced points
// across [domainMin, domainMax] at input (spec.md §4.2 "linear_interpolate").
// input is clamped to the domain first. A curve with zero points is treated
// as an identity passthrough of input; a curve with one point is constant.
func Interpolate(input float64, curve []float64, domainMin, domainMax float64) float64 {
	if len(curve) == 0 {
		return input
	}
	if len(curve) == 1 {
		return curve[0]
	}

	if input < domainMin {
		input = domainMin
	}
	if input > domainMax {
		input = domainMax
	}

	span := domainMax - domainMin
	frac := 0.0
	if span != 0 {
		frac = (input - domainMin) / span * float64(len(curve)-1)
	}

	lo := int(frac)
	if lo >= len(curve)-1 {
		return curve[len(curve)-1]
	}
	hi := lo + 1
	t := frac - float64(lo)

	return curve[lo] + (curve[hi]-curve[lo])*t
}

// ThrottleCurve evaluates ThrottleCurve1 over domain [0,1] (spec.md §4.2).
func ThrottleCurve(input float64, curve []float64) float64 {
	return Interpolate(input, curve, 0, 1)
}

// CollectiveCurve evaluates ThrottleCurve2 over domain [-1,1]: the wider
// domain lets the neutral point of a collective-pitch curve sit anywhere
// within the normal stick range (spec.md §4.2).
func CollectiveCurve(input float64, curve []float64) float64 {
	return Interpolate(input, curve, -1, 1)
}

// Curve2Input is the set of values GetCurve2Source can draw from.
type Curve2Input struct {
	Desired      uavobjects.ActuatorDesired
	Manual       uavobjects.ManualControlCommand
	AirframeType uavobjects.AirframeType
}

// GetCurve2Source selects the scalar that feeds ThrottleCurve2, applying the
// HeliCP-specific Throttle/Collective swap from spec.md §3 and §4.2: on a
// HeliCP airframe the roles of Thrust and raw stick Throttle/Collective are
// exchanged relative to every other airframe type.
func GetCurve2Source(in Curve2Input, source uavobjects.Curve2Source) float64 {
	isHeliCP := in.AirframeType == uavobjects.AirframeHeliCP

	switch source {
	case uavobjects.Curve2SourceThrottle:
		if isHeliCP {
			return in.Manual.Throttle
		}
		return in.Desired.Thrust
	case uavobjects.Curve2SourceRoll:
		return in.Desired.Roll
	case uavobjects.Curve2SourcePitch:
		return in.Desired.Pitch
	case uavobjects.Curve2SourceYaw:
		return in.Desired.Yaw
	case uavobjects.Curve2SourceCollective:
		if isHeliCP {
			return in.Desired.Thrust
		}
		return in.Manual.Collective
	case uavobjects.Curve2SourceAccessory0, uavobjects.Curve2SourceAccessory1, uavobjects.Curve2SourceAccessory2:
		idx := int(source) - int(uavobjects.Curve2SourceAccessory0)
		if idx < 0 || idx >= len(in.Manual.Accessory) {
			return 0
		}
		return in.Manual.Accessory[idx]
	default:
		return 0
	}
}

// DesiredVector builds the NAXIS-wide mixer input vector for one tick
// (spec.md §4.2 "fill_desired_vector"): the two curve outputs in the
// ThrottleCurve1/ThrottleCurve2 slots, Roll/Pitch/Yaw straight from
// ActuatorDesired, and the three accessory channels straight from
// ManualControlCommand.
func DesiredVector(desired uavobjects.ActuatorDesired, manual uavobjects.ManualControlCommand, val1, val2 float64) []float64 {
	v := make([]float64, uavobjects.NAXIS)
	v[uavobjects.AxisThrottleCurve1] = val1
	v[uavobjects.AxisThrottleCurve2] = val2
	v[uavobjects.AxisRoll] = desired.Roll
	v[uavobjects.AxisPitch] = desired.Pitch
	v[uavobjects.AxisYaw] = desired.Yaw
	for i := 0; i < uavobjects.NAccessory && int(uavobjects.AxisAccessory0)+i < uavobjects.NAXIS; i++ {
		v[int(uavobjects.AxisAccessory0)+i] = manual.Accessory[i]
	}
	return v
}
