package actuator

import (
	"fmt"
	"math"

	"actuatorcore/internal/mixer"
	"actuatorcore/internal/uavobjects"
)

// PostProcess runs spec.md §4.3 steps 1-5: multiply the desired vector
// through the compiled mixer matrix, apply per-type pre-clip adjustment,
// collect motor statistics, rescale to fit, and commit each channel to a
// microsecond pulse. Step 6 (publish, MaxUpdateTime, PWM commit, alarm
// clear) is the caller's responsibility since it touches the broker and the
// servo driver.
//
// camera may be nil, matching "if that object exists; else -1" (spec.md
// §4.3 step 2). The CameraYaw case intentionally reads camera.Roll, not
// camera.Yaw: that mismatch is preserved from the source this was derived
// from rather than silently corrected.
func PostProcess(compiled *mixer.Compiled, vector []float64, camera *uavobjects.CameraDesired, armed, stabilizeNow, spinWhileArmed bool, settings uavobjects.ActuatorSettings) ([uavobjects.NCHAN]float64, error) {
	motorVect := compiled.Matrix.MultiplyVector(vector)

	minChan := math.Inf(1)
	maxChan := math.Inf(-1)
	negClip := 0.0
	numMotors := 0

	for ct := 0; ct < uavobjects.NCHAN; ct++ {
		switch compiled.ChannelType[ct] {
		case uavobjects.ChannelDisabled:
			// Set to minimum if disabled. This is not the same as saying
			// PWM pulse = 0us.
			motorVect[ct] = -1

		case uavobjects.ChannelServo:
			// unchanged; calibrated later, never clipped/rescaled.

		case uavobjects.ChannelMotor:
			if motorVect[ct] < minChan {
				minChan = motorVect[ct]
			}
			if motorVect[ct] > maxChan {
				maxChan = motorVect[ct]
			}
			if motorVect[ct] < 0 {
				negClip += motorVect[ct]
			}
			numMotors++

		case uavobjects.ChannelCameraPitch:
			if camera != nil {
				motorVect[ct] = camera.Pitch
			} else {
				motorVect[ct] = -1
			}

		case uavobjects.ChannelCameraRoll:
			if camera != nil {
				motorVect[ct] = camera.Roll
			} else {
				motorVect[ct] = -1
			}

		case uavobjects.ChannelCameraYaw:
			if camera != nil {
				motorVect[ct] = camera.Roll
			} else {
				motorVect[ct] = -1
			}

		default:
			return [uavobjects.NCHAN]float64{}, fmt.Errorf("actuator: channel %d has unknown type %v", ct, compiled.ChannelType[ct])
		}
	}

	gain := 1.0
	offset := 0.0

	if (maxChan - minChan) > 1 {
		gain = 1 / (maxChan - minChan)
		maxChan *= gain
		minChan *= gain
	}

	if maxChan > 1 {
		offset = 1 - maxChan
	} else if minChan < 0 {
		negClipAvg := negClip
		if numMotors > 0 {
			negClipAvg = negClip / float64(numMotors)
		}
		offset = negClipAvg + settings.LowPowerStabilizationMaxPowerAdd
		if -minChan < offset {
			offset = -minChan
		}
	}

	var out [uavobjects.NCHAN]float64
	for ct := 0; ct < uavobjects.NCHAN; ct++ {
		if compiled.ChannelType[ct] == uavobjects.ChannelMotor {
			switch {
			case !armed:
				motorVect[ct] = -1
			case !stabilizeNow:
				if spinWhileArmed {
					motorVect[ct] = 0
				} else {
					motorVect[ct] = -1
				}
			default:
				motorVect[ct] = motorVect[ct]*gain + offset
				if motorVect[ct] > 0 {
					motorVect[ct] = motorResponseCurve(motorVect[ct], settings.MotorInputOutputCurveFit)
				} else {
					motorVect[ct] = 0
				}
			}
		}

		out[ct] = scaleChannel(motorVect[ct], settings.ChannelMin[ct], settings.ChannelNeutral[ct], settings.ChannelMax[ct])
	}

	return out, nil
}

// motorResponseCurve applies the per-motor nonlinear input/output response
// x^k (spec.md §4.3 Step 5), guarding the zero-exponent and negative-base
// edge cases math.Pow would otherwise propagate as NaN.
func motorResponseCurve(x, k float64) float64 {
	if k == 0 {
		return 1
	}
	if x < 0 {
		return 0
	}
	return math.Pow(x, k)
}
