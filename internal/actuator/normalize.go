package actuator

import (
	"time"

	"actuatorcore/internal/broker"
	"actuatorcore/internal/mixer"
	"actuatorcore/internal/uavobjects"
)

// Normalizer owns the task-local state the input-normalizer step needs
// across ticks: the latched FlightStatus/ManualControlCommand snapshots and
// the low-power hang-time deadline (spec.md §3 "Global state", §4.2).
type Normalizer struct {
	flightStatus  uavobjects.FlightStatus
	manual        uavobjects.ManualControlCommand
	hasLastPosThrottleTime bool
	lastPosThrottleTime    time.Time
}

// Result is everything the mixer & post-processor needs out of one
// normalizer pass.
type Result struct {
	Vector       []float64
	Armed        bool
	StabilizeNow bool
}

// Normalize runs spec.md §4.2 steps 1-8 for one tick.
func (n *Normalizer) Normalize(now time.Time, desired uavobjects.ActuatorDesired, b *broker.Broker, settings uavobjects.ActuatorSettings, mixerSettings uavobjects.MixerSettings, systemSettings uavobjects.SystemSettings) Result {
	if b.FlightStatusDirty() {
		n.flightStatus = b.FlightStatus()
	}
	if b.ManualControlDirty() {
		n.manual = b.ManualControl()
	}

	isHeliCP := systemSettings.AirframeType == uavobjects.AirframeHeliCP

	var throttle float64
	if isHeliCP {
		if n.flightStatus.FlightMode == uavobjects.FlightModeFailsafe {
			throttle = -1
		} else {
			throttle = n.manual.Throttle
		}
	} else {
		throttle = desired.Thrust
	}

	armed := n.flightStatus.Armed == uavobjects.Armed
	stabilizeNow := armed && throttle > 0

	if stabilizeNow && settings.LowPowerStabilizationMaxTime > 0 {
		n.lastPosThrottleTime = now
		n.hasLastPosThrottleTime = true
	} else if !stabilizeNow && n.hasLastPosThrottleTime {
		// spec.md §4.2 step 6 / actuator.c:632: window_ms = 1000 *
		// LowPowerStabilizationMaxTime, i.e. the field is in seconds.
		window := time.Duration(1000*settings.LowPowerStabilizationMaxTime) * time.Millisecond
		if now.Sub(n.lastPosThrottleTime) < window {
			stabilizeNow = true
			throttle = 0
		} else {
			n.hasLastPosThrottleTime = false
		}
	}

	v1 := mixer.ThrottleCurve(throttle, mixerSettings.ThrottleCurve1)

	curve2Input := mixer.Curve2Input{
		Desired:      desired,
		Manual:       n.manual,
		AirframeType: systemSettings.AirframeType,
	}
	curve2Value := mixer.GetCurve2Source(curve2Input, mixerSettings.Curve2Source)
	v2 := mixer.CollectiveCurve(curve2Value, mixerSettings.ThrottleCurve2)

	vector := mixer.DesiredVector(desired, n.manual, v1, v2)

	return Result{Vector: vector, Armed: armed, StabilizeNow: stabilizeNow}
}
