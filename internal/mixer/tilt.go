package mixer

import (
	"math"

	"actuatorcore/internal/uavobjects"
)

// applyTilt rewrites row r of m as if the motor it represents were rotated
// by theta radians about the body Y axis (spec.md §4.1 "Tilt transform").
//
// Derivation (see DESIGN.md / original_source actuator.c
// transformActuatorMixture): the mix of forces for a motor is
// F = (0, 0, -curve1mix); the mix of moments is tau = (0, 0, yawmix) plus the
// cross product of the motor's inferred position d with F, where
// d = (pitchmix/curve1mix, -rollmix/curve1mix, 0). Rotating F and tau by
// Ry(theta) and recomposing M' = d x F' + tau' gives the new row.
//
// When curve1mix is zero this is undefined (division by zero inferring d);
// per spec.md's parenthetical, such rows are left untouched rather than
// producing NaNs. All current callers pass theta=0, which also leaves the
// row untouched via the early return below, matching present behavior.
func applyTilt(m *Matrix, row int, theta float64) {
	if theta == 0 {
		return
	}

	curve1mix := -m.At(row, int(uavobjects.AxisThrottleCurve1))
	rollmix := m.At(row, int(uavobjects.AxisRoll))
	pitchmix := m.At(row, int(uavobjects.AxisPitch))
	yawmix := m.At(row, int(uavobjects.AxisYaw))

	if curve1mix == 0 {
		return
	}

	f := [3]float64{0, 0, -curve1mix}
	tau := [3]float64{0, 0, yawmix}
	d := [3]float64{pitchmix / curve1mix, -rollmix / curve1mix, 0}

	fRot := rotateY(f, theta)
	tauRot := rotateY(tau, theta)

	mRot := add3(cross3(d, fRot), tauRot)

	m.Set(row, int(uavobjects.AxisThrottleCurve1), fRot[2])
	m.Set(row, int(uavobjects.AxisRoll), mRot[0])
	m.Set(row, int(uavobjects.AxisPitch), mRot[1])
	m.Set(row, int(uavobjects.AxisYaw), mRot[2])
}

func rotateY(v [3]float64, theta float64) [3]float64 {
	s, c := math.Sin(theta), math.Cos(theta)
	return [3]float64{
		c*v[0] + s*v[2],
		v[1],
		-s*v[0] + c*v[2],
	}
}

func cross3(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func add3(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
