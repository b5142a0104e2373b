// Package mixer builds and evaluates the actuator mixer matrix: compiling
// MixerSettings into a dense NCHAN x NAXIS matrix (spec.md §4.1), the
// tilt-rotor row transform, and the two piecewise-linear throttle curves
// (spec.md §4.2).
package mixer

import "actuatorcore/internal/uavobjects"

// Matrix is a dense NCHAN x NAXIS matrix of mixer coefficients.
//
// Modeled on the small dense-matrix style used throughout the retrieval
// pack for flight-control math (row-major flat slice with rows/cols and
// At/Set accessors) rather than a general linear-algebra package: the shape
// here is fixed at compile time and never needs inversion or decomposition.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix allocates a zeroed rows x cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// At returns the value at (r, c).
func (m *Matrix) At(r, c int) float64 {
	return m.data[r*m.cols+c]
}

// Set writes the value at (r, c).
func (m *Matrix) Set(r, c int, v float64) {
	m.data[r*m.cols+c] = v
}

// Rows reports the matrix row count (NCHAN).
func (m *Matrix) Rows() int { return m.rows }

// Cols reports the matrix column count (NAXIS).
func (m *Matrix) Cols() int { return m.cols }

// Row returns a copy of row r.
func (m *Matrix) Row(r int) []float64 {
	out := make([]float64, m.cols)
	copy(out, m.data[r*m.cols:(r+1)*m.cols])
	return out
}

// MultiplyVector computes M * v where v has Cols() elements, returning a
// slice with Rows() elements. This is spec.md §4.3 Step 1.
func (m *Matrix) MultiplyVector(v []float64) []float64 {
	if len(v) != m.cols {
		panic("mixer: vector length does not match matrix column count")
	}
	out := make([]float64, m.rows)
	for r := 0; r < m.rows; r++ {
		sum := 0.0
		base := r * m.cols
		for c := 0; c < m.cols; c++ {
			sum += m.data[base+c] * v[c]
		}
		out[r] = sum
	}
	return out
}

// Compiled is the result of compiling MixerSettings: the matrix itself plus
// the per-channel type table needed by the post-processor.
type Compiled struct {
	Matrix      *Matrix
	ChannelType [uavobjects.NCHAN]uavobjects.ChannelType
}

// Compile builds the mixer matrix from settings (spec.md §4.1 "Build matrix
// M"), applying the tilt-rotor transform to Motor rows (currently always a
// no-op since no settings source yet supplies a nonzero tilt angle; the
// transform is wired in so a future geometry source only needs to supply
// theta).
func Compile(settings uavobjects.MixerSettings) *Compiled {
	c := &Compiled{Matrix: NewMatrix(uavobjects.NCHAN, uavobjects.NAXIS)}

	for r := 0; r < uavobjects.NCHAN; r++ {
		t := settings.MixerType[r]
		c.ChannelType[r] = t

		if t != uavobjects.ChannelMotor && t != uavobjects.ChannelServo {
			// Rows for non-Motor/non-Servo channels are zero-filled.
			continue
		}

		for col := 0; col < uavobjects.NAXIS; col++ {
			c.Matrix.Set(r, col, float64(settings.MixerVector[r][col])/float64(uavobjects.MixerScale))
		}

		if t == uavobjects.ChannelMotor {
			// Rotor tilt hook: current call sites always pass theta=0, so
			// this is presently a no-op, but wired per spec.md §4.1.
			applyTilt(c.Matrix, r, 0)
		}
	}

	return c
}
