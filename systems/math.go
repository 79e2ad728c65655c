package systems

import "math"

// sumEpsilon is the concentration sum below which a particle is reset to a
// uniform distribution.
const sumEpsilon = 1e-12

// clamp01 clamps a value to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// finiteNonNeg maps NaN and negative values to 0 and +Inf to max.
func finiteNonNeg(v, max float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if math.IsInf(v, 1) {
		return max
	}
	return v
}

// distanceSq returns the squared distance between two points.
func distanceSq(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	dz := z1 - z2
	return dx*dx + dy*dy + dz*dz
}

// nextPowerOfTwo returns the smallest power of two >= n (n >= 1).
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
