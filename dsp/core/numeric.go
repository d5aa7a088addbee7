package core

import "math"

// Epsilon is the floor used wherever a magnitude, energy or denominator could
// reach zero and feed a log or a division.
const Epsilon = 1e-10

// Clamp limits value to the inclusive range [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}

	if value < lo {
		return lo
	}

	if value > hi {
		return hi
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps, using an
// absolute test first and a relative one for large magnitudes.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = 1e-12
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return false
	}

	return diff/largest <= eps
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// The input is floored at Epsilon, so the result is always finite.
func LinearToDB(linear float64) float64 {
	return 20 * math.Log10(math.Max(math.Abs(linear), Epsilon))
}

// PeakAbs returns the index and magnitude of the first sample with the
// largest absolute value. It returns (0, 0) for an empty slice.
func PeakAbs(x []float32) (int, float32) {
	idx := 0
	peak := float32(0)

	for i, v := range x {
		if v < 0 {
			v = -v
		}

		if v > peak {
			peak = v
			idx = i
		}
	}

	return idx, peak
}

// IsFinite reports whether every sample is neither NaN nor Inf.
func IsFinite(x []float32) bool {
	for _, v := range x {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}

	return true
}
