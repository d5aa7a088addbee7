package core

// EnsureLen returns a slice with the requested length, reusing buf capacity
// if possible. The contents are unspecified; callers clear what they need.
func EnsureLen(buf []float32, n int) []float32 {
	if n <= 0 {
		return buf[:0]
	}

	if cap(buf) >= n {
		return buf[:n]
	}

	return make([]float32, n)
}

// Widen copies src into a new float64 slice.
func Widen(src []float32) []float64 {
	out := make([]float64, len(src))
	for i, v := range src {
		out[i] = float64(v)
	}

	return out
}

// Narrow copies src into a new float32 slice.
func Narrow(src []float64) []float32 {
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}

	return out
}
