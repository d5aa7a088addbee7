package window

import "math"

// FadeIn applies a raised-cosine ramp from 0 to 1 over the first n samples
// of buf. Sample 0 becomes exactly 0. n is clamped to len(buf).
func FadeIn(buf []float32, n int) {
	n = min(n, len(buf))
	if n <= 0 {
		return
	}

	for i := range n {
		buf[i] *= float32(riseAt(i, n))
	}
}

// FadeOut applies a half raised-cosine taper from 1 to 0 over the last n
// samples of buf. The final sample becomes exactly 0. n is clamped to len(buf).
func FadeOut(buf []float32, n int) {
	n = min(n, len(buf))
	if n <= 0 {
		return
	}

	start := len(buf) - n
	for i := range n {
		buf[start+i] *= float32(riseAt(n-1-i, n))
	}
}

// riseAt returns the raised-cosine gain at position i of an n-sample ramp,
// 0 at i == 0 and approaching 1 at i == n-1.
func riseAt(i, n int) float64 {
	if n == 1 {
		return 0
	}

	return 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(n-1)))
}
