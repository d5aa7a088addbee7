package fft

import (
	"fmt"
	"math"
)

// Engine is an iterative radix-2 Cooley-Tukey transform with cached tables.
//
// An Engine is not safe for concurrent use. Each goroutine (or each real-time
// processor) owns its own Engine.
type Engine struct {
	n       int
	log2n   int
	cos     []float32 // n/2 entries
	sin     []float32 // n/2 entries
	reverse []int32   // bit-reversal permutation, n entries
}

// NewEngine returns an Engine prepared for transforms of length n.
// It panics if n is not a power of two.
func NewEngine(n int) *Engine {
	e := &Engine{}
	e.resize(n)

	return e
}

// Size returns the transform length the tables are currently built for.
func (e *Engine) Size() int {
	return e.n
}

// Forward computes the forward DFT of (re, im) in place.
func (e *Engine) Forward(re, im []float32) {
	e.Transform(re, im, false)
}

// Inverse computes the inverse DFT of (re, im) in place, scaled by 1/n.
func (e *Engine) Inverse(re, im []float32) {
	e.Transform(re, im, true)
}

// Transform runs the forward or inverse transform in place.
//
// The length is taken from re. When it differs from the current table size
// the tables are rebuilt; this is the only case in which Transform allocates.
// It panics if len(re) != len(im) or if the length is not a power of two.
func (e *Engine) Transform(re, im []float32, inverse bool) {
	n := len(re)
	if len(im) != n {
		panic(fmt.Sprintf("fft: real/imag length mismatch: %d != %d", n, len(im)))
	}

	if n != e.n {
		e.resize(n)
	}

	if n < 2 {
		return
	}

	for i, j := range e.reverse {
		if int(j) > i {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	sign := float32(-1)
	if inverse {
		sign = 1
	}

	for size := 2; size <= n; size <<= 1 {
		half := size >> 1
		step := n / size

		for start := 0; start < n; start += size {
			k := 0
			for j := start; j < start+half; j++ {
				wr := e.cos[k]
				wi := sign * e.sin[k]
				l := j + half

				tr := wr*re[l] - wi*im[l]
				ti := wr*im[l] + wi*re[l]

				re[l] = re[j] - tr
				im[l] = im[j] - ti
				re[j] += tr
				im[j] += ti

				k += step
			}
		}
	}

	if inverse {
		scale := 1 / float32(n)
		for i := range re {
			re[i] *= scale
			im[i] *= scale
		}
	}
}

// resize rebuilds the twiddle and permutation tables for length n.
func (e *Engine) resize(n int) {
	if !IsPowerOf2(n) {
		panic(fmt.Sprintf("fft: size must be a power of two, got %d", n))
	}

	e.n = n
	e.log2n = log2(n)

	half := n / 2
	e.cos = make([]float32, half)
	e.sin = make([]float32, half)

	for k := range half {
		angle := 2 * math.Pi * float64(k) / float64(n)
		e.cos[k] = float32(math.Cos(angle))
		e.sin[k] = float32(math.Sin(angle))
	}

	e.reverse = make([]int32, n)
	for i := range e.reverse {
		e.reverse[i] = int32(reverseBits(i, e.log2n))
	}
}

// IsPowerOf2 reports whether n is a positive power of two.
func IsPowerOf2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NextPowerOf2 returns the smallest power of two >= n (1 for n <= 1).
func NextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}

	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

func log2(n int) int {
	r := 0
	for n > 1 {
		n >>= 1
		r++
	}

	return r
}

func reverseBits(v, bits int) int {
	r := 0
	for range bits {
		r = r<<1 | v&1
		v >>= 1
	}

	return r
}
