package conv

import (
	"errors"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-ircap/dsp/core"
)

// Errors returned by convolution functions.
var (
	ErrEmptyInput            = errors.New("conv: empty input")
	ErrEmptyKernel           = errors.New("conv: empty kernel")
	ErrInvalidBlockSize      = errors.New("conv: invalid block size")
	ErrInvalidIRLength       = errors.New("conv: IR length must be positive")
	ErrInvalidRegularization = errors.New("conv: regularization must be finite and non-negative")
)

// Direct performs direct time-domain linear convolution of a and b.
// Returns a new slice of length len(a) + len(b) - 1.
//
// This is an O(N*M) algorithm used as a reference for the block engine.
func Direct(a, b []float64) ([]float64, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}

	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	result := make([]float64, len(a)+len(b)-1)
	DirectTo(result, a, b)

	return result, nil
}

// DirectTo performs direct convolution, writing to a pre-allocated destination.
// dst must have length len(a) + len(b) - 1.
func DirectTo(dst, a, b []float64) {
	clear(dst)

	const simdThreshold = 4
	if len(b) < simdThreshold {
		for i, x := range a {
			for j, h := range b {
				dst[i+j] += x * h
			}
		}

		return
	}

	temp := make([]float64, len(b))

	for i, x := range a {
		vecmath.ScaleBlock(temp, b, x)
		vecmath.AddBlockInPlace(dst[i:i+len(b)], temp)
	}
}

// Direct32 is the single-precision variant of [Direct]. Accumulation runs
// in float64 through [DirectTo].
func Direct32(a, b []float32) ([]float32, error) {
	if len(a) == 0 {
		return nil, ErrEmptyInput
	}

	if len(b) == 0 {
		return nil, ErrEmptyKernel
	}

	wide := make([]float64, len(a)+len(b)-1)
	DirectTo(wide, core.Widen(a), core.Widen(b))

	return core.Narrow(wide), nil
}
