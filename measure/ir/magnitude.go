package ir

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-ircap/dsp/core"
	"github.com/cwbudde/algo-ircap/dsp/fft"
)

// ErrInvalidFFTSize is returned for FFT sizes that are not a power of two
// or are shorter than the IR.
var ErrInvalidFFTSize = errors.New("ir: invalid FFT size")

// MagnitudeResponse returns 20*log10|H(k)| for bins 0..fftSize/2.
// fftSize 0 selects the next power of two at or above len(x).
func MagnitudeResponse(x []float32, fftSize int) ([]float64, error) {
	if len(x) == 0 {
		return nil, ErrEmptyIR
	}

	if fftSize == 0 {
		fftSize = fft.NextPowerOf2(len(x))
	}

	if !fft.IsPowerOf2(fftSize) || fftSize < len(x) {
		return nil, fmt.Errorf("%w: %d for %d samples", ErrInvalidFFTSize, fftSize, len(x))
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("ir: failed to create FFT plan: %w", err)
	}

	spec := make([]complex128, fftSize)
	for i, v := range x {
		spec[i] = complex(float64(v), 0)
	}

	if err := plan.Forward(spec, spec); err != nil {
		return nil, fmt.Errorf("ir: forward FFT failed: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)

	for k := range bins {
		re[k] = real(spec[k])
		im[k] = imag(spec[k])
	}

	out := make([]float64, bins)
	vecmath.Magnitude(out, re, im)

	for k, m := range out {
		out[k] = core.LinearToDB(m)
	}

	return out, nil
}
