package sweep

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/cwbudde/algo-ircap/dsp/fft"
	"github.com/cwbudde/algo-ircap/dsp/window"
)

// Errors returned by sweep functions.
var (
	ErrInvalidFrequency  = errors.New("sweep: frequency must be positive")
	ErrFrequencyOrder    = errors.New("sweep: start frequency must be less than end frequency")
	ErrAboveNyquist      = errors.New("sweep: end frequency must be below half the sample rate")
	ErrInvalidDuration   = errors.New("sweep: duration must be positive")
	ErrInvalidSampleRate = errors.New("sweep: sample rate must be positive")
	ErrInvalidFade       = errors.New("sweep: fade must not be negative")
	ErrEmptyResponse     = errors.New("sweep: response signal is empty")
	ErrMaxHarmonic       = errors.New("sweep: max harmonic must be >= 2")
)

const (
	// DefaultFade is the raised-cosine fade applied at both ends when
	// LogSweep.Fade is zero.
	DefaultFade = 0.1

	// DefaultPadding is the silence placed before and after the sweep.
	DefaultPadding = 0.5
)

// LogSweep describes a logarithmic sine sweep.
type LogSweep struct {
	StartFreq  float64 // start frequency in Hz
	EndFreq    float64 // end frequency in Hz, below SampleRate/2
	Duration   float64 // sweep duration in seconds
	SampleRate float64 // sample rate in Hz
	Fade       float64 // edge fade in seconds; 0 selects DefaultFade
}

// Validate checks that the LogSweep parameters are valid.
func (s *LogSweep) Validate() error {
	if s.StartFreq <= 0 || s.EndFreq <= 0 {
		return ErrInvalidFrequency
	}

	if s.StartFreq >= s.EndFreq {
		return ErrFrequencyOrder
	}

	if s.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}

	if s.EndFreq >= s.SampleRate/2 {
		return fmt.Errorf("%w: %.1f Hz >= %.1f Hz", ErrAboveNyquist, s.EndFreq, s.SampleRate/2)
	}

	if s.Duration <= 0 {
		return ErrInvalidDuration
	}

	if s.Fade < 0 {
		return ErrInvalidFade
	}

	return nil
}

// Samples returns the number of samples Generate produces.
func (s *LogSweep) Samples() int {
	return int(math.Round(s.Duration * s.SampleRate))
}

// FadeSamples returns the length of each edge fade in samples, capped at
// half the sweep.
func (s *LogSweep) FadeSamples() int {
	fade := s.Fade
	if fade == 0 {
		fade = DefaultFade
	}

	return min(int(math.Round(fade*s.SampleRate)), s.Samples()/2)
}

// rate returns k = ln(f2/f1)/T, the exponential growth rate of the
// instantaneous frequency.
func (s *LogSweep) rate() float64 {
	return math.Log(s.EndFreq/s.StartFreq) / s.Duration
}

// InstantaneousFrequency returns the sweep frequency in Hz at time t:
//
//	f(t) = f1 * exp(k*t),  k = ln(f2/f1)/T
func (s *LogSweep) InstantaneousFrequency(t float64) float64 {
	return s.StartFreq * math.Exp(s.rate()*t)
}

// Generate creates the faded logarithmic sine sweep.
//
// The phase is the integral of the instantaneous frequency:
//
//	phase(t) = 2π * f1 * (exp(k*t) - 1) / k
func (s *LogSweep) Generate() ([]float32, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	out := make([]float32, s.Samples())
	for i, v := range s.raw() {
		out[i] = float32(v)
	}

	fade := s.FadeSamples()
	window.FadeIn(out, fade)
	window.FadeOut(out, fade)

	return out, nil
}

// raw returns the unfaded sweep in double precision.
func (s *LogSweep) raw() []float64 {
	n := s.Samples()
	k := s.rate()
	out := make([]float64, n)

	for i := range out {
		t := float64(i) / s.SampleRate
		phase := 2 * math.Pi * s.StartFreq * (math.Exp(k*t) - 1) / k
		out[i] = math.Sin(phase)
	}

	return out
}

// Pad returns signal with seconds of silence before and after it.
func Pad(signal []float32, sampleRate, seconds float64) []float32 {
	pad := max(0, int(math.Round(seconds*sampleRate)))
	out := make([]float32, len(signal)+2*pad)
	copy(out[pad:], signal)

	return out
}

// InverseFilter creates the analytic inverse filter of the sweep.
//
// It is the time-reversed unfaded sweep with an amplitude envelope falling
// at 6 dB/octave, compensating for the sweep's pink energy distribution:
//
//	h_inv(t) = x(T-t) * (f1/f(T-t))
//
// Convolving the sweep with its inverse yields an impulse delayed by
// Samples()-1.
func (s *LogSweep) InverseFilter() ([]float64, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sweep := s.raw()
	n := len(sweep)
	k := s.rate()

	inv := make([]float64, n)
	for i := range inv {
		j := n - 1 - i
		t := float64(j) / s.SampleRate
		inv[i] = sweep[j] * math.Exp(-k*t)
	}

	// The integral of the squared inverse is T*f1/ln(f2/f1) per second.
	norm := s.Duration * s.StartFreq / math.Log(s.EndFreq/s.StartFreq) * s.SampleRate
	if norm > 0 {
		scale := 1 / norm
		for i := range inv {
			inv[i] *= scale
		}
	}

	return inv, nil
}

// Deconvolve recovers the impulse response from a recorded sweep response
// by convolving it with the inverse filter.
//
// The result has length len(response)+Samples()-1; the linear IR starts at
// index Samples()-1 and harmonic IRs precede it.
func (s *LogSweep) Deconvolve(response []float32) ([]float32, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if len(response) == 0 {
		return nil, ErrEmptyResponse
	}

	inv, err := s.InverseFilter()
	if err != nil {
		return nil, err
	}

	n := len(response) + len(inv) - 1
	size := fft.NextPowerOf2(n)

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("sweep: failed to create FFT plan: %w", err)
	}

	respFreq := make([]complex128, size)
	for i, v := range response {
		respFreq[i] = complex(float64(v), 0)
	}

	if err := plan.Forward(respFreq, respFreq); err != nil {
		return nil, fmt.Errorf("sweep: forward FFT failed: %w", err)
	}

	invFreq := make([]complex128, size)
	for i, v := range inv {
		invFreq[i] = complex(v, 0)
	}

	if err := plan.Forward(invFreq, invFreq); err != nil {
		return nil, fmt.Errorf("sweep: forward FFT failed: %w", err)
	}

	for i := range respFreq {
		respFreq[i] *= invFreq[i]
	}

	if err := plan.Inverse(respFreq, respFreq); err != nil {
		return nil, fmt.Errorf("sweep: inverse FFT failed: %w", err)
	}

	out := make([]float32, n)
	for i := range out {
		out[i] = float32(real(respFreq[i]))
	}

	return out, nil
}

// ExtractHarmonicIRs deconvolves response and separates the harmonic
// impulse responses with [LogSweep.SplitHarmonics].
func (s *LogSweep) ExtractHarmonicIRs(response []float32, maxHarmonic int) ([][]float32, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if maxHarmonic < 2 {
		return nil, ErrMaxHarmonic
	}

	deconv, err := s.Deconvolve(response)
	if err != nil {
		return nil, err
	}

	return s.SplitHarmonics(deconv, maxHarmonic)
}

// SplitHarmonics cuts the harmonic impulse responses out of the output of
// [LogSweep.Deconvolve].
//
// Harmonic k appears Δt_k = T*ln(k)/ln(f2/f1) before the linear IR.
// maxHarmonic is the highest harmonic to extract (e.g. 5 for H2-H5).
// The result holds [linear IR, H2 IR, H3 IR, ...], each windowed to half
// the distance to its neighbour.
func (s *LogSweep) SplitHarmonics(deconv []float32, maxHarmonic int) ([][]float32, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if maxHarmonic < 2 {
		return nil, ErrMaxHarmonic
	}

	if len(deconv) == 0 {
		return nil, ErrEmptyResponse
	}

	mainOffset := s.Samples() - 1
	lnRatio := math.Log(s.EndFreq / s.StartFreq)

	centers := make([]int, maxHarmonic+1) // index 1 = linear, 2 = H2, ...
	for k := 1; k <= maxHarmonic; k++ {
		dt := int(math.Round(s.Duration * math.Log(float64(k)) / lnRatio * s.SampleRate))
		centers[k] = mainOffset - dt
	}

	results := make([][]float32, maxHarmonic)

	for k := 1; k <= maxHarmonic; k++ {
		var halfWidth int

		switch {
		case k == 1:
			halfWidth = (centers[1] - centers[2]) / 2
		default:
			halfWidth = (centers[k-1] - centers[k]) / 2
		}

		halfWidth = max(halfWidth, 1)

		start := max(centers[k]-halfWidth, 0)
		end := min(centers[k]+halfWidth, len(deconv))

		if end <= start {
			results[k-1] = []float32{0}
			continue
		}

		ir := make([]float32, end-start)
		copy(ir, deconv[start:end])
		results[k-1] = ir
	}

	return results, nil
}
