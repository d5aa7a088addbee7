package conv

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-ircap/dsp/core"
	"github.com/cwbudde/algo-ircap/dsp/fft"
	"github.com/cwbudde/algo-ircap/dsp/window"
)

// DefaultRegularization is a moderate λ for sweep and noise excitations
// normalized to full scale.
const DefaultRegularization = 1e-3

// denominatorFloor zeroes bins whose regularized energy is below it, so
// λ = 0 on a silent bin yields 0 instead of NaN.
const denominatorFloor = 1e-20

// DeconvRequest describes one deconvolution.
type DeconvRequest struct {
	// Dry is the excitation that was sent into the system.
	Dry []float32

	// Wet is the recorded system output, time-aligned with Dry.
	Wet []float32

	// IRLength is the number of IR samples to return.
	IRLength int

	// Regularization is λ in H = conj(X)·Y / (|X|² + λ). Larger values give
	// a smoother but less detailed IR.
	Regularization float64

	// Window is applied to both signals before the transform. The zero
	// value is Blackman; Tukey keeps more of a short take at full gain.
	Window window.Type

	// TaperAlpha is the Tukey taper fraction; 0 selects window.DefaultAlpha.
	TaperAlpha float64
}

// Validate reports whether the request can be processed.
func (r DeconvRequest) Validate() error {
	if len(r.Dry) == 0 || len(r.Wet) == 0 {
		return ErrEmptyInput
	}

	if r.IRLength <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIRLength, r.IRLength)
	}

	if r.Regularization < 0 || math.IsNaN(r.Regularization) || math.IsInf(r.Regularization, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRegularization, r.Regularization)
	}

	return window.Validate(r.Window, r.TaperAlpha)
}

// Deconvolve recovers an impulse response from a dry excitation and its wet
// recording by regularized spectral division.
//
// Dry and wet are truncated to the shorter of the two, windowed (Blackman
// by default) and zero-padded to NextPowerOf2(n + IRLength). The first IRLength samples of
// the inverse transform are returned.
func Deconvolve(req DeconvRequest) ([]float32, error) {
	var d Deconvolver
	return d.Deconvolve(req)
}

// Deconvolver runs repeated deconvolutions, reusing its FFT tables, window
// and scratch buffers while the sizes stay the same.
//
// A Deconvolver is not safe for concurrent use.
type Deconvolver struct {
	engine  *fft.Engine
	win     []float64
	winType window.Type
	alpha   float64
	scratch []float64

	xr, xi []float32
	yr, yi []float32
}

// Deconvolve is the buffer-reusing form of the package-level [Deconvolve].
// Only the returned slice is newly allocated when sizes are unchanged.
func (d *Deconvolver) Deconvolve(req DeconvRequest) ([]float32, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	n := min(len(req.Dry), len(req.Wet))
	size := fft.NextPowerOf2(n + req.IRLength)

	d.prepare(req, n, size)

	if err := d.load(d.xr, d.xi, req.Dry[:n]); err != nil {
		return nil, err
	}

	if err := d.load(d.yr, d.yi, req.Wet[:n]); err != nil {
		return nil, err
	}

	d.engine.Forward(d.xr, d.xi)
	d.engine.Forward(d.yr, d.yi)

	lambda := req.Regularization

	for k := range size {
		xr, xi := float64(d.xr[k]), float64(d.xi[k])
		yr, yi := float64(d.yr[k]), float64(d.yi[k])

		den := xr*xr + xi*xi + lambda
		if den < denominatorFloor {
			d.xr[k], d.xi[k] = 0, 0
			continue
		}

		// conj(X)·Y
		d.xr[k] = float32((xr*yr + xi*yi) / den)
		d.xi[k] = float32((xr*yi - xi*yr) / den)
	}

	d.engine.Inverse(d.xr, d.xi)

	out := make([]float32, req.IRLength)
	copy(out, d.xr)

	return out, nil
}

func (d *Deconvolver) prepare(req DeconvRequest, n, size int) {
	if len(d.win) != n || d.winType != req.Window || d.alpha != req.TaperAlpha {
		d.win = window.Generate(req.Window, n, window.WithAlpha(req.TaperAlpha))
		d.winType, d.alpha = req.Window, req.TaperAlpha
	}

	if d.engine == nil {
		d.engine = fft.NewEngine(size)
	}

	// load overwrites every sample, so reused capacity needs no clearing.
	d.xr = core.EnsureLen(d.xr, size)
	d.xi = core.EnsureLen(d.xi, size)
	d.yr = core.EnsureLen(d.yr, size)
	d.yi = core.EnsureLen(d.yi, size)
}

// load writes the windowed src into re and zeroes the padding and im.
func (d *Deconvolver) load(re, im, src []float32) error {
	var err error

	d.scratch, err = window.Apply32(re, src, d.win, d.scratch)
	if err != nil {
		return err
	}

	clear(re[len(src):])
	clear(im)

	return nil
}
