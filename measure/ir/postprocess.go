package ir

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-ircap/dsp/core"
	"github.com/cwbudde/algo-ircap/dsp/fft"
	"github.com/cwbudde/algo-ircap/dsp/window"
)

// Post-processing defaults.
const (
	DefaultGateThresholdDB = -40.0
	DefaultGateAttenuation = 0.001
	DefaultPeak            = 0.99
	DefaultFadeFraction    = 0.25
)

// logFloor keeps log|X| finite on spectral nulls.
const logFloor = 1e-10

// Errors returned by post-processing.
var (
	ErrInvalidThreshold   = errors.New("ir: gate threshold must be finite and <= 0 dB")
	ErrInvalidAttenuation = errors.New("ir: attenuation must be within [0, 1]")
	ErrInvalidPeak        = errors.New("ir: peak must be within (0, 1]")
	ErrInvalidFraction    = errors.New("ir: fade fraction must be within [0, 1]")
)

// ImpulseResponse is a processed, playback-ready IR.
type ImpulseResponse struct {
	Samples      []float32
	SampleRate   float64
	MinimumPhase bool
}

// Len returns the number of samples.
func (r *ImpulseResponse) Len() int {
	return len(r.Samples)
}

// Duration returns the IR length in seconds.
func (r *ImpulseResponse) Duration() float64 {
	if r.SampleRate <= 0 {
		return 0
	}

	return float64(len(r.Samples)) / r.SampleRate
}

// Metrics runs the [Analyzer] on the samples.
func (r *ImpulseResponse) Metrics() (Metrics, error) {
	return NewAnalyzer(r.SampleRate).Analyze(r.Samples)
}

// Option configures [Process].
type Option func(*config)

type config struct {
	minimumPhase    bool
	gateThresholdDB float64
	gateAttenuation float64
	peak            float64
	fadeFraction    float64
}

func defaultConfig() config {
	return config{
		gateThresholdDB: DefaultGateThresholdDB,
		gateAttenuation: DefaultGateAttenuation,
		peak:            DefaultPeak,
		fadeFraction:    DefaultFadeFraction,
	}
}

// WithMinimumPhase enables or disables minimum-phase conversion.
func WithMinimumPhase(enabled bool) Option {
	return func(c *config) {
		c.minimumPhase = enabled
	}
}

// WithGate sets the gate threshold relative to the peak and the gain applied
// before the onset.
func WithGate(thresholdDB, attenuation float64) Option {
	return func(c *config) {
		c.gateThresholdDB = thresholdDB
		c.gateAttenuation = attenuation
	}
}

// WithPeak sets the normalization target.
func WithPeak(peak float64) Option {
	return func(c *config) {
		c.peak = peak
	}
}

// WithFadeFraction sets the share of the IR covered by the fade-out.
func WithFadeFraction(fraction float64) Option {
	return func(c *config) {
		c.fadeFraction = fraction
	}
}

func (c config) validate() error {
	if c.gateThresholdDB > 0 || math.IsNaN(c.gateThresholdDB) || math.IsInf(c.gateThresholdDB, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, c.gateThresholdDB)
	}

	if !(c.gateAttenuation >= 0 && c.gateAttenuation <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidAttenuation, c.gateAttenuation)
	}

	if !(c.peak > 0 && c.peak <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidPeak, c.peak)
	}

	if !(c.fadeFraction >= 0 && c.fadeFraction <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidFraction, c.fadeFraction)
	}

	return nil
}

// ValidateOptions reports whether opts form a valid [Process] configuration,
// so callers can reject bad settings before producing a raw IR.
func ValidateOptions(opts ...Option) error {
	_, err := newConfig(opts)
	return err
}

func newConfig(opts []Option) (config, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg, cfg.validate()
}

// Process runs gate, optional minimum-phase conversion, normalization and
// fade-out on a raw deconvolved IR. raw is not modified.
func Process(raw []float32, sampleRate float64, opts ...Option) (*ImpulseResponse, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyIR
	}

	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, ErrInvalidSampleRate
	}

	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	x := sanitize(raw)
	x = Gate(x, cfg.gateThresholdDB, cfg.gateAttenuation)

	if cfg.minimumPhase {
		x = MinimumPhase(x)
	}

	x = Normalize(x, cfg.peak)
	x = FadeOut(x, cfg.fadeFraction)

	return &ImpulseResponse{
		Samples:      x,
		SampleRate:   sampleRate,
		MinimumPhase: cfg.minimumPhase,
	}, nil
}

// sanitize copies x with NaN and Inf replaced by 0.
func sanitize(x []float32) []float32 {
	out := make([]float32, len(x))

	for i, v := range x {
		f := float64(v)
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			out[i] = v
		}
	}

	return out
}

// Gate attenuates everything before the onset of the main peak.
//
// Starting at the absolute peak it walks backwards while the preceding
// sample stays above peak·10^(thresholdDB/20); samples before that
// contiguous run are multiplied by attenuation. The gate never raises a
// sample's magnitude and never moves the peak.
func Gate(x []float32, thresholdDB, attenuation float64) []float32 {
	out := append([]float32(nil), x...)

	p, peak := core.PeakAbs(out)
	if peak == 0 {
		return out
	}

	threshold := float64(peak) * core.DBToLinear(thresholdDB)

	start := p
	for start > 0 && math.Abs(float64(out[start-1])) > threshold {
		start--
	}

	gain := float32(core.Clamp(attenuation, 0, 1))
	for i := range start {
		out[i] *= gain
	}

	return out
}

// MinimumPhase returns the minimum-phase IR with the magnitude response of x,
// computed by folding the real cepstrum at twice the input length.
func MinimumPhase(x []float32) []float32 {
	if len(x) == 0 {
		return nil
	}

	n := fft.NextPowerOf2(2 * len(x))
	half := n / 2
	engine := fft.NewEngine(n)

	re := make([]float32, n)
	im := make([]float32, n)
	copy(re, x)
	engine.Forward(re, im)

	mag := make([]float64, n)
	for k := range n {
		mag[k] = math.Hypot(float64(re[k]), float64(im[k]))
		re[k] = float32(math.Log(math.Max(mag[k], logFloor)))
		im[k] = 0
	}

	// Real cepstrum.
	engine.Inverse(re, im)

	// Causal fold: keep 0 and N/2, double the positive quefrencies.
	for k := 1; k < half; k++ {
		re[k] *= 2
	}

	for k := half + 1; k < n; k++ {
		re[k] = 0
	}

	clear(im)
	engine.Forward(re, im)

	for k := range n {
		phase := float64(im[k])
		re[k] = float32(mag[k] * math.Cos(phase))
		im[k] = float32(mag[k] * math.Sin(phase))
	}

	engine.Inverse(re, im)

	out := make([]float32, len(x))
	for i := range out {
		v := float64(re[i])
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = re[i]
		}
	}

	return out
}

// Normalize scales x so its absolute peak equals peak. Input whose peak is
// below 1e-10 is returned unscaled.
func Normalize(x []float32, peak float64) []float32 {
	out := append([]float32(nil), x...)

	_, current := core.PeakAbs(out)
	if float64(current) < core.Epsilon {
		return out
	}

	gain := float32(peak / float64(current))
	for i := range out {
		out[i] *= gain
	}

	return out
}

// FadeOut applies a half raised-cosine taper over the last
// int(len(x)·fraction) samples, ending at exactly 0.
func FadeOut(x []float32, fraction float64) []float32 {
	out := append([]float32(nil), x...)
	window.FadeOut(out, int(float64(len(out))*core.Clamp(fraction, 0, 1)))

	return out
}
