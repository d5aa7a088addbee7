package capture

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-ircap/dsp/conv"
	"github.com/cwbudde/algo-ircap/dsp/window"
	"github.com/cwbudde/algo-ircap/measure/ir"
	"github.com/cwbudde/algo-ircap/measure/sweep"
)

// Job defaults.
const (
	DefaultStartFreq  = 20.0
	DefaultEndFreq    = 20000.0
	DefaultDuration   = 3.0
	DefaultSampleRate = 48000.0
	DefaultIRDuration = 1.0
)

// Configuration errors.
var (
	ErrInvalidIRLength = errors.New("capture: IR length must be positive")
	ErrInvalidPadding  = errors.New("capture: padding must be finite and non-negative")
	ErrInvalidLambda   = errors.New("capture: regularization must be finite and non-negative")
	ErrInvalidMethod   = errors.New("capture: unknown deconvolution method")
	ErrHarmonicsMethod = errors.New("capture: harmonic IRs need the Farina method")
)

// Method selects how the deconvolve stage recovers the IR.
type Method int

const (
	// MethodWiener divides the wet spectrum by the dry one with λ
	// regularization. It works with any excitation.
	MethodWiener Method = iota

	// MethodFarina convolves the wet take with the sweep's analytic inverse
	// filter. It separates harmonic distortion from the linear IR but
	// assumes the excitation is the job's own sweep.
	MethodFarina
)

var methodNames = [...]string{"wiener", "farina"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("method(%d)", int(m))
	}

	return methodNames[m]
}

// ParseMethod returns the Method named s (case-insensitive).
func ParseMethod(s string) (Method, error) {
	for i, name := range methodNames {
		if strings.EqualFold(s, name) {
			return Method(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidMethod, s)
}

// Option configures a [Job].
type Option func(*config)

type config struct {
	sweep          sweep.LogSweep
	padding        float64
	irLength       int // 0 selects DefaultIRDuration at the sweep rate
	regularization float64
	method         Method
	maxHarmonic    int // 0 disables harmonic extraction
	window         window.Type
	taperAlpha     float64
	postProcess    []ir.Option
	progress       chan<- Progress
	log            *logrus.Entry
}

func defaultConfig() config {
	return config{
		sweep: sweep.LogSweep{
			StartFreq:  DefaultStartFreq,
			EndFreq:    DefaultEndFreq,
			Duration:   DefaultDuration,
			SampleRate: DefaultSampleRate,
		},
		padding:        sweep.DefaultPadding,
		regularization: conv.DefaultRegularization,
		log:            logrus.NewEntry(logrus.StandardLogger()),
	}
}

// WithSweep replaces the whole excitation descriptor.
func WithSweep(s sweep.LogSweep) Option {
	return func(c *config) {
		c.sweep = s
	}
}

// WithSampleRate sets the capture sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(c *config) {
		c.sweep.SampleRate = sampleRate
	}
}

// WithSweepRange sets the sweep's start and end frequency in Hz.
func WithSweepRange(startFreq, endFreq float64) Option {
	return func(c *config) {
		c.sweep.StartFreq = startFreq
		c.sweep.EndFreq = endFreq
	}
}

// WithSweepDuration sets the sweep length in seconds, excluding padding.
func WithSweepDuration(seconds float64) Option {
	return func(c *config) {
		c.sweep.Duration = seconds
	}
}

// WithPadding sets the silence added before and after the sweep.
func WithPadding(seconds float64) Option {
	return func(c *config) {
		c.padding = seconds
	}
}

// WithIRLength sets the captured IR length in samples.
func WithIRLength(samples int) Option {
	return func(c *config) {
		c.irLength = samples
	}
}

// WithRegularization sets the deconvolution λ.
func WithRegularization(lambda float64) Option {
	return func(c *config) {
		c.regularization = lambda
	}
}

// WithMethod selects the deconvolution method. The default is MethodWiener.
func WithMethod(m Method) Option {
	return func(c *config) {
		c.method = m
	}
}

// WithHarmonics extracts the harmonic IRs H2..maxHarmonic into
// [Result.Harmonics]. It needs MethodFarina; 0 disables extraction.
func WithHarmonics(maxHarmonic int) Option {
	return func(c *config) {
		c.maxHarmonic = maxHarmonic
	}
}

// WithWindow sets the analysis window of the Wiener deconvolution. alpha is
// the Tukey taper fraction and is ignored by other windows.
func WithWindow(t window.Type, alpha float64) Option {
	return func(c *config) {
		c.window = t
		c.taperAlpha = alpha
	}
}

// WithPostProcess appends options for the IR post-processor.
func WithPostProcess(opts ...ir.Option) Option {
	return func(c *config) {
		c.postProcess = append(c.postProcess, opts...)
	}
}

// WithMinimumPhase is shorthand for WithPostProcess(ir.WithMinimumPhase(enabled)).
func WithMinimumPhase(enabled bool) Option {
	return WithPostProcess(ir.WithMinimumPhase(enabled))
}

// WithProgress reports stage transitions on ch. Sends never block.
func WithProgress(ch chan<- Progress) Option {
	return func(c *config) {
		c.progress = ch
	}
}

// WithLogger sets the structured logger. A nil entry keeps the default.
func WithLogger(log *logrus.Entry) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

func (c *config) validate() error {
	if err := c.sweep.Validate(); err != nil {
		return err
	}

	if c.padding < 0 || math.IsNaN(c.padding) || math.IsInf(c.padding, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidPadding, c.padding)
	}

	if c.irLength < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIRLength, c.irLength)
	}

	if c.irLength == 0 {
		c.irLength = int(math.Round(DefaultIRDuration * c.sweep.SampleRate))
	}

	if c.regularization < 0 || math.IsNaN(c.regularization) || math.IsInf(c.regularization, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidLambda, c.regularization)
	}

	if c.method != MethodWiener && c.method != MethodFarina {
		return fmt.Errorf("%w: %v", ErrInvalidMethod, c.method)
	}

	if c.maxHarmonic != 0 {
		if c.method != MethodFarina {
			return ErrHarmonicsMethod
		}

		if c.maxHarmonic < 2 {
			return fmt.Errorf("%w: %d", sweep.ErrMaxHarmonic, c.maxHarmonic)
		}
	}

	if err := window.Validate(c.window, c.taperAlpha); err != nil {
		return err
	}

	return ir.ValidateOptions(c.postProcess...)
}
