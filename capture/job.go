package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-ircap/dsp/conv"
	"github.com/cwbudde/algo-ircap/measure/ir"
	"github.com/cwbudde/algo-ircap/measure/sweep"
)

// Errors returned while running a job.
var (
	ErrRender   = errors.New("capture: render failed")
	ErrEmptyWet = errors.New("capture: renderer returned no samples")
)

// Stage identifies a step of the capture pipeline.
type Stage int

const (
	StageSweep Stage = iota
	StageRender
	StageDeconvolve
	StagePostProcess
	StageDone
)

var stageNames = [...]string{"sweep", "render", "deconvolve", "postprocess", "done"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}

	return stageNames[s]
}

// Progress is one stage transition. Fraction runs from 0 to 1 across the
// whole job.
type Progress struct {
	Stage    Stage
	Fraction float64
}

// Result is delivered by [Job.Start].
type Result struct {
	IR        *ir.ImpulseResponse
	Raw       []float32   // deconvolved IR before post-processing
	Harmonics [][]float32 // raw H2..Hn IRs when WithHarmonics is set
	Elapsed   time.Duration
	Err       error
}

// Job is a configured capture. A Job holds no mutable state and may be run
// any number of times, concurrently.
type Job struct {
	cfg config
}

// NewJob validates the options and returns a Job.
func NewJob(opts ...Option) (*Job, error) {
	cfg := defaultConfig()

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &Job{cfg: cfg}, nil
}

// Sweep returns the excitation descriptor.
func (j *Job) Sweep() sweep.LogSweep {
	return j.cfg.sweep
}

// IRLength returns the captured IR length in samples.
func (j *Job) IRLength() int {
	return j.cfg.irLength
}

// Excitation returns the padded sweep the job sends to the renderer.
func (j *Job) Excitation() ([]float32, error) {
	s := j.cfg.sweep

	sig, err := s.Generate()
	if err != nil {
		return nil, err
	}

	return sweep.Pad(sig, s.SampleRate, j.cfg.padding), nil
}

// Run executes the capture synchronously.
func (j *Job) Run(ctx context.Context, r Renderer) (*ir.ImpulseResponse, error) {
	res := j.run(ctx, r)
	return res.IR, res.Err
}

// Start executes the capture on its own goroutine. The returned channel
// yields exactly one Result and is then closed.
func (j *Job) Start(ctx context.Context, r Renderer) <-chan Result {
	out := make(chan Result, 1)

	go func() {
		defer close(out)
		out <- j.run(ctx, r)
	}()

	return out
}

func (j *Job) run(ctx context.Context, r Renderer) (res Result) {
	start := time.Now()
	log := j.cfg.log.WithFields(logrus.Fields{
		"sample_rate": j.cfg.sweep.SampleRate,
		"ir_length":   j.cfg.irLength,
		"method":      j.cfg.method.String(),
	})

	defer func() {
		res.Elapsed = time.Since(start)

		if res.Err != nil {
			log.WithError(res.Err).WithField("elapsed", res.Elapsed).Error("Capture failed")
			return
		}

		j.report(StageDone, 1)
		log.WithField("elapsed", res.Elapsed).Info("Capture finished")
	}()

	if r == nil {
		res.Err = fmt.Errorf("%w: nil renderer", ErrRender)
		return res
	}

	if res.Err = j.enter(ctx, log, StageSweep, 0); res.Err != nil {
		return res
	}

	dry, err := j.Excitation()
	if err != nil {
		res.Err = err
		return res
	}

	if res.Err = j.enter(ctx, log, StageRender, 0.1); res.Err != nil {
		return res
	}

	wet, err := r.Render(ctx, dry)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrRender, err)
		return res
	}

	if len(wet) == 0 {
		res.Err = ErrEmptyWet
		return res
	}

	log.WithFields(logrus.Fields{"dry": len(dry), "wet": len(wet)}).Debug("Rendered excitation")

	if res.Err = j.enter(ctx, log, StageDeconvolve, 0.5); res.Err != nil {
		return res
	}

	res.Raw, res.Harmonics, res.Err = j.deconvolve(dry, wet)
	if res.Err != nil {
		return res
	}

	if res.Err = j.enter(ctx, log, StagePostProcess, 0.9); res.Err != nil {
		return res
	}

	res.IR, res.Err = ir.Process(res.Raw, j.cfg.sweep.SampleRate, j.cfg.postProcess...)

	return res
}

func (j *Job) deconvolve(dry, wet []float32) ([]float32, [][]float32, error) {
	if j.cfg.method == MethodWiener {
		raw, err := conv.Deconvolve(conv.DeconvRequest{
			Dry:            dry,
			Wet:            wet,
			IRLength:       j.cfg.irLength,
			Regularization: j.cfg.regularization,
			Window:         j.cfg.window,
			TaperAlpha:     j.cfg.taperAlpha,
		})

		return raw, nil, err
	}

	// The inverse filter expects the take to start with the sweep, so the
	// leading padding is dropped first.
	s := j.cfg.sweep
	lead := (len(dry) - s.Samples()) / 2

	if lead >= len(wet) {
		return nil, nil, fmt.Errorf("%w: take of %d samples ends inside the leading padding", ErrEmptyWet, len(wet))
	}

	full, err := s.Deconvolve(wet[lead:])
	if err != nil {
		return nil, nil, err
	}

	raw := make([]float32, j.cfg.irLength)
	if offset := s.Samples() - 1; offset < len(full) {
		copy(raw, full[offset:])
	}

	if j.cfg.maxHarmonic == 0 {
		return raw, nil, nil
	}

	parts, err := s.SplitHarmonics(full, j.cfg.maxHarmonic)
	if err != nil {
		return nil, nil, err
	}

	return raw, parts[1:], nil
}

// enter checks for cancellation, then logs and reports the stage.
func (j *Job) enter(ctx context.Context, log *logrus.Entry, stage Stage, fraction float64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("capture: canceled before %s: %w", stage, err)
	}

	log.WithField("stage", stage.String()).Debug("Entering stage")
	j.report(stage, fraction)

	return nil
}

func (j *Job) report(stage Stage, fraction float64) {
	if j.cfg.progress == nil {
		return
	}

	select {
	case j.cfg.progress <- Progress{Stage: stage, Fraction: fraction}:
	default:
	}
}
