package ir

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-ircap/dsp/core"
)

// Errors returned by IR analysis functions.
var (
	ErrEmptyIR           = errors.New("ir: impulse response is empty")
	ErrInvalidSampleRate = errors.New("ir: sample rate must be positive")
	ErrInvalidTime       = errors.New("ir: time must be positive")
	ErrNoDecay           = errors.New("ir: insufficient decay for RT calculation")
	ErrSilentIR          = errors.New("ir: impulse response carries no energy")
)

// schroederFloorDB is reported where the remaining energy is zero.
const schroederFloorDB = -200

// Metrics holds impulse response analysis results.
type Metrics struct {
	RT60       float64 // reverberation time in seconds (T30, else T20)
	EDT        float64 // early decay time in seconds (0 to -10 dB)
	T20        float64 // RT from -5 to -25 dB slope
	T30        float64 // RT from -5 to -35 dB slope
	C50        float64 // clarity at 50ms in dB
	C80        float64 // clarity at 80ms in dB
	D50        float64 // definition at 50ms (ratio 0-1)
	D80        float64 // definition at 80ms (ratio 0-1)
	CenterTime float64 // energy centroid in seconds
	PeakIndex  int     // sample index of the absolute maximum
}

// Analyzer computes IR metrics.
type Analyzer struct {
	SampleRate float64
}

// NewAnalyzer creates an IR analyzer with the given sample rate.
func NewAnalyzer(sampleRate float64) *Analyzer {
	return &Analyzer{SampleRate: sampleRate}
}

func (a *Analyzer) check(ir []float32) error {
	if len(ir) == 0 {
		return ErrEmptyIR
	}

	if a.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}

	// Energy ratios of silence are 0/0; a failed capture must not read as
	// a perfectly clear room.
	var energy float64
	for _, v := range ir {
		energy += float64(v) * float64(v)
	}

	if energy < core.Epsilon {
		return ErrSilentIR
	}

	return nil
}

// Analyze computes all metrics. Everything except PeakIndex is measured
// from the peak onwards.
func (a *Analyzer) Analyze(ir []float32) (Metrics, error) {
	if err := a.check(ir); err != nil {
		return Metrics{}, err
	}

	peakIdx, _ := core.PeakAbs(ir)
	h := core.Widen(ir[peakIdx:])
	schroeder := schroederIntegral(h)

	m := Metrics{
		PeakIndex:  peakIdx,
		CenterTime: a.centerTime(h),
		D50:        a.definition(h, 50),
		D80:        a.definition(h, 80),
		C50:        a.clarity(h, 50),
		C80:        a.clarity(h, 80),
		EDT:        a.reverbTime(schroeder, 0, -10),
		T20:        a.reverbTime(schroeder, -5, -25),
		T30:        a.reverbTime(schroeder, -5, -35),
	}

	m.RT60 = m.T30
	if m.RT60 <= 0 {
		m.RT60 = m.T20
	}

	return m, nil
}

// SchroederIntegral returns the backward-integrated energy decay in dB,
//
//	S(t) = 10*log10( ∫_t^∞ h²(τ) dτ / ∫_0^∞ h²(τ) dτ )
func (a *Analyzer) SchroederIntegral(ir []float32) ([]float64, error) {
	if len(ir) == 0 {
		return nil, ErrEmptyIR
	}

	return schroederIntegral(core.Widen(ir)), nil
}

func schroederIntegral(h []float64) []float64 {
	out := make([]float64, len(h))

	var sum float64
	for i := len(h) - 1; i >= 0; i-- {
		sum += h[i] * h[i]
		out[i] = sum
	}

	total := out[0]
	if total <= 0 {
		return out
	}

	for i, e := range out {
		if e <= 0 {
			out[i] = schroederFloorDB
			continue
		}

		out[i] = 10 * math.Log10(e/total)
	}

	return out
}

// reverbTime fits a line to the Schroeder curve between startDB and endDB
// and extrapolates it to -60 dB. It returns 0 when the curve never spans
// the range or does not decay.
func (a *Analyzer) reverbTime(schroeder []float64, startDB, endDB float64) float64 {
	startIdx, endIdx := -1, -1

	for i, v := range schroeder {
		if startIdx < 0 && v <= startDB {
			startIdx = i
		}

		if startIdx >= 0 && v <= endDB {
			endIdx = i
			break
		}
	}

	if startIdx < 0 || endIdx-startIdx < 1 {
		return 0
	}

	y := schroeder[startIdx : endIdx+1]
	x := make([]float64, len(y))

	for i := range x {
		x[i] = float64(i)
	}

	_, slope := stat.LinearRegression(x, y, nil, false)
	if slope >= 0 || math.IsNaN(slope) {
		return 0
	}

	// slope is dB per sample.
	return -60 / (slope * a.SampleRate)
}

// Definition computes D(t), the share of energy before timeMs.
func (a *Analyzer) Definition(ir []float32, timeMs float64) (float64, error) {
	if err := a.check(ir); err != nil {
		return 0, err
	}

	if timeMs <= 0 {
		return 0, ErrInvalidTime
	}

	return a.definition(core.Widen(ir), timeMs), nil
}

func (a *Analyzer) definition(h []float64, timeMs float64) float64 {
	boundary := a.boundary(timeMs)
	if boundary <= 0 {
		return 0
	}

	if boundary >= len(h) {
		return 1
	}

	total := floats.Dot(h, h)
	if total <= 0 {
		return 0
	}

	early := h[:boundary]

	return floats.Dot(early, early) / total
}

// Clarity computes C(t) = 10*log10(early/late) in dB at timeMs.
func (a *Analyzer) Clarity(ir []float32, timeMs float64) (float64, error) {
	if err := a.check(ir); err != nil {
		return 0, err
	}

	if timeMs <= 0 {
		return 0, ErrInvalidTime
	}

	return a.clarity(core.Widen(ir), timeMs), nil
}

func (a *Analyzer) clarity(h []float64, timeMs float64) float64 {
	boundary := a.boundary(timeMs)
	if boundary <= 0 {
		return math.Inf(-1)
	}

	if boundary >= len(h) {
		return math.Inf(1)
	}

	early, late := h[:boundary], h[boundary:]
	ee, le := floats.Dot(early, early), floats.Dot(late, late)

	switch {
	case le <= 0:
		return math.Inf(1)
	case ee <= 0:
		return math.Inf(-1)
	}

	return 10 * math.Log10(ee/le)
}

func (a *Analyzer) boundary(timeMs float64) int {
	return int(math.Round(timeMs * 0.001 * a.SampleRate))
}

// CenterTime computes the temporal energy centroid in seconds.
func (a *Analyzer) CenterTime(ir []float32) (float64, error) {
	if err := a.check(ir); err != nil {
		return 0, err
	}

	return a.centerTime(core.Widen(ir)), nil
}

func (a *Analyzer) centerTime(h []float64) float64 {
	energy := make([]float64, len(h))
	times := make([]float64, len(h))

	for i, v := range h {
		energy[i] = v * v
		times[i] = float64(i) / a.SampleRate
	}

	if floats.Sum(energy) <= 0 {
		return 0
	}

	return stat.Mean(times, energy)
}

// RT60 computes the reverberation time from T30, falling back to T20.
func (a *Analyzer) RT60(ir []float32) (float64, error) {
	if err := a.check(ir); err != nil {
		return 0, err
	}

	schroeder := schroederIntegral(core.Widen(ir))

	if rt := a.reverbTime(schroeder, -5, -35); rt > 0 {
		return rt, nil
	}

	if rt := a.reverbTime(schroeder, -5, -25); rt > 0 {
		return rt, nil
	}

	return 0, ErrNoDecay
}

// FindImpulseStart returns the first sample within 20 dB of the peak.
func (a *Analyzer) FindImpulseStart(ir []float32) (int, error) {
	if len(ir) == 0 {
		return 0, ErrEmptyIR
	}

	_, peak := core.PeakAbs(ir)
	threshold := peak * 0.1

	for i, v := range ir {
		if math.Abs(float64(v)) >= float64(threshold) {
			return i, nil
		}
	}

	return 0, nil
}
