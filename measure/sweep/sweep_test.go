package sweep

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-ircap/dsp/conv"
	"github.com/cwbudde/algo-ircap/internal/testutil"
)

func TestLogSweepValidation(t *testing.T) {
	tests := []struct {
		name    string
		sweep   LogSweep
		wantErr error
	}{
		{"valid", LogSweep{20, 20000, 1, 48000, 0}, nil},
		{"zero start freq", LogSweep{0, 20000, 1, 48000, 0}, ErrInvalidFrequency},
		{"negative end freq", LogSweep{20, -1, 1, 48000, 0}, ErrInvalidFrequency},
		{"start >= end", LogSweep{1000, 100, 1, 48000, 0}, ErrFrequencyOrder},
		{"equal freqs", LogSweep{1000, 1000, 1, 48000, 0}, ErrFrequencyOrder},
		{"zero sample rate", LogSweep{20, 20000, 1, 0, 0}, ErrInvalidSampleRate},
		{"end at nyquist", LogSweep{20, 24000, 1, 48000, 0}, ErrAboveNyquist},
		{"end above nyquist", LogSweep{20, 30000, 1, 48000, 0}, ErrAboveNyquist},
		{"zero duration", LogSweep{20, 20000, 0, 48000, 0}, ErrInvalidDuration},
		{"negative duration", LogSweep{20, 20000, -1, 48000, 0}, ErrInvalidDuration},
		{"negative fade", LogSweep{20, 20000, 1, 48000, -0.1}, ErrInvalidFade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sweep.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogSweepGenerate(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 10000, Duration: 1, SampleRate: 44100}

	sweep, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if len(sweep) != 44100 {
		t.Fatalf("length = %d, want 44100", len(sweep))
	}

	fade := s.FadeSamples()
	if fade != 4410 {
		t.Fatalf("FadeSamples() = %d, want 4410", fade)
	}

	if sweep[0] != 0 || sweep[len(sweep)-1] != 0 {
		t.Errorf("edges = %v, %v, want 0", sweep[0], sweep[len(sweep)-1])
	}

	// Both edges stay inside the raised-cosine envelope.
	n := len(sweep)
	for i := range fade {
		env := 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(fade-1)))
		if math.Abs(float64(sweep[i])) > env+1e-6 {
			t.Fatalf("sample %d = %v exceeds fade-in envelope %v", i, sweep[i], env)
		}

		if math.Abs(float64(sweep[n-1-i])) > env+1e-6 {
			t.Fatalf("sample %d = %v exceeds fade-out envelope %v", n-1-i, sweep[n-1-i], env)
		}
	}

	peak := 0.0
	for _, v := range sweep[fade : n-fade] {
		peak = math.Max(peak, math.Abs(float64(v)))
	}

	if peak < 0.99 || peak > 1 {
		t.Errorf("body peak = %v, want ~1", peak)
	}
}

func TestLogSweepFrequencyIncreases(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 10000, Duration: 1, SampleRate: 44100}

	if got := s.InstantaneousFrequency(0); math.Abs(got-100) > 1e-9 {
		t.Errorf("f(0) = %v, want 100", got)
	}

	if got := s.InstantaneousFrequency(1); math.Abs(got-10000) > 1e-6 {
		t.Errorf("f(T) = %v, want 10000", got)
	}

	prev := 0.0
	for i := range s.Samples() {
		f := s.InstantaneousFrequency(float64(i) / s.SampleRate)
		if f <= prev {
			t.Fatalf("frequency not strictly increasing at sample %d: %v <= %v", i, f, prev)
		}

		prev = f
	}

	// Zero crossings of the generated signal agree: the second half holds
	// far more of them than the first.
	sweep, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	half := len(sweep) / 2
	first := zeroCrossings(sweep[:half])
	second := zeroCrossings(sweep[half:])

	if second < 5*first {
		t.Errorf("zero crossings: first half %d, second half %d", first, second)
	}
}

func zeroCrossings(x []float32) int {
	n := 0
	for i := 1; i < len(x); i++ {
		if (x[i-1] < 0) != (x[i] < 0) {
			n++
		}
	}

	return n
}

func TestLogSweepDeterministic(t *testing.T) {
	s := &LogSweep{StartFreq: 40, EndFreq: 18000, Duration: 0.5, SampleRate: 48000}

	a, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	b, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		if math.Float32bits(a[i]) != math.Float32bits(b[i]) {
			t.Fatalf("sample %d differs between runs", i)
		}
	}
}

func TestLogSweepFadeCapped(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 1000, Duration: 0.1, SampleRate: 8000, Fade: 1}

	if got := s.FadeSamples(); got != 400 {
		t.Fatalf("FadeSamples() = %d, want 400 (half of 800)", got)
	}

	sweep, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if len(sweep) != 800 {
		t.Fatalf("length = %d, want 800", len(sweep))
	}
}

func TestPad(t *testing.T) {
	sig := []float32{1, 2, 3}

	out := Pad(sig, 10, 0.5)
	if len(out) != 13 {
		t.Fatalf("len = %d, want 13", len(out))
	}

	for i, v := range out {
		want := float32(0)
		if i >= 5 && i < 8 {
			want = sig[i-5]
		}

		if v != want {
			t.Fatalf("out[%d] = %v, want %v", i, v, want)
		}
	}

	if got := Pad(sig, 10, -1); len(got) != 3 {
		t.Fatalf("negative padding: len = %d, want 3", len(got))
	}
}

func TestLogSweepInverseFilter(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 4000, Duration: 0.5, SampleRate: 16000}

	inv, err := s.InverseFilter()
	if err != nil {
		t.Fatal(err)
	}

	if len(inv) != s.Samples() {
		t.Fatalf("inverse filter length = %d, want %d", len(inv), s.Samples())
	}

	// The inverse opens with the sweep's high end, attenuated by f1/f2.
	head, tail := 0.0, 0.0
	for i := range 500 {
		head = math.Max(head, math.Abs(inv[i]))
		tail = math.Max(tail, math.Abs(inv[len(inv)-1-i]))
	}

	if tail <= head {
		t.Errorf("expected rising envelope: head %v, tail %v", head, tail)
	}
}

func TestLogSweepDeconvolveIdentity(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 4000, Duration: 0.25, SampleRate: 16000}

	sweep, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	ir, err := s.Deconvolve(sweep)
	if err != nil {
		t.Fatal(err)
	}

	if len(ir) != 2*s.Samples()-1 {
		t.Fatalf("length = %d, want %d", len(ir), 2*s.Samples()-1)
	}

	testutil.RequireFinite32(t, ir)

	peakIdx := testutil.PeakIndex(ir)
	if d := peakIdx - (s.Samples() - 1); d < -2 || d > 2 {
		t.Errorf("peak at %d, want near %d", peakIdx, s.Samples()-1)
	}

	var total float64
	for _, v := range ir {
		total += float64(v) * float64(v)
	}

	peak := float64(ir[peakIdx])
	peakToAvgDB := 10 * math.Log10(peak*peak/(total/float64(len(ir))))

	if peakToAvgDB < 15 {
		t.Errorf("peak-to-average ratio = %.1f dB, want >= 15 dB", peakToAvgDB)
	}
}

func TestLogSweepDeconvolveKnownIR(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 4000, Duration: 0.5, SampleRate: 16000, Fade: 0.01}

	sweep, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	knownIR := make([]float32, 200)
	knownIR[0] = 1
	knownIR[100] = 0.3

	response, err := conv.Direct32(sweep, knownIR)
	if err != nil {
		t.Fatal(err)
	}

	recovered, err := s.Deconvolve(response)
	if err != nil {
		t.Fatal(err)
	}

	peakIdx := testutil.PeakIndex(recovered)
	peakVal := math.Abs(float64(recovered[peakIdx]))

	second := 0.0
	for i := peakIdx + 80; i < min(peakIdx+120, len(recovered)); i++ {
		second = math.Max(second, math.Abs(float64(recovered[i])))
	}

	if ratio := second / peakVal; ratio < 0.15 || ratio > 0.5 {
		t.Errorf("reflection amplitude ratio = %.3f, want ~0.3", ratio)
	}
}

func TestLogSweepDeconvolveEmptyResponse(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 4000, Duration: 0.5, SampleRate: 16000}

	if _, err := s.Deconvolve(nil); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Deconvolve(nil) = %v, want ErrEmptyResponse", err)
	}

	bad := &LogSweep{StartFreq: 100, EndFreq: 4000, Duration: 0, SampleRate: 16000}
	if _, err := bad.Deconvolve([]float32{1}); !errors.Is(err, ErrInvalidDuration) {
		t.Errorf("Deconvolve with invalid sweep = %v, want ErrInvalidDuration", err)
	}
}

func TestLogSweepExtractHarmonicIRs(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 4000, Duration: 0.5, SampleRate: 16000, Fade: 0.01}

	sweep, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	harmonics, err := s.ExtractHarmonicIRs(sweep, 3)
	if err != nil {
		t.Fatal(err)
	}

	if len(harmonics) != 3 {
		t.Fatalf("expected 3 harmonic IRs, got %d", len(harmonics))
	}

	energies := make([]float64, len(harmonics))
	for h, ir := range harmonics {
		for _, v := range ir {
			energies[h] += float64(v) * float64(v)
		}
	}

	if energies[0] == 0 {
		t.Fatal("linear IR has zero energy")
	}

	for h := 1; h < len(harmonics); h++ {
		if energies[h]/energies[0] > 0.1 {
			t.Errorf("H%d energy ratio = %.3f, expected < 0.1 for linear system", h+1, energies[h]/energies[0])
		}
	}

	if _, err := s.ExtractHarmonicIRs(sweep, 1); !errors.Is(err, ErrMaxHarmonic) {
		t.Errorf("ExtractHarmonicIRs(maxHarmonic=1) = %v, want ErrMaxHarmonic", err)
	}
}

func TestLogSweepSplitHarmonicsNonlinear(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 2000, Duration: 0.5, SampleRate: 16000, Fade: 0.01}

	sweep, err := s.Generate()
	if err != nil {
		t.Fatal(err)
	}

	distorted := make([]float32, len(sweep))
	for i, v := range sweep {
		distorted[i] = v + 0.3*v*v
	}

	h2Energy := func(response []float32) float64 {
		deconv, err := s.Deconvolve(response)
		if err != nil {
			t.Fatal(err)
		}

		parts, err := s.SplitHarmonics(deconv, 2)
		if err != nil {
			t.Fatal(err)
		}

		var e float64
		for _, v := range parts[1] {
			e += float64(v) * float64(v)
		}

		return e
	}

	clean, dirty := h2Energy(sweep), h2Energy(distorted)
	if dirty <= 3*clean {
		t.Errorf("H2 energy with distortion = %g, want well above clean %g", dirty, clean)
	}
}

func TestLogSweepSplitHarmonicsErrors(t *testing.T) {
	s := &LogSweep{StartFreq: 100, EndFreq: 4000, Duration: 0.5, SampleRate: 16000}

	if _, err := s.SplitHarmonics(nil, 3); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("SplitHarmonics(nil) = %v, want ErrEmptyResponse", err)
	}

	if _, err := s.SplitHarmonics([]float32{1}, 0); !errors.Is(err, ErrMaxHarmonic) {
		t.Errorf("SplitHarmonics(max=0) = %v, want ErrMaxHarmonic", err)
	}
}
