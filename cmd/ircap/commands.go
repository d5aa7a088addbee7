package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-ircap/capture"
	"github.com/cwbudde/algo-ircap/dsp/conv"
	"github.com/cwbudde/algo-ircap/dsp/core"
	"github.com/cwbudde/algo-ircap/dsp/window"
	"github.com/cwbudde/algo-ircap/internal/irstore"
	"github.com/cwbudde/algo-ircap/internal/wavio"
	"github.com/cwbudde/algo-ircap/measure/ir"
	"github.com/cwbudde/algo-ircap/measure/sweep"
)

var errMissingFlag = errors.New("missing required flag")

// sweepFlags are shared by every command that generates the excitation.
type sweepFlags struct {
	start, end, duration, padding float64
}

func (f *sweepFlags) register(fs *flag.FlagSet) {
	fs.Float64Var(&f.start, "start", capture.DefaultStartFreq, "sweep start frequency in Hz")
	fs.Float64Var(&f.end, "end", capture.DefaultEndFreq, "sweep end frequency in Hz")
	fs.Float64Var(&f.duration, "duration", capture.DefaultDuration, "sweep duration in seconds")
	fs.Float64Var(&f.padding, "padding", sweep.DefaultPadding, "silence before and after the sweep in seconds")
}

func (f *sweepFlags) options(sampleRate float64) []capture.Option {
	return []capture.Option{
		capture.WithSampleRate(sampleRate),
		capture.WithSweepRange(f.start, f.end),
		capture.WithSweepDuration(f.duration),
		capture.WithPadding(f.padding),
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)

	return fs
}

func require(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: -%s", errMissingFlag, name)
	}

	return nil
}

func runSweep(args []string, cfg settings, log *logrus.Entry, stdout io.Writer) error {
	fs := newFlagSet("sweep", stdout)

	var sf sweepFlags
	sf.register(fs)

	out := fs.String("o", "", "output WAV file")
	rate := fs.Float64("rate", cfg.stream.SampleRate, "sample rate in Hz")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := require("o", *out); err != nil {
		return err
	}

	sr, err := wholeRate(*rate)
	if err != nil {
		return err
	}

	job, err := capture.NewJob(append(sf.options(*rate), capture.WithLogger(log))...)
	if err != nil {
		return err
	}

	sig, err := job.Excitation()
	if err != nil {
		return err
	}

	if err := wavio.WriteFile(*out, sig, sr); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"path": *out, "samples": len(sig)}).Info("Wrote sweep")
	fmt.Fprintf(stdout, "wrote %d samples (%.2f s) to %s\n", len(sig), float64(len(sig)) / *rate, *out)

	return nil
}

func runCapture(ctx context.Context, args []string, cfg settings, log *logrus.Entry, stdout io.Writer, simulate bool) error {
	name := "capture"
	source := "wet"
	usage := "recorded wet take of the sweep (WAV)"

	if simulate {
		name, source, usage = "simulate", "rig", "IR of the simulated rig (WAV)"
	}

	fs := newFlagSet(name, stdout)

	var sf sweepFlags
	sf.register(fs)

	in := fs.String(source, "", usage)
	out := fs.String("o", "", "output IR WAV file")
	irLength := fs.Int("ir-length", 0, "IR length in samples (0 = one second)")
	lambda := fs.Float64("lambda", conv.DefaultRegularization, "deconvolution regularization")
	minPhase := fs.Bool("minphase", false, "convert the IR to minimum phase")
	method := fs.String("method", capture.MethodWiener.String(), "deconvolution method: wiener or farina")
	harmonics := fs.Int("harmonics", 0, "with -method farina, also write the H2..N IRs next to -o")
	win := fs.String("window", window.TypeBlackman.String(), "wiener analysis window: blackman, hann, tukey or rectangular")
	taper := fs.Float64("taper", 0, "tukey taper fraction (0 = default)")
	entryName := fs.String("name", "", "catalog name (default: output file name)")
	db := fs.String("db", cfg.db, "catalog database, empty to skip")
	block := fs.Int("block", cfg.stream.BlockSize, "block size of the simulated rig")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := require(source, *in); err != nil {
		return err
	}

	if err := require("o", *out); err != nil {
		return err
	}

	deconv, err := capture.ParseMethod(*method)
	if err != nil {
		return err
	}

	wt, err := window.ParseType(*win)
	if err != nil {
		return err
	}

	input, rate, err := wavio.ReadFile(*in)
	if err != nil {
		return err
	}

	opts := append(sf.options(float64(rate)),
		capture.WithIRLength(*irLength),
		capture.WithRegularization(*lambda),
		capture.WithMinimumPhase(*minPhase),
		capture.WithMethod(deconv),
		capture.WithHarmonics(*harmonics),
		capture.WithWindow(wt, *taper),
		capture.WithLogger(log),
	)

	job, err := capture.NewJob(opts...)
	if err != nil {
		return err
	}

	renderer := capture.Recorded(input)
	if simulate {
		renderer = capture.ConvolutionRig(input, *block)
	}

	res := <-job.Start(ctx, renderer)
	if res.Err != nil {
		return res.Err
	}

	resp := res.IR
	if err := wavio.WriteFile(*out, resp.Samples, rate); err != nil {
		return err
	}

	for i, h := range res.Harmonics {
		path := harmonicPath(*out, i+2)
		if err := wavio.WriteFile(path, ir.Normalize(h, ir.DefaultPeak), rate); err != nil {
			return err
		}

		fmt.Fprintf(stdout, "wrote H%d IR to %s\n", i+2, path)
	}

	rt60 := 0.0
	if m, err := resp.Metrics(); err == nil {
		rt60 = m.RT60
	}

	fmt.Fprintf(stdout, "wrote %d-sample IR to %s (RT60 %.3f s)\n", resp.Len(), *out, rt60)

	if *db == "" {
		return nil
	}

	if *entryName == "" {
		*entryName = strings.TrimSuffix(filepath.Base(*out), filepath.Ext(*out))
	}

	s := job.Sweep()
	entry := irstore.Entry{
		Name:           *entryName,
		Path:           *out,
		SampleRate:     rate,
		Length:         resp.Len(),
		MinimumPhase:   resp.MinimumPhase,
		StartFreq:      s.StartFreq,
		EndFreq:        s.EndFreq,
		SweepDuration:  s.Duration,
		Regularization: *lambda,
		RT60:           rt60,
	}

	id, err := addToCatalog(ctx, *db, entry)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{"id": id, "name": entry.Name, "db": *db}).Info("Cataloged IR")

	return nil
}

// harmonicPath turns cab.wav into cab-h2.wav.
func harmonicPath(out string, k int) string {
	ext := filepath.Ext(out)
	return fmt.Sprintf("%s-h%d%s", strings.TrimSuffix(out, ext), k, ext)
}

func addToCatalog(ctx context.Context, dsn string, e irstore.Entry) (int64, error) {
	store, err := irstore.Open(dsn)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	return store.Add(ctx, e)
}

func runConvolve(args []string, cfg settings, log *logrus.Entry, stdout io.Writer) error {
	fs := newFlagSet("convolve", stdout)

	irPath := fs.String("ir", "", "IR WAV file")
	in := fs.String("in", "", "input WAV file")
	out := fs.String("o", "", "output WAV file")
	block := fs.Int("block", cfg.stream.BlockSize, "processing block size")
	tail := fs.Bool("tail", true, "append the IR tail to the output")

	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, f := range []struct{ name, value string }{{"ir", *irPath}, {"in", *in}, {"o", *out}} {
		if err := require(f.name, f.value); err != nil {
			return err
		}
	}

	h, irRate, err := wavio.ReadFile(*irPath)
	if err != nil {
		return err
	}

	x, rate, err := wavio.ReadFile(*in)
	if err != nil {
		return err
	}

	if irRate != rate {
		return fmt.Errorf("sample rate mismatch: IR %d Hz, input %d Hz", irRate, rate)
	}

	stream := core.ApplyStreamOptions(core.WithSampleRate(float64(rate)), core.WithBlockSize(*block))
	if err := stream.Validate(); err != nil {
		return err
	}

	c, err := conv.NewConvolver(h, stream.BlockSize)
	if err != nil {
		return err
	}

	extra := 0
	if *tail {
		extra = len(h) - 1
	}

	y := c.ConvolveBlocks(x, extra)

	// Only scale down; quiet results keep their level.
	if _, peak := core.PeakAbs(y); peak > 1 {
		y = ir.Normalize(y, ir.DefaultPeak)
	}

	if err := wavio.WriteFile(*out, y, rate); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"partitions": c.Partitions(),
		"latency_ms": 1000 * stream.BlockDuration(),
	}).Info("Convolved")
	fmt.Fprintf(stdout, "wrote %d samples to %s (%d partitions, %.2f ms block latency)\n",
		len(y), *out, c.Partitions(), 1000*stream.BlockDuration())

	return nil
}

func runAnalyze(args []string, stdout io.Writer) error {
	fs := newFlagSet("analyze", stdout)
	irPath := fs.String("ir", "", "IR WAV file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := require("ir", *irPath); err != nil {
		return err
	}

	h, rate, err := wavio.ReadFile(*irPath)
	if err != nil {
		return err
	}

	m, err := ir.NewAnalyzer(float64(rate)).Analyze(h)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "samples\t%d\n", len(h))
	fmt.Fprintf(w, "sample rate\t%d Hz\n", rate)
	fmt.Fprintf(w, "peak index\t%d\n", m.PeakIndex)
	fmt.Fprintf(w, "RT60\t%.3f s\n", m.RT60)
	fmt.Fprintf(w, "EDT\t%.3f s\n", m.EDT)
	fmt.Fprintf(w, "C50\t%s\n", formatDB(m.C50))
	fmt.Fprintf(w, "C80\t%s\n", formatDB(m.C80))
	fmt.Fprintf(w, "D50\t%.3f\n", m.D50)
	fmt.Fprintf(w, "center time\t%.2f ms\n", 1000*m.CenterTime)

	if err := writeOctaves(w, h, rate); err != nil {
		return err
	}

	return w.Flush()
}

// writeOctaves prints the magnitude response at octave centres relative to
// its maximum.
func writeOctaves(w io.Writer, h []float32, rate int) error {
	mag, err := ir.MagnitudeResponse(h, 0)
	if err != nil {
		return err
	}

	size := 2 * (len(mag) - 1)
	ref := floats.Max(mag)

	fmt.Fprintln(w, "octave\tlevel")

	for f := 31.25; f < float64(rate)/2; f *= 2 {
		k := int(math.Round(f * float64(size) / float64(rate)))
		if k == 0 || k >= len(mag) {
			continue
		}

		fmt.Fprintf(w, "%.0f Hz\t%.1f dB\n", f, mag[k]-ref)
	}

	return nil
}

func formatDB(v float64) string {
	if math.IsInf(v, 0) {
		return fmt.Sprintf("%v dB", v)
	}

	return fmt.Sprintf("%.1f dB", v)
}

func runList(ctx context.Context, args []string, cfg settings, stdout io.Writer) error {
	fs := newFlagSet("list", stdout)
	db := fs.String("db", cfg.db, "catalog database")

	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := irstore.Open(*db)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRATE\tLENGTH\tMINPHASE\tRT60\tPATH")

	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%t\t%.3f\t%s\n",
			e.ID, e.Name, e.SampleRate, e.Length, e.MinimumPhase, e.RT60, e.Path)
	}

	return w.Flush()
}
