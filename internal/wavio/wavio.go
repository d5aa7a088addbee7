// Package wavio reads and writes impulse responses as PCM WAV files.
package wavio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// BitDepth is the sample width written by [WriteMono16].
const BitDepth = 16

// Errors returned by the WAV adapter.
var (
	ErrInvalidSampleRate = errors.New("wavio: sample rate must be positive")
	ErrInvalidFile       = errors.New("wavio: not a valid WAV file")
	ErrUnsupportedFormat = errors.New("wavio: unsupported WAV format")
)

// WriteMono16 encodes samples as 16-bit little-endian PCM mono at
// sampleRate. Samples are clamped to [-1, 1].
func WriteMono16(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, sampleRate)
	}

	enc := wav.NewEncoder(w, sampleRate, BitDepth, 1, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           quantize(samples),
		SourceBitDepth: BitDepth,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavio: encode: %w", err)
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavio: finalize: %w", err)
	}

	return nil
}

// WriteFile writes samples to path with [WriteMono16].
func WriteFile(path string, samples []float32, sampleRate int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: create %s: %w", path, err)
	}

	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("wavio: close %s: %w", path, cerr)
		}
	}()

	if err := WriteMono16(f, samples, sampleRate); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return nil
}

// ReadMono decodes an integer PCM WAV stream, averaging all channels into
// one, and returns samples scaled to [-1, 1) with the file's sample rate.
func ReadMono(r io.ReadSeeker) ([]float32, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, ErrInvalidFile
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: decode: %w", err)
	}

	chans := buf.Format.NumChannels
	depth := buf.SourceBitDepth

	if chans <= 0 || depth <= 0 || depth > 32 {
		return nil, 0, fmt.Errorf("%w: %d channels, %d bits", ErrUnsupportedFormat, chans, depth)
	}

	scale := math.Ldexp(1, depth-1)
	frames := len(buf.Data) / chans
	out := make([]float32, frames)

	for i := range out {
		var sum float64
		for c := range chans {
			sum += float64(buf.Data[i*chans+c])
		}

		out[i] = float32(sum / float64(chans) / scale)
	}

	return out, buf.Format.SampleRate, nil
}

// ReadFile reads path with [ReadMono].
func ReadFile(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: open %s: %w", path, err)
	}
	defer f.Close()

	samples, rate, err := ReadMono(f)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", path, err)
	}

	return samples, rate, nil
}

func quantize(samples []float32) []int {
	const full = math.MaxInt16

	out := make([]int, len(samples))
	for i, v := range samples {
		f := float64(v)
		if math.IsNaN(f) {
			continue
		}

		out[i] = int(math.Round(math.Max(-1, math.Min(1, f)) * full))
	}

	return out
}
