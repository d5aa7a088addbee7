package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float32 {
	out := make([]float32, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = float32(amplitude * math.Sin(step*float64(i)))
	}

	return out
}

// DeterministicNoise32 generates white noise in [-amplitude, amplitude) with a fixed seed.
func DeterministicNoise32(seed int64, amplitude float64, length int) []float32 {
	out := make([]float32, length)
	rng := rand.New(rand.NewSource(seed))

	for i := range out {
		out[i] = float32((rng.Float64()*2 - 1) * amplitude)
	}

	return out
}

// Impulse32 generates a unit impulse at the given position.
func Impulse32(length, pos int) []float32 {
	out := make([]float32, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}

	return out
}

// ExponentialDecay returns noise shaped by exp(-6.9078*t/rt60), a synthetic
// room-like IR whose energy falls 60 dB over rt60 seconds.
func ExponentialDecay(seed int64, sampleRate, rt60 float64, length int) []float32 {
	out := DeterministicNoise32(seed, 1, length)
	rate := 6.9078 / rt60

	for i := range out {
		out[i] *= float32(math.Exp(-rate * float64(i) / sampleRate))
	}

	return out
}

// ToFloat64 widens a float32 slice.
func ToFloat64(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}

	return out
}
