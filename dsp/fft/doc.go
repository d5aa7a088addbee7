// Package fft provides a single-precision radix-2 FFT that works in place on
// parallel real/imaginary arrays.
//
// The engine precomputes its twiddle tables and bit-reversal permutation once
// per transform size and reuses them across calls, so repeated transforms of
// the same length do not allocate. That makes it suitable for the real-time
// convolution path, where every audio block runs one forward and one inverse
// transform.
//
// # Usage
//
//	e := fft.NewEngine(1024)
//	e.Forward(re, im) // len(re) == len(im) == 1024
//	e.Inverse(re, im) // scales by 1/n
//
// Sizes must be powers of two. Callers that derive a size from signal
// lengths use [NextPowerOf2] and zero-pad. Passing any other size is a
// programming error and panics.
package fft
