// Package conv provides convolution and deconvolution routines for impulse
// response capture and playback.
//
// Three pieces cover the capture pipeline:
//
//   - [Deconvolve] / [Deconvolver]: regularized (Wiener-style) spectral division
//     that recovers an impulse response from a dry excitation and its wet recording.
//   - [Convolver]: uniformly partitioned overlap-add convolution for real-time
//     block processing with zero algorithmic delay.
//   - [Direct] / [Direct32]: O(N*M) time-domain reference convolution.
//
// # Usage
//
// Recover an IR from a sweep and its recording:
//
//	ir, err := conv.Deconvolve(conv.DeconvRequest{
//		Dry:            sweep,
//		Wet:            recording,
//		IRLength:       48000,
//		Regularization: conv.DefaultRegularization,
//	})
//
// Play the IR back block by block:
//
//	var c conv.Convolver
//	if err := c.Prepare(ir, 256); err != nil {
//		return err
//	}
//	c.Process(out, in) // once per block, on the audio goroutine
//
// # Concurrency
//
// [Convolver.Prepare] may run on a control goroutine while [Convolver.Process]
// runs on the audio goroutine. The prepared state is published through an
// atomic pointer; Process never locks and never allocates.
package conv
