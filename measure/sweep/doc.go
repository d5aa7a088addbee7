// Package sweep generates the logarithmic sine sweep used as the dry
// excitation when capturing an impulse response.
//
// A logarithmic sweep spends equal time in every octave, so the captured
// response has uniform SNR across frequency, and harmonic distortion
// products separate in time after deconvolution. Both ends are tapered with
// a raised-cosine fade to avoid spectral splatter, and the caller pads the
// result with silence so the rig under test can settle and ring out.
//
// # Usage
//
//	s := &sweep.LogSweep{
//	    StartFreq: 20, EndFreq: 20000,
//	    Duration: 5, SampleRate: 48000,
//	}
//	dry, _ := s.Generate()
//	excitation := sweep.Pad(dry, s.SampleRate, sweep.DefaultPadding)
//
// Generation is deterministic: the same descriptor always yields a
// bit-identical sweep, which keeps captures reproducible.
//
// Besides the Wiener deconvolution in package conv, the sweep can recover an
// IR with its analytic inverse filter (Farina's method), and split the
// linear IR from the harmonic distortion IRs of a nonlinear rig:
//
//	ir, _ := s.Deconvolve(response)
//	harmonicIRs, _ := s.ExtractHarmonicIRs(response, 5)
package sweep
