// Package ir turns raw deconvolved impulse responses into playback-ready
// IRs and measures them.
//
// Post-processing runs four pure stages, each returning a new slice:
//
//   - [Gate]: attenuates pre-ringing before the contiguous onset of the peak.
//   - [MinimumPhase]: optional cepstral minimum-phase conversion that keeps
//     the magnitude response and moves energy toward the start.
//   - [Normalize]: scales the absolute peak to a target (default 0.99).
//   - [FadeOut]: half raised-cosine taper over the final quarter.
//
// [Process] chains them with functional options.
//
// The [Analyzer] computes ISO 3382 room acoustic parameters from the
// Schroeder backward integration of the squared IR:
//
//   - RT60, EDT, T20, T30 (linear regression on the decay curve)
//   - C50, C80: clarity (early-to-late energy ratio)
//   - D50, D80: definition (early energy fraction)
//   - Center time: temporal energy centroid
//
// # Usage
//
//	resp, err := ir.Process(raw, 48000, ir.WithMinimumPhase(true))
//	metrics, err := ir.NewAnalyzer(48000).Analyze(resp.Samples)
//	fmt.Printf("RT60 = %.2f s, C80 = %.1f dB\n", metrics.RT60, metrics.C80)
package ir
