// Package window generates the analysis windows and edge fades used by the
// capture chain.
//
// Windows are produced as float64 coefficients and applied to float32
// sample buffers through algo-vecmath. Blackman is the default analysis
// window for deconvolution; Tukey keeps more of a short take at full gain.
// Raised-cosine fades taper the edges of excitation signals and impulse
// response tails.
//
//	w := window.Generate(window.TypeBlackman, len(buf))
//	scratch, err := window.Apply32(buf, buf, w, nil)
//
//	window.FadeIn(sweep, fadeLen)
//	window.FadeOut(sweep, fadeLen)
package window
