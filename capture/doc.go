// Package capture runs an impulse response capture as one bounded batch job.
//
// A [Job] generates a padded logarithmic sweep, hands it to a [Renderer]
// (the rig being measured, a simulated rig, or a pre-recorded take),
// deconvolves the wet result against the dry sweep and post-processes the
// raw IR into a playback-ready [ir.ImpulseResponse].
//
// Deconvolution is Wiener division by default. [MethodFarina] uses the
// sweep's analytic inverse filter instead and can also return the harmonic
// distortion IRs of a nonlinear rig.
//
// The job owns only local buffers and never touches live audio state, so
// it can run on any goroutine. Cancellation is cooperative and checked
// between stages. Progress is reported on an optional channel without
// blocking: updates are dropped when the receiver falls behind.
//
//	job, err := capture.NewJob(capture.WithSampleRate(48000), capture.WithLogger(log))
//	resp, err := job.Run(ctx, capture.ConvolutionRig(rigIR, 256))
package capture
