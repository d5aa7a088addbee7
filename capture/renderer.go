package capture

import (
	"context"

	"github.com/cwbudde/algo-ircap/dsp/conv"
)

// Renderer produces the wet signal of the system under test for a dry
// excitation. Implementations should honour ctx for long renders.
type Renderer interface {
	Render(ctx context.Context, dry []float32) ([]float32, error)
}

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(ctx context.Context, dry []float32) ([]float32, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, dry []float32) ([]float32, error) {
	return f(ctx, dry)
}

// Recorded returns a Renderer that ignores the excitation and yields a copy
// of a wet take recorded elsewhere. The take must be aligned with the
// padded sweep the job generates.
func Recorded(wet []float32) Renderer {
	return RendererFunc(func(ctx context.Context, _ []float32) ([]float32, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return append([]float32(nil), wet...), nil
	})
}

// ConvolutionRig returns a Renderer that simulates a rig by convolving the
// excitation with ir, block by block, through a [conv.Convolver]. The
// output carries the full tail of len(ir)-1 samples.
func ConvolutionRig(ir []float32, blockSize int) Renderer {
	return RendererFunc(func(ctx context.Context, dry []float32) ([]float32, error) {
		c, err := conv.NewConvolver(ir, blockSize)
		if err != nil {
			return nil, err
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		return c.ConvolveBlocks(dry, len(ir)-1), nil
	})
}
