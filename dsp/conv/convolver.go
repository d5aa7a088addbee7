package conv

import (
	"fmt"
	"sync/atomic"

	"github.com/cwbudde/algo-ircap/dsp/fft"
)

// Convolver is a uniformly partitioned overlap-add convolution engine.
//
// The IR is split into partitions of blockSize samples. Each input block is
// transformed once and kept in a frequency-domain delay line; every output
// block is the sum of partition spectra times delay-line entries of matching
// age, so output block k equals samples [k·B, (k+1)·B) of the full linear
// convolution.
//
// Prepare and Process may run on different goroutines. Reset, like Process,
// belongs to the audio goroutine. The zero value is usable and produces
// silence until Prepare succeeds.
type Convolver struct {
	state atomic.Pointer[convState]
}

type convState struct {
	blockSize int
	size      int // FFT length N
	bins      int // N/2 + 1
	engine    *fft.Engine

	// Partition spectra, bins entries each.
	irRe, irIm [][]float32

	// Frequency-domain delay line, same shape as the partitions.
	// head is the slot of the newest input block.
	fdlRe, fdlIm [][]float32
	head         int

	accRe, accIm []float32
	re, im       []float32
	overlap      []float32 // blockSize-1 samples
}

// NewConvolver returns a Convolver prepared with ir and blockSize.
func NewConvolver(ir []float32, blockSize int) (*Convolver, error) {
	c := &Convolver{}
	if err := c.Prepare(ir, blockSize); err != nil {
		return nil, err
	}

	return c, nil
}

// Prepare partitions ir for blocks of blockSize samples and publishes the
// new state. The delay line and overlap start at zero. Prepare is the only
// method that allocates.
func (c *Convolver) Prepare(ir []float32, blockSize int) error {
	if blockSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockSize, blockSize)
	}

	if len(ir) == 0 {
		return ErrEmptyKernel
	}

	size := fft.NextPowerOf2(2 * blockSize)
	bins := size/2 + 1
	parts := (len(ir) + blockSize - 1) / blockSize

	st := &convState{
		blockSize: blockSize,
		size:      size,
		bins:      bins,
		engine:    fft.NewEngine(size),
		irRe:      make([][]float32, parts),
		irIm:      make([][]float32, parts),
		fdlRe:     make([][]float32, parts),
		fdlIm:     make([][]float32, parts),
		accRe:     make([]float32, bins),
		accIm:     make([]float32, bins),
		re:        make([]float32, size),
		im:        make([]float32, size),
		overlap:   make([]float32, blockSize-1),
	}

	for p := range parts {
		start := p * blockSize
		end := min(start+blockSize, len(ir))

		clear(st.re)
		clear(st.im)
		copy(st.re, ir[start:end])
		st.engine.Forward(st.re, st.im)

		st.irRe[p] = append([]float32(nil), st.re[:bins]...)
		st.irIm[p] = append([]float32(nil), st.im[:bins]...)
		st.fdlRe[p] = make([]float32, bins)
		st.fdlIm[p] = make([]float32, bins)
	}

	c.state.Store(st)

	return nil
}

// Process convolves one block. src shorter than the block size is
// zero-padded; extra samples are ignored. min(len(dst), blockSize) output
// samples are written and the rest of dst is zeroed. An unprepared
// Convolver writes silence.
func (c *Convolver) Process(dst, src []float32) {
	st := c.state.Load()
	if st == nil {
		clear(dst)
		return
	}

	st.process(dst, src)
}

func (st *convState) process(dst, src []float32) {
	b := st.blockSize
	parts := len(st.irRe)

	n := copy(st.re[:b], src)
	clear(st.re[n:])
	clear(st.im)
	st.engine.Forward(st.re, st.im)

	st.head++
	if st.head == parts {
		st.head = 0
	}

	copy(st.fdlRe[st.head], st.re[:st.bins])
	copy(st.fdlIm[st.head], st.im[:st.bins])

	clear(st.accRe)
	clear(st.accIm)

	slot := st.head
	for p := range parts {
		hr, hi := st.irRe[p], st.irIm[p]
		xr, xi := st.fdlRe[slot], st.fdlIm[slot]

		for k := range st.bins {
			st.accRe[k] += xr[k]*hr[k] - xi[k]*hi[k]
			st.accIm[k] += xr[k]*hi[k] + xi[k]*hr[k]
		}

		slot--
		if slot < 0 {
			slot = parts - 1
		}
	}

	// Rebuild the Hermitian spectrum of a real signal.
	half := st.size / 2
	copy(st.re, st.accRe)
	copy(st.im, st.accIm)

	for k := half + 1; k < st.size; k++ {
		st.re[k] = st.accRe[st.size-k]
		st.im[k] = -st.accIm[st.size-k]
	}

	st.engine.Inverse(st.re, st.im)

	out := min(len(dst), b)
	for i := range out {
		v := st.re[i]
		if i < len(st.overlap) {
			v += st.overlap[i]
		}

		dst[i] = v
	}

	clear(dst[out:])
	copy(st.overlap, st.re[b:b+len(st.overlap)])
}

// Reset clears the delay line and overlap of the current state.
func (c *Convolver) Reset() {
	st := c.state.Load()
	if st == nil {
		return
	}

	for p := range st.fdlRe {
		clear(st.fdlRe[p])
		clear(st.fdlIm[p])
	}

	clear(st.overlap)
	st.head = 0
}

// Prepared reports whether an IR has been loaded.
func (c *Convolver) Prepared() bool {
	return c.state.Load() != nil
}

// BlockSize returns the prepared block size, or 0.
func (c *Convolver) BlockSize() int {
	if st := c.state.Load(); st != nil {
		return st.blockSize
	}

	return 0
}

// Partitions returns the number of IR partitions, or 0.
func (c *Convolver) Partitions() int {
	if st := c.state.Load(); st != nil {
		return len(st.irRe)
	}

	return 0
}

// Latency returns the end-to-end buffering latency in samples: one block.
// The convolution itself adds no delay.
func (c *Convolver) Latency() int {
	return c.BlockSize()
}

// ConvolveBlocks runs src through c block by block and returns len(src)+tail
// output samples. It is a batch helper for offline rendering; it allocates.
func (c *Convolver) ConvolveBlocks(src []float32, tail int) []float32 {
	b := c.BlockSize()
	total := len(src) + max(tail, 0)

	if b == 0 {
		return make([]float32, total)
	}

	out := make([]float32, total+b)
	for pos := 0; pos < total; pos += b {
		var in []float32
		if pos < len(src) {
			in = src[pos:min(pos+b, len(src))]
		}

		c.Process(out[pos:pos+b], in)
	}

	return out[:total]
}
