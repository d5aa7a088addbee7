package conv

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/cwbudde/algo-ircap/internal/testutil"
)

func TestConvolverPrepareErrors(t *testing.T) {
	var c Convolver

	if err := c.Prepare([]float32{1}, 0); !errors.Is(err, ErrInvalidBlockSize) {
		t.Errorf("Prepare(blockSize=0) = %v, want ErrInvalidBlockSize", err)
	}

	if err := c.Prepare(nil, 64); !errors.Is(err, ErrEmptyKernel) {
		t.Errorf("Prepare(nil) = %v, want ErrEmptyKernel", err)
	}

	if c.Prepared() {
		t.Error("failed Prepare must not publish state")
	}
}

func TestConvolverUnpreparedIsSilent(t *testing.T) {
	var c Convolver

	dst := []float32{1, 2, 3, 4}
	c.Process(dst, []float32{1, 1, 1, 1})

	for i, v := range dst {
		if v != 0 {
			t.Fatalf("dst[%d] = %v, want 0", i, v)
		}
	}

	if c.Latency() != 0 || c.BlockSize() != 0 || c.Partitions() != 0 {
		t.Error("unprepared convolver should report zero sizes")
	}
}

func TestConvolverUnitImpulse(t *testing.T) {
	c, err := NewConvolver([]float32{1}, 32)
	if err != nil {
		t.Fatal(err)
	}

	src := testutil.DeterministicNoise32(1, 0.5, 32*8)
	got := c.ConvolveBlocks(src, 0)

	testutil.RequireSlice32NearlyEqual(t, got, src, 1e-5)
}

func TestConvolverMatchesDirect(t *testing.T) {
	tests := []struct {
		name      string
		irLen     int
		blockSize int
	}{
		{"single partition", 50, 64},
		{"exact partitions", 256, 64},
		{"multi partition", 1000, 64},
		{"non power of two block", 300, 48},
		{"block of one", 20, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ir := testutil.ExponentialDecay(2, 8000, 0.05, tt.irLen)
			src := testutil.DeterministicNoise32(3, 0.5, 1500)

			want, err := Direct32(src, ir)
			if err != nil {
				t.Fatal(err)
			}

			c, err := NewConvolver(ir, tt.blockSize)
			if err != nil {
				t.Fatal(err)
			}

			wantParts := (tt.irLen + tt.blockSize - 1) / tt.blockSize
			if c.Partitions() != wantParts {
				t.Errorf("Partitions() = %d, want %d", c.Partitions(), wantParts)
			}

			got := c.ConvolveBlocks(src, tt.irLen-1)
			testutil.RequireSlice32NearlyEqual(t, got, want, 1e-3)
		})
	}
}

func TestConvolverNoLookahead(t *testing.T) {
	const block = 64

	ir := testutil.ExponentialDecay(4, 8000, 0.05, 500)

	c, err := NewConvolver(ir, block)
	if err != nil {
		t.Fatal(err)
	}

	// An impulse in block 3 must leave blocks 0..2 silent.
	src := testutil.Impulse32(block*10, 3*block+5)
	out := c.ConvolveBlocks(src, 0)

	for i := range 3*block + 5 {
		if math.Abs(float64(out[i])) > 1e-6 {
			t.Fatalf("out[%d] = %v before the impulse arrived", i, out[i])
		}
	}

	if math.Abs(float64(out[3*block+5]-ir[0])) > 1e-4 {
		t.Errorf("out at impulse = %v, want %v", out[3*block+5], ir[0])
	}
}

func TestConvolverShortBuffers(t *testing.T) {
	c, err := NewConvolver([]float32{1, 0.5}, 4)
	if err != nil {
		t.Fatal(err)
	}

	// Short src is zero-padded, long dst is zeroed past the block.
	dst := []float32{9, 9, 9, 9, 9, 9}
	c.Process(dst, []float32{1})

	want := []float32{1, 0.5, 0, 0, 0, 0}
	testutil.RequireSlice32NearlyEqual(t, dst, want, 1e-6)

	// Short dst receives the head of the block; the tail still carries over.
	c.Reset()

	short := make([]float32, 2)
	c.Process(short, []float32{0, 0, 0, 1})
	testutil.RequireSlice32NearlyEqual(t, short, []float32{0, 0}, 1e-6)

	next := make([]float32, 4)
	c.Process(next, nil)
	testutil.RequireSlice32NearlyEqual(t, next, []float32{0.5, 0, 0, 0}, 1e-6)
}

func TestConvolverReset(t *testing.T) {
	c, err := NewConvolver(testutil.ExponentialDecay(5, 8000, 0.05, 200), 32)
	if err != nil {
		t.Fatal(err)
	}

	c.ConvolveBlocks(testutil.DeterministicNoise32(6, 0.5, 256), 0)
	c.Reset()

	out := c.ConvolveBlocks(make([]float32, 256), 0)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("out[%d] = %v after Reset, want 0", i, v)
		}
	}
}

func TestConvolverLatency(t *testing.T) {
	c, err := NewConvolver([]float32{1}, 128)
	if err != nil {
		t.Fatal(err)
	}

	if c.Latency() != 128 {
		t.Errorf("Latency() = %d, want 128", c.Latency())
	}
}

func TestConvolverProcessDoesNotAllocate(t *testing.T) {
	c, err := NewConvolver(testutil.ExponentialDecay(7, 48000, 0.2, 4096), 256)
	if err != nil {
		t.Fatal(err)
	}

	src := testutil.DeterministicNoise32(8, 0.5, 256)
	dst := make([]float32, 256)

	allocs := testing.AllocsPerRun(100, func() {
		c.Process(dst, src)
	})

	if allocs != 0 {
		t.Errorf("Process allocated %.1f times per call", allocs)
	}
}

func TestConvolverConcurrentPrepare(t *testing.T) {
	irA := testutil.ExponentialDecay(9, 8000, 0.05, 300)
	irB := testutil.ExponentialDecay(10, 8000, 0.05, 700)

	c, err := NewConvolver(irA, 64)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for i := range 50 {
			ir := irA
			if i%2 == 1 {
				ir = irB
			}

			if err := c.Prepare(ir, 64); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	src := testutil.DeterministicNoise32(11, 0.5, 64)
	dst := make([]float32, 64)

	for range 500 {
		c.Process(dst, src)
	}

	wg.Wait()

	for i, v := range dst {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("dst[%d] = %v", i, v)
		}
	}
}

func TestStereo(t *testing.T) {
	left := []float32{1, 0.5}
	right := []float32{0, 1}

	var s Stereo
	if err := s.Prepare(left, right, 4); err != nil {
		t.Fatal(err)
	}

	src := []float32{1, 0, 0, 0}
	dstL := make([]float32, 4)
	dstR := make([]float32, 4)

	s.Process(dstL, dstR, src, src)

	testutil.RequireSlice32NearlyEqual(t, dstL, []float32{1, 0.5, 0, 0}, 1e-6)
	testutil.RequireSlice32NearlyEqual(t, dstR, []float32{0, 1, 0, 0}, 1e-6)

	if s.Latency() != 4 {
		t.Errorf("Latency() = %d, want 4", s.Latency())
	}
}

func TestStereoMonoIRDuplicated(t *testing.T) {
	var s Stereo
	if err := s.Prepare([]float32{0.5}, nil, 8); err != nil {
		t.Fatal(err)
	}

	src := testutil.DeterministicNoise32(12, 0.5, 8)
	dstL := make([]float32, 8)
	dstR := make([]float32, 8)

	s.Process(dstL, dstR, src, src)
	testutil.RequireSlice32NearlyEqual(t, dstL, dstR, 0)
}
