package fft

import (
	"fmt"
	"testing"
)

func BenchmarkForward(b *testing.B) {
	for _, n := range []int{256, 1024, 4096} {
		b.Run(fmt.Sprintf("n%d", n), func(b *testing.B) {
			e := NewEngine(n)
			re := make([]float32, n)
			im := make([]float32, n)

			for i := range re {
				re[i] = float32(i%7) * 0.1
			}

			b.ResetTimer()

			for range b.N {
				e.Forward(re, im)
			}
		})
	}
}
