package window

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies an analysis window. The zero value is Blackman, the
// window the deconvolver uses unless told otherwise.
type Type int

const (
	TypeBlackman Type = iota
	TypeHann
	TypeTukey
	TypeRectangular
)

// DefaultAlpha is the Tukey taper fraction used when none is given.
const DefaultAlpha = 0.5

var typeNames = [...]string{"blackman", "hann", "tukey", "rectangular"}

var (
	hannCoeffs     = []float64{0.5, -0.5}
	blackmanCoeffs = []float64{0.42, -0.5, 0.08}
)

func (t Type) String() string {
	if !t.valid() {
		return fmt.Sprintf("window(%d)", int(t))
	}

	return typeNames[t]
}

func (t Type) valid() bool {
	return t >= 0 && int(t) < len(typeNames)
}

// ParseType returns the Type named s (case-insensitive).
func ParseType(s string) (Type, error) {
	for i, name := range typeNames {
		if strings.EqualFold(s, name) {
			return Type(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Validate checks t and its Tukey taper fraction. alpha is ignored for
// other types; 0 selects DefaultAlpha.
func Validate(t Type, alpha float64) error {
	if !t.valid() {
		return fmt.Errorf("%w: %d", ErrUnknownType, int(t))
	}

	if t == TypeTukey && (alpha < 0 || alpha > 1 || math.IsNaN(alpha)) {
		return fmt.Errorf("%w: %v", ErrInvalidAlpha, alpha)
	}

	return nil
}

// Option configures window generation.
type Option func(*config)

type config struct {
	alpha float64
}

// WithAlpha sets the taper fraction of the Tukey window. Zero or out of
// range values keep DefaultAlpha.
func WithAlpha(v float64) Option {
	return func(c *config) {
		if v > 0 && v <= 1 {
			c.alpha = v
		}
	}
}

// Generate returns symmetric window coefficients of the given length.
// It returns nil for non-positive lengths.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}

	cfg := config{alpha: DefaultAlpha}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	out := make([]float64, length)
	for i := range out {
		out[i] = evalWindow(t, samplePosition(i, length), cfg.alpha)
	}

	return out
}

// Apply32 writes src multiplied by coeffs into dst. The product runs in
// float64 through scratch, which is grown as needed and returned for reuse.
// dst must hold at least len(src) samples.
func Apply32(dst, src []float32, coeffs, scratch []float64) ([]float64, error) {
	if len(src) != len(coeffs) || len(dst) < len(src) {
		return scratch, fmt.Errorf("%w: src %d, coeffs %d, dst %d",
			ErrMismatchedLength, len(src), len(coeffs), len(dst))
	}

	if cap(scratch) < len(src) {
		scratch = make([]float64, len(src))
	}

	scratch = scratch[:len(src)]
	for i, v := range src {
		scratch[i] = float64(v)
	}

	vecmath.MulBlockInPlace(scratch, coeffs)

	for i, v := range scratch {
		dst[i] = float32(v)
	}

	return scratch, nil
}

func evalWindow(t Type, x, alpha float64) float64 {
	switch t {
	case TypeHann:
		return cosineFromCoeffs(x, hannCoeffs)
	case TypeBlackman:
		return cosineFromCoeffs(x, blackmanCoeffs)
	case TypeTukey:
		return tukeyAt(x, alpha)
	default:
		return 1
	}
}

func cosineFromCoeffs(x float64, coeffs []float64) float64 {
	phase := 2 * math.Pi * x

	sum := 0.0
	for k, c := range coeffs {
		sum += c * math.Cos(float64(k)*phase)
	}

	// Symmetric cosine sums can land a hair below zero at the edges.
	return math.Max(0, sum)
}

func samplePosition(n, size int) float64 {
	if size <= 1 {
		return 0.5
	}

	return float64(n) / float64(size-1)
}

// tukeyAt is flat in the middle with cosine tapers over alpha/2 at each end.
func tukeyAt(x, alpha float64) float64 {
	if alpha >= 1 {
		return cosineFromCoeffs(x, hannCoeffs)
	}

	a := alpha / 2
	switch {
	case x < a:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-1)))
	case x <= 1-a:
		return 1
	default:
		return 0.5 * (1 + math.Cos(math.Pi*(2*x/alpha-2/alpha+1)))
	}
}
