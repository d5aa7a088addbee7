package window

import "errors"

// Errors returned by window functions.
var (
	ErrUnknownType      = errors.New("window: unknown window type")
	ErrInvalidAlpha     = errors.New("window: tukey alpha must be in [0,1]")
	ErrMismatchedLength = errors.New("window: samples and coefficients must have same length")
)
