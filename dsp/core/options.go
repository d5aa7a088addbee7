package core

import (
	"errors"
	"fmt"
)

// ErrInvalidStreamConfig is returned by StreamConfig.Validate.
var ErrInvalidStreamConfig = errors.New("core: invalid stream config")

// StreamConfig describes a block-based audio stream.
type StreamConfig struct {
	SampleRate float64
	BlockSize  int
}

// StreamOption mutates a StreamConfig.
type StreamOption func(*StreamConfig)

// DefaultStreamConfig returns defaults suited to guitar-rig style real-time use.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		SampleRate: 48000,
		BlockSize:  256,
	}
}

// WithSampleRate sets the stream sample rate. Non-positive values are ignored.
func WithSampleRate(sampleRate float64) StreamOption {
	return func(cfg *StreamConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the stream block size. Non-positive values are ignored.
func WithBlockSize(blockSize int) StreamOption {
	return func(cfg *StreamConfig) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// ApplyStreamOptions applies zero or more options to the default config.
func ApplyStreamOptions(opts ...StreamOption) StreamConfig {
	cfg := DefaultStreamConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// Validate checks that the config can drive a convolver.
func (c StreamConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %v", ErrInvalidStreamConfig, c.SampleRate)
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: block size %d", ErrInvalidStreamConfig, c.BlockSize)
	}

	return nil
}

// BlockDuration returns the duration of one block in seconds.
func (c StreamConfig) BlockDuration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}

	return float64(c.BlockSize) / c.SampleRate
}
