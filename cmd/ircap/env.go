package main

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-ircap/dsp/core"
)

// Environment variables read at startup. A .env file in the working
// directory is loaded first when present.
const (
	envSampleRate = "IRCAP_SAMPLE_RATE"
	envBlockSize  = "IRCAP_BLOCK_SIZE"
	envDB         = "IRCAP_DB"
	envLogLevel   = "IRCAP_LOG_LEVEL"
)

const defaultDB = "ircap.db"

var errSampleRate = errors.New("sample rate must be a positive whole number of Hz")

// wholeRate converts rate for the WAV header, which stores an integer.
func wholeRate(rate float64) (int, error) {
	if !(rate > 0) || rate != math.Trunc(rate) || rate > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %v", errSampleRate, rate)
	}

	return int(rate), nil
}

type settings struct {
	stream core.StreamConfig
	db     string
	level  logrus.Level
}

func loadSettings(getenv func(string) string) (settings, error) {
	var opts []core.StreamOption

	if v := getenv(envSampleRate); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return settings{}, fmt.Errorf("%s=%q: %w", envSampleRate, v, errSampleRate)
		}

		if _, err := wholeRate(rate); err != nil {
			return settings{}, fmt.Errorf("%s: %w", envSampleRate, err)
		}

		opts = append(opts, core.WithSampleRate(rate))
	}

	if v := getenv(envBlockSize); v != "" {
		block, err := strconv.Atoi(v)
		if err != nil || block <= 0 {
			return settings{}, fmt.Errorf("%s=%q: want a positive integer", envBlockSize, v)
		}

		opts = append(opts, core.WithBlockSize(block))
	}

	s := settings{
		stream: core.ApplyStreamOptions(opts...),
		db:     defaultDB,
		level:  logrus.InfoLevel,
	}

	if v := getenv(envDB); v != "" {
		s.db = v
	}

	if v := getenv(envLogLevel); v != "" {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			return settings{}, fmt.Errorf("%s: %w", envLogLevel, err)
		}

		s.level = level
	}

	return s, s.stream.Validate()
}
