// Command ircap captures impulse responses with a logarithmic sweep and
// applies them with a partitioned convolver.
//
// Usage:
//
//	ircap <command> [flags]
//
// Commands:
//
//	sweep     write the padded excitation sweep to a WAV file
//	capture   deconvolve a recorded wet take of the sweep into an IR
//	simulate  capture an IR from a simulated rig given as an IR file
//	convolve  run a WAV file through an IR block by block
//	analyze   print room acoustic metrics and octave levels of an IR file
//	list      list captured IRs in the catalog
//
// Defaults come from IRCAP_SAMPLE_RATE, IRCAP_BLOCK_SIZE, IRCAP_DB and
// IRCAP_LOG_LEVEL, optionally set in a .env file.
//
// Examples:
//
//	ircap sweep -o sweep.wav -duration 5
//	ircap capture -wet take.wav -o cab.wav -name cab -minphase
//	ircap capture -wet take.wav -o amp.wav -method farina -harmonics 3
//	ircap convolve -ir cab.wav -in di.wav -o out.wav -block 128
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/mdobak/go-xerrors"
	"github.com/sirupsen/logrus"
)

var errUsage = errors.New("usage: ircap <sweep|capture|simulate|convolve|analyze|list> [flags]")

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	cfg, err := loadSettings(os.Getenv)
	if err != nil {
		fail(logrus.NewEntry(logger), err)
	}

	logger.SetLevel(cfg.level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], cfg, logrus.NewEntry(logger), os.Stdout); err != nil {
		stop()
		fail(logrus.NewEntry(logger), err)
	}
}

func fail(log *logrus.Entry, err error) {
	err = xerrors.New(err)
	log.WithField("error", fmt.Sprintf("%+v", err)).Error("ircap failed")
	os.Exit(1)
}

func run(ctx context.Context, args []string, cfg settings, log *logrus.Entry, stdout io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	log = log.WithField("command", cmd)

	switch cmd {
	case "sweep":
		return runSweep(rest, cfg, log, stdout)
	case "capture":
		return runCapture(ctx, rest, cfg, log, stdout, false)
	case "simulate":
		return runCapture(ctx, rest, cfg, log, stdout, true)
	case "convolve":
		return runConvolve(rest, cfg, log, stdout)
	case "analyze":
		return runAnalyze(rest, stdout)
	case "list":
		return runList(ctx, rest, cfg, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}
