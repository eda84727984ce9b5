package main

import (
	"context"
	"errors"
	"os"
	"runtime"

	"github.com/foufoujoujou/chip8/chip8"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
)

/// Process exit codes.
///
const (
	exitOK = iota
	exitFailure
	exitUsage
	exitUnreadable
	exitTooLarge
	exitFault
)

/// Backend presents frames, polls the keypad and sounds the tone.
///
type Backend interface {
	chip8.FrameSink
	chip8.InputSource

	Paused() bool
	Close() error
}

func init() {
	// SDL must be driven from the main thread
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(app.Context(), os.Args[1:]))
}

/// Run a session and return the process exit code.
///
func run(ctx context.Context, args []string) int {
	opts, err := parseFlags(args)
	logger := newLogger(opts.Debug, opts.Quiet)

	if err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			usageErr.ShowUsage(os.Stderr)
			return exitUsage
		}

		logger.Error("Invalid options", log.Err(err))
		return exitFailure
	}

	file, err := romPath(opts)
	if err != nil {
		logger.Error("Selecting rom failed", log.Err(err))
		return exitUsage
	}

	vm, err := chip8.LoadFile(file, vmOptions(opts)...)
	if err != nil {
		logger.Error("Loading rom failed", log.String("file", file), log.Err(err))
		return exitCode(err)
	}

	logger.Info("Loaded rom", log.String("file", file))

	backend, err := openBackend(vm, opts, logger)
	if err != nil {
		logger.Error("Opening display failed", log.Err(err))
		return exitFailure
	}

	runner := &chip8.Runner{
		VM:         vm,
		Sink:       backend,
		Input:      backend,
		Logger:     logger,
		Speed:      opts.Speed,
		SkipFaults: opts.SkipFaults,
		Trace:      opts.Debug,
		Paused:     backend.Paused,
	}

	err = runner.Run(ctx)

	if cerr := backend.Close(); cerr != nil {
		logger.Warn("Closing display failed", log.Err(cerr))
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("Operation cancelled")
	}

	return exitCode(err)
}

/// Open the terminal or SDL backend.
///
func openBackend(vm *chip8.CHIP_8, opts Options, logger *log.Logger) (Backend, error) {
	if opts.Terminal {
		return openTerminal(vm, opts, logger)
	}

	return openWindow(vm, opts, logger)
}

/// Map the outcome of a session to an exit code.
///
func exitCode(err error) int {
	var fault *chip8.Fault

	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return exitOK
	case errors.Is(err, chip8.ErrRomUnreadable):
		return exitUnreadable
	case errors.Is(err, chip8.ErrRomTooLarge):
		return exitTooLarge
	case errors.As(err, &fault):
		return exitFault
	}

	return exitFailure
}
