package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/foufoujoujou/chip8/chip8"
)

/// Options for a session, read from the command line.
///
type Options struct {
	/// ROM is the path of the program to run. Empty when browsing.
	///
	ROM string

	Speed      int
	Scale      int
	Seed       int64
	Terminal   bool
	Browse     bool
	SkipFaults bool
	Debug      bool
	Quiet      bool
	Mute       bool
}

/// UsageError is returned when the command line can't be used, and the
/// usage should be shown.
///
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

/// ShowUsage prints the usage and the flag defaults.
///
func (e *UsageError) ShowUsage(w io.Writer) {
	if e.msg != "" {
		fmt.Fprintf(w, "%s\n\n", e.msg)
	}

	fmt.Fprintf(w, "usage: chip8 [options] <rom file>\n\n")
	e.flags.SetOutput(w)
	e.flags.PrintDefaults()
	fmt.Fprintln(w)
}

/// Parse the command line arguments into options.
///
func parseFlags(args []string) (Options, error) {
	flags := flag.NewFlagSet("chip8", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	opts := Options{}
	readOptionFlags(flags, &opts)

	if err := flags.Parse(args); err != nil {
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}

	rest := flags.Args()

	switch {
	case len(rest) > 1:
		return opts, &UsageError{flags: flags, msg: fmt.Sprintf("unexpected argument %s after the rom file", rest[1])}
	case len(rest) == 1:
		opts.ROM = rest[0]
	case !opts.Browse:
		return opts, &UsageError{flags: flags, msg: "missing rom file"}
	}

	if opts.Speed <= 0 {
		return opts, &UsageError{flags: flags, msg: fmt.Sprintf("invalid speed %d", opts.Speed)}
	}
	if opts.Scale <= 0 {
		return opts, &UsageError{flags: flags, msg: fmt.Sprintf("invalid scale %d", opts.Scale)}
	}

	return opts, nil
}

func readOptionFlags(flags *flag.FlagSet, opts *Options) {
	flags.IntVar(&opts.Speed, "speed", chip8.DefaultSpeed, "instructions executed per second")
	flags.IntVar(&opts.Scale, "scale", 10, "window size in screen pixels per CHIP-8 pixel")
	flags.Int64Var(&opts.Seed, "seed", 0, "random seed for RND, 0 seeds from the clock")
	flags.BoolVar(&opts.Terminal, "term", false, "run in the terminal instead of a window")
	flags.BoolVar(&opts.Browse, "browse", false, "pick the rom file with a dialog when none is given")
	flags.BoolVar(&opts.SkipFaults, "skip-faults", false, "skip faulting instructions instead of halting")
	flags.BoolVar(&opts.Debug, "debug", false, "log every executed instruction")
	flags.BoolVar(&opts.Quiet, "q", false, "only log errors")
	flags.BoolVar(&opts.Mute, "mute", false, "disable the sound timer tone")
}
