package main

import (
	"errors"
	"math/rand"
	"time"

	"github.com/foufoujoujou/chip8/chip8"
	"github.com/sqweek/dialog"
)

/// errNoROM is returned when browsing for a rom was cancelled.
///
var errNoROM = errors.New("no rom selected")

/// Resolve the rom file to load, opening a file dialog if asked to.
///
func romPath(opts Options) (string, error) {
	if opts.ROM != "" {
		return opts.ROM, nil
	}

	file, err := dialog.File().
		Title("Load CHIP-8 ROM").
		Filter("CHIP-8 ROM", "ch8", "c8").
		Filter("All Files", "*").
		Load()
	if errors.Is(err, dialog.ErrCancelled) {
		return "", errNoROM
	}

	return file, err
}

/// Virtual machine options for a session.
///
func vmOptions(opts Options) []chip8.Option {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
	}

	return []chip8.Option{
		chip8.WithRand(rand.New(rand.NewSource(seed))),
	}
}
