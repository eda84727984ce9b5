package chip8

import (
	"context"
	"errors"
	"time"

	"github.com/retroenv/retrogolib/log"
)

/// FrameRate is the rate, in Hz, the display refreshes and the timers
/// count down at.
///
const FrameRate = 60

/// DefaultSpeed is the number of instructions executed per second.
///
const DefaultSpeed = 500

/// FrameSink consumes the video memory once per frame.
///
type FrameSink interface {
	Present(vm *CHIP_8) error
}

/// InputSource updates the keypad latch once per frame. It returns true
/// when the user asked to quit.
///
type InputSource interface {
	Poll(keys *Keypad) (bool, error)
}

/// Runner drives a virtual machine at a fixed instruction rate, between
/// an input source and a frame sink.
///
type Runner struct {
	VM     *CHIP_8
	Sink   FrameSink
	Input  InputSource
	Logger *log.Logger

	/// Speed is the number of instructions per second, DefaultSpeed
	/// when zero.
	///
	Speed int

	/// SkipFaults carries on past faulting instructions instead of
	/// halting the session.
	///
	SkipFaults bool

	/// Trace logs every executed instruction at debug level.
	///
	Trace bool

	/// Paused, when set and true, holds the machine: frames still poll
	/// input and present, but nothing executes and the timers hold.
	///
	Paused func() bool

	// fractional cycles left over from previous frames
	credit int
}

/// Run frames at FrameRate until the input source quits, the context is
/// cancelled or the program faults.
///
func (r *Runner) Run(ctx context.Context) error {
	video := time.NewTicker(time.Second / FrameRate)
	defer video.Stop()

	r.Logger.Info("Running",
		log.Int("speed", r.speed()),
		log.Int("frame_rate", FrameRate))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-video.C:
			quit, err := r.Frame(ctx)
			if err != nil {
				return err
			}

			if quit {
				r.Logger.Info("Quit", log.Int("cycles", int(r.VM.Cycles)))
				return nil
			}
		}
	}
}

/// Frame runs a single frame: poll input, execute a frame's worth of
/// instructions, count the timers down and present the video memory.
///
func (r *Runner) Frame(ctx context.Context) (bool, error) {
	quit, err := r.Input.Poll(&r.VM.Keys)
	if err != nil || quit {
		return quit, err
	}

	if r.Paused != nil && r.Paused() {
		return false, r.Sink.Present(r.VM)
	}

	r.credit += r.speed()

	for ; r.credit >= FrameRate; r.credit -= FrameRate {
		if err := r.step(ctx); err != nil {
			return false, err
		}
	}

	r.VM.Tick()

	return false, r.Sink.Present(r.VM)
}

/// step executes one instruction, handling faults.
///
func (r *Runner) step(ctx context.Context) error {
	if r.Trace && !r.VM.Waiting() {
		r.Logger.Debug("Step",
			log.String("instruction", r.VM.Disassemble(r.VM.PC)),
			log.Hex("i", r.VM.I),
			log.Uint16("sp", r.VM.SP))
	}

	err := r.VM.Step(ctx)

	var fault *Fault
	if !errors.As(err, &fault) {
		return err
	}

	if !r.SkipFaults {
		r.Logger.Error("Program halted",
			log.String("instruction", r.VM.Disassemble(fault.PC)),
			log.Err(fault))
		return err
	}

	r.Logger.Warn("Skipping faulted instruction",
		log.String("instruction", r.VM.Disassemble(fault.PC)),
		log.Err(fault))

	return r.VM.Skip()
}

func (r *Runner) speed() int {
	if r.Speed <= 0 {
		return DefaultSpeed
	}

	return r.Speed
}
