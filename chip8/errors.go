package chip8

import (
	"errors"
	"fmt"
)

var (
	/// ErrRomUnreadable is returned when a ROM file cannot be read.
	///
	ErrRomUnreadable = errors.New("rom unreadable")

	/// ErrRomTooLarge is returned when a ROM does not fit in program memory.
	///
	ErrRomTooLarge = errors.New("rom too large")

	/// ErrStackOverflow is returned by a CALL with a full stack.
	///
	ErrStackOverflow = errors.New("stack overflow")

	/// ErrStackUnderflow is returned by a RET with an empty stack.
	///
	ErrStackUnderflow = errors.New("stack underflow")

	/// ErrAddressRange is returned when PC or I would address memory
	/// outside of 0x000-0xFFF.
	///
	ErrAddressRange = errors.New("address out of range")
)

/// Fault is a defect raised while executing a single instruction. The
/// machine is left exactly as it was before the instruction, with PC
/// still pointing at it.
///
type Fault struct {
	PC   uint16
	Inst Instruction
	Err  error

	// set when the instruction could not even be fetched
	fetch bool
}

func (f *Fault) Error() string {
	if f.fetch {
		return fmt.Sprintf("fetch at %04X: %v", f.PC, f.Err)
	}

	return fmt.Sprintf("%04X %04X: %v", f.PC, uint16(f.Inst), f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}
