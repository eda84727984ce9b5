package chip8

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"
)

const (
	/// MemorySize is the size of the CHIP-8 address space.
	///
	MemorySize = 0x1000

	/// ProgramStart is where ROMs are loaded and execution begins.
	///
	ProgramStart = 0x200

	/// MaxProgramSize is the largest ROM that can be loaded.
	///
	MaxProgramSize = 0xFFF - ProgramStart

	/// Width and Height of the display in pixels.
	///
	Width  = 64
	Height = 32

	/// StackSize is how many return addresses can be nested.
	///
	StackSize = 16

	/// InstructionSize is the width of every instruction in bytes.
	///
	InstructionSize = 2
)

/// CHIP_8 virtual machine emulator.
///
type CHIP_8 struct {
	/// ROM is the pristine memory image after boot: the font and the
	/// program. Memory is reset back to it.
	///
	ROM [MemorySize]byte

	/// Memory addressable by CHIP-8. The font lives at 0x000 and the
	/// program at 0x200.
	///
	Memory [MemorySize]byte

	/// Video memory, one byte (0 or 1) per pixel, row-major.
	///
	Video [Width * Height]byte

	/// PC is the program counter. All programs begin at 0x200.
	///
	PC uint16

	/// SP is the number of return addresses on the stack.
	///
	SP uint16

	/// Stack of return addresses.
	///
	Stack [StackSize]uint16

	/// I is the address register.
	///
	I uint16

	/// V are the 16 virtual registers.
	///
	V [16]byte

	/// DT and ST are the delay and sound timers. They count down once
	/// per Tick, which the host calls at 60 Hz.
	///
	DT byte
	ST byte

	/// Cycles is how many instructions have been retired.
	///
	Cycles int64

	/// Keys hold the current state for the 16-key pad keys.
	///
	Keys Keypad

	// wait is the register the next key hit is stored to, nil when the
	// machine isn't blocked on a key
	wait *byte

	// random source for RND
	rng *rand.Rand
}

/// Option configures a new virtual machine.
///
type Option func(vm *CHIP_8)

/// WithRand sets the random source used by RND.
///
func WithRand(rng *rand.Rand) Option {
	return func(vm *CHIP_8) {
		vm.rng = rng
	}
}

/// LoadROM creates a new CHIP-8 virtual machine from a program image.
///
func LoadROM(program []byte, opts ...Option) (*CHIP_8, error) {
	if len(program) > MaxProgramSize {
		return nil, fmt.Errorf("%w: %d bytes, at most %d fit", ErrRomTooLarge, len(program), MaxProgramSize)
	}

	vm := &CHIP_8{}

	for _, opt := range opts {
		opt(vm)
	}

	if vm.rng == nil {
		vm.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// font glyphs go at the bottom of memory, the program at 0x200
	copy(vm.ROM[:], Font[:])
	copy(vm.ROM[ProgramStart:], program)

	vm.Reset()

	return vm, nil
}

/// LoadFile reads a ROM file and returns a new CHIP-8 virtual machine.
///
func LoadFile(file string, opts ...Option) (*CHIP_8, error) {
	program, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRomUnreadable, err)
	}

	return LoadROM(program, opts...)
}

/// Reset the CHIP-8 virtual machine to its boot state.
///
func (vm *CHIP_8) Reset() {
	vm.Memory = vm.ROM
	vm.Video = [Width * Height]byte{}
	vm.Keys = Keypad{}

	vm.PC = ProgramStart
	vm.SP = 0
	vm.Stack = [StackSize]uint16{}
	vm.I = 0
	vm.V = [16]byte{}

	vm.DT = 0
	vm.ST = 0

	vm.Cycles = 0
	vm.wait = nil
}

/// PressKey emulates a CHIP-8 key being pressed.
///
func (vm *CHIP_8) PressKey(key uint) {
	vm.Keys.Press(key)
}

/// ReleaseKey emulates a CHIP-8 key being released.
///
func (vm *CHIP_8) ReleaseKey(key uint) {
	vm.Keys.Release(key)
}

/// Tick counts both timers down by one. The host calls it at 60 Hz,
/// however many instructions it runs in between.
///
func (vm *CHIP_8) Tick() {
	if vm.DT > 0 {
		vm.DT--
	}
	if vm.ST > 0 {
		vm.ST--
	}
}

/// Pixel returns the video memory pixel (0 or 1) at x, y.
///
func (vm *CHIP_8) Pixel(x, y int) byte {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return 0
	}

	return vm.Video[y*Width+x]
}

/// Waiting is true while the machine is blocked on LD Vx, K.
///
func (vm *CHIP_8) Waiting() bool {
	return vm.wait != nil
}

/// Step the CHIP-8 virtual machine a single instruction. While blocked on
/// a key, each step samples the keypad instead, and retires the wait once
/// a key has gone down. Defects in the program are returned as *Fault.
///
func (vm *CHIP_8) Step(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if vm.wait != nil {
		if key, ok := vm.Keys.takeHit(); ok {
			*vm.wait = byte(key)
			vm.wait = nil

			// the wait is over, retire the instruction
			vm.PC += InstructionSize
			vm.Cycles++
		}

		return nil
	}

	inst, err := vm.fetch()
	if err != nil {
		return &Fault{PC: vm.PC, Err: err, fetch: true}
	}

	f, err := vm.exec(inst)
	if err != nil {
		return &Fault{PC: vm.PC, Inst: inst, Err: err}
	}

	switch f {
	case flowNext:
		vm.PC += InstructionSize
	case flowSkip:
		vm.PC += 2 * InstructionSize
	case flowWait:
		return nil
	}

	vm.Cycles++

	return nil
}

/// Skip over the instruction at PC without executing it. Hosts use it to
/// carry on past a faulting instruction.
///
func (vm *CHIP_8) Skip() error {
	if int(vm.PC) > MemorySize-InstructionSize {
		return &Fault{PC: vm.PC, Err: ErrAddressRange, fetch: true}
	}

	vm.wait = nil
	vm.PC += InstructionSize

	return nil
}

/// Fetch the 16-bit instruction at PC.
///
func (vm *CHIP_8) fetch() (Instruction, error) {
	if int(vm.PC) > MemorySize-InstructionSize {
		return 0, ErrAddressRange
	}

	return Instruction(uint16(vm.Memory[vm.PC])<<8 | uint16(vm.Memory[vm.PC+1])), nil
}

/// Fetch the instruction at any address, without faulting.
///
func (vm *CHIP_8) peek(address uint16) (Instruction, bool) {
	if int(address) > MemorySize-InstructionSize {
		return 0, false
	}

	return Instruction(uint16(vm.Memory[address])<<8 | uint16(vm.Memory[address+1])), true
}
