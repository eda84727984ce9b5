package chip8

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func boot(t *testing.T, program ...byte) *CHIP_8 {
	t.Helper()

	vm, err := LoadROM(program, WithRand(rand.New(rand.NewSource(1))))
	assert.NoError(t, err)
	return vm
}

func step(t *testing.T, vm *CHIP_8, n int) {
	t.Helper()

	for range n {
		assert.NoError(t, vm.Step(context.Background()))
	}
}

func TestLoadROMEmpty(t *testing.T) {
	vm := boot(t)

	assert.Equal(t, uint16(ProgramStart), vm.PC)
	assert.Equal(t, uint16(0), vm.SP)
	assert.Equal(t, byte(0), vm.DT)
	assert.Equal(t, byte(0), vm.ST)

	for address := ProgramStart; address < MemorySize; address++ {
		if vm.Memory[address] != 0 {
			t.Fatalf("memory at %03X is %02X", address, vm.Memory[address])
		}
	}

	assert.Equal(t, Font[:], vm.Memory[:len(Font)])
	assert.Equal(t, [Width * Height]byte{}, vm.Video)
	assert.Equal(t, [KeyCount]bool{}, vm.Keys.State())
}

func TestLoadROMTooLarge(t *testing.T) {
	_, err := LoadROM(make([]byte, MaxProgramSize+1))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrRomTooLarge))

	vm, err := LoadROM(make([]byte, MaxProgramSize))
	assert.NoError(t, err)
	assert.NotNil(t, vm)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "test.ch8")
	assert.NoError(t, os.WriteFile(file, []byte{0x6A, 0x02}, 0o600))

	vm, err := LoadFile(file)
	assert.NoError(t, err)
	assert.Equal(t, byte(0x6A), vm.Memory[ProgramStart])

	_, err = LoadFile(filepath.Join(dir, "missing.ch8"))
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrRomUnreadable))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestScenarioLoad(t *testing.T) {
	vm := boot(t, 0x6A, 0x02)
	step(t, vm, 1)

	assert.Equal(t, byte(2), vm.V[0xA])
	assert.Equal(t, uint16(0x202), vm.PC)
	assert.Equal(t, int64(1), vm.Cycles)
}

func TestScenarioClear(t *testing.T) {
	vm := boot(t, 0x00, 0xE0)
	for i := range vm.Video {
		vm.Video[i] = 1
	}

	step(t, vm, 1)

	assert.Equal(t, [Width * Height]byte{}, vm.Video)
	assert.Equal(t, uint16(0x202), vm.PC)
}

func TestLoadImmediate(t *testing.T) {
	for x := range 16 {
		vm := boot(t, 0x60|byte(x), 0xA5)
		step(t, vm, 1)
		assert.Equal(t, byte(0xA5), vm.V[x])
	}
}

func TestAddImmediateWraps(t *testing.T) {
	vm := boot(t, 0x73, 0x02)
	vm.V[3] = 0xFF
	vm.V[0xF] = 0x42

	step(t, vm, 1)

	assert.Equal(t, byte(0x01), vm.V[3])
	assert.Equal(t, byte(0x42), vm.V[0xF])
}

func TestALU(t *testing.T) {
	tests := []struct {
		name  string
		op    byte
		vx    byte
		vy    byte
		want  byte
		carry byte
	}{
		{"ld", 0x0, 0x12, 0x34, 0x34, 0x00},
		{"or", 0x1, 0xF0, 0x0F, 0xFF, 0x00},
		{"and", 0x2, 0xF0, 0x3C, 0x30, 0x00},
		{"xor", 0x3, 0xFF, 0x0F, 0xF0, 0x00},
		{"add", 0x4, 0x10, 0x20, 0x30, 0x00},
		{"add carry", 0x4, 0xFF, 0x02, 0x01, 0x01},
		{"add exact", 0x4, 0x80, 0x80, 0x00, 0x01},
		{"sub", 0x5, 0x30, 0x10, 0x20, 0x01},
		{"sub borrow", 0x5, 0x10, 0x30, 0xE0, 0x00},
		{"sub equal", 0x5, 0x10, 0x10, 0x00, 0x00},
		{"shr", 0x6, 0x05, 0xFF, 0x02, 0x01},
		{"shr even", 0x6, 0x04, 0xFF, 0x02, 0x00},
		{"subn", 0x7, 0x10, 0x30, 0x20, 0x01},
		{"subn borrow", 0x7, 0x30, 0x10, 0xE0, 0x00},
		{"shl", 0xE, 0x81, 0x00, 0x02, 0x01},
		{"shl clear", 0xE, 0x41, 0x00, 0x82, 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := boot(t, 0x81, 0x20|tt.op)
			vm.V[1] = tt.vx
			vm.V[2] = tt.vy
			vm.V[0xF] = 0x55

			step(t, vm, 1)

			assert.Equal(t, tt.want, vm.V[1])
			assert.Equal(t, uint16(0x202), vm.PC)

			// logical operations leave the flag alone
			if tt.op <= 0x3 {
				assert.Equal(t, byte(0x55), vm.V[0xF])
			} else {
				assert.Equal(t, tt.carry, vm.V[0xF])
			}
		})
	}
}

func TestALUUnknownIsNoop(t *testing.T) {
	vm := boot(t, 0x81, 0x28)
	vm.V[1] = 0x11
	vm.V[2] = 0x22
	vm.V[0xF] = 0x33

	step(t, vm, 1)

	assert.Equal(t, byte(0x11), vm.V[1])
	assert.Equal(t, byte(0x22), vm.V[2])
	assert.Equal(t, byte(0x33), vm.V[0xF])
	assert.Equal(t, uint16(0x202), vm.PC)
}

func TestSkips(t *testing.T) {
	tests := []struct {
		name string
		inst []byte
		vx   byte
		vy   byte
		want uint16
	}{
		{"se taken", []byte{0x31, 0x10}, 0x10, 0, 0x204},
		{"se not taken", []byte{0x31, 0x10}, 0x11, 0, 0x202},
		{"sne taken", []byte{0x41, 0x10}, 0x11, 0, 0x204},
		{"sne not taken", []byte{0x41, 0x10}, 0x10, 0, 0x202},
		{"se xy taken", []byte{0x51, 0x20}, 7, 7, 0x204},
		{"se xy not taken", []byte{0x51, 0x20}, 7, 8, 0x202},
		{"sne xy taken", []byte{0x91, 0x20}, 7, 8, 0x204},
		{"sne xy not taken", []byte{0x91, 0x20}, 7, 7, 0x202},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm := boot(t, tt.inst...)
			vm.V[1] = tt.vx
			vm.V[2] = tt.vy

			step(t, vm, 1)

			assert.Equal(t, tt.want, vm.PC)
		})
	}
}

func TestJumps(t *testing.T) {
	vm := boot(t, 0x13, 0x45)
	step(t, vm, 1)
	assert.Equal(t, uint16(0x345), vm.PC)

	vm = boot(t, 0xB3, 0x00)
	vm.V[0] = 0x10
	step(t, vm, 1)
	assert.Equal(t, uint16(0x310), vm.PC)

	// legacy machine code routines are jumped to
	vm = boot(t, 0x03, 0x00)
	step(t, vm, 1)
	assert.Equal(t, uint16(0x300), vm.PC)
}

func TestCallReturn(t *testing.T) {
	// 200: CALL 206, 202: (next), 206: RET
	vm := boot(t, 0x22, 0x06, 0x00, 0x00, 0x00, 0x00, 0x00, 0xEE)

	step(t, vm, 1)
	assert.Equal(t, uint16(0x206), vm.PC)
	assert.Equal(t, uint16(1), vm.SP)
	assert.Equal(t, uint16(0x202), vm.Stack[0])

	step(t, vm, 1)
	assert.Equal(t, uint16(0x202), vm.PC)
	assert.Equal(t, uint16(0), vm.SP)
}

func TestStackOverflow(t *testing.T) {
	// 200: CALL 200
	vm := boot(t, 0x22, 0x00)
	step(t, vm, StackSize)
	assert.Equal(t, uint16(StackSize), vm.SP)

	err := vm.Step(context.Background())
	assert.True(t, errors.Is(err, ErrStackOverflow))

	var fault *Fault
	assert.True(t, errors.As(err, &fault))
	assert.Equal(t, uint16(0x200), fault.PC)
	assert.Equal(t, Instruction(0x2200), fault.Inst)

	// nothing was touched by the faulting call
	assert.Equal(t, uint16(0x200), vm.PC)
	assert.Equal(t, uint16(StackSize), vm.SP)
	assert.Equal(t, int64(StackSize), vm.Cycles)
}

func TestStackUnderflow(t *testing.T) {
	vm := boot(t, 0x00, 0xEE)

	err := vm.Step(context.Background())
	assert.True(t, errors.Is(err, ErrStackUnderflow))
	assert.Equal(t, uint16(0x200), vm.PC)
	assert.Equal(t, uint16(0), vm.SP)
}

func TestJumpV0OutOfRange(t *testing.T) {
	vm := boot(t, 0xBF, 0xFF)
	vm.V[0] = 1

	err := vm.Step(context.Background())
	assert.True(t, errors.Is(err, ErrAddressRange))
	assert.Equal(t, uint16(0x200), vm.PC)
}

func TestFetchOutOfRange(t *testing.T) {
	vm := boot(t, 0x1F, 0xFF)
	step(t, vm, 1)
	assert.Equal(t, uint16(0xFFF), vm.PC)

	err := vm.Step(context.Background())
	assert.True(t, errors.Is(err, ErrAddressRange))
	assert.Contains(t, err.Error(), "fetch at 0FFF")

	// a fault at the very end can't be skipped either
	assert.Error(t, vm.Skip())
}

func TestAddIndex(t *testing.T) {
	vm := boot(t, 0xF1, 0x1E, 0xF1, 0x1E)
	vm.I = 0xFF0
	vm.V[1] = 0x0F

	step(t, vm, 1)
	assert.Equal(t, uint16(0xFFF), vm.I)

	err := vm.Step(context.Background())
	assert.True(t, errors.Is(err, ErrAddressRange))
	assert.Equal(t, uint16(0xFFF), vm.I)
	assert.Equal(t, uint16(0x202), vm.PC)
}

func TestRandomMasked(t *testing.T) {
	for range 64 {
		vm, err := LoadROM([]byte{0xC4, 0x00, 0xC5, 0x0F})
		assert.NoError(t, err)
		vm.V[4] = 0xAA

		step(t, vm, 2)

		assert.Equal(t, byte(0), vm.V[4])
		assert.Equal(t, byte(0), vm.V[5]&0xF0)
	}
}

func TestTimers(t *testing.T) {
	// LD V1, 2; LD DT, V1; LD ST, V1; LD V2, DT
	vm := boot(t, 0x61, 0x02, 0xF1, 0x15, 0xF1, 0x18, 0xF2, 0x07)
	step(t, vm, 3)

	assert.Equal(t, byte(2), vm.DT)
	assert.Equal(t, byte(2), vm.ST)

	vm.Tick()
	step(t, vm, 1)
	assert.Equal(t, byte(1), vm.V[2])

	vm.Tick()
	vm.Tick()
	assert.Equal(t, byte(0), vm.DT)
	assert.Equal(t, byte(0), vm.ST)
}

func TestFontGlyph(t *testing.T) {
	vm := boot(t, 0xF3, 0x29)
	vm.V[3] = 0xA

	step(t, vm, 1)

	assert.Equal(t, uint16(0xA*GlyphSize), vm.I)
	assert.Equal(t, byte(0xF0), vm.Memory[vm.I])
}

func TestBCD(t *testing.T) {
	vm := boot(t, 0xF3, 0x33)
	vm.V[3] = 254
	vm.I = 0x300

	step(t, vm, 1)

	assert.Equal(t, []byte{2, 5, 4}, vm.Memory[0x300:0x303])

	vm = boot(t, 0xF3, 0x33)
	vm.I = 0xFFE

	err := vm.Step(context.Background())
	assert.True(t, errors.Is(err, ErrAddressRange))
}

func TestSaveLoadRegisters(t *testing.T) {
	vm := boot(t, 0xF7, 0x55, 0x60, 0x00, 0x67, 0x00, 0xF7, 0x65)
	vm.I = 0x400

	for x := range 16 {
		vm.V[x] = byte(x*3 + 1)
	}

	step(t, vm, 3)
	assert.Equal(t, byte(0), vm.V[0])
	assert.Equal(t, byte(0), vm.V[7])

	step(t, vm, 1)

	for x := range 8 {
		assert.Equal(t, byte(x*3+1), vm.V[x])
	}

	// registers past x are untouched
	assert.Equal(t, byte(8*3+1), vm.V[8])
	assert.Equal(t, byte(0), vm.Memory[0x408])
	assert.Equal(t, uint16(0x400), vm.I)
}

func TestSaveRegistersOutOfRange(t *testing.T) {
	vm := boot(t, 0xFF, 0x55)
	vm.I = 0xFF8

	err := vm.Step(context.Background())
	assert.True(t, errors.Is(err, ErrAddressRange))

	for _, b := range vm.Memory[0xFF8:] {
		assert.Equal(t, byte(0), b)
	}
}

func TestDrawIdempotent(t *testing.T) {
	// LD F, V0; DRW V1, V2, 5; DRW V1, V2, 5
	vm := boot(t, 0xF0, 0x29, 0xD1, 0x25, 0xD1, 0x25)
	vm.V[0] = 0x8
	vm.V[1] = 10
	vm.V[2] = 4

	step(t, vm, 2)
	assert.Equal(t, byte(0), vm.V[0xF])
	assert.Equal(t, byte(1), vm.Pixel(10, 4))

	step(t, vm, 1)
	assert.Equal(t, byte(1), vm.V[0xF])
	assert.Equal(t, [Width * Height]byte{}, vm.Video)
}

func TestDrawClips(t *testing.T) {
	vm := boot(t, 0xD1, 0x22)
	vm.I = 0x300
	vm.Memory[0x300] = 0xFF
	vm.Memory[0x301] = 0xFF
	vm.V[1] = 60
	vm.V[2] = 31

	step(t, vm, 1)

	lit := 0
	for _, p := range vm.Video {
		lit += int(p)
	}

	// only x 60-63 on the bottom row are in bounds
	assert.Equal(t, 4, lit)
	for x := 60; x < Width; x++ {
		assert.Equal(t, byte(1), vm.Pixel(x, 31))
	}
	for x := range 4 {
		assert.Equal(t, byte(0), vm.Pixel(x, 31))
		assert.Equal(t, byte(0), vm.Pixel(x, 0))
	}
}

func TestDrawAtVF(t *testing.T) {
	// LD VF, 10; LD VE, 5; LD I, 000; DRW VF, VE, 5
	vm := boot(t, 0x6F, 0x0A, 0x6E, 0x05, 0xA0, 0x00, 0xDF, 0xE5)

	step(t, vm, 4)

	// glyph 0 starts with F0
	assert.Equal(t, byte(1), vm.Pixel(10, 5))
	assert.Equal(t, byte(0), vm.Pixel(0, 5))
	assert.Equal(t, byte(0), vm.V[0xF])
}

func TestDrawOriginWraps(t *testing.T) {
	vm := boot(t, 0xD1, 0x21)
	vm.I = 0x300
	vm.Memory[0x300] = 0x80
	vm.V[1] = Width + 3
	vm.V[2] = Height + 2

	step(t, vm, 1)

	assert.Equal(t, byte(1), vm.Pixel(3, 2))
}

func TestKeySkips(t *testing.T) {
	vm := boot(t, 0xE1, 0x9E, 0x00, 0x00, 0xE1, 0xA1)
	vm.V[1] = 0x7

	vm.PressKey(0x7)
	step(t, vm, 1)
	assert.Equal(t, uint16(0x204), vm.PC)

	vm.ReleaseKey(0x7)
	step(t, vm, 1)
	assert.Equal(t, uint16(0x208), vm.PC)
}

func TestKeyWait(t *testing.T) {
	vm := boot(t, 0xF5, 0x0A)

	// a key held before the wait doesn't count
	vm.PressKey(0x2)

	step(t, vm, 1)
	assert.True(t, vm.Waiting())
	assert.Equal(t, uint16(0x200), vm.PC)
	assert.Equal(t, int64(0), vm.Cycles)

	step(t, vm, 10)
	assert.True(t, vm.Waiting())

	vm.Tick()
	vm.PressKey(0xC)
	step(t, vm, 1)

	assert.False(t, vm.Waiting())
	assert.Equal(t, byte(0xC), vm.V[5])
	assert.Equal(t, uint16(0x202), vm.PC)
	assert.Equal(t, int64(1), vm.Cycles)
}

func TestKeyWaitCancelled(t *testing.T) {
	vm := boot(t, 0xF5, 0x0A)
	step(t, vm, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := vm.Step(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, vm.Waiting())
}

func TestReset(t *testing.T) {
	vm := boot(t, 0x6A, 0x02, 0xA3, 0x00, 0xFA, 0x55)
	step(t, vm, 3)
	assert.Equal(t, byte(2), vm.Memory[0x30A])

	vm.Reset()

	assert.Equal(t, uint16(ProgramStart), vm.PC)
	assert.Equal(t, byte(0), vm.V[0xA])
	assert.Equal(t, byte(0), vm.Memory[0x30A])
	assert.Equal(t, byte(0x6A), vm.Memory[ProgramStart])
	assert.Equal(t, int64(0), vm.Cycles)
}
