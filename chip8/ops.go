package chip8

/// flow is how the cycle driver moves PC once an instruction executed.
///
type flow uint8

const (
	flowNext flow = iota // advance one instruction
	flowSkip             // advance two instructions
	flowJump             // the instruction set PC itself
	flowWait             // blocked on a key, do not retire
)

/// skip the next instruction when the condition holds.
///
func skipIf(cond bool) flow {
	if cond {
		return flowSkip
	}

	return flowNext
}

/// Execute a single, decoded instruction. Nothing is modified when an
/// error is returned.
///
func (vm *CHIP_8) exec(inst Instruction) (flow, error) {
	x, y := inst.X(), inst.Y()
	a, b, n := inst.NNN(), inst.NN(), inst.N()

	switch inst.Class() {
	case 0x0:
		switch inst {
		case 0x00E0:
			vm.cls()
			return flowNext, nil
		case 0x00EE:
			return vm.ret()
		}

		return vm.sys(a)
	case 0x1:
		return vm.jump(a)
	case 0x2:
		return vm.call(a)
	case 0x3:
		return skipIf(vm.V[x] == b), nil
	case 0x4:
		return skipIf(vm.V[x] != b), nil
	case 0x5:
		return skipIf(vm.V[x] == vm.V[y]), nil
	case 0x6:
		vm.V[x] = b
	case 0x7:
		vm.V[x] += b
	case 0x8:
		vm.alu(x, y, n)
	case 0x9:
		return skipIf(vm.V[x] != vm.V[y]), nil
	case 0xA:
		vm.I = a
	case 0xB:
		return vm.jumpV0(a)
	case 0xC:
		vm.rnd(x, b)
	case 0xD:
		return flowNext, vm.drw(x, y, n)
	case 0xE:
		switch b {
		case 0x9E:
			return skipIf(vm.Keys.Down(uint(vm.V[x] & 0xF))), nil
		case 0xA1:
			return skipIf(!vm.Keys.Down(uint(vm.V[x] & 0xF))), nil
		}
	case 0xF:
		return vm.misc(x, b)
	}

	return flowNext, nil
}

/// Execute the 8XY? register to register family. Unknown operations
/// leave the registers untouched.
///
func (vm *CHIP_8) alu(x, y, op uint16) {
	switch op {
	case 0x0:
		vm.V[x] = vm.V[y]
	case 0x1:
		vm.V[x] |= vm.V[y]
	case 0x2:
		vm.V[x] &= vm.V[y]
	case 0x3:
		vm.V[x] ^= vm.V[y]
	case 0x4:
		vm.addXY(x, y)
	case 0x5:
		vm.subXY(x, y)
	case 0x6:
		vm.shr(x)
	case 0x7:
		vm.subYX(x, y)
	case 0xE:
		vm.shl(x)
	}
}

/// Execute the FX?? family.
///
func (vm *CHIP_8) misc(x uint16, op byte) (flow, error) {
	switch op {
	case 0x07:
		vm.V[x] = vm.DT
	case 0x0A:
		vm.loadXK(x)
		return flowWait, nil
	case 0x15:
		vm.DT = vm.V[x]
	case 0x18:
		vm.ST = vm.V[x]
	case 0x1E:
		return flowNext, vm.addIX(x)
	case 0x29:
		vm.I = uint16(vm.V[x]) * GlyphSize
	case 0x33:
		return flowNext, vm.loadB(x)
	case 0x55:
		return flowNext, vm.saveRegs(x)
	case 0x65:
		return flowNext, vm.loadRegs(x)
	}

	return flowNext, nil
}

/// Clear the video display memory.
///
func (vm *CHIP_8) cls() {
	vm.Video = [Width * Height]byte{}
}

/// return from subroutine.
///
func (vm *CHIP_8) ret() (flow, error) {
	if vm.SP == 0 {
		return flowNext, ErrStackUnderflow
	}

	vm.SP--
	vm.PC = vm.Stack[vm.SP]

	return flowJump, nil
}

/// machine code routines aren't emulated, the address is jumped to.
///
func (vm *CHIP_8) sys(address uint16) (flow, error) {
	return vm.jump(address)
}

/// jump to address.
///
func (vm *CHIP_8) jump(address uint16) (flow, error) {
	vm.PC = address

	return flowJump, nil
}

/// call a subroutine at address, the return address is the next
/// instruction.
///
func (vm *CHIP_8) call(address uint16) (flow, error) {
	if vm.SP == StackSize {
		return flowNext, ErrStackOverflow
	}

	vm.Stack[vm.SP] = vm.PC + InstructionSize
	vm.SP++
	vm.PC = address

	return flowJump, nil
}

/// jump to address + v0.
///
func (vm *CHIP_8) jumpV0(address uint16) (flow, error) {
	target := address + uint16(vm.V[0])
	if target >= MemorySize {
		return flowNext, ErrAddressRange
	}

	vm.PC = target

	return flowJump, nil
}

/// add vy to vx and set carry.
///
func (vm *CHIP_8) addXY(x, y uint16) {
	sum := uint16(vm.V[x]) + uint16(vm.V[y])

	vm.V[x] = byte(sum)
	vm.V[0xF] = flag(sum > 0xFF)
}

/// subtract vy from vx, set carry if vx was larger.
///
func (vm *CHIP_8) subXY(x, y uint16) {
	carry := flag(vm.V[x] > vm.V[y])

	vm.V[x] -= vm.V[y]
	vm.V[0xF] = carry
}

/// subtract vx from vy and store in vx, set carry if vy was larger.
///
func (vm *CHIP_8) subYX(x, y uint16) {
	carry := flag(vm.V[y] > vm.V[x])

	vm.V[x] = vm.V[y] - vm.V[x]
	vm.V[0xF] = carry
}

/// shr vx 1 bit, set carry to LSB of vx before shift.
///
func (vm *CHIP_8) shr(x uint16) {
	vm.V[0xF] = vm.V[x] & 1
	vm.V[x] >>= 1
}

/// shl vx 1 bit, set carry to MSB of vx before shift.
///
func (vm *CHIP_8) shl(x uint16) {
	vm.V[0xF] = vm.V[x] >> 7
	vm.V[x] <<= 1
}

/// load a random number & n into vx.
///
func (vm *CHIP_8) rnd(x uint16, b byte) {
	vm.V[x] = byte(vm.rng.Intn(0x100)) & b
}

/// load vx with next key hit (blocking).
///
func (vm *CHIP_8) loadXK(x uint16) {
	vm.Keys.clearHits()
	vm.wait = &vm.V[x]
}

/// add vx to i.
///
func (vm *CHIP_8) addIX(x uint16) error {
	address := vm.I + uint16(vm.V[x])
	if address >= MemorySize {
		return ErrAddressRange
	}

	vm.I = address

	return nil
}

/// load address with BCD of vx.
///
func (vm *CHIP_8) loadB(x uint16) error {
	m, err := vm.window(3)
	if err != nil {
		return err
	}

	m[0] = vm.V[x] / 100
	m[1] = vm.V[x] / 10 % 10
	m[2] = vm.V[x] % 10

	return nil
}

/// save registers v0..vx to I.
///
func (vm *CHIP_8) saveRegs(x uint16) error {
	m, err := vm.window(x + 1)
	if err != nil {
		return err
	}

	copy(m, vm.V[:x+1])

	return nil
}

/// load registers v0..vx from I.
///
func (vm *CHIP_8) loadRegs(x uint16) error {
	m, err := vm.window(x + 1)
	if err != nil {
		return err
	}

	copy(vm.V[:x+1], m)

	return nil
}

/// draw a sprite at I to video memory at vx, vy. Sprites are clipped at
/// the edges of the display; only the origin wraps.
///
func (vm *CHIP_8) drw(x, y, n uint16) error {
	sprite, err := vm.window(n)
	if err != nil {
		return err
	}

	// origin wraps once, the sprite itself never does
	x0 := int(vm.V[x]) % Width
	y0 := int(vm.V[y]) % Height

	// cleared after reading the origin, VF may be a coordinate
	vm.V[0xF] = 0

	for row, bits := range sprite {
		py := y0 + row
		if py >= Height {
			break
		}

		for col := 0; col < 8; col++ {
			px := x0 + col
			if px >= Width {
				break
			}

			if bits&(0x80>>col) == 0 {
				continue
			}

			// were any pixels turned off?
			p := &vm.Video[py*Width+px]
			if *p == 1 {
				vm.V[0xF] = 1
			}

			*p ^= 1
		}
	}

	return nil
}

/// window returns n bytes of memory starting at I.
///
func (vm *CHIP_8) window(n uint16) ([]byte, error) {
	if int(vm.I)+int(n) > MemorySize {
		return nil, ErrAddressRange
	}

	return vm.Memory[vm.I : vm.I+n], nil
}

/// flag converts a condition to a VF value.
///
func flag(cond bool) byte {
	if cond {
		return 1
	}

	return 0
}
