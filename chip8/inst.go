package chip8

/// Instruction is a single, raw 16-bit CHIP-8 instruction word. It is
/// never stored, but fetched from memory (big-endian) every cycle.
///
type Instruction uint16

/// Field extracts a nibble-aligned value from an instruction. The start
/// position is the index of the first nibble counted from the most
/// significant one (0-3) and the width is the number of nibbles.
///
func Field(inst uint16, start, width uint) uint16 {
	if width == 0 || start+width > 4 {
		return 0
	}

	// shift the field down to bit 0 and mask it
	shift := (4 - start - width) * 4
	mask := uint32(1)<<(width*4) - 1

	return uint16(uint32(inst) >> shift & mask)
}

/// Class is the top nibble, which selects the instruction family.
///
func (i Instruction) Class() uint16 {
	return Field(uint16(i), 0, 1)
}

/// X is the first register operand.
///
func (i Instruction) X() uint16 {
	return Field(uint16(i), 1, 1)
}

/// Y is the second register operand.
///
func (i Instruction) Y() uint16 {
	return Field(uint16(i), 2, 1)
}

/// N is the low, 4-bit immediate.
///
func (i Instruction) N() uint16 {
	return Field(uint16(i), 3, 1)
}

/// NN is the low, 8-bit immediate.
///
func (i Instruction) NN() byte {
	return byte(Field(uint16(i), 2, 2))
}

/// NNN is the 12-bit address operand.
///
func (i Instruction) NNN() uint16 {
	return Field(uint16(i), 1, 3)
}
