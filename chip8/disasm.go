package chip8

import (
	"fmt"
	"strings"

	cpu "github.com/retroenv/retrogolib/arch/cpu/chip8"
)

/// Mnemonic returns the instruction name for an instruction word, or an
/// empty string if the word doesn't encode a known instruction.
///
func Mnemonic(inst Instruction) string {
	w := uint16(inst)

	// machine code calls aren't part of the table
	if inst.Class() == 0 && inst != 0x00E0 && inst != 0x00EE {
		return "SYS"
	}

	for _, op := range cpu.Opcodes[int(inst.Class())] {
		if op.Instruction != nil && op.Info.Mask&w == op.Info.Value {
			return strings.ToUpper(op.Instruction.Name)
		}
	}

	return ""
}

/// String disassembles the instruction.
///
func (i Instruction) String() string {
	name := Mnemonic(i)
	if name == "" {
		return "??"
	}

	x, y := i.X(), i.Y()
	a, b, n := i.NNN(), i.NN(), i.N()

	// operands are determined by the encoding, not the name
	switch i.Class() {
	case 0x0:
		if i == 0x00E0 || i == 0x00EE {
			return name
		}
		return fmt.Sprintf("%-6s #%03X", name, a)
	case 0x1, 0x2:
		return fmt.Sprintf("%-6s #%03X", name, a)
	case 0x3, 0x4, 0x6, 0x7, 0xC:
		return fmt.Sprintf("%-6s V%X, #%02X", name, x, b)
	case 0x5, 0x9:
		return fmt.Sprintf("%-6s V%X, V%X", name, x, y)
	case 0x8:
		if n == 0x6 || n == 0xE {
			return fmt.Sprintf("%-6s V%X", name, x)
		}
		return fmt.Sprintf("%-6s V%X, V%X", name, x, y)
	case 0xA:
		return fmt.Sprintf("%-6s I, #%03X", name, a)
	case 0xB:
		return fmt.Sprintf("%-6s V0, #%03X", name, a)
	case 0xD:
		return fmt.Sprintf("%-6s V%X, V%X, %d", name, x, y, n)
	case 0xE:
		return fmt.Sprintf("%-6s V%X", name, x)
	}

	switch b {
	case 0x07:
		return fmt.Sprintf("%-6s V%X, DT", name, x)
	case 0x0A:
		return fmt.Sprintf("%-6s V%X, K", name, x)
	case 0x15:
		return fmt.Sprintf("%-6s DT, V%X", name, x)
	case 0x18:
		return fmt.Sprintf("%-6s ST, V%X", name, x)
	case 0x1E:
		return fmt.Sprintf("%-6s I, V%X", name, x)
	case 0x29:
		return fmt.Sprintf("%-6s F, V%X", name, x)
	case 0x33:
		return fmt.Sprintf("%-6s B, V%X", name, x)
	case 0x55:
		return fmt.Sprintf("%-6s [I], V%X", name, x)
	case 0x65:
		return fmt.Sprintf("%-6s V%X, [I]", name, x)
	}

	return name
}

/// Disassemble the CHIP-8 instruction at an address.
///
func (vm *CHIP_8) Disassemble(address uint16) string {
	inst, ok := vm.peek(address)
	if !ok {
		return ""
	}

	return fmt.Sprintf("%04X - %s", address, inst)
}
