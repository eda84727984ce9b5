/* Copyright (c) 2017 Jeffrey Massung
 *
 * This software is provided 'as-is', without any express or implied
 * warranty.  In no event will the authors be held liable for any damages
 * arising from the use of this software.
 *
 * Permission is granted to anyone to use this software for any purpose,
 * including commercial applications, and to alter it and redistribute it
 * freely, subject to the following restrictions:
 *
 * 1. The origin of this software must not be misrepresented; you must not
 *    claim that you wrote the original software. If you use this software
 *    in a product, an acknowledgment in the product documentation would be
 *    appreciated but is not required.
 *
 * 2. Altered source versions must be plainly marked as such, and must not be
 *    misrepresented as being the original software.
 *
 * 3. This notice may not be removed or altered from any source distribution.
 */

package chip8

import (
	"bufio"
	"bytes"
	"fmt"
)

/// Assembly is a completely assembled source file.
///
type Assembly struct {
	/// ROM is the final, assembled bytes to load at ProgramStart.
	///
	ROM []byte

	/// Labels maps every label to the address or value it was assigned.
	///
	Labels map[string]int

	// label operands that still need to be written into the ROM
	fixups []fixup
}

/// How much of a ROM word a forward reference is patched into.
///
type fixupKind uint8

const (
	fixAddress   fixupKind = iota // low 12 bits of an instruction
	fixImmediate                  // low byte of an instruction
	fixByte                       // a single byte
	fixWord                       // a 16-bit word
)

/// A label reference that couldn't be resolved when it was assembled.
///
type fixup struct {
	offset int
	label  string
	kind   fixupKind
	line   int
}

/// Form is an operand pattern an instruction can be assembled with.
///
type form struct {
	operands []tokenType
	encode   func(a *Assembly, ops []token) uint16
}

/// Error raised while assembling a line.
///
type asmError struct {
	msg interface{}
}

/// Instruction operand patterns. The first matching form is assembled.
///
var forms = map[string][]form{
	"CLS": {
		{nil, func(a *Assembly, ops []token) uint16 { return 0x00E0 }},
	},
	"RET": {
		{nil, func(a *Assembly, ops []token) uint16 { return 0x00EE }},
	},
	"SYS": {
		{[]tokenType{TOKEN_LIT}, func(a *Assembly, ops []token) uint16 { return a.addr(ops[0]) }},
	},
	"JP": {
		{[]tokenType{TOKEN_LIT}, func(a *Assembly, ops []token) uint16 { return 0x1000 | a.addr(ops[0]) }},
		{[]tokenType{TOKEN_V, TOKEN_LIT}, func(a *Assembly, ops []token) uint16 {
			if ops[0].val.(int) != 0 {
				fail("jump offset must be v0")
			}
			return 0xB000 | a.addr(ops[1])
		}},
	},
	"CALL": {
		{[]tokenType{TOKEN_LIT}, func(a *Assembly, ops []token) uint16 { return 0x2000 | a.addr(ops[0]) }},
	},
	"SE": {
		{[]tokenType{TOKEN_V, TOKEN_LIT}, encodeXNN(0x3000)},
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x5000)},
	},
	"SNE": {
		{[]tokenType{TOKEN_V, TOKEN_LIT}, encodeXNN(0x4000)},
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x9000)},
	},
	"LD": {
		{[]tokenType{TOKEN_V, TOKEN_LIT}, encodeXNN(0x6000)},
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x8000)},
		{[]tokenType{TOKEN_I, TOKEN_LIT}, func(a *Assembly, ops []token) uint16 { return 0xA000 | a.addr(ops[1]) }},
		{[]tokenType{TOKEN_V, TOKEN_DT}, encodeX(0xF007)},
		{[]tokenType{TOKEN_V, TOKEN_K}, encodeX(0xF00A)},
		{[]tokenType{TOKEN_DT, TOKEN_V}, encodeSrc(0xF015)},
		{[]tokenType{TOKEN_ST, TOKEN_V}, encodeSrc(0xF018)},
		{[]tokenType{TOKEN_F, TOKEN_V}, encodeSrc(0xF029)},
		{[]tokenType{TOKEN_B, TOKEN_V}, encodeSrc(0xF033)},
		{[]tokenType{TOKEN_EFFECTIVE_ADDRESS, TOKEN_V}, encodeSrc(0xF055)},
		{[]tokenType{TOKEN_V, TOKEN_EFFECTIVE_ADDRESS}, encodeX(0xF065)},
	},
	"ADD": {
		{[]tokenType{TOKEN_V, TOKEN_LIT}, encodeXNN(0x7000)},
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x8004)},
		{[]tokenType{TOKEN_I, TOKEN_V}, encodeSrc(0xF01E)},
	},
	"OR": {
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x8001)},
	},
	"AND": {
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x8002)},
	},
	"XOR": {
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x8003)},
	},
	"SUB": {
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x8005)},
	},
	"SHR": {
		{[]tokenType{TOKEN_V}, encodeX(0x8006)},
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x8006)},
	},
	"SUBN": {
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x8007)},
	},
	"SHL": {
		{[]tokenType{TOKEN_V}, encodeX(0x800E)},
		{[]tokenType{TOKEN_V, TOKEN_V}, encodeXY(0x800E)},
	},
	"RND": {
		{[]tokenType{TOKEN_V, TOKEN_LIT}, encodeXNN(0xC000)},
	},
	"DRW": {
		{[]tokenType{TOKEN_V, TOKEN_V, TOKEN_LIT}, func(a *Assembly, ops []token) uint16 {
			n := ops[2].val.(int)
			if ops[2].ref != "" || n < 0 || n > 0xF {
				fail("illegal sprite height")
			}
			return encodeXY(0xD000)(a, ops) | uint16(n)
		}},
	},
	"SKP": {
		{[]tokenType{TOKEN_V}, encodeX(0xE09E)},
	},
	"SKNP": {
		{[]tokenType{TOKEN_V}, encodeX(0xE0A1)},
	},
	"BCD": {
		{[]tokenType{TOKEN_V}, encodeX(0xF033)},
	},
}

/// Assemble an input CHIP-8 source code file.
///
func Assemble(program []byte) (out *Assembly, err error) {
	var line int

	out = &Assembly{
		ROM:    make([]byte, 0, MaxProgramSize),
		Labels: make(map[string]int),
	}

	// handle assembly errors, anything else is a bug
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(asmError)
			if !ok {
				panic(r)
			}

			if line > 0 {
				err = fmt.Errorf("line %d - %v", line, e.msg)
			} else {
				err = fmt.Errorf("%v", e.msg)
			}

			out = nil
		}
	}()

	scanner := bufio.NewScanner(bytes.NewReader(program))

	// parse and assemble
	for line = 1; scanner.Scan(); line++ {
		out.assembleLine(line, &tokenScanner{bytes: scanner.Bytes()})

		if len(out.ROM) > MaxProgramSize {
			fail("program too large")
		}
	}

	// resolve forward references
	for _, f := range out.fixups {
		line = f.line
		out.resolve(f)
	}

	return out, nil
}

/// Address returns the address a label was assigned.
///
func (a *Assembly) Address(label string) (uint16, bool) {
	v, ok := a.Labels[label]
	return uint16(v), ok
}

/// Compile a single line into the assembly.
///
func (a *Assembly) assembleLine(line int, s *tokenScanner) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(asmError); ok {
				panic(r)
			}

			// scanner errors are raised as plain values
			panic(asmError{msg: r})
		}
	}()

	t := s.scanToken()

	// assign labels
	if t.typ == TOKEN_LABEL {
		t = a.assembleLabel(t.val.(string), s)
	}

	switch t.typ {
	case TOKEN_INSTRUCTION:
		a.assembleInstruction(line, t.val.(string), s.scanOperands())
	case TOKEN_END:
	default:
		fail("unexpected token")
	}
}

/// Add a label to the assembly, or assign it with EQU.
///
func (a *Assembly) assembleLabel(label string, s *tokenScanner) token {
	if _, exists := a.Labels[label]; exists {
		fail(fmt.Sprintf("duplicate label: %s", label))
	}

	// by default, the label is assigned the current address
	a.Labels[label] = a.address()

	t := s.scanToken()
	if t.typ != TOKEN_EQU {
		return t
	}

	v := a.assembleOperand(s.scanToken())
	if v.typ != TOKEN_LIT || v.ref != "" {
		fail("illegal label assignment")
	}

	a.Labels[label] = v.val.(int)

	// should be the final token
	if t = s.scanToken(); t.typ != TOKEN_END {
		fail("illegal label assignment")
	}

	return t
}

/// Compile a single instruction or directive into the assembly.
///
func (a *Assembly) assembleInstruction(line int, i string, tokens []token) {
	ops := make([]token, len(tokens))

	for n, t := range tokens {
		ops[n] = a.assembleOperand(t)
	}

	switch i {
	case "BYTE":
		a.assembleBYTE(line, ops)
		return
	case "WORD":
		a.assembleWORD(line, ops)
		return
	case "ALIGN":
		a.assembleALIGN(ops)
		return
	case "PAD":
		a.assemblePAD(ops)
		return
	}

	for _, f := range forms[i] {
		if !matches(ops, f.operands) {
			continue
		}

		// references are patched into the word about to be written
		start := len(a.fixups)

		w := f.encode(a, ops)

		for n := start; n < len(a.fixups); n++ {
			a.fixups[n].offset = len(a.ROM)
			a.fixups[n].line = line
		}

		a.ROM = append(a.ROM, byte(w>>8), byte(w))
		return
	}

	fail("illegal instruction")
}

/// Assemble a single operand, expanding label references. Unknown labels
/// become literals to resolve once the whole file is assembled.
///
func (a *Assembly) assembleOperand(t token) token {
	if t.typ != TOKEN_REF {
		return t
	}

	label := t.val.(string)
	if v, exists := a.Labels[label]; exists {
		return token{typ: TOKEN_LIT, val: v}
	}

	return token{typ: TOKEN_LIT, val: 0, ref: label}
}

/// Assemble BYTE values and strings.
///
func (a *Assembly) assembleBYTE(line int, ops []token) {
	for _, t := range ops {
		switch t.typ {
		case TOKEN_TEXT:
			a.ROM = append(a.ROM, t.val.(string)...)
		case TOKEN_LIT:
			a.ROM = append(a.ROM, a.imm(t, fixByte, line))
		default:
			fail("illegal byte")
		}
	}
}

/// Assemble WORD values, most significant byte first.
///
func (a *Assembly) assembleWORD(line int, ops []token) {
	for _, t := range ops {
		if t.typ != TOKEN_LIT {
			fail("illegal word")
		}

		v := t.val.(int)
		if t.ref != "" {
			a.fixups = append(a.fixups, fixup{offset: len(a.ROM), label: t.ref, kind: fixWord, line: line})
		} else if v < -0x8000 || v > 0xFFFF {
			fail("word out of range")
		}

		a.ROM = append(a.ROM, byte(v>>8), byte(v))
	}
}

/// Pad the ROM with zeros to an even address.
///
func (a *Assembly) assembleALIGN(ops []token) {
	if len(ops) != 0 {
		fail("unexpected operand")
	}

	if len(a.ROM)&1 == 1 {
		a.ROM = append(a.ROM, 0)
	}
}

/// Pad the ROM with a number of zeros.
///
func (a *Assembly) assemblePAD(ops []token) {
	if len(ops) != 1 || ops[0].typ != TOKEN_LIT || ops[0].ref != "" {
		fail("illegal pad")
	}

	n := ops[0].val.(int)
	if n < 0 || len(a.ROM)+n > MaxProgramSize {
		fail("illegal pad")
	}

	a.ROM = append(a.ROM, make([]byte, n)...)
}

/// Write a resolved forward reference into the ROM.
///
func (a *Assembly) resolve(f fixup) {
	v, ok := a.Labels[f.label]
	if !ok {
		fail(fmt.Sprintf("unresolved label: %s", f.label))
	}

	switch f.kind {
	case fixAddress:
		if v < 0 || v >= MemorySize {
			fail("address out of range")
		}

		a.ROM[f.offset] |= byte(v >> 8)
		a.ROM[f.offset+1] = byte(v)
	case fixImmediate, fixByte:
		if v < -0x80 || v > 0xFF {
			fail("byte out of range")
		}

		// instructions keep the byte in their low half
		if f.kind == fixImmediate {
			a.ROM[f.offset+1] = byte(v)
		} else {
			a.ROM[f.offset] = byte(v)
		}
	case fixWord:
		a.ROM[f.offset] = byte(v >> 8)
		a.ROM[f.offset+1] = byte(v)
	}
}

/// The current assembly address.
///
func (a *Assembly) address() int {
	return ProgramStart + len(a.ROM)
}

/// A 12-bit address operand.
///
func (a *Assembly) addr(t token) uint16 {
	if t.ref != "" {
		a.fixups = append(a.fixups, fixup{label: t.ref, kind: fixAddress})
		return 0
	}

	v := t.val.(int)
	if v < 0 || v >= MemorySize {
		fail("address out of range")
	}

	return uint16(v)
}

/// An 8-bit immediate operand. Negative values are two's complement.
///
func (a *Assembly) imm(t token, kind fixupKind, line int) byte {
	if t.ref != "" {
		a.fixups = append(a.fixups, fixup{offset: len(a.ROM), label: t.ref, kind: kind, line: line})
		return 0
	}

	v := t.val.(int)
	if v < -0x80 || v > 0xFF {
		fail("byte out of range")
	}

	return byte(v)
}

/// Check the operand types against a form.
///
func matches(ops []token, types []tokenType) bool {
	if len(ops) != len(types) {
		return false
	}

	for i, typ := range types {
		if ops[i].typ != typ {
			return false
		}
	}

	return true
}

func encodeX(base uint16) func(*Assembly, []token) uint16 {
	return func(a *Assembly, ops []token) uint16 {
		return base | uint16(ops[0].val.(int))<<8
	}
}

func encodeSrc(base uint16) func(*Assembly, []token) uint16 {
	return func(a *Assembly, ops []token) uint16 {
		return base | uint16(ops[1].val.(int))<<8
	}
}

func encodeXY(base uint16) func(*Assembly, []token) uint16 {
	return func(a *Assembly, ops []token) uint16 {
		return base | uint16(ops[0].val.(int))<<8 | uint16(ops[1].val.(int))<<4
	}
}

func encodeXNN(base uint16) func(*Assembly, []token) uint16 {
	return func(a *Assembly, ops []token) uint16 {
		return base | uint16(ops[0].val.(int))<<8 | uint16(a.imm(ops[1], fixImmediate, 0))
	}
}

/// Abort assembling the current line.
///
func fail(msg interface{}) {
	panic(asmError{msg: msg})
}
