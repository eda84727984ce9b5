package chip8

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestField(t *testing.T) {
	tests := []struct {
		name  string
		start uint
		width uint
		want  uint16
	}{
		{"class", 0, 1, 0xD},
		{"x", 1, 1, 0x1},
		{"y", 2, 1, 0x2},
		{"n", 3, 1, 0x5},
		{"nn", 2, 2, 0x25},
		{"nnn", 1, 3, 0x125},
		{"whole", 0, 4, 0xD125},
		{"empty", 2, 0, 0},
		{"past end", 3, 2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Field(0xD125, tt.start, tt.width))
		})
	}
}

func TestInstructionOperands(t *testing.T) {
	inst := Instruction(0x8AB4)

	assert.Equal(t, uint16(0x8), inst.Class())
	assert.Equal(t, uint16(0xA), inst.X())
	assert.Equal(t, uint16(0xB), inst.Y())
	assert.Equal(t, uint16(0x4), inst.N())
	assert.Equal(t, byte(0xB4), inst.NN())
	assert.Equal(t, uint16(0xAB4), inst.NNN())
}
