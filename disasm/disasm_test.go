// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tickwise/go6502/cpu"
)

func TestDisassemble(t *testing.T) {
	mem := cpu.NewFlatMemory()
	mem.StoreBytes(0x1000, []byte{
		0xa9, 0x42, // LDA #$42
		0xbd, 0x34, 0x12, // LDA $1234,X
		0xb6, 0x80, // LDX $80,Y
		0x81, 0x40, // STA ($40,X)
		0x91, 0x40, // STA ($40),Y
		0x6c, 0xff, 0x30, // JMP ($30FF)
		0x20, 0x00, 0x20, // JSR $2000
		0xe8, // INX
		0x02, // undefined
		0x60, // RTS
	})

	expected := []struct {
		line string
		next uint16
	}{
		{"LDA #$42", 0x1002},
		{"LDA $1234,X", 0x1005},
		{"LDX $80,Y", 0x1007},
		{"STA ($40,X)", 0x1009},
		{"STA ($40),Y", 0x100b},
		{"JMP ($30FF)", 0x100e},
		{"JSR $2000", 0x1011},
		{"INX", 0x1012},
		{".DB $02", 0x1013},
		{"RTS", 0x1014},
	}

	addr := uint16(0x1000)
	for _, e := range expected {
		line, next := Disassemble(mem, addr)
		assert.Equal(t, e.line, line)
		assert.Equal(t, e.next, next)
		addr = next
	}
}

func TestDisassembleWrapsAddressSpace(t *testing.T) {
	mem := cpu.NewFlatMemory()
	mem.StoreBytes(0xfffe, []byte{0xad, 0x34, 0x12})

	line, next := Disassemble(mem, 0xfffe)
	assert.Equal(t, "LDA $1234", line)
	assert.Equal(t, uint16(0x0001), next)
}

func TestRegisterString(t *testing.T) {
	var r cpu.Registers
	r.Init()
	r.A, r.X, r.Y = 0x01, 0x02, 0x03
	r.Zero = true
	assert.Equal(t, "A=01 X=02 Y=03 PS=22 [nv-bdiZc] SP=FF PC=FFFC", GetRegisterString(&r))
}
