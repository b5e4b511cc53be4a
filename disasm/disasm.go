// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements a 6502 instruction set
// disassembler.
package disasm

import (
	"fmt"
	"strings"

	"github.com/tickwise/go6502/cpu"
)

// Disassembler formatting for addressing modes
var modeFormat = []string{
	cpu.IMM: "#$%s",
	cpu.IMP: "%s",
	cpu.ZPG: "$%s",
	cpu.ZPX: "$%s,X",
	cpu.ZPY: "$%s,Y",
	cpu.ABS: "$%s",
	cpu.ABX: "$%s,X",
	cpu.ABY: "$%s,Y",
	cpu.IND: "($%s)",
	cpu.IDX: "($%s,X)",
	cpu.IDY: "($%s),Y",
}

var hex = "0123456789ABCDEF"

// Return a hexadecimal string representation of the byte slice, most
// significant byte first.
func hexString(b []byte) string {
	hexlen := len(b) * 2
	hexbuf := make([]byte, hexlen)
	j := hexlen - 1
	for _, n := range b {
		hexbuf[j] = hex[n&0xf]
		hexbuf[j-1] = hex[n>>4]
		j -= 2
	}
	return string(hexbuf)
}

// Disassemble the machine code in memory 'm' at address 'addr'. Return a
// 'line' string representing the disassembled instruction and a 'next'
// address that starts the following line of machine code. Bytes that do
// not decode to a defined instruction are shown as data.
func Disassemble(m cpu.Memory, addr uint16) (line string, next uint16) {
	opcode := m.LoadByte(addr)
	inst := cpu.GetInstructionSet().Lookup(opcode)
	if !inst.Defined() {
		return fmt.Sprintf(".DB $%02X", opcode), addr + 1
	}

	operand := make([]byte, int(inst.Length)-1)
	m.LoadBytes(addr+1, operand)

	format := "%s " + modeFormat[inst.Mode]
	line = strings.TrimSpace(fmt.Sprintf(format, inst.Name, hexString(operand)))
	next = addr + uint16(inst.Length)
	return
}

// GetRegisterString returns a string describing the contents of the 6502
// registers.
func GetRegisterString(r *cpu.Registers) string {
	return fmt.Sprintf("A=%02X X=%02X Y=%02X PS=%02X [%s] SP=%02X PC=%04X",
		r.A, r.X, r.Y, r.SavePS(false), r.String(), r.SP, r.PC)
}
