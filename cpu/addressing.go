// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Mode describes a memory addressing mode.
type Mode byte

// All possible memory addressing modes
const (
	IMM Mode = iota // Immediate
	IMP             // Implied (no operand)
	ZPG             // Zero Page
	ZPX             // Zero Page,X
	ZPY             // Zero Page,Y
	ABS             // Absolute
	ABX             // Absolute,X
	ABY             // Absolute,Y
	IND             // (Indirect)
	IDX             // (Indirect,X)
	IDY             // (Indirect),Y
)

var modeNames = [...]string{
	IMM: "Immediate",
	IMP: "Implied",
	ZPG: "ZeroPage",
	ZPX: "ZeroPageX",
	ZPY: "ZeroPageY",
	ABS: "Absolute",
	ABX: "AbsoluteX",
	ABY: "AbsoluteY",
	IND: "Indirect",
	IDX: "IndexedIndirect",
	IDY: "IndirectIndexed",
}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown addressing mode"
}

// OperandLength returns the number of operand bytes that follow the opcode
// for the addressing mode.
func (m Mode) OperandLength() int {
	switch m {
	case IMP:
		return 0
	case ABS, ABX, ABY, IND:
		return 2
	default:
		return 1
	}
}

// resolve consumes the operand of 'inst' and returns its effective address,
// charging the cycles the addressing mode costs. Immediate and implied
// instructions have no effective address; buildInstructionSet never gives
// such a row a body that resolves.
func (cpu *CPU) resolve(inst *Instruction, cycles *int, mem Memory) uint16 {
	switch inst.Mode {
	case ZPG:
		return cpu.addrZeroPage(cycles, mem)
	case ZPX:
		return cpu.addrZeroPageIndexed(cycles, mem, cpu.Reg.X)
	case ZPY:
		return cpu.addrZeroPageIndexed(cycles, mem, cpu.Reg.Y)
	case ABS:
		return cpu.addrAbsolute(cycles, mem)
	case ABX:
		return cpu.addrAbsoluteIndexed(cycles, mem, cpu.Reg.X, inst.AlwaysIndex)
	case ABY:
		return cpu.addrAbsoluteIndexed(cycles, mem, cpu.Reg.Y, inst.AlwaysIndex)
	case IND:
		return cpu.addrIndirect(cycles, mem)
	case IDX:
		return cpu.addrIndexedIndirect(cycles, mem)
	case IDY:
		return cpu.addrIndirectIndexed(cycles, mem, inst.AlwaysIndex)
	default:
		panic("Invalid addressing mode")
	}
}

func (cpu *CPU) addrZeroPage(cycles *int, mem Memory) uint16 {
	return uint16(cpu.FetchByte(cycles, mem))
}

// The index addition costs a cycle and wraps inside the zero page.
func (cpu *CPU) addrZeroPageIndexed(cycles *int, mem Memory, index byte) uint16 {
	zp := cpu.FetchByte(cycles, mem)
	cpu.tick(cycles)
	return offsetZeroPage(zp, index)
}

func (cpu *CPU) addrAbsolute(cycles *int, mem Memory) uint16 {
	return cpu.FetchWord(cycles, mem)
}

// The index cycle is charged when the addition crosses a page, or always
// when 'always' is set (write instructions cannot skip it).
func (cpu *CPU) addrAbsoluteIndexed(cycles *int, mem Memory, index byte, always bool) uint16 {
	base := cpu.FetchWord(cycles, mem)
	addr, crossed := offsetAddress(base, index)
	if crossed || always {
		cpu.tick(cycles)
	}
	return addr
}

// JMP ($xxFF) fetches the high byte from $xx00, as the NMOS part does.
func (cpu *CPU) addrIndirect(cycles *int, mem Memory) uint16 {
	ptr := cpu.FetchWord(cycles, mem)
	lo := cpu.ReadByte(cycles, ptr, mem)
	hi := cpu.ReadByte(cycles, (ptr&0xff00)|uint16(byte(ptr)+1), mem)
	return uint16(lo) | uint16(hi)<<8
}

func (cpu *CPU) addrIndexedIndirect(cycles *int, mem Memory) uint16 {
	zp := cpu.FetchByte(cycles, mem)
	cpu.tick(cycles)
	return cpu.readZeroPageWord(cycles, zp+cpu.Reg.X, mem)
}

func (cpu *CPU) addrIndirectIndexed(cycles *int, mem Memory, always bool) uint16 {
	zp := cpu.FetchByte(cycles, mem)
	base := cpu.readZeroPageWord(cycles, zp, mem)
	addr, crossed := offsetAddress(base, cpu.Reg.Y)
	if crossed || always {
		cpu.tick(cycles)
	}
	return addr
}

// Read a pointer from the zero page. A pointer at $FF takes its high byte
// from $00.
func (cpu *CPU) readZeroPageWord(cycles *int, zp byte, mem Memory) uint16 {
	lo := cpu.ReadByte(cycles, uint16(zp), mem)
	hi := cpu.ReadByte(cycles, uint16(zp+1), mem)
	return uint16(lo) | uint16(hi)<<8
}

// Load the operand of 'inst'. Immediate operands come straight from the
// instruction stream; everything else is read from the effective address.
func (cpu *CPU) load(inst *Instruction, cycles *int, mem Memory) byte {
	if inst.Mode == IMM {
		return cpu.FetchByte(cycles, mem)
	}
	addr := cpu.resolve(inst, cycles, mem)
	return cpu.ReadByte(cycles, addr, mem)
}

// Store 'v' at the effective address of 'inst'.
func (cpu *CPU) store(inst *Instruction, cycles *int, mem Memory, v byte) {
	addr := cpu.resolve(inst, cycles, mem)
	cpu.WriteByte(cycles, addr, v, mem)
}
