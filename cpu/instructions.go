// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"sort"
	"strings"
)

// An opsym is an internal symbol used to associate an opcode's data
// with its instructions.
type opsym byte

const (
	symCLC opsym = iota
	symCLD
	symCLI
	symCLV
	symDEX
	symDEY
	symINX
	symINY
	symJMP
	symJSR
	symLDA
	symLDX
	symLDY
	symNOP
	symRTS
	symSEC
	symSED
	symSEI
	symSTA
	symSTX
	symSTY
	symTAX
	symTAY
	symTSX
	symTXA
	symTXS
	symTYA
)

// The body of an instruction. The returned value is the one the
// instruction's flag policy is applied to.
type instfunc func(c *CPU, inst *Instruction, cycles *int, mem Memory) byte

// FlagPolicy selects how the status flags are updated after an instruction
// body has run.
type FlagPolicy byte

const (
	// FlagsNone leaves the status flags alone (or lets the body set them).
	FlagsNone FlagPolicy = iota

	// FlagsNZ applies the shared zero/negative rule to the value produced
	// by the instruction body.
	FlagsNZ
)

// The operand shapes an instruction body can consume.
type operandKind byte

const (
	operandNone operandKind = iota // implied only
	operandRead                    // an immediate byte or an effective address
	operandAddr                    // an effective address only
)

func (k operandKind) accepts(m Mode) bool {
	switch k {
	case operandNone:
		return m == IMP
	case operandRead:
		return m != IMP
	default:
		return m != IMP && m != IMM
	}
}

// Emulator implementation for each opcode
type opcodeImpl struct {
	sym     opsym
	name    string
	fn      instfunc
	flags   FlagPolicy
	operand operandKind
}

var impl = []opcodeImpl{
	{symCLC, "CLC", (*CPU).clc, FlagsNone, operandNone},
	{symCLD, "CLD", (*CPU).cld, FlagsNone, operandNone},
	{symCLI, "CLI", (*CPU).cli, FlagsNone, operandNone},
	{symCLV, "CLV", (*CPU).clv, FlagsNone, operandNone},
	{symDEX, "DEX", (*CPU).dex, FlagsNZ, operandNone},
	{symDEY, "DEY", (*CPU).dey, FlagsNZ, operandNone},
	{symINX, "INX", (*CPU).inx, FlagsNZ, operandNone},
	{symINY, "INY", (*CPU).iny, FlagsNZ, operandNone},
	{symJMP, "JMP", (*CPU).jmp, FlagsNone, operandAddr},
	{symJSR, "JSR", (*CPU).jsr, FlagsNone, operandAddr},
	{symLDA, "LDA", (*CPU).lda, FlagsNZ, operandRead},
	{symLDX, "LDX", (*CPU).ldx, FlagsNZ, operandRead},
	{symLDY, "LDY", (*CPU).ldy, FlagsNZ, operandRead},
	{symNOP, "NOP", (*CPU).nop, FlagsNone, operandNone},
	{symRTS, "RTS", (*CPU).rts, FlagsNone, operandNone},
	{symSEC, "SEC", (*CPU).sec, FlagsNone, operandNone},
	{symSED, "SED", (*CPU).sed, FlagsNone, operandNone},
	{symSEI, "SEI", (*CPU).sei, FlagsNone, operandNone},
	{symSTA, "STA", (*CPU).sta, FlagsNone, operandAddr},
	{symSTX, "STX", (*CPU).stx, FlagsNone, operandAddr},
	{symSTY, "STY", (*CPU).sty, FlagsNone, operandAddr},
	{symTAX, "TAX", (*CPU).tax, FlagsNZ, operandNone},
	{symTAY, "TAY", (*CPU).tay, FlagsNZ, operandNone},
	{symTSX, "TSX", (*CPU).tsx, FlagsNZ, operandNone},
	{symTXA, "TXA", (*CPU).txa, FlagsNZ, operandNone},
	{symTXS, "TXS", (*CPU).txs, FlagsNone, operandNone},
	{symTYA, "TYA", (*CPU).tya, FlagsNZ, operandNone},
}

// Opcode data for an (opcode, mode) pair
type opcodeData struct {
	sym      opsym // internal opcode symbol
	mode     Mode  // addressing mode
	opcode   byte  // opcode hex value
	length   byte  // length of opcode + operand in bytes
	cycles   byte  // number of CPU cycles to execute command
	bpcycles byte  // additional CPU cycles if command crosses page boundary
	always   bool  // the index cycle is charged whether or not a page is crossed
}

// All valid (opcode, mode) pairs
var data = []opcodeData{
	{symLDA, IMM, 0xa9, 2, 2, 0, false},
	{symLDA, ZPG, 0xa5, 2, 3, 0, false},
	{symLDA, ZPX, 0xb5, 2, 4, 0, false},
	{symLDA, ABS, 0xad, 3, 4, 0, false},
	{symLDA, ABX, 0xbd, 3, 4, 1, false},
	{symLDA, ABY, 0xb9, 3, 4, 1, false},
	{symLDA, IDX, 0xa1, 2, 6, 0, false},
	{symLDA, IDY, 0xb1, 2, 5, 1, false},

	{symLDX, IMM, 0xa2, 2, 2, 0, false},
	{symLDX, ZPG, 0xa6, 2, 3, 0, false},
	{symLDX, ZPY, 0xb6, 2, 4, 0, false},
	{symLDX, ABS, 0xae, 3, 4, 0, false},
	{symLDX, ABY, 0xbe, 3, 4, 1, false},

	{symLDY, IMM, 0xa0, 2, 2, 0, false},
	{symLDY, ZPG, 0xa4, 2, 3, 0, false},
	{symLDY, ZPX, 0xb4, 2, 4, 0, false},
	{symLDY, ABS, 0xac, 3, 4, 0, false},
	{symLDY, ABX, 0xbc, 3, 4, 1, false},

	{symSTA, ZPG, 0x85, 2, 3, 0, false},
	{symSTA, ZPX, 0x95, 2, 4, 0, false},
	{symSTA, ABS, 0x8d, 3, 4, 0, false},
	{symSTA, ABX, 0x9d, 3, 5, 0, true},
	{symSTA, ABY, 0x99, 3, 5, 0, true},
	{symSTA, IDX, 0x81, 2, 6, 0, false},
	{symSTA, IDY, 0x91, 2, 6, 0, true},

	{symSTX, ZPG, 0x86, 2, 3, 0, false},
	{symSTX, ZPY, 0x96, 2, 4, 0, false},
	{symSTX, ABS, 0x8e, 3, 4, 0, false},

	{symSTY, ZPG, 0x84, 2, 3, 0, false},
	{symSTY, ZPX, 0x94, 2, 4, 0, false},
	{symSTY, ABS, 0x8c, 3, 4, 0, false},

	{symJSR, ABS, 0x20, 3, 6, 0, false},
	{symRTS, IMP, 0x60, 1, 6, 0, false},

	{symJMP, ABS, 0x4c, 3, 3, 0, false},
	{symJMP, IND, 0x6c, 3, 5, 0, false},

	{symTAX, IMP, 0xaa, 1, 2, 0, false},
	{symTAY, IMP, 0xa8, 1, 2, 0, false},
	{symTXA, IMP, 0x8a, 1, 2, 0, false},
	{symTYA, IMP, 0x98, 1, 2, 0, false},
	{symTSX, IMP, 0xba, 1, 2, 0, false},
	{symTXS, IMP, 0x9a, 1, 2, 0, false},

	{symINX, IMP, 0xe8, 1, 2, 0, false},
	{symINY, IMP, 0xc8, 1, 2, 0, false},
	{symDEX, IMP, 0xca, 1, 2, 0, false},
	{symDEY, IMP, 0x88, 1, 2, 0, false},

	{symCLC, IMP, 0x18, 1, 2, 0, false},
	{symSEC, IMP, 0x38, 1, 2, 0, false},
	{symCLI, IMP, 0x58, 1, 2, 0, false},
	{symSEI, IMP, 0x78, 1, 2, 0, false},
	{symCLD, IMP, 0xd8, 1, 2, 0, false},
	{symSED, IMP, 0xf8, 1, 2, 0, false},
	{symCLV, IMP, 0xb8, 1, 2, 0, false},

	{symNOP, IMP, 0xea, 1, 2, 0, false},
}

// An Instruction describes a CPU instruction, including its name,
// its addressing mode, its opcode value, its operand size, and its CPU cycle
// cost.
type Instruction struct {
	Name        string     // all-caps name of the instruction
	Mode        Mode       // addressing mode
	Opcode      byte       // hexadecimal opcode value
	Length      byte       // combined size of opcode and operand, in bytes
	Cycles      byte       // number of CPU cycles to execute the instruction
	BPCycles    byte       // additional cycles required if boundary page crossed
	AlwaysIndex bool       // index cycle charged even without a page crossing
	Flags       FlagPolicy // status flag update applied after the body
	fn          instfunc   // emulator implementation of the function
	defined     bool       // the opcode has an entry in the opcode table
}

// Defined reports whether the opcode has an entry in the instruction set.
func (inst *Instruction) Defined() bool {
	return inst.defined
}

// An InstructionSet defines the set of all possible instructions that
// can run on the emulated CPU.
type InstructionSet struct {
	instructions [256]Instruction          // all instructions by opcode
	variants     map[string][]*Instruction // variants of each instruction
}

// Lookup retrieves a CPU instruction corresponding to the requested opcode.
func (s *InstructionSet) Lookup(opcode byte) *Instruction {
	return &s.instructions[opcode]
}

// GetInstructions returns all CPU instructions whose name matches the
// provided string.
func (s *InstructionSet) GetInstructions(name string) []*Instruction {
	return s.variants[strings.ToUpper(name)]
}

// Names returns the sorted mnemonics of every defined instruction.
func (s *InstructionSet) Names() []string {
	names := make([]string, 0, len(s.variants))
	for n := range s.variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Create the instruction set.
func newInstructionSet() *InstructionSet {
	return buildInstructionSet(impl, data)
}

// Build an instruction set from implementation and opcode rows. A row whose
// addressing mode its body cannot consume is decoded but left without a
// body, so Execute reports it as malformed instead of running it.
func buildInstructionSet(impl []opcodeImpl, data []opcodeData) *InstructionSet {
	set := &InstructionSet{}

	// Create a map from symbol to implementation for fast lookups.
	symToImpl := make(map[opsym]*opcodeImpl, len(impl))
	for i := range impl {
		symToImpl[impl[i].sym] = &impl[i]
	}

	set.variants = make(map[string][]*Instruction)

	for i := range set.instructions {
		inst := &set.instructions[i]
		inst.Name = "???"
		inst.Mode = IMP
		inst.Opcode = byte(i)
		inst.Length = 1
	}

	for _, d := range data {
		inst := &set.instructions[d.opcode]
		inst.Mode = d.mode
		inst.Length = d.length
		inst.Cycles = d.cycles
		inst.BPCycles = d.bpcycles
		inst.AlwaysIndex = d.always
		inst.defined = true

		impl, ok := symToImpl[d.sym]
		if !ok {
			continue // decoded, but has no body
		}

		inst.Name = impl.name
		if !impl.operand.accepts(d.mode) {
			continue
		}

		inst.Flags = impl.flags
		inst.fn = impl.fn
		set.variants[inst.Name] = append(set.variants[inst.Name], inst)
	}

	return set
}

var instructionSet = newInstructionSet()

// GetInstructionSet returns the 6502 instruction set.
func GetInstructionSet() *InstructionSet {
	return instructionSet
}

//
// Instruction bodies
//

// Clear Carry flag
func (cpu *CPU) clc(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.Carry = false
	return 0
}

// Clear Decimal flag
func (cpu *CPU) cld(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.Decimal = false
	return 0
}

// Clear InterruptDisable flag
func (cpu *CPU) cli(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.InterruptDisable = false
	return 0
}

// Clear oVerflow flag
func (cpu *CPU) clv(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.Overflow = false
	return 0
}

// Decrement X register
func (cpu *CPU) dex(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.X--
	return cpu.Reg.X
}

// Decrement Y register
func (cpu *CPU) dey(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.Y--
	return cpu.Reg.Y
}

// Increment X register
func (cpu *CPU) inx(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.X++
	return cpu.Reg.X
}

// Increment Y register
func (cpu *CPU) iny(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.Y++
	return cpu.Reg.Y
}

// Jump to memory address
func (cpu *CPU) jmp(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.Reg.PC = cpu.resolve(inst, cycles, mem)
	return 0
}

// Jump to subroutine. The pushed return address is the last byte of the
// JSR instruction; RTS adds one.
func (cpu *CPU) jsr(inst *Instruction, cycles *int, mem Memory) byte {
	target := cpu.resolve(inst, cycles, mem)
	cpu.pushWord(cycles, cpu.Reg.PC-1, mem)
	cpu.tick(cycles)
	cpu.Reg.PC = target
	return 0
}

// load Accumulator
func (cpu *CPU) lda(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.Reg.A = cpu.load(inst, cycles, mem)
	return cpu.Reg.A
}

// load the X register
func (cpu *CPU) ldx(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.Reg.X = cpu.load(inst, cycles, mem)
	return cpu.Reg.X
}

// load the Y register
func (cpu *CPU) ldy(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.Reg.Y = cpu.load(inst, cycles, mem)
	return cpu.Reg.Y
}

// No-operation
func (cpu *CPU) nop(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	return 0
}

// Return from subroutine. One cycle goes to the stack pointer increment
// before the pull and two more to reloading and incrementing PC.
func (cpu *CPU) rts(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	addr := cpu.popWord(cycles, mem)
	cpu.Reg.PC = addr + 1
	*cycles -= 2
	return 0
}

// Set Carry flag
func (cpu *CPU) sec(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.Carry = true
	return 0
}

// Set Decimal flag
func (cpu *CPU) sed(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.Decimal = true
	return 0
}

// Set InterruptDisable flag
func (cpu *CPU) sei(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.InterruptDisable = true
	return 0
}

// Store Accumulator
func (cpu *CPU) sta(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.store(inst, cycles, mem, cpu.Reg.A)
	return cpu.Reg.A
}

// Store X register
func (cpu *CPU) stx(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.store(inst, cycles, mem, cpu.Reg.X)
	return cpu.Reg.X
}

// Store Y register
func (cpu *CPU) sty(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.store(inst, cycles, mem, cpu.Reg.Y)
	return cpu.Reg.Y
}

// Transfer Accumulator to X register
func (cpu *CPU) tax(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.X = cpu.Reg.A
	return cpu.Reg.X
}

// Transfer Accumulator to Y register
func (cpu *CPU) tay(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.Y = cpu.Reg.A
	return cpu.Reg.Y
}

// Transfer stack pointer to X register
func (cpu *CPU) tsx(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.X = cpu.Reg.SP
	return cpu.Reg.X
}

// Transfer X register to Accumulator
func (cpu *CPU) txa(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.A = cpu.Reg.X
	return cpu.Reg.A
}

// Transfer X register to the stack pointer
func (cpu *CPU) txs(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.SP = cpu.Reg.X
	return cpu.Reg.SP
}

// Transfer Y register to the Accumulator
func (cpu *CPU) tya(inst *Instruction, cycles *int, mem Memory) byte {
	cpu.tick(cycles)
	cpu.Reg.A = cpu.Reg.Y
	return cpu.Reg.A
}
