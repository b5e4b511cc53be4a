// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cpu implements a cycle-exact NMOS 6502 instruction execution
// engine.
//
// The engine is driven by a cycle budget. Execute fetches, decodes and
// runs instructions until the budget is used up and reports how many cycles
// were actually consumed. Every cycle is charged by one of the fetch, read
// or write primitives (or by an explicit internal cycle), so the cost of an
// instruction is the sum of the memory accesses it performs.
package cpu

import "github.com/tickwise/go6502/logger"

// CPU represents a single 6502 CPU. Memory is not owned by the CPU; it is
// passed to Reset and Execute by the caller.
type CPU struct {
	Reg       Registers       // CPU registers
	Cycles    uint64          // total executed CPU cycles
	LastPC    uint16          // address of the most recently executed instruction
	InstSet   *InstructionSet // Instruction set used by the CPU
	debugger  *Debugger
	storeByte func(cpu *CPU, mem Memory, addr uint16, v byte)
}

// FaultHandler may be implemented by a debugger's breakpoint handler to be
// notified of unknown or malformed opcodes.
type FaultHandler interface {
	OnFault(cpu *CPU, err *ExecError)
}

// NewCPU creates an emulated 6502 CPU in its power-on state.
func NewCPU() *CPU {
	cpu := &CPU{
		InstSet:   GetInstructionSet(),
		storeByte: (*CPU).storeByteNormal,
	}

	cpu.Reg.Init()
	return cpu
}

// Reset puts the CPU into its power-on state and zero-fills the memory.
// The program counter is set to the reset vector address and the stack
// pointer to the top of the stack page.
func (cpu *CPU) Reset(mem Memory) {
	cpu.Reg.Init()
	cpu.LastPC = cpu.Reg.PC
	mem.Reset()
}

// SetPC updates the CPU program counter to 'addr'.
func (cpu *CPU) SetPC(addr uint16) {
	cpu.Reg.PC = addr
}

// GetInstruction returns the instruction decoded from the opcode at the
// requested address.
func (cpu *CPU) GetInstruction(mem Memory, addr uint16) *Instruction {
	return cpu.InstSet.Lookup(mem.LoadByte(addr))
}

// NextAddr returns the address of the next instruction following the
// instruction at addr.
func (cpu *CPU) NextAddr(mem Memory, addr uint16) uint16 {
	return addr + uint16(cpu.GetInstruction(mem, addr).Length)
}

// Execute runs instructions until at least 'cycles' clock cycles have been
// consumed and returns the number of cycles actually used. The budget is
// checked only between instructions, so the result may exceed the request
// by the tail of the last instruction.
//
// Unknown and malformed opcodes are logged, reported to an attached fault
// handler and skipped at the cost of their fetch cycle. The first such
// fault is returned as an *ExecError; execution is not interrupted by it.
func (cpu *CPU) Execute(cycles int, mem Memory) (int, error) {
	requested := cycles
	var fault error

	for cycles > 0 {
		addr := cpu.Reg.PC
		opcode := cpu.FetchByte(&cycles, mem)
		inst := cpu.InstSet.Lookup(opcode)

		if inst.fn == nil {
			kind := UnknownOpcode
			if inst.defined {
				kind = MalformedInstruction
			}
			if err := cpu.fault(kind, opcode, addr); fault == nil {
				fault = err
			}
			continue
		}

		cpu.LastPC = addr
		v := inst.fn(cpu, inst, &cycles, mem)
		if inst.Flags == FlagsNZ {
			cpu.Reg.updateNZ(v)
		}

		if cpu.debugger != nil {
			cpu.debugger.onUpdatePC(cpu, cpu.Reg.PC)
		}
	}

	used := requested - cycles
	cpu.Cycles += uint64(used)
	return used, fault
}

// Step executes exactly one instruction and returns the cycles it used.
func (cpu *CPU) Step(mem Memory) (int, error) {
	return cpu.Execute(1, mem)
}

// AttachDebugger attaches a debugger to the CPU. The debugger receives
// notifications whenever the CPU executes an instruction or stores a byte
// to memory.
func (cpu *CPU) AttachDebugger(debugger *Debugger) {
	cpu.debugger = debugger
	cpu.storeByte = (*CPU).storeByteDebugger
}

// DetachDebugger detaches the currently debugger from the CPU.
func (cpu *CPU) DetachDebugger() {
	cpu.debugger = nil
	cpu.storeByte = (*CPU).storeByteNormal
}

func (cpu *CPU) fault(kind ErrorKind, opcode byte, addr uint16) *ExecError {
	err := &ExecError{Kind: kind, Opcode: opcode, Addr: addr}
	logger.Logf("cpu", "%v", err)
	if cpu.debugger != nil {
		if h, ok := cpu.debugger.breakpointHandler.(FaultHandler); ok {
			h.OnFault(cpu, err)
		}
	}
	return err
}

// FetchByte returns the byte at the program counter and advances the
// program counter. Costs one cycle.
func (cpu *CPU) FetchByte(cycles *int, mem Memory) byte {
	v := mem.LoadByte(cpu.Reg.PC)
	cpu.Reg.PC++
	*cycles--
	return v
}

// FetchWord returns the little-endian word at the program counter and
// advances the program counter past it. Costs two cycles.
func (cpu *CPU) FetchWord(cycles *int, mem Memory) uint16 {
	lo := cpu.FetchByte(cycles, mem)
	hi := cpu.FetchByte(cycles, mem)
	return uint16(lo) | uint16(hi)<<8
}

// ReadByte loads the byte at addr. Costs one cycle.
func (cpu *CPU) ReadByte(cycles *int, addr uint16, mem Memory) byte {
	*cycles--
	return mem.LoadByte(addr)
}

// ReadWord loads the little-endian word at addr. Costs two cycles.
func (cpu *CPU) ReadWord(cycles *int, addr uint16, mem Memory) uint16 {
	lo := cpu.ReadByte(cycles, addr, mem)
	hi := cpu.ReadByte(cycles, addr+1, mem)
	return uint16(lo) | uint16(hi)<<8
}

// WriteByte stores v at addr. Costs one cycle.
func (cpu *CPU) WriteByte(cycles *int, addr uint16, v byte, mem Memory) {
	*cycles--
	cpu.storeByte(cpu, mem, addr, v)
}

// WriteWord stores v at addr, low byte first. Costs two cycles.
func (cpu *CPU) WriteWord(cycles *int, addr uint16, v uint16, mem Memory) {
	cpu.WriteByte(cycles, addr, byte(v), mem)
	cpu.WriteByte(cycles, addr+1, byte(v>>8), mem)
}

// An internal cycle with no memory access.
func (cpu *CPU) tick(cycles *int) {
	*cycles--
}

// Store the byte value 'v' add the address 'addr'.
func (cpu *CPU) storeByteNormal(mem Memory, addr uint16, v byte) {
	mem.StoreByte(addr, v)
}

// Store the byte value 'v' add the address 'addr', giving the debugger a
// chance to see it first.
func (cpu *CPU) storeByteDebugger(mem Memory, addr uint16, v byte) {
	cpu.debugger.onDataStore(cpu, addr, v)
	mem.StoreByte(addr, v)
}

// Push the word 'v' onto the stack, high byte first. The stack wraps
// inside page one.
func (cpu *CPU) pushWord(cycles *int, v uint16, mem Memory) {
	cpu.WriteByte(cycles, stackAddress(cpu.Reg.SP), byte(v>>8), mem)
	cpu.WriteByte(cycles, stackAddress(cpu.Reg.SP-1), byte(v), mem)
	cpu.Reg.SP -= 2
}

// Pop a word off the stack.
func (cpu *CPU) popWord(cycles *int, mem Memory) uint16 {
	lo := cpu.ReadByte(cycles, stackAddress(cpu.Reg.SP+1), mem)
	hi := cpu.ReadByte(cycles, stackAddress(cpu.Reg.SP+2), mem)
	cpu.Reg.SP += 2
	return uint16(lo) | uint16(hi)<<8
}
