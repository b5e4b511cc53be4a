// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Registers contains the state of all 6502 registers.
type Registers struct {
	A                byte   // accumulator
	X                byte   // X indexing register
	Y                byte   // Y indexing register
	SP               byte   // stack pointer ($100 + SP = stack memory location)
	PC               uint16 // program counter
	Carry            bool   // PS: Carry bit
	Zero             bool   // PS: Zero bit
	InterruptDisable bool   // PS: Interrupt disable bit
	Decimal          bool   // PS: Decimal bit
	Break            bool   // PS: Break bit
	Overflow         bool   // PS: Overflow bit
	Negative         bool   // PS: Negative (sign) bit
}

// Bits assigned to the processor status byte
const (
	CarryBit            = 1 << 0
	ZeroBit             = 1 << 1
	InterruptDisableBit = 1 << 2
	DecimalBit          = 1 << 3
	BreakBit            = 1 << 4
	ReservedBit         = 1 << 5
	OverflowBit         = 1 << 6
	NegativeBit         = 1 << 7
)

// Power-on state
const (
	ResetVector = 0xfffc // program counter after Reset
	StackTop    = 0xff   // stack pointer after Reset
)

// SavePS saves the CPU processor status into a byte value. The break bit
// is set if requested or if the Break flag is currently set.
func (r *Registers) SavePS(brk bool) byte {
	var ps byte = ReservedBit // always saved as on
	if r.Carry {
		ps |= CarryBit
	}
	if r.Zero {
		ps |= ZeroBit
	}
	if r.InterruptDisable {
		ps |= InterruptDisableBit
	}
	if r.Decimal {
		ps |= DecimalBit
	}
	if brk || r.Break {
		ps |= BreakBit
	}
	if r.Overflow {
		ps |= OverflowBit
	}
	if r.Negative {
		ps |= NegativeBit
	}
	return ps
}

// RestorePS restores the CPU processor status from a byte.
func (r *Registers) RestorePS(ps byte) {
	r.Carry = ((ps & CarryBit) != 0)
	r.Zero = ((ps & ZeroBit) != 0)
	r.InterruptDisable = ((ps & InterruptDisableBit) != 0)
	r.Decimal = ((ps & DecimalBit) != 0)
	r.Break = ((ps & BreakBit) != 0)
	r.Overflow = ((ps & OverflowBit) != 0)
	r.Negative = ((ps & NegativeBit) != 0)
}

// Init sets the power-on state. A, X, Y = 0. SP = $FF. PC = $FFFC. All
// flags clear.
func (r *Registers) Init() {
	*r = Registers{
		SP: StackTop,
		PC: ResetVector,
	}
}

// Update the Zero and Negative flags based on the value of 'v'. Every
// instruction that loads a register goes through here.
func (r *Registers) updateNZ(v byte) {
	r.Zero = (v == 0)
	r.Negative = ((v & 0x80) != 0)
}

// String returns the flags as an NV-BDIZC pattern, upper case for a set
// flag and lower case for a clear one.
func (r Registers) String() string {
	b := []byte("nv-bdizc")
	set := []bool{r.Negative, r.Overflow, false, r.Break, r.Decimal, r.InterruptDisable, r.Zero, r.Carry}
	for i, on := range set {
		if on {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}
