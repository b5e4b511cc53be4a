// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMalformedInstructionIsNotExecuted(t *testing.T) {
	set := newInstructionSet()
	set.instructions[0xa9].fn = nil

	mem := NewFlatMemory()
	c := NewCPU()
	c.InstSet = set
	c.Reset(mem)
	mem.StoreBytes(0x1000, []byte{0xa9, 0x42})
	c.SetPC(0x1000)

	used, err := c.Execute(1, mem)
	assert.Equal(t, 1, used)
	assert.ErrorIs(t, err, ErrMalformedInstruction)

	var execErr *ExecError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, MalformedInstruction, execErr.Kind)
	assert.Equal(t, byte(0), c.Reg.A)
	assert.Equal(t, "malformed instruction $A9 at $1000", err.Error())
}

func TestOffsetAddress(t *testing.T) {
	tests := []struct {
		addr    uint16
		offset  byte
		result  uint16
		crossed bool
	}{
		{0x00ff, 0x01, 0x0100, true},
		{0x2000, 0xff, 0x20ff, false},
		{0x20f0, 0x10, 0x2100, true},
		{0xffff, 0x01, 0x0000, true},
		{0x1234, 0x00, 0x1234, false},
	}
	for _, tt := range tests {
		r, crossed := offsetAddress(tt.addr, tt.offset)
		assert.Equal(t, tt.result, r)
		assert.Equal(t, tt.crossed, crossed)
	}
}

func TestResolverCosts(t *testing.T) {
	mem := NewFlatMemory()
	c := NewCPU()
	mem.StoreBytes(0x1000, []byte{0xf0, 0x20})

	for _, tt := range []struct {
		index  byte
		always bool
		cost   int
	}{
		{0x0f, false, 2},
		{0x10, false, 3},
		{0x0f, true, 3},
		{0x10, true, 3},
	} {
		c.SetPC(0x1000)
		cycles := 0
		c.addrAbsoluteIndexed(&cycles, mem, tt.index, tt.always)
		assert.Equal(t, -tt.cost, cycles, "index $%02X always=%v", tt.index, tt.always)
	}
}

func TestModeMismatchIsMalformed(t *testing.T) {
	// Rows whose mode the body cannot consume: a store with an immediate
	// operand, a jump and a load with no operand at all.
	rows := []opcodeData{
		{symSTA, IMM, 0x89, 2, 2, 0, false},
		{symJMP, IMP, 0x02, 1, 3, 0, false},
		{symLDA, IMP, 0x03, 1, 2, 0, false},
		{symTAX, ABS, 0x04, 3, 2, 0, false},
	}
	set := buildInstructionSet(impl, rows)

	for _, r := range rows {
		inst := set.Lookup(r.opcode)
		assert.True(t, inst.Defined(), "opcode $%02X", r.opcode)
		assert.Nil(t, inst.fn, "opcode $%02X", r.opcode)
	}
	assert.Empty(t, set.GetInstructions("STA"))

	mem := NewFlatMemory()
	c := NewCPU()
	c.InstSet = set
	c.Reset(mem)
	mem.StoreBytes(0x1000, []byte{0x89, 0x02, 0x03, 0x04})
	c.SetPC(0x1000)

	var used int
	var err error
	require.NotPanics(t, func() { used, err = c.Execute(4, mem) })
	assert.Equal(t, 4, used)
	assert.ErrorIs(t, err, ErrMalformedInstruction)
	assert.Equal(t, uint16(0x1004), c.Reg.PC)
}

func TestEveryDefinedOpcodeHasABody(t *testing.T) {
	set := GetInstructionSet()
	for _, d := range data {
		inst := set.Lookup(d.opcode)
		assert.NotNil(t, inst.fn, "%s %v ($%02X)", inst.Name, inst.Mode, d.opcode)
	}
}
