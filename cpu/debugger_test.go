// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickwise/go6502/cpu"
)

type recorder struct {
	pcs    []uint16
	stores []uint16
	faults []*cpu.ExecError
}

func (r *recorder) OnBreakpoint(c *cpu.CPU, b *cpu.Breakpoint) {
	r.pcs = append(r.pcs, b.Address)
}

func (r *recorder) OnDataBreakpoint(c *cpu.CPU, b *cpu.DataBreakpoint) {
	r.stores = append(r.stores, b.Address)
}

func (r *recorder) OnFault(c *cpu.CPU, err *cpu.ExecError) {
	r.faults = append(r.faults, err)
}

func TestBreakpoints(t *testing.T) {
	c, mem := loadCPU(origin,
		0xa9, 0x01, // LDA #$01
		0x85, 0x10, // STA $10
		0xa9, 0x02, // LDA #$02
		0x85, 0x10, // STA $10
		0x85, 0x11, // STA $11
	)
	r := &recorder{}
	d := cpu.NewDebugger(r)
	c.AttachDebugger(d)

	d.AddBreakpoint(origin + 4)
	d.AddBreakpoint(origin + 2).Disabled = true
	d.AddConditionalDataBreakpoint(0x10, 0x02)
	d.AddDataBreakpoint(0x11)

	used, err := c.Execute(2+3+2+3+3, mem)
	require.NoError(t, err)
	assert.Equal(t, 13, used)

	assert.Equal(t, []uint16{origin + 4}, r.pcs)
	assert.Equal(t, []uint16{0x10, 0x11}, r.stores)
	assert.Equal(t, 1, d.GetBreakpoint(origin+4).Hits)
	assert.Equal(t, 0, d.GetBreakpoint(origin+2).Hits)
	assert.Equal(t, 1, d.GetDataBreakpoint(0x10).Hits)

	bps := d.GetBreakpoints()
	require.Len(t, bps, 2)
	assert.Equal(t, uint16(origin+2), bps[0].Address)
	assert.Equal(t, uint16(origin+4), bps[1].Address)

	dbps := d.GetDataBreakpoints()
	require.Len(t, dbps, 2)
	assert.Equal(t, uint16(0x10), dbps[0].Address)

	d.RemoveBreakpoint(origin + 4)
	d.RemoveDataBreakpoint(0x11)
	assert.Nil(t, d.GetBreakpoint(origin+4))
	assert.Nil(t, d.GetDataBreakpoint(0x11))
}

func TestDebuggerSeesFaults(t *testing.T) {
	c, mem := loadCPU(origin, 0xff)
	r := &recorder{}
	c.AttachDebugger(cpu.NewDebugger(r))

	_, err := c.Execute(1, mem)
	assert.ErrorIs(t, err, cpu.ErrUnknownOpcode)
	require.Len(t, r.faults, 1)
	assert.Equal(t, byte(0xff), r.faults[0].Opcode)

	c.DetachDebugger()
	c.SetPC(origin)
	c.Execute(1, mem)
	assert.Len(t, r.faults, 1)
}
