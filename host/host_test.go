// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beevik/cmd"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func newTestHost() *Host {
	h := New()
	h.printer = message.NewPrinter(language.English)
	return h
}

func runScript(t *testing.T, h *Host, script string) string {
	t.Helper()
	var out bytes.Buffer
	err := h.RunCommands(strings.NewReader(script), &out, false)
	require.NoError(t, err)
	return out.String()
}

func TestExecuteBudget(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
memory set $1000 $a9 $42 $8d $00 $20
register pc $1000
execute 6
memory dump $2000 1
`)
	assert.Contains(t, out, "Memory set at $1000..$1004.")
	assert.Contains(t, out, "Register PC set to $1000.")
	assert.Contains(t, out, "Executed 6 cycles (budget 6).")
	assert.Contains(t, out, "2000- 42")
	assert.Equal(t, byte(0x42), h.cpu.Reg.A)
	assert.Equal(t, uint16(0x1005), h.cpu.Reg.PC)
	assert.Equal(t, uint64(6), h.cpu.Cycles)
}

func TestRunStopsAtBreakpoint(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
memory set $1000 $a2 $00 $e8 $e8 $e8
breakpoint add $1004
run $1000
breakpoint list
`)
	assert.Contains(t, out, "Running from $1000.")
	assert.Contains(t, out, "Breakpoint hit at $1004.")
	assert.Contains(t, out, "$1004 true     1")
	assert.Equal(t, uint16(0x1004), h.cpu.Reg.PC)
	assert.Equal(t, byte(2), h.cpu.Reg.X)
}

func TestBreakpointCommands(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
ba $2000
bd $2000
be $2000
br $2000
br $2000
`)
	assert.Contains(t, out, "Breakpoint added at $2000.")
	assert.Contains(t, out, "Breakpoint at $2000 disabled.")
	assert.Contains(t, out, "Breakpoint at $2000 enabled.")
	assert.Contains(t, out, "Breakpoint at $2000 removed.")
	assert.Contains(t, out, "No breakpoint was set on $2000.")
	assert.Empty(t, h.debugger.GetBreakpoints())
}

func TestRunStopsOnFault(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, "run $3000\n")
	assert.Contains(t, out, "Fault: unknown opcode $00 at $3000.")
	assert.Equal(t, uint16(0x3001), h.cpu.Reg.PC)
}

func TestRunCycleLimit(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
set stop false
set maxrun 10
run $3000
`)
	assert.Contains(t, out, "Setting StopOnFault updated.")
	assert.Contains(t, out, "Setting MaxRunCycles updated.")
	assert.Contains(t, out, "Stopped after 10 cycles.")
	assert.Equal(t, uint16(0x300a), h.cpu.Reg.PC)
	assert.Equal(t, 10, strings.Count(out, "Fault:"))
}

func TestStepIntoAndOverSubroutine(t *testing.T) {
	program := `
memory set $1000 $20 $00 $20 $ea
memory set $2000 $a9 $07 $60
register pc $1000
`
	h := newTestHost()
	runScript(t, h, program+"step 2\n")
	assert.Equal(t, uint16(0x2002), h.cpu.Reg.PC)
	assert.Equal(t, byte(0xfd), h.cpu.Reg.SP)

	h = newTestHost()
	runScript(t, h, program+"next\n")
	assert.Equal(t, uint16(0x1003), h.cpu.Reg.PC)
	assert.Equal(t, byte(0x07), h.cpu.Reg.A)
	assert.Equal(t, byte(0xff), h.cpu.Reg.SP)
	assert.Equal(t, uint64(6+2+6), h.cpu.Cycles)
	assert.Empty(t, h.debugger.GetBreakpoints())
}

func TestDataBreakpoint(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
memory set $1000 $85 $10 $85 $11
register a 5
register pc $1000
databreakpoint add $10 5
dba $11 6
step 2
dbl
`)
	assert.Contains(t, out, "Conditional data breakpoint added at $0010 for value $05.")
	assert.Contains(t, out, "Data breakpoint hit on address $0010.")
	assert.NotContains(t, out, "Data breakpoint hit on address $0011.")
	assert.Contains(t, out, "$0010 true     $05    1")
	assert.Contains(t, out, "$0011 true     $06    0")
	assert.Equal(t, uint16(0x1002), h.cpu.Reg.PC)
}

func TestEvaluate(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
evaluate $10 + 0b11 * 2
evaluate 7/2
register x 4
evaluate x + 1
set hex true
evaluate ff
evaluate 1 +
`)
	assert.Contains(t, out, "$0016 (22)")
	assert.Contains(t, out, "$0003 (3)")
	assert.Contains(t, out, "$0005 (5)")
	assert.Contains(t, out, "Setting HexMode updated.")
	assert.Contains(t, out, "$00FF (255)")
	assert.Contains(t, out, "expression syntax error")
}

func TestSettings(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
set
set disasm 3
set nosuch 1
`)
	assert.Contains(t, out, "HexMode")
	assert.Contains(t, out, "ExecuteBudget")
	assert.Contains(t, out, "Setting DisasmLines updated.")
	assert.Contains(t, out, "setting 'nosuch' not found")
	assert.Equal(t, 3, h.settings.DisasmLines)
}

func TestDisassembleCommand(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
memory set $1000 $a9 $42 $9d $00 $20 $02
disassemble $1000 3
`)
	assert.Contains(t, out, "1000-   A9 42       LDA #$42\n")
	assert.Contains(t, out, "1002-   9D 00 20    STA $2000,X\n")
	assert.Contains(t, out, "1005-   02          .DB $02\n")
	assert.Equal(t, uint16(0x1006), h.settings.NextDisasmAddr)
}

func TestLoadAndReset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xa9, 0x01}, 0o644))

	h := newTestHost()
	out := runScript(t, h, "load "+path+" $1000\nexecute 2\n")
	assert.Contains(t, out, "Loaded 'prog.bin' to $1000..$1001")
	assert.Equal(t, byte(1), h.cpu.Reg.A)

	out = runScript(t, h, "reset\n")
	assert.Contains(t, out, "CPU reset. PC=$FFFC SP=$FF.")
	assert.Equal(t, byte(0), h.mem.LoadByte(0x1000))
	assert.Equal(t, byte(0), h.cpu.Reg.A)

	out = runScript(t, h, "load "+filepath.Join(t.TempDir(), "missing.bin")+" $1000\n")
	assert.Contains(t, out, "Failed to read 'missing.bin'")
}

func TestLogCommand(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, "reset\nlog 1\n")
	assert.Contains(t, out, "host: reset")
}

func TestHelp(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, "help\n")
	assert.Contains(t, out, "go6502 commands:")
	assert.Contains(t, out, "breakpoint")
	assert.Contains(t, out, "Execute a budget of CPU cycles")

	out = runScript(t, h, "help evaluate\n")
	assert.Contains(t, out, "Usage: evaluate <expression>")
	assert.Contains(t, out, "Description:")
	assert.Contains(t, out, "Shortcut: e")

	out = runScript(t, h, "help memory\n")
	assert.Contains(t, out, "memory commands:")
	assert.Contains(t, out, "Dump memory at address")
	assert.Contains(t, out, "Set memory at address")

	out = runScript(t, h, "help nosuch\nhelp re\n")
	assert.Contains(t, out, "Command not found.")
	assert.Contains(t, out, "Command is ambiguous.")

	out = runScript(t, h, "memory dump\nload\n")
	assert.Contains(t, out, "Usage: load <filename> <address>")
}

func TestIncompleteAndAmbiguousCommands(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, "memory\nbreakpoint\nre\nex\n")
	assert.Equal(t, 2, strings.Count(out, "Incomplete command. Type 'help' for a list of commands."))
	assert.Contains(t, out, "Usage: memory [subcommand]")
	assert.Contains(t, out, "Usage: breakpoint [subcommand]")
	assert.Equal(t, 2, strings.Count(out, "Command is ambiguous."))
	assert.NotContains(t, out, "Command not found.")
	assert.NotContains(t, out, "CPU reset.")
}

func TestShortcutsResolve(t *testing.T) {
	for _, s := range shortcuts {
		want, _, err := cmds.Lookup(s.target)
		require.NoError(t, err, s.target)
		require.IsType(t, &cmd.Command{}, want, s.target)

		got, args, err := cmds.Lookup(s.shortcut + " 1")
		require.NoError(t, err, s.shortcut)
		assert.Same(t, want, got, s.shortcut)
		assert.Equal(t, []string{"1"}, args)
	}

	h := newTestHost()
	out := runScript(t, h, "ms $1000 $ea\nm $1000 1\nr a 7\n. pc $1000\n")
	assert.Contains(t, out, "Memory set at $1000..$1000.")
	assert.Contains(t, out, "1000- EA")
	assert.Contains(t, out, "Register A set to $07.")
	assert.Equal(t, uint16(0x1000), h.cpu.Reg.PC)
}

func TestProcessorStatusRegister(t *testing.T) {
	h := newTestHost()
	out := runScript(t, h, `
register ps $c3
evaluate ps
register
register ps 0
`)
	assert.Contains(t, out, "Register PS set to $E3 [NV-bdiZC].")
	assert.Contains(t, out, "$00E3 (227)")
	assert.Contains(t, out, "PS=E3 [NV-bdiZC]")
	assert.Contains(t, out, "Register PS set to $20 [nv-bdizc].")
	assert.False(t, h.cpu.Reg.Carry)
	assert.False(t, h.cpu.Reg.Negative)
}

func TestBreakFromAnotherGoroutine(t *testing.T) {
	h := newTestHost()
	runScript(t, h, "memory set $1000 $4c $00 $10\n") // JMP $1000

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				h.Break()
				time.Sleep(time.Millisecond)
			}
		}
	}()

	out := runScript(t, h, "run $1000\n")
	close(done)
	wg.Wait()

	assert.Contains(t, out, "Running from $1000.")
	assert.Contains(t, out, "Interrupted.")
	assert.Equal(t, uint16(0x1000), h.cpu.Reg.PC)
	assert.Equal(t, stateProcessingCommands, h.state)
}

func TestAssemble(t *testing.T) {
	dir := t.TempDir()
	src := `
	.org $2000
start	LDA #$42
	STA result
	RTS
result	.db 0
	.export start
	.export result
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "prog.asm"), []byte(src), 0o644))

	h := newTestHost()
	out := runScript(t, h, "exports\nassemble "+filepath.Join(dir, "prog")+"\nexports\nevaluate result\nstep 2\nmemory dump result 1\n")
	assert.Contains(t, out, "No active exports.")
	assert.Contains(t, out, "Assembled 'prog.asm': 7 bytes at $2000.")
	assert.Contains(t, out, "start            $2000")
	assert.Contains(t, out, "result           $2006")
	assert.Contains(t, out, "$2006 (8198)")
	assert.Contains(t, out, "2006- 42")
	assert.Equal(t, uint16(0x2005), h.cpu.Reg.PC)

	out = runScript(t, h, "reset\nevaluate result\nexports\n")
	assert.Contains(t, out, "No active exports.")
	assert.NotContains(t, out, "$2006")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.asm"), []byte("\tFOO\n"), 0o644))
	out = runScript(t, h, "assemble "+filepath.Join(dir, "bad.asm")+"\nassemble "+filepath.Join(dir, "none.asm")+"\n")
	assert.Contains(t, out, "Failed to assemble 'bad.asm'.")
	assert.Contains(t, out, "Syntax error in 'bad.asm' line 1, col 9: invalid opcode 'FOO'")
	assert.Contains(t, out, "Failed to open 'none.asm'")
}

func TestUnknownCommandAndQuit(t *testing.T) {
	h := newTestHost()
	var out bytes.Buffer
	err := h.RunCommands(strings.NewReader("frobnicate\nquit\nreset\n"), &out, false)
	assert.ErrorIs(t, err, ErrQuit)
	assert.Contains(t, out.String(), "Command not found.")
	assert.NotContains(t, out.String(), "CPU reset.")
}
