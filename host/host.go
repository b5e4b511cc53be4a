// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package host allows you to create a "host" that emulates a computer system
// with a 6502 CPU, 64K of memory, a built-in debugger, and other useful
// tools.
//
// Within the host it is possible to load machine code into memory, execute
// it against a cycle budget, debug and step through it, measure the number
// of CPU cycles elapsed, set address and data breakpoints, dump the
// contents of memory, disassemble the contents of memory, manipulate CPU
// registers and memory, and evaluate arbitrary expressions.
package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/beevik/cmd"
	"github.com/fatih/color"
	"golang.org/x/text/message"

	"github.com/tickwise/go6502/asm"
	"github.com/tickwise/go6502/cpu"
	"github.com/tickwise/go6502/disasm"
	"github.com/tickwise/go6502/logger"
)

// ErrQuit is returned by RunCommands when the quit command is entered.
var ErrQuit = errors.New("quit")

var (
	faultColor = color.New(color.FgRed, color.Bold).SprintFunc()
	breakColor = color.New(color.FgYellow).SprintFunc()
)

type state byte

const (
	stateProcessingCommands state = iota
	stateRunning
	stateBreakpoint
	stateStepOverBreakpoint
)

type displayFlags uint8

const (
	displayRegisters displayFlags = 1 << iota
	displayCycles

	displayAll = displayRegisters | displayCycles
)

// A selection is a command looked up from an input line together with its
// arguments. It is kept so an empty interactive line can repeat it.
type selection struct {
	command *cmd.Command
	args    []string
}

// A Host represents a fully emulated 6502 system, 64K of memory, a built-in
// debugger, and other useful tools.
type Host struct {
	input       *bufio.Scanner
	output      *bufio.Writer
	interactive bool
	mem         *cpu.FlatMemory
	cpu         *cpu.CPU
	debugger    *cpu.Debugger
	lastCmd     *selection
	state       state
	interrupted atomic.Bool // set by Break, consumed by the run loops
	eval        *exprEvaluator
	settings    *settings
	printer     *message.Printer
	exports     []asm.Export
}

// New creates a new 6502 host environment.
func New() *Host {
	h := &Host{
		state:    stateProcessingCommands,
		eval:     newExprEvaluator(),
		settings: newSettings(),
		printer:  newPrinter(),
	}

	// Create the emulated CPU and memory.
	h.mem = cpu.NewFlatMemory()
	h.cpu = cpu.NewCPU()
	h.cpu.Reset(h.mem)

	// Create a CPU debugger and attach it to the CPU.
	h.debugger = cpu.NewDebugger(newDebugHandler(h))
	h.cpu.AttachDebugger(h.debugger)

	return h
}

// RunCommands accepts host commands from a reader and outputs the results
// to a writer. If the commands are interactive, a prompt is displayed while
// the host waits for the the next command to be entered, and an empty line
// repeats the previous command. Lines starting with '#' are ignored.
//
// RunCommands returns ErrQuit if the quit command was entered, or nil when
// the reader is exhausted.
func (h *Host) RunCommands(r io.Reader, w io.Writer, interactive bool) error {
	h.input = bufio.NewScanner(r)
	h.output = bufio.NewWriter(w)
	h.interactive = interactive

	if interactive {
		h.println()
	}

	h.displayPC()

	for {
		h.prompt()

		line, err := h.getLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}

		var sel *selection
		switch {
		case line != "":
			n, args, err := cmds.Lookup(line)
			switch {
			case err == cmd.ErrNotFound:
				h.println("Command not found.")
				continue
			case err == cmd.ErrAmbiguous:
				h.println("Command is ambiguous.")
				continue
			case err != nil:
				h.printf("ERROR: %v.\n", err)
				continue
			}

			switch n := n.(type) {
			case *cmd.Tree:
				h.println("Incomplete command. Type 'help' for a list of commands.")
				n.DisplayUsage(h.output)
				h.flush()
				continue
			case *cmd.Command:
				sel = &selection{command: n, args: args}
			}
		case interactive && h.lastCmd != nil:
			sel = h.lastCmd
		}

		if sel == nil {
			continue
		}
		h.lastCmd = sel

		fn := sel.command.Data.(handler)
		if err := fn(h, sel.command, sel.args); err != nil {
			h.flush()
			return err
		}
	}
}

// Break interrupts a running CPU. It is safe to call from any goroutine,
// typically a signal handler. The run loop notices the request before the
// next instruction and stops.
func (h *Host) Break() {
	h.interrupted.Store(true)
}

// Consume a pending Break request. Report whether one was pending.
func (h *Host) checkInterrupt() bool {
	if !h.interrupted.Swap(false) {
		return false
	}
	h.println()
	h.println(breakColor("Interrupted."))
	h.state = stateBreakpoint
	h.displayPC()
	return true
}

func (h *Host) printf(format string, args ...any) {
	fmt.Fprintf(h.output, format, args...)
	h.flush()
}

func (h *Host) println(args ...any) {
	fmt.Fprintln(h.output, args...)
	h.flush()
}

func (h *Host) flush() {
	h.output.Flush()
}

func (h *Host) getLine() (string, error) {
	if h.input.Scan() {
		return h.input.Text(), nil
	}
	if h.input.Err() != nil {
		return "", h.input.Err()
	}
	return "", io.EOF
}

func (h *Host) prompt() {
	if h.interactive {
		h.printf("* ")
	}
}

func (h *Host) displayPC() {
	if h.interactive {
		d, _ := h.disassemble(h.cpu.Reg.PC, h.displayFlags())
		h.println(d)
	}
}

func (h *Host) displayFlags() displayFlags {
	if h.settings.ShowCycles {
		return displayAll
	}
	return displayRegisters
}

func (h *Host) cmdBreakpointList(c *cmd.Command, args []string) error {
	h.println("Addr  Enabled  Hits")
	h.println("----- -------  ----")
	for _, b := range h.debugger.GetBreakpoints() {
		h.printf("$%04X %-5v    %d\n", b.Address, !b.Disabled, b.Hits)
	}
	return nil
}

func (h *Host) cmdBreakpointAdd(c *cmd.Command, args []string) error {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.debugger.AddBreakpoint(addr)
	h.printf("Breakpoint added at $%04X.\n", addr)
	return nil
}

func (h *Host) cmdBreakpointRemove(c *cmd.Command, args []string) error {
	b := h.lookupBreakpoint(c, args)
	if b == nil {
		return nil
	}

	h.debugger.RemoveBreakpoint(b.Address)
	h.printf("Breakpoint at $%04X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointEnable(c *cmd.Command, args []string) error {
	b := h.lookupBreakpoint(c, args)
	if b == nil {
		return nil
	}

	b.Disabled = false
	h.printf("Breakpoint at $%04X enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdBreakpointDisable(c *cmd.Command, args []string) error {
	b := h.lookupBreakpoint(c, args)
	if b == nil {
		return nil
	}

	b.Disabled = true
	h.printf("Breakpoint at $%04X disabled.\n", b.Address)
	return nil
}

func (h *Host) lookupBreakpoint(c *cmd.Command, args []string) *cpu.Breakpoint {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetBreakpoint(addr)
	if b == nil {
		h.printf("No breakpoint was set on $%04X.\n", addr)
	}
	return b
}

func (h *Host) cmdDataBreakpointList(c *cmd.Command, args []string) error {
	h.println("Addr  Enabled  Value  Hits")
	h.println("----- -------  -----  ----")
	for _, b := range h.debugger.GetDataBreakpoints() {
		if b.Conditional {
			h.printf("$%04X %-5v    $%02X    %d\n", b.Address, !b.Disabled, b.Value, b.Hits)
		} else {
			h.printf("$%04X %-5v    <none> %d\n", b.Address, !b.Disabled, b.Hits)
		}
	}
	return nil
}

func (h *Host) cmdDataBreakpointAdd(c *cmd.Command, args []string) error {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	if len(args) > 1 {
		value, err := h.parseExpr(args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.debugger.AddConditionalDataBreakpoint(addr, byte(value))
		h.printf("Conditional data breakpoint added at $%04X for value $%02X.\n", addr, byte(value))
	} else {
		h.debugger.AddDataBreakpoint(addr)
		h.printf("Data breakpoint added at $%04X.\n", addr)
	}
	return nil
}

func (h *Host) cmdDataBreakpointRemove(c *cmd.Command, args []string) error {
	b := h.lookupDataBreakpoint(c, args)
	if b == nil {
		return nil
	}

	h.debugger.RemoveDataBreakpoint(b.Address)
	h.printf("Data breakpoint at $%04X removed.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointEnable(c *cmd.Command, args []string) error {
	b := h.lookupDataBreakpoint(c, args)
	if b == nil {
		return nil
	}

	b.Disabled = false
	h.printf("Data breakpoint at $%04X enabled.\n", b.Address)
	return nil
}

func (h *Host) cmdDataBreakpointDisable(c *cmd.Command, args []string) error {
	b := h.lookupDataBreakpoint(c, args)
	if b == nil {
		return nil
	}

	b.Disabled = true
	h.printf("Data breakpoint at $%04X disabled.\n", b.Address)
	return nil
}

func (h *Host) lookupDataBreakpoint(c *cmd.Command, args []string) *cpu.DataBreakpoint {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := h.debugger.GetDataBreakpoint(addr)
	if b == nil {
		h.printf("No data breakpoint was set on $%04X.\n", addr)
	}
	return b
}

func (h *Host) cmdDisassemble(c *cmd.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"$"}
	}

	addr, ok := h.parseAddr(args[0], h.settings.NextDisasmAddr)
	if !ok {
		return nil
	}

	lines := h.settings.DisasmLines
	if len(args) > 1 {
		l, err := h.parseExpr(args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		lines = int(l)
	}

	for i := 0; i < lines; i++ {
		d, next := h.disassemble(addr, 0)
		h.println(d)
		addr = next
	}

	h.settings.NextDisasmAddr = addr
	h.lastCmd.args = []string{"$", fmt.Sprintf("%d", lines)}
	return nil
}

func (h *Host) cmdEvaluate(c *cmd.Command, args []string) error {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	v, err := h.eval.Eval(strings.Join(args, " "), &h.cpu.Reg)
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.printf("$%04X (%d)\n", uint16(v), v)
	return nil
}

func (h *Host) cmdExecute(c *cmd.Command, args []string) error {
	budget := h.settings.ExecuteBudget
	if len(args) > 0 {
		v, err := h.eval.Eval(strings.Join(args, " "), &h.cpu.Reg)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		budget = int(v)
	}

	used, err := h.cpu.Execute(budget, h.mem)
	h.println(h.printer.Sprintf("Executed %d cycles (budget %d).", used, budget))
	if err != nil {
		logger.Logf("host", "execute: %v", err)
	}

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	h.displayPC()
	return nil
}

func (h *Host) cmdHelp(c *cmd.Command, args []string) error {
	switch err := cmds.GetHelp(h.output, args); err {
	case nil:
	case cmd.ErrNotFound:
		h.println("Command not found.")
	case cmd.ErrAmbiguous:
		h.println("Command is ambiguous.")
	default:
		h.printf("%v\n", err)
	}
	h.flush()
	return nil
}

func (h *Host) cmdAssemble(c *cmd.Command, args []string) error {
	if len(args) < 1 {
		h.displayUsage(c)
		return nil
	}

	filename := args[0]
	if filepath.Ext(filename) == "" {
		filename += ".asm"
	}

	origin := uint16(asm.DefaultOrigin)
	if len(args) > 1 {
		addr, err := h.parseExpr(args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		origin = addr
	}

	h.assemble(filename, origin)
	return nil
}

func (h *Host) cmdExports(c *cmd.Command, args []string) error {
	if len(h.exports) == 0 {
		h.println("No active exports.")
		return nil
	}
	for _, x := range h.exports {
		h.printf("%-16s $%04X\n", x.Label, x.Address)
	}
	return nil
}

func (h *Host) cmdLoad(c *cmd.Command, args []string) error {
	if len(args) < 2 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(args[1])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	h.load(args[0], addr)
	return nil
}

func (h *Host) cmdLog(c *cmd.Command, args []string) error {
	n := 20
	if len(args) > 0 {
		v, err := h.parseExpr(args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		n = int(v)
	}

	if logger.Tail(h.output, n) == 0 {
		h.println("Log is empty.")
	}
	h.flush()
	return nil
}

func (h *Host) cmdMemoryDump(c *cmd.Command, args []string) error {
	if len(args) == 0 {
		args = []string{"$"}
	}

	addr, ok := h.parseAddr(args[0], h.settings.NextMemDumpAddr)
	if !ok {
		return nil
	}

	bytes := uint16(h.settings.MemDumpBytes)
	if len(args) >= 2 {
		var err error
		bytes, err = h.parseExpr(args[1])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
	}

	h.dumpMemory(addr, bytes)

	h.settings.NextMemDumpAddr = addr + bytes
	h.lastCmd.args = []string{"$", fmt.Sprintf("%d", bytes)}
	return nil
}

func (h *Host) cmdMemorySet(c *cmd.Command, args []string) error {
	if len(args) < 2 {
		h.displayUsage(c)
		return nil
	}

	addr, err := h.parseExpr(args[0])
	if err != nil {
		h.printf("%v\n", err)
		return nil
	}

	b := make([]byte, 0, len(args)-1)
	for _, arg := range args[1:] {
		v, err := h.parseExpr(arg)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		b = append(b, byte(v))
	}

	h.mem.StoreBytes(addr, b)
	h.printf("Memory set at $%04X..$%04X.\n", addr, addr+uint16(len(b)-1))
	return nil
}

func (h *Host) cmdQuit(c *cmd.Command, args []string) error {
	return ErrQuit
}

func (h *Host) cmdRegister(c *cmd.Command, args []string) error {
	switch len(args) {
	case 0:
		d, _ := h.disassemble(h.cpu.Reg.PC, h.displayFlags())
		h.println(d)
	case 1:
		h.displayUsage(c)
	default:
		v, err := h.eval.Eval(strings.Join(args[1:], " "), &h.cpu.Reg)
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		if !h.setRegister(strings.ToLower(args[0]), v) {
			h.printf("Register '%s' not found.\n", args[0])
		}
	}
	return nil
}

func (h *Host) cmdReset(c *cmd.Command, args []string) error {
	h.cpu.Reset(h.mem)
	h.settings.NextDisasmAddr = 0
	h.settings.NextMemDumpAddr = 0
	h.exports = nil
	h.eval.setSymbols(nil)
	logger.Log("host", "reset")
	h.printf("CPU reset. PC=$%04X SP=$%02X.\n", h.cpu.Reg.PC, h.cpu.Reg.SP)
	return nil
}

func (h *Host) cmdRun(c *cmd.Command, args []string) error {
	if len(args) > 0 {
		pc, err := h.parseExpr(args[0])
		if err != nil {
			h.printf("%v\n", err)
			return nil
		}
		h.cpu.SetPC(pc)
	}

	h.printf("Running from $%04X. Press ctrl-C to break.\n", h.cpu.Reg.PC)

	h.interrupted.Store(false)
	h.state = stateRunning
	h.runUntilStopped()
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
	return nil
}

func (h *Host) cmdSet(c *cmd.Command, args []string) error {
	switch len(args) {
	case 0:
		h.println("Variables:")
		h.settings.Display(h.output)
		h.flush()

	case 1:
		h.displayUsage(c)

	default:
		key, value := strings.ToLower(args[0]), strings.Join(args[1:], " ")
		v, errV := h.eval.Eval(value, &h.cpu.Reg)

		// Setting a register?
		if errV == nil && h.setRegister(key, v) {
			return nil
		}

		// Setting a host setting?
		var name string
		var err error
		switch h.settings.Kind(key) {
		case reflect.Invalid:
			err = fmt.Errorf("setting '%s' not found", key)
		case reflect.String:
			name, err = h.settings.Set(key, value)
		case reflect.Bool:
			var b bool
			b, err = stringToBool(value)
			if err == nil {
				name, err = h.settings.Set(key, b)
			}
		default:
			err = errV
			if err == nil {
				name, err = h.settings.Set(key, v)
			}
		}

		if err == nil {
			h.printf("Setting %s updated.\n", name)
		} else {
			h.printf("%v\n", err)
		}

		h.onSettingsUpdate()
	}

	return nil
}

func (h *Host) cmdStepIn(c *cmd.Command, args []string) error {
	h.stepCount(args, h.step)
	return nil
}

func (h *Host) cmdStepOver(c *cmd.Command, args []string) error {
	h.stepCount(args, h.stepOver)
	return nil
}

// Step the CPU count times using the 'step' function.
func (h *Host) stepCount(args []string, step func()) {
	count := 1
	if len(args) > 0 {
		n, err := h.parseExpr(args[0])
		if err == nil {
			count = int(n)
		}
	}

	h.interrupted.Store(false)
	h.state = stateRunning
	for i := count - 1; i >= 0 && h.state == stateRunning; i-- {
		if h.checkInterrupt() {
			break
		}
		step()
		switch {
		case i == h.settings.StepLinesToDisplay:
			h.println("...")
		case i < h.settings.StepLinesToDisplay:
			h.displayPC()
		}
	}
	h.state = stateProcessingCommands

	h.settings.NextDisasmAddr = h.cpu.Reg.PC
}

// Assign v to the register or status flag named 'key'. Return false if no
// such register exists.
func (h *Host) setRegister(key string, v int64) bool {
	sz := -1
	reg := &h.cpu.Reg
	switch key {
	case "a":
		reg.A, sz = byte(v), 1
	case "x":
		reg.X, sz = byte(v), 1
	case "y":
		reg.Y, sz = byte(v), 1
	case "sp":
		reg.SP, sz = byte(v), 1
	case ".":
		key = "pc"
		fallthrough
	case "pc":
		reg.PC, sz = uint16(v), 2
	case "ps":
		reg.RestorePS(byte(v))
		sz = 3
	case "carry":
		reg.Carry, sz = intToBool(v), 0
	case "zero":
		reg.Zero, sz = intToBool(v), 0
	case "interrupt":
		reg.InterruptDisable, sz = intToBool(v), 0
	case "decimal":
		reg.Decimal, sz = intToBool(v), 0
	case "overflow":
		reg.Overflow, sz = intToBool(v), 0
	case "negative":
		reg.Negative, sz = intToBool(v), 0
	}

	switch sz {
	case 0:
		h.printf("Register %s set to %v.\n", strings.ToUpper(key), intToBool(v))
	case 1:
		h.printf("Register %s set to $%02X.\n", strings.ToUpper(key), byte(v))
	case 2:
		h.printf("Register %s set to $%04X.\n", strings.ToUpper(key), uint16(v))
	case 3:
		h.printf("Register %s set to $%02X [%s].\n", strings.ToUpper(key), reg.SavePS(false), reg.String())
	default:
		return false
	}
	return true
}

func (h *Host) load(filename string, addr uint16) {
	b, err := os.ReadFile(filename)
	if err != nil {
		h.printf("Failed to read '%s': %v\n", filepath.Base(filename), err)
		return
	}
	if len(b) == 0 || len(b) > cpu.MemorySize {
		h.printf("File '%s' has an invalid size (%d bytes).\n", filepath.Base(filename), len(b))
		return
	}

	h.mem.StoreBytes(addr, b)
	h.cpu.SetPC(addr)
	h.settings.NextDisasmAddr = addr

	end := addr + uint16(len(b)-1)
	logger.Logf("host", "loaded %s at $%04X..$%04X", filepath.Base(filename), addr, end)
	h.printf("Loaded '%s' to $%04X..$%04X\n", filepath.Base(filename), addr, end)
}

func (h *Host) assemble(filename string, origin uint16) {
	file, err := os.Open(filename)
	if err != nil {
		h.printf("Failed to open '%s': %v\n", filepath.Base(filename), err)
		return
	}
	defer file.Close()

	assembly, err := asm.Assemble(file, filepath.Base(filename), origin, h.output, 0)
	if err != nil {
		h.printf("Failed to assemble '%s'.\n", filepath.Base(filename))
		for _, e := range assembly.Errors {
			h.println(e)
		}
		return
	}
	if len(assembly.Code) == 0 {
		h.printf("File '%s' produced no code.\n", filepath.Base(filename))
		return
	}

	h.mem.StoreBytes(assembly.Origin, assembly.Code)
	h.cpu.SetPC(assembly.Origin)
	h.settings.NextDisasmAddr = assembly.Origin
	h.exports = assembly.Exports
	symbols := h.eval.setSymbols(assembly.Exports)

	logger.Logf("host", "assembled %s: %d bytes at $%04X, %d symbols",
		filepath.Base(filename), len(assembly.Code), assembly.Origin, symbols)
	h.printf("Assembled '%s': %d bytes at $%04X.\n",
		filepath.Base(filename), len(assembly.Code), assembly.Origin)
}

func (h *Host) step() {
	h.cpu.Step(h.mem)
}

func (h *Host) stepOver() {
	// JSR instructions need to be handled specially.
	inst := h.cpu.GetInstruction(h.mem, h.cpu.Reg.PC)
	if inst.Name != "JSR" {
		h.step()
		return
	}

	// Place a step-over breakpoint on the instruction following the JSR.
	// Either modify an already existing breakpoint on that instruction, or
	// create a temporary one.
	next := h.cpu.NextAddr(h.mem, h.cpu.Reg.PC)
	tmpBreakpointCreated := false
	b := h.debugger.GetBreakpoint(next)
	if b == nil {
		b = h.debugger.AddBreakpoint(next)
		tmpBreakpointCreated = true
	}
	b.StepOver = true

	h.runUntilStopped()
	b.StepOver = false

	// If we were interrupted by the temporary step-over breakpoint,
	// then continue as normal.
	if h.state == stateStepOverBreakpoint {
		h.state = stateRunning
	}

	if tmpBreakpointCreated {
		h.debugger.RemoveBreakpoint(next)
	}
}

// Step the CPU until the state changes or the run cycle limit is reached.
func (h *Host) runUntilStopped() {
	start := h.cpu.Cycles
	for h.state == stateRunning {
		if h.checkInterrupt() {
			break
		}
		h.step()
		if limit := h.settings.MaxRunCycles; limit > 0 && h.cpu.Cycles-start >= uint64(limit) {
			h.println(h.printer.Sprintf("Stopped after %d cycles.", h.cpu.Cycles-start))
			h.state = stateBreakpoint
			h.displayPC()
		}
	}
}

func (h *Host) onSettingsUpdate() {
	h.eval.hexMode = h.settings.HexMode
}

func (h *Host) parseExpr(expr string) (uint16, error) {
	if expr == "." {
		return h.cpu.Reg.PC, nil
	}

	v, err := h.eval.Eval(expr, &h.cpu.Reg)
	if err != nil {
		return 0, err
	}

	if v < 0 {
		v = 0x10000 + v
	}
	return uint16(v), nil
}

// Parse an address argument. "$" continues from 'next' (or the PC if
// nothing was displayed yet) and "." is the PC.
func (h *Host) parseAddr(arg string, next uint16) (uint16, bool) {
	switch arg {
	case "$":
		if next == 0 {
			return h.cpu.Reg.PC, true
		}
		return next, true
	default:
		addr, err := h.parseExpr(arg)
		if err != nil {
			h.printf("%v\n", err)
			return 0, false
		}
		return addr, true
	}
}

func (h *Host) disassemble(addr uint16, flags displayFlags) (str string, next uint16) {
	var line string
	line, next = disasm.Disassemble(h.mem, addr)

	b := make([]byte, next-addr)
	h.mem.LoadBytes(addr, b)

	str = fmt.Sprintf("%04X-   %-8s    %-15s", addr, codeString(b), line)

	if (flags & displayRegisters) != 0 {
		str += " " + disasm.GetRegisterString(&h.cpu.Reg)
	}

	if (flags & displayCycles) != 0 {
		str += h.printer.Sprintf(" C=%d", h.cpu.Cycles)
	}

	return strings.TrimRight(str, " "), next
}

func (h *Host) dumpMemory(addr0, bytes uint16) {
	if bytes == 0 {
		return
	}

	addr1 := addr0 + bytes - 1
	if addr1 < addr0 {
		addr1 = 0xffff
	}

	buf := []byte("    -" + strings.Repeat(" ", 35))

	// Don't align display for short dumps.
	if addr1-addr0 < 8 {
		addrToBuf(addr0, buf[0:4])
		for a, c1, c2 := uint32(addr0), 6, 32; a <= uint32(addr1); a, c1, c2 = a+1, c1+3, c2+1 {
			m := h.mem.LoadByte(uint16(a))
			byteToBuf(m, buf[c1:c1+2])
			buf[c2] = toPrintableChar(m)
		}
		h.println(strings.TrimRight(string(buf), " "))
		return
	}

	// Align addr0 and addr1 to 8-byte boundaries.
	start := uint32(addr0) & 0xfff8
	stop := (uint32(addr1) + 8) & 0xffff8
	if stop > 0x10000 {
		stop = 0x10000
	}

	a := start
	for r := start; r < stop; r += 8 {
		addrToBuf(uint16(a), buf[0:4])
		for c1, c2 := 6, 32; c1 < 29; c1, c2, a = c1+3, c2+1, a+1 {
			if a >= uint32(addr0) && a <= uint32(addr1) {
				m := h.mem.LoadByte(uint16(a))
				byteToBuf(m, buf[c1:c1+2])
				buf[c2] = toPrintableChar(m)
			} else {
				buf[c1] = ' '
				buf[c1+1] = ' '
				buf[c2] = ' '
			}
		}
		h.println(strings.TrimRight(string(buf), " "))
	}
}

func (h *Host) displayUsage(c *cmd.Command) {
	if c.Usage != "" {
		c.DisplayUsage(h.output)
		h.flush()
	} else {
		h.println("<no help text>")
	}
}

func (h *Host) onBreakpoint(cpu *cpu.CPU, b *cpu.Breakpoint) {
	if b.StepOver {
		h.state = stateStepOverBreakpoint
		return
	}

	if h.state == stateRunning {
		h.state = stateBreakpoint
	}
	h.println(breakColor(fmt.Sprintf("Breakpoint hit at $%04X.", b.Address)))
	h.displayPC()
}

func (h *Host) onDataBreakpoint(cpu *cpu.CPU, b *cpu.DataBreakpoint) {
	h.println(breakColor(fmt.Sprintf("Data breakpoint hit on address $%04X.", b.Address)))

	if h.state == stateRunning {
		h.state = stateBreakpoint
	}

	if cpu.LastPC != cpu.Reg.PC {
		d, _ := h.disassemble(cpu.LastPC, h.displayFlags())
		h.println(d)
	}
}

func (h *Host) onFault(cpu *cpu.CPU, err *cpu.ExecError) {
	h.println(faultColor(fmt.Sprintf("Fault: %v.", err)))

	if h.state == stateRunning && h.settings.StopOnFault {
		h.state = stateBreakpoint
	}
}
