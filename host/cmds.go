// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"fmt"

	"github.com/beevik/cmd"
)

var cmds *cmd.Tree

// A handler is the Data stored with every command in the tree.
type handler func(h *Host, c *cmd.Command, args []string) error

var shortcuts = []struct{ shortcut, target string }{
	{"a", "assemble"},
	{"ba", "breakpoint add"},
	{"br", "breakpoint remove"},
	{"bl", "breakpoint list"},
	{"be", "breakpoint enable"},
	{"bd", "breakpoint disable"},
	{"d", "disassemble"},
	{"dbl", "databreakpoint list"},
	{"dba", "databreakpoint add"},
	{"dbr", "databreakpoint remove"},
	{"dbe", "databreakpoint enable"},
	{"dbd", "databreakpoint disable"},
	{"e", "evaluate"},
	{"x", "execute"},
	{"m", "memory dump"},
	{"ms", "memory set"},
	{"n", "next"},
	{"r", "register"},
	{"s", "step"},
	{"?", "help"},
	{".", "register"},
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "go6502"})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "help",
		Description: "Display help for a command.",
		Usage:       "help [<command>]",
		Data:        handler((*Host).cmdHelp),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "assemble",
		Brief: "Assemble a file into memory",
		Description: "Run the assembler on the specified file and store the" +
			" machine code in memory at its origin, then set the program" +
			" counter to the origin. An .org directive in the file sets the" +
			" origin; otherwise the address argument is used, or $1000 if" +
			" none is given. If the filename has no extension, .asm is" +
			" assumed. Labels exported by the file may be used in" +
			" expressions afterwards.",
		Usage: "assemble <filename> [<address>]",
		Data:  handler((*Host).cmdAssemble),
	})

	// Breakpoint commands
	bp := root.AddSubtree(cmd.TreeDescriptor{Name: "breakpoint", Brief: "Breakpoint commands"})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List breakpoints",
		Description: "List all current breakpoints and their hit counts.",
		Usage:       "breakpoint list",
		Data:        handler((*Host).cmdBreakpointList),
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a breakpoint",
		Description: "Add a breakpoint at the specified address." +
			" The breakpoint starts enabled.",
		Usage: "breakpoint add <address>",
		Data:  handler((*Host).cmdBreakpointAdd),
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "remove",
		Brief:       "Remove a breakpoint",
		Description: "Remove a breakpoint at the specified address.",
		Usage:       "breakpoint remove <address>",
		Data:        handler((*Host).cmdBreakpointRemove),
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a breakpoint",
		Description: "Enable a previously added breakpoint.",
		Usage:       "breakpoint enable <address>",
		Data:        handler((*Host).cmdBreakpointEnable),
	})
	bp.AddCommand(cmd.CommandDescriptor{
		Name:  "disable",
		Brief: "Disable a breakpoint",
		Description: "Disable a previously added breakpoint. This" +
			" prevents the breakpoint from being hit when running the" +
			" CPU.",
		Usage: "breakpoint disable <address>",
		Data:  handler((*Host).cmdBreakpointDisable),
	})

	// Data breakpoint commands
	db := root.AddSubtree(cmd.TreeDescriptor{Name: "databreakpoint", Brief: "Data Breakpoint commands"})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "list",
		Brief:       "List data breakpoints",
		Description: "List all current data breakpoints.",
		Usage:       "databreakpoint list",
		Data:        handler((*Host).cmdDataBreakpointList),
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:  "add",
		Brief: "Add a data breakpoint",
		Description: "Add a new data breakpoint at the specified" +
			" memory address. When the CPU stores data at this address, the" +
			" breakpoint will stop the CPU. Optionally, a byte" +
			" value may be specified, and the CPU will stop only" +
			" when this value is stored. The data breakpoint starts" +
			" enabled.",
		Usage: "databreakpoint add <address> [<value>]",
		Data:  handler((*Host).cmdDataBreakpointAdd),
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:  "remove",
		Brief: "Remove a data breakpoint",
		Description: "Remove a previously added data breakpoint at" +
			" the specified memory address.",
		Usage: "databreakpoint remove <address>",
		Data:  handler((*Host).cmdDataBreakpointRemove),
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "enable",
		Brief:       "Enable a data breakpoint",
		Description: "Enable a previously added data breakpoint.",
		Usage:       "databreakpoint enable <address>",
		Data:        handler((*Host).cmdDataBreakpointEnable),
	})
	db.AddCommand(cmd.CommandDescriptor{
		Name:        "disable",
		Brief:       "Disable a data breakpoint",
		Description: "Disable a previously added data breakpoint.",
		Usage:       "databreakpoint disable <address>",
		Data:        handler((*Host).cmdDataBreakpointDisable),
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:  "disassemble",
		Brief: "Disassemble code",
		Description: "Disassemble machine code starting at the requested" +
			" address. The number of instruction lines to disassemble may be" +
			" specified as an option. If no address is specified, the" +
			" disassembly continues from where the last disassembly left off.",
		Usage: "disassemble [<address>] [<lines>]",
		Data:  handler((*Host).cmdDisassemble),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "evaluate",
		Brief: "Evaluate an expression",
		Description: "Evaluate a mathematical expression. The registers" +
			" a, x, y, sp, pc and ps may be used in the expression, as may any" +
			" label exported by an assembled file.",
		Usage: "evaluate <expression>",
		Data:  handler((*Host).cmdEvaluate),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "execute",
		Brief: "Execute a budget of CPU cycles",
		Description: "Run the CPU until at least the requested number of" +
			" cycles has been consumed, then report the cycles actually" +
			" used. The budget is checked only between instructions, so the" +
			" CPU may run a few cycles over. If no budget is given, the" +
			" ExecuteBudget setting is used.",
		Usage: "execute [<cycles>]",
		Data:  handler((*Host).cmdExecute),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "exports",
		Brief:       "List exported labels",
		Description: "List the labels exported by the most recently assembled file.",
		Usage:       "exports",
		Data:        handler((*Host).cmdExports),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "load",
		Brief: "Load a binary file",
		Description: "Load the contents of a raw binary file into the" +
			" emulated system's memory at the specified address, and set" +
			" the program counter to that address.",
		Usage: "load <filename> <address>",
		Data:  handler((*Host).cmdLoad),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "log",
		Brief: "Display the log",
		Description: "Display the most recent entries of the log. The" +
			" number of entries may be specified as an option.",
		Usage: "log [<count>]",
		Data:  handler((*Host).cmdLog),
	})

	// Memory commands
	me := root.AddSubtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"})
	me.AddCommand(cmd.CommandDescriptor{
		Name:  "dump",
		Brief: "Dump memory at address",
		Description: "Dump the contents of memory starting from the" +
			" specified address. The number of bytes to dump may be" +
			" specified as an option. If no address is specified, the" +
			" memory dump continues from where the last dump left off.",
		Usage: "memory dump [<address>] [<bytes>]",
		Data:  handler((*Host).cmdMemoryDump),
	})
	me.AddCommand(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set memory at address",
		Description: "Set the contents of memory starting from the specified" +
			" address. The values to assign should be a series of" +
			" space-separated byte values. You may use an expression for each" +
			" byte value.",
		Usage: "memory set <address> <byte> [<byte> ...]",
		Data:  handler((*Host).cmdMemorySet),
	})

	root.AddCommand(cmd.CommandDescriptor{
		Name:  "next",
		Brief: "Step over the next instruction",
		Description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, step over the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "next [<count>]",
		Data:  handler((*Host).cmdStepOver),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:        "quit",
		Brief:       "Quit the program",
		Description: "Quit the program.",
		Usage:       "quit",
		Data:        handler((*Host).cmdQuit),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "register",
		Brief: "View or change register values",
		Description: "When used without arguments, this command displays the current" +
			" contents of the CPU registers. When used with arguments, this" +
			" command changes the value of a register or one of the CPU's status" +
			" flags. Allowed register names include A, X, Y, PC, SP and PS." +
			" Allowed status flag names include Negative, Overflow, Decimal," +
			" Interrupt, Zero and Carry.",
		Usage: "register [<name> <value>]",
		Data:  handler((*Host).cmdRegister),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "reset",
		Brief: "Reset the CPU",
		Description: "Put the CPU into its power-on state and clear all of" +
			" memory. The program counter is set to $FFFC.",
		Usage: "reset",
		Data:  handler((*Host).cmdReset),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "run",
		Brief: "Run the CPU",
		Description: "Run the CPU until a breakpoint is hit, the MaxRunCycles" +
			" limit is reached or the user types Ctrl-C. An address to start" +
			" running from may be specified as an option.",
		Usage: "run [<address>]",
		Data:  handler((*Host).cmdRun),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "set",
		Brief: "Set a register or configuration variable",
		Description: "Set the value of a register or configuration variable." +
			" To see the current values of all configuration variables, type" +
			" set without any arguments.",
		Usage: "set [<var> <value>]",
		Data:  handler((*Host).cmdSet),
	})
	root.AddCommand(cmd.CommandDescriptor{
		Name:  "step",
		Brief: "Step into the next instruction",
		Description: "Step the CPU by a single instruction. If the" +
			" instruction is a subroutine call, step into the subroutine." +
			" The number of steps may be specified as an option.",
		Usage: "step [<count>]",
		Data:  handler((*Host).cmdStepIn),
	})

	for _, s := range shortcuts {
		if err := root.AddShortcut(s.shortcut, s.target); err != nil {
			panic(fmt.Sprintf("shortcut %q -> %q: %v", s.shortcut, s.target, err))
		}
	}

	cmds = root
}
