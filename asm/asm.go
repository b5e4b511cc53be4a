// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a small 6502 assembler for the instructions the
// emulator decodes. It supports labels (including '.' and '@' local
// labels), constant expressions and a handful of data directives.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tickwise/go6502/cpu"
	"github.com/tickwise/go6502/logger"
)

var errParse = errors.New("parse error")

// DefaultOrigin is the address code is assembled for when neither the
// caller nor an .org directive chooses one.
const DefaultOrigin = 0x1000

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

type pseudoOp struct {
	fn    func(a *assembler, line, label span, param int) error
	param int
}

var pseudoOps = map[string]pseudoOp{
	".or":     {fn: (*assembler).parseOrigin},
	".org":    {fn: (*assembler).parseOrigin},
	"org":     {fn: (*assembler).parseOrigin},
	".eq":     {fn: (*assembler).parseEquate},
	".equ":    {fn: (*assembler).parseEquate},
	"equ":     {fn: (*assembler).parseEquate},
	"=":       {fn: (*assembler).parseEquate},
	".db":     {fn: (*assembler).parseData, param: 1},
	".byte":   {fn: (*assembler).parseData, param: 1},
	".dw":     {fn: (*assembler).parseData, param: 2},
	".word":   {fn: (*assembler).parseData, param: 2},
	".dh":     {fn: (*assembler).parseHexString},
	".hex":    {fn: (*assembler).parseHexString},
	"hex":     {fn: (*assembler).parseHexString},
	".al":     {fn: (*assembler).parseAlign},
	".align":  {fn: (*assembler).parseAlign},
	".ex":     {fn: (*assembler).parseExport},
	".export": {fn: (*assembler).parseExport},
	"exp":     {fn: (*assembler).parseExport},
}

// A segment is a run of output bytes: one instruction or a block of data.
type segment interface {
	address() int
}

// An instruction segment holds one instruction and its operand.
type instruction struct {
	addr    int
	opcode  span
	inst    *cpu.Instruction // chosen once the operand size is known
	operand operand
}

func (i *instruction) address() int { return i.addr }

func (i *instruction) operandString() string {
	n := fmt.Sprintf("%04X", i.operand.value())
	if i.inst.Length == 2 {
		n = fmt.Sprintf("%02X", i.operand.value()&0xff)
	}
	return fmt.Sprintf(modeFormat[i.inst.Mode], n)
}

// An operand is the parameter of an instruction.
type operand struct {
	modeGuess      cpu.Mode // mode implied by the operand's syntax
	expr           *expr
	forceImmediate bool
	forceAbsolute  bool // written as A:expr or ABS:expr
}

// Negative values wrap into 16 bits.
func (o *operand) value() int {
	v := o.expr.value
	if v < 0 {
		v += 0x10000
	}
	if o.forceImmediate {
		return v & 0xff
	}
	return v
}

// The number of bytes the operand occupies.
func (o *operand) size() int {
	switch {
	case o.modeGuess == cpu.IMP:
		return 0
	case o.forceImmediate:
		return 1
	case o.expr.address || o.forceAbsolute || o.expr.value > 0xff || o.expr.value < -128:
		return 2
	default:
		return 1
	}
}

// A data segment holds the items of a .db or .dw directive.
type data struct {
	addr  int
	unit  int // bytes per numeric item
	items []dataItem
}

type dataItem struct {
	str  []byte // a quoted string, stored byte for byte
	expr *expr
}

func (d *data) address() int { return d.addr }

func (d *data) size() int {
	n := 0
	for _, it := range d.items {
		if it.expr == nil {
			n += len(it.str)
		} else {
			n += d.unit
		}
	}
	return n
}

// A bytedata segment holds raw bytes.
type bytedata struct {
	addr int
	b    []byte
}

func (b *bytedata) address() int { return b.addr }

// An alignment segment pads with zeroes up to a power-of-two boundary.
type alignment struct {
	addr  int
	align int
	pad   int
}

func (a *alignment) address() int { return a.addr }

// An export segment publishes a label's address.
type export struct {
	addr int
	expr *expr
}

func (e *export) address() int { return e.addr }

type asmError struct {
	at  span
	msg string
}

// An Export is a label address published by the .export directive.
type Export struct {
	Label   string
	Address uint16
}

// An Assembly is the result of assembling a source file.
type Assembly struct {
	Origin  uint16   // address of the first byte of Code
	Code    []byte   // assembled machine code
	Exports []Export // exported labels, in source order
	Errors  []string // errors encountered during assembly
}

// WriteTo writes the machine code to w.
func (a *Assembly) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.Code)
	return int64(n), err
}

// Option type used by the Assemble function.
type Option uint

// Options for the Assemble function.
const (
	Verbose Option = 1 << iota // trace every assembly pass to the output
)

type assembler struct {
	instSet     *cpu.InstructionSet
	filename    string
	r           io.Reader
	origin      int
	pc          int
	code        []byte
	scope       string           // most recent global label
	constants   map[string]*expr // equates, and labels once resolved
	labels      map[string]int   // label -> segment index
	exports     []Export
	segments    []segment
	unevaluated []*expr
	parser      exprParser
	out         io.Writer
	verbose     bool
	errors      []asmError
}

// Assemble reads assembly source from r and assembles it for the given
// origin, which an .org directive in the source overrides. Errors are
// listed in the returned Assembly, which is never nil.
func Assemble(r io.Reader, filename string, origin uint16, out io.Writer, options Option) (*Assembly, error) {
	if out == nil {
		out = io.Discard
	}

	a := &assembler{
		instSet:   cpu.GetInstructionSet(),
		filename:  filename,
		r:         r,
		origin:    int(origin),
		pc:        -1,
		constants: make(map[string]*expr),
		labels:    make(map[string]int),
		out:       out,
		verbose:   options&Verbose != 0,
	}

	steps := []func(a *assembler) error{
		(*assembler).parse,                        // build segments, labels and constants
		(*assembler).evaluateExpressions,          // evaluate what is already known
		(*assembler).assignAddresses,              // size every segment
		(*assembler).resolveLabels,                // turn labels into constants
		(*assembler).evaluateExpressions,          // evaluate with resolved labels
		(*assembler).handleUnevaluatedExpressions, // anything left is an error
		(*assembler).generateCode,
	}

	var err error
	for _, step := range steps {
		err = step(a)
		if err == nil && len(a.errors) > 0 {
			err = errParse
		}
		if err != nil {
			break
		}
	}

	assembly := &Assembly{
		Origin:  uint16(a.origin),
		Code:    a.code,
		Exports: a.exports,
	}
	for _, e := range a.errors {
		assembly.Errors = append(assembly.Errors, fmt.Sprintf("Syntax error in '%s' line %d, col %d: %s",
			a.filename, e.at.row, e.at.column+1, e.msg))
	}

	if err != nil {
		logger.Logf("asm", "%s: %d error(s)", filename, len(assembly.Errors))
		return assembly, err
	}
	logger.Logf("asm", "%s: %d bytes at $%04X", filename, len(a.code), a.origin)
	return assembly, nil
}

func (a *assembler) parse() error {
	a.logSection("Parsing")

	scanner := bufio.NewScanner(a.r)
	for row := 1; scanner.Scan(); row++ {
		if err := a.parseLine(newSpan(row, scanner.Text()).stripComment()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	// An empty trailing segment gives labels at the end of the file an
	// address.
	a.segments = append(a.segments, &bytedata{addr: -1})
	return nil
}

func (a *assembler) pushUnevaluated(e *expr) {
	if !e.eval(a.constants, a.labels) {
		a.unevaluated = append(a.unevaluated, e)
	}
}

func (a *assembler) segaddr(segno int) int {
	if segno < len(a.segments) {
		return a.segments[segno].address()
	}
	return -1
}

// Evaluate pending expressions until a pass makes no progress.
func (a *assembler) evaluateExpressions() error {
	a.logSection("Evaluating expressions")
	for {
		var pending []*expr
		for _, e := range a.unevaluated {
			if e.eval(a.constants, a.labels) {
				a.log("%-25s Val:$%X", e, e.value)
			} else {
				pending = append(pending, e)
			}
		}
		if len(pending) == len(a.unevaluated) {
			return nil
		}
		a.unevaluated = pending
	}
}

func (a *assembler) assignAddresses() error {
	a.logSection("Assigning addresses")
	a.pc = a.origin
	for _, s := range a.segments {
		switch ss := s.(type) {
		case *instruction:
			ss.addr = a.pc
			ss.inst = a.findMatchingInstruction(ss.opcode, &ss.operand)
			if ss.inst == nil {
				a.addError(ss.opcode, "invalid addressing mode for opcode '%s'", ss.opcode.str)
				return errParse
			}
			a.log("%04X  %s Len:%d Mode:%v Opcode:%02X",
				ss.addr, ss.inst.Name, ss.inst.Length, ss.inst.Mode, ss.inst.Opcode)
			a.pc += int(ss.inst.Length)

		case *data:
			ss.addr = a.pc
			a.pc += ss.size()

		case *bytedata:
			ss.addr = a.pc
			a.pc += len(ss.b)

		case *alignment:
			ss.addr = a.pc
			ss.pad = ss.align*((a.pc+ss.align-1)/ss.align) - a.pc
			a.pc += ss.pad

		case *export:
			ss.addr = a.pc
		}
	}

	if a.pc > cpu.MemorySize {
		a.addError(newSpan(0, ""), "code exceeds 64K ending at $%X", a.pc)
		return errParse
	}
	return nil
}

func (a *assembler) resolveLabels() error {
	a.logSection("Resolving labels")
	for label, segno := range a.labels {
		if addr := a.segaddr(segno); addr != -1 {
			a.log("%-15s Addr:$%04X", label, addr)
			a.constants[label] = &expr{op: opNumber, value: addr, evaluated: true, address: true}
		}
	}
	return nil
}

func (a *assembler) handleUnevaluatedExpressions() error {
	for _, e := range a.unevaluated {
		a.addError(e.at, "unresolved expression '%s'", e.at.str)
	}
	if len(a.unevaluated) > 0 {
		return errParse
	}
	return nil
}

func (a *assembler) generateCode() error {
	a.logSection("Generating code")
	for _, s := range a.segments {
		switch ss := s.(type) {
		case *instruction:
			start := len(a.code)
			a.code = append(a.code, ss.inst.Opcode)
			switch ss.inst.Length {
			case 2:
				if !ss.operand.forceImmediate && ss.operand.value() > 0xff {
					a.addError(ss.opcode, "operand $%X does not fit in a byte", ss.operand.value())
				}
				a.code = append(a.code, byte(ss.operand.value()))
			case 3:
				a.code = append(a.code, toBytes(2, ss.operand.value())...)
			}
			if ss.inst.Length > 1 {
				a.log("%04X-   %-8s    %s   %s", ss.addr, byteString(a.code[start:]), ss.inst.Name, ss.operandString())
			} else {
				a.log("%04X-   %-8s    %s", ss.addr, byteString(a.code[start:]), ss.inst.Name)
			}

		case *data:
			for _, it := range ss.items {
				if it.expr == nil {
					a.code = append(a.code, it.str...)
				} else {
					a.code = append(a.code, toBytes(ss.unit, it.expr.value)...)
				}
			}

		case *bytedata:
			a.code = append(a.code, ss.b...)

		case *alignment:
			a.code = append(a.code, make([]byte, ss.pad)...)

		case *export:
			if ss.expr.op != opIdentifier || !ss.expr.address {
				a.addError(ss.expr.at, "export is not an address label")
				continue
			}
			a.exports = append(a.exports, Export{
				Label:   ss.expr.identifier.str,
				Address: uint16(ss.expr.value),
			})
		}
	}
	return nil
}

func (a *assembler) parseLine(line span) error {
	// Skip empty (or comment-only) lines.
	if line.isEmpty() || line.startsWithChar('*') {
		return nil
	}

	var label span
	if !line.startsWith(whitespace) {
		var err error
		label, line, err = a.parseLabel(line)
		if err != nil {
			return err
		}
	}
	line = line.skipSpace()

	// Is the next word a pseudo-op, rather than an opcode?
	word, rest := line.takeWhile(wordChar)
	if op, ok := pseudoOps[strings.ToLower(word.str)]; ok {
		return op.fn(a, rest.skipSpace(), label, op.param)
	}

	if !label.isEmpty() {
		if err := a.storeLabel(label); err != nil {
			return err
		}
	}
	if word.isEmpty() {
		return nil
	}
	return a.parseInstruction(word, rest.skipSpace())
}

func (a *assembler) parseLabel(line span) (label, rest span, err error) {
	if !line.startsWith(labelStartChar) {
		s, _ := line.takeUntil(whitespace)
		a.addError(line, "invalid label '%s'", s.str)
		return label, line, errParse
	}

	label, rest = line.takeWhile(labelChar)
	if rest.startsWithChar(':') {
		rest = rest.consume(1)
	}
	if !rest.isEmpty() && !rest.startsWith(whitespace) {
		s, _ := rest.takeUntil(whitespace)
		a.addError(rest, "invalid label '%s%s'", label.str, s.str)
		return label, rest, errParse
	}
	return label, rest, nil
}

// Record the label against the next segment. Local labels are qualified
// by the global label in scope.
func (a *assembler) storeLabel(label span) error {
	name := label.str
	if isLocal(name) {
		name = "~" + a.scope + name
	} else {
		a.scope = name
	}

	if _, found := a.labels[name]; found {
		a.addError(label, "label '%s' used more than once", label.str)
		return errParse
	}
	if _, found := a.constants[name]; found {
		a.addError(label, "label '%s' is already a constant", label.str)
		return errParse
	}

	a.labels[name] = len(a.segments)
	return nil
}

func (a *assembler) parseExpr(line span, allowParens bool) (*expr, error) {
	e, err := a.parser.parse(line, a.scope, allowParens)
	if err != nil {
		for _, pe := range a.parser.errors {
			a.addError(pe.at, "%s", pe.msg)
		}
		return nil, errParse
	}
	return e, nil
}

func (a *assembler) parseOrigin(line, label span, param int) error {
	if len(a.segments) > 0 {
		a.addError(line, "origin directive must appear before first instruction")
		return errParse
	}

	e, err := a.parseExpr(line, true)
	if err != nil {
		return err
	}
	if !e.eval(a.constants, a.labels) {
		a.addError(line, "unable to evaluate origin")
		return errParse
	}
	if e.value < 0 || e.value >= cpu.MemorySize {
		a.addError(line, "origin $%X out of range", e.value)
		return errParse
	}

	a.origin = e.value
	return nil
}

func (a *assembler) parseEquate(line, label span, param int) error {
	if label.isEmpty() {
		a.addError(line, "equate declaration must begin with a label")
		return errParse
	}
	if _, found := a.constants[label.str]; found {
		a.addError(label, "constant '%s' defined more than once", label.str)
		return errParse
	}

	e, err := a.parseExpr(line, true)
	if err != nil {
		return err
	}
	a.pushUnevaluated(e)
	a.constants[label.str] = e
	return nil
}

func (a *assembler) parseData(line, label span, unit int) error {
	seg := &data{addr: -1, unit: unit}

	for rest := line; !rest.isEmpty(); {
		var field span
		field, rest = rest.takeField()
		if rest.startsWithChar(',') {
			rest = rest.consume(1).skipSpace()
		}
		field = field.trunc(len(strings.TrimRight(field.str, " \t")))

		if s := field.str; len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
			seg.items = append(seg.items, dataItem{str: []byte(s[1 : len(s)-1])})
			continue
		}

		e, err := a.parseExpr(field, true)
		if err != nil {
			return err
		}
		a.pushUnevaluated(e)
		seg.items = append(seg.items, dataItem{expr: e})
	}

	if !label.isEmpty() {
		if err := a.storeLabel(label); err != nil {
			return err
		}
	}
	a.segments = append(a.segments, seg)
	return nil
}

func (a *assembler) parseHexString(line, label span, param int) error {
	s, rest := line.takeWhile(hexadecimal)
	if !rest.isEmpty() {
		a.addError(rest, "invalid hex string")
		return errParse
	}
	if len(s.str)%2 != 0 {
		a.addError(s, "hex string has odd number of characters")
		return errParse
	}

	seg := &bytedata{addr: -1}
	for i := 0; i < len(s.str); i += 2 {
		v, _ := strconv.ParseUint(s.str[i:i+2], 16, 8)
		seg.b = append(seg.b, byte(v))
	}

	if !label.isEmpty() {
		if err := a.storeLabel(label); err != nil {
			return err
		}
	}
	a.segments = append(a.segments, seg)
	return nil
}

func (a *assembler) parseAlign(line, label span, param int) error {
	s, rest := line.takeWhile(decimal)
	if s.isEmpty() || !rest.isEmpty() {
		a.addError(line, "invalid alignment")
		return errParse
	}

	v, _ := strconv.Atoi(s.str)
	if v == 0 || v&(v-1) != 0 || v > 0x100 {
		a.addError(s, "alignment must be a power of 2 no greater than 256")
		return errParse
	}

	a.segments = append(a.segments, &alignment{addr: -1, align: v})
	if !label.isEmpty() {
		return a.storeLabel(label)
	}
	return nil
}

func (a *assembler) parseExport(line, label span, param int) error {
	e, err := a.parseExpr(line, false)
	if err != nil {
		return err
	}
	a.pushUnevaluated(e)
	a.segments = append(a.segments, &export{addr: -1, expr: e})
	return nil
}

func (a *assembler) parseInstruction(opcode, rest span) error {
	if a.instSet.GetInstructions(opcode.str) == nil {
		a.addError(opcode, "invalid opcode '%s'", opcode.str)
		return errParse
	}

	o, err := a.parseOperand(rest)
	if err != nil {
		return err
	}

	a.segments = append(a.segments, &instruction{addr: -1, opcode: opcode, operand: o})
	return nil
}

// Parse the operand following an opcode and guess its addressing mode
// from its syntax.
func (a *assembler) parseOperand(line span) (o operand, err error) {
	var e span
	switch {
	case line.isEmpty():
		o.modeGuess = cpu.IMP
		return o, nil

	case line.startsWithChar('('):
		o.modeGuess, e, err = line.consume(1).indirectOperand()
		if err != nil {
			a.addError(line, "unknown addressing mode format")
			return o, err
		}
		o.expr, err = a.parseExpr(e, false)

	case line.startsWithChar('#'):
		o.modeGuess, o.forceImmediate = cpu.IMM, true
		o.expr, err = a.parseExpr(line.consume(1).skipSpace(), true)

	default:
		if line.startsWithString("A:") || line.startsWithString("ABS:") {
			o.forceAbsolute = true
			_, line = line.takeUntilChar(':')
			line = line.consume(1)
		}
		o.modeGuess, e, err = line.absoluteOperand()
		if err != nil {
			a.addError(line, "unknown addressing mode format")
			return o, err
		}
		o.expr, err = a.parseExpr(e, true)
	}
	if err != nil {
		return o, err
	}

	a.pushUnevaluated(o.expr)
	return o, nil
}

// Split "expr,X)", "expr),Y" or "expr)" into an indirect mode and its
// expression.
func (s span) indirectOperand() (mode cpu.Mode, e span, err error) {
	e, rest := s.takeUntil(func(c byte) bool { return c == ',' || c == ')' })

	switch {
	case rest.startsWithString(",X)"):
		mode, rest = cpu.IDX, rest.consume(3)
	case rest.startsWithString("),Y"):
		mode, rest = cpu.IDY, rest.consume(3)
	case rest.startsWithChar(')'):
		mode, rest = cpu.IND, rest.consume(1)
	default:
		return mode, e, errParse
	}

	if !rest.skipSpace().isEmpty() {
		return mode, e, errParse
	}
	return mode, e, nil
}

// Split "expr", "expr,X" or "expr,Y" into an absolute mode and its
// expression.
func (s span) absoluteOperand() (mode cpu.Mode, e span, err error) {
	e, rest := s.takeUntilChar(',')

	switch {
	case rest.isEmpty():
		mode = cpu.ABS
	case rest.startsWithString(",X"):
		mode, rest = cpu.ABX, rest.consume(2)
	case rest.startsWithString(",Y"):
		mode, rest = cpu.ABY, rest.consume(2)
	default:
		return mode, e, errParse
	}

	if !rest.skipSpace().isEmpty() {
		return mode, e, errParse
	}
	e = e.trunc(len(strings.TrimRight(e.str, " \t")))
	return mode, e, nil
}

// Select the instruction variant matching the operand, preferring the
// shortest encoding.
func (a *assembler) findMatchingInstruction(opcode span, o *operand) *cpu.Instruction {
	bestqual := 3
	var found *cpu.Instruction
	for _, inst := range a.instSet.GetInstructions(opcode.str) {
		match, qual := false, 0
		switch {
		case inst.Mode == cpu.IMP:
			match, qual = o.modeGuess == cpu.IMP, 0
		case o.modeGuess == cpu.IMP:
			match = false
		case inst.Mode == cpu.IMM:
			match, qual = o.modeGuess == cpu.IMM, 1
		case inst.Mode == cpu.ZPG:
			match, qual = o.modeGuess == cpu.ABS && o.size() == 1, 1
		case inst.Mode == cpu.ZPX:
			match, qual = o.modeGuess == cpu.ABX && o.size() == 1, 1
		case inst.Mode == cpu.ZPY:
			match, qual = o.modeGuess == cpu.ABY && o.size() == 1, 1
		case inst.Mode == cpu.ABS:
			match, qual = o.modeGuess == cpu.ABS, 2
		case inst.Mode == cpu.ABX:
			match, qual = o.modeGuess == cpu.ABX, 2
		case inst.Mode == cpu.ABY:
			match, qual = o.modeGuess == cpu.ABY, 2
		case inst.Mode == cpu.IND:
			match, qual = o.modeGuess == cpu.IND, 2
		case inst.Mode == cpu.IDX:
			match, qual = o.modeGuess == cpu.IDX && o.size() == 1, 1
		case inst.Mode == cpu.IDY:
			match, qual = o.modeGuess == cpu.IDY && o.size() == 1, 1
		}
		if match && qual < bestqual {
			bestqual, found = qual, inst
		}
	}
	return found
}

func (a *assembler) addError(at span, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.errors = append(a.errors, asmError{at, msg})
	if a.verbose {
		fmt.Fprintf(a.out, "Syntax error in '%s' line %d, col %d: %s\n", a.filename, at.row, at.column+1, msg)
		fmt.Fprintln(a.out, at.full)
		fmt.Fprintln(a.out, strings.Repeat("-", at.column)+"^")
	}
}

// In verbose mode, log a line of trace output.
func (a *assembler) log(format string, args ...any) {
	if a.verbose {
		fmt.Fprintf(a.out, format+"\n", args...)
	}
}

func (a *assembler) logSection(name string) {
	if a.verbose {
		bar := strings.Repeat("-", len(name)+6)
		fmt.Fprintf(a.out, "%s\n-- %s --\n%s\n", bar, name, bar)
	}
}

// Return a little-endian representation of the value using the requested
// number of bytes.
func toBytes(n, value int) []byte {
	if n == 1 {
		return []byte{byte(value)}
	}
	return []byte{byte(value), byte(value >> 8)}
}

// Return a hexadecimal string representation of a byte slice.
func byteString(b []byte) string {
	s := make([]string, len(b))
	for i, v := range b {
		s[i] = fmt.Sprintf("%02X", v)
	}
	return strings.Join(s, " ")
}
