// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"fmt"
	"strconv"
)

type exprOp byte

// Operators. Unary operators come first so the token scanner prefers them
// when no value precedes the symbol.
const (
	opNegate exprOp = iota
	opPlus
	opComplement
	opLowByte
	opHighByte
	opMultiply
	opDivide
	opModulo
	opAdd
	opSubtract
	opShiftLeft
	opShiftRight
	opAnd
	opXor
	opOr

	opNumber
	opIdentifier
	opLeftParen
)

type opdata struct {
	precedence      byte
	binary          bool
	leftAssociative bool
	symbol          string
	eval            func(a, b int) int
}

var ops = [...]opdata{
	opNegate:     {7, false, false, "-", func(a, _ int) int { return -a }},
	opPlus:       {7, false, false, "+", func(a, _ int) int { return a }},
	opComplement: {7, false, false, "~", func(a, _ int) int { return ^a }},
	opLowByte:    {7, false, false, "<", func(a, _ int) int { return a & 0xff }},
	opHighByte:   {7, false, false, ">", func(a, _ int) int { return (a >> 8) & 0xff }},
	opMultiply:   {6, true, true, "*", func(a, b int) int { return a * b }},
	opDivide:     {6, true, true, "/", func(a, b int) int { return a / b }},
	opModulo:     {6, true, true, "%", func(a, b int) int { return a % b }},
	opAdd:        {5, true, true, "+", func(a, b int) int { return a + b }},
	opSubtract:   {5, true, true, "-", func(a, b int) int { return a - b }},
	opShiftLeft:  {4, true, true, "<<", func(a, b int) int { return a << uint(b) }},
	opShiftRight: {4, true, true, ">>", func(a, b int) int { return a >> uint(b) }},
	opAnd:        {3, true, true, "&", func(a, b int) int { return a & b }},
	opXor:        {2, true, true, "^", func(a, b int) int { return a ^ b }},
	opOr:         {1, true, true, "|", func(a, b int) int { return a | b }},
	opNumber:     {},
	opIdentifier: {},
	opLeftParen:  {},
}

func (op exprOp) isBinary() bool {
	return ops[op].binary
}

func (op exprOp) symbol() string {
	return ops[op].symbol
}

// Report whether 'op' arriving on top of 'top' forces 'top' to be
// collapsed first (the shunting-yard precedence rule).
func (op exprOp) collapses(top exprOp) bool {
	if top == opLeftParen {
		return false
	}
	if ops[op].leftAssociative {
		return ops[op].precedence <= ops[top].precedence
	}
	return ops[op].precedence < ops[top].precedence
}

// An expr is a node of an expression tree.
type expr struct {
	op         exprOp
	value      int
	identifier span
	at         span   // source text of a root expression
	scope      string // global label in scope where the expression appeared
	evaluated  bool
	address    bool // depends on a label, so it needs a 16-bit operand
	child0     *expr
	child1     *expr
}

// Local identifiers are qualified by the global label they follow.
func (e *expr) name() string {
	if isLocal(e.identifier.str) {
		return "~" + e.scope + e.identifier.str
	}
	return e.identifier.str
}

func isLocal(label string) bool {
	return len(label) > 0 && (label[0] == '.' || label[0] == '@')
}

// Return the expression in postfix notation.
func (e *expr) String() string {
	switch {
	case e.op == opNumber:
		return fmt.Sprintf("%d", e.value)
	case e.op == opIdentifier:
		return e.identifier.str
	case e.op.isBinary():
		return fmt.Sprintf("%s %s %s", e.child0, e.child1, e.op.symbol())
	default:
		return fmt.Sprintf("%s [%s]", e.child0, e.op.symbol())
	}
}

// Evaluate as much of the tree as the known constants allow. Report whether
// the whole expression now has a value.
func (e *expr) eval(constants map[string]*expr, labels map[string]int) bool {
	if e.evaluated {
		return true
	}

	switch {
	case e.op == opNumber:
		e.evaluated = true

	case e.op == opIdentifier:
		name := e.name()
		if c, ok := constants[name]; ok && c.evaluated {
			e.value, e.evaluated = c.value, true
			e.address = e.address || c.address
		}
		if _, ok := labels[name]; ok {
			e.address = true
		}

	case e.op.isBinary():
		e.child0.eval(constants, labels)
		e.child1.eval(constants, labels)
		e.address = e.child0.address || e.child1.address
		if e.child0.evaluated && e.child1.evaluated {
			if (e.op == opDivide || e.op == opModulo) && e.child1.value == 0 {
				return false
			}
			e.value = ops[e.op].eval(e.child0.value, e.child1.value)
			e.evaluated = true
		}

	default:
		e.child0.eval(constants, labels)
		// The byte selectors yield an 8-bit value even from an address.
		e.address = e.child0.address && e.op != opLowByte && e.op != opHighByte
		if e.child0.evaluated {
			e.value = ops[e.op].eval(e.child0.value, 0)
			e.evaluated = true
		}
	}
	return e.evaluated
}

type tokenType byte

const (
	tokenNil tokenType = iota
	tokenOp
	tokenNumber
	tokenIdentifier
	tokenLeftParen
	tokenRightParen
)

func (tt tokenType) endsValue() bool {
	return tt == tokenNumber || tt == tokenIdentifier || tt == tokenRightParen
}

type token struct {
	tt         tokenType
	value      int
	identifier span
	op         exprOp
}

// An exprParser turns a span of source text into an expression tree using
// Dijkstra's shunting-yard algorithm.
type exprParser struct {
	operands    []*expr
	operators   []exprOp
	parens      int
	allowParens bool
	prev        token
	errors      []asmError
}

// Parse the whole of 'line' as an expression.
func (p *exprParser) parse(line span, scope string, allowParens bool) (*expr, error) {
	p.operands, p.operators, p.errors = nil, nil, nil
	p.parens, p.allowParens, p.prev = 0, allowParens, token{}

	start := line
	for !line.isEmpty() {
		t, rest, err := p.parseToken(line)
		if err != nil {
			return nil, err
		}

		switch t.tt {
		case tokenNumber:
			p.operands = append(p.operands, &expr{op: opNumber, value: t.value, evaluated: true})

		case tokenIdentifier:
			p.operands = append(p.operands, &expr{op: opIdentifier, identifier: t.identifier, scope: scope})

		case tokenOp:
			for len(p.operators) > 0 && t.op.collapses(p.topOperator()) {
				if err := p.collapse(line); err != nil {
					return nil, err
				}
			}
			p.operators = append(p.operators, t.op)

		case tokenLeftParen:
			p.operators = append(p.operators, opLeftParen)

		case tokenRightParen:
			for p.topOperator() != opLeftParen {
				if err := p.collapse(line); err != nil {
					return nil, err
				}
			}
			p.operators = p.operators[:len(p.operators)-1]
		}
		line = rest
	}

	if p.parens != 0 {
		p.addError(line, "mismatched parentheses")
		return nil, errParse
	}
	for len(p.operators) > 0 {
		if err := p.collapse(line); err != nil {
			return nil, err
		}
	}
	if len(p.operands) != 1 {
		p.addError(start, "invalid expression")
		return nil, errParse
	}
	e := p.operands[0]
	e.at = start
	return e, nil
}

func (p *exprParser) topOperator() exprOp {
	return p.operators[len(p.operators)-1]
}

// Pop the top operator and combine it with its operands.
func (p *exprParser) collapse(at span) error {
	op := p.topOperator()
	p.operators = p.operators[:len(p.operators)-1]

	n := 1
	if op.isBinary() {
		n = 2
	}
	if op == opLeftParen || len(p.operands) < n {
		p.addError(at, "invalid expression")
		return errParse
	}

	e := &expr{op: op}
	top := len(p.operands) - n
	if n == 2 {
		e.child0, e.child1 = p.operands[top], p.operands[top+1]
	} else {
		e.child0 = p.operands[top]
	}
	p.operands = append(p.operands[:top], e)
	return nil
}

// Parse the next token from the line and skip the whitespace after it.
func (p *exprParser) parseToken(line span) (t token, rest span, err error) {
	switch {
	case line.startsWith(decimal) || line.startsWithChar('$'):
		t.tt = tokenNumber
		t.value, rest, err = p.parseNumber(line)

	case line.startsWithChar('\''):
		if len(line.str) < 3 || line.str[2] != '\'' {
			p.addError(line, "invalid character literal")
			return t, line, errParse
		}
		t.tt, t.value, rest = tokenNumber, int(line.str[1]), line.consume(3)

	case p.allowParens && line.startsWithChar('('):
		p.parens++
		t.tt, rest = tokenLeftParen, line.consume(1)

	case p.allowParens && line.startsWithChar(')'):
		if p.parens == 0 {
			p.addError(line, "mismatched parentheses")
			return t, line, errParse
		}
		p.parens--
		t.tt, rest = tokenRightParen, line.consume(1)

	case line.startsWith(labelStartChar):
		t.tt = tokenIdentifier
		t.identifier, rest = line.takeWhile(labelChar)

	default:
		for i := range ops {
			o := &ops[i]
			if o.symbol == "" || !line.startsWithString(o.symbol) {
				continue
			}
			if o.binary == p.prev.tt.endsValue() {
				t.tt, t.op, rest = tokenOp, exprOp(i), line.consume(len(o.symbol))
				break
			}
		}
		if t.tt != tokenOp {
			p.addError(line, "invalid expression")
			return t, line, errParse
		}
	}
	if err != nil {
		return t, line, err
	}

	// Two values in a row, or a value right after ')', is an error.
	startsValue := t.tt == tokenNumber || t.tt == tokenIdentifier || t.tt == tokenLeftParen
	if startsValue && p.prev.tt.endsValue() {
		p.addError(line, "invalid expression")
		return t, line, errParse
	}

	p.prev = t
	return t, rest.skipSpace(), nil
}

// Parse a number in one of these forms:
//
//	[0-9]+          decimal
//	$[0-9a-fA-F]+   hexadecimal
//	0x[0-9a-fA-F]+  hexadecimal
//	0b[01]+         binary
func (p *exprParser) parseNumber(line span) (int, span, error) {
	base, fn := 10, decimal
	switch {
	case line.startsWithChar('$'):
		line, base, fn = line.consume(1), 16, hexadecimal
	case line.startsWithString("0x"):
		line, base, fn = line.consume(2), 16, hexadecimal
	case line.startsWithString("0b"):
		line, base, fn = line.consume(2), 2, binary
	}

	num, rest := line.takeWhile(fn)
	v, err := strconv.ParseInt(num.str, base, 32)
	if err != nil {
		p.addError(num, "invalid number")
		return 0, rest, errParse
	}
	return int(v), rest, nil
}

func (p *exprParser) addError(at span, msg string) {
	p.errors = append(p.errors, asmError{at, msg})
}
