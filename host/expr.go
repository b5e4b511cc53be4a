// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/tickwise/go6502/asm"
	"github.com/tickwise/go6502/cpu"
)

var errExprParse = errors.New("expression syntax error")

var (
	// A token is a run of word characters, optionally introduced by '$'.
	wordRegexp  = regexp.MustCompile(`\$?[0-9A-Za-z_]+`)
	charRegexp  = regexp.MustCompile(`'(\\?.)'`)
	divRegexp   = regexp.MustCompile(`/+`)
	hexRegexp   = regexp.MustCompile(`^[0-9A-Fa-f]+$`)
	identRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

var keywords = map[string]bool{
	"and": true, "break": true, "continue": true, "def": true, "elif": true,
	"else": true, "for": true, "if": true, "in": true, "lambda": true,
	"load": true, "not": true, "or": true, "pass": true, "return": true,
	"while": true, "True": true, "False": true, "None": true,
}

// An exprEvaluator evaluates numeric expressions typed at the host prompt.
// Numbers may be written as $FF, 0xFF, 0b1010, 0d99 or 'c'. In hex mode
// every bare number is hexadecimal. The CPU registers are predeclared as
// a, x, y, sp, pc and ps, along with any symbols added by an assembly.
type exprEvaluator struct {
	hexMode bool
	symbols map[string]int
}

func newExprEvaluator() *exprEvaluator {
	return &exprEvaluator{}
}

// Eval evaluates the expression and returns its integer result.
func (e *exprEvaluator) Eval(expr string, reg *cpu.Registers) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, errExprParse
	}

	pred := starlark.StringDict{}
	for name, v := range e.symbols {
		pred[name] = starlark.MakeInt(v)
	}
	for _, r := range []struct {
		name string
		v    int
	}{
		{"a", int(reg.A)},
		{"x", int(reg.X)},
		{"y", int(reg.Y)},
		{"sp", int(reg.SP)},
		{"pc", int(reg.PC)},
		{"ps", int(reg.SavePS(false))},
	} {
		pred[r.name] = starlark.MakeInt(r.v)
		pred[strings.ToUpper(r.name)] = starlark.MakeInt(r.v)
	}

	prog := "rc=" + e.rewrite(expr) + "\n"
	thread := starlark.Thread{Name: "expr"}
	opts := syntax.FileOptions{}
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return 0, fmt.Errorf("%s", evalErr.Msg)
		}
		return 0, errExprParse
	}

	switch rc := dict["rc"].(type) {
	case starlark.Int:
		v, ok := rc.Int64()
		if !ok {
			return 0, errors.New("expression overflow")
		}
		return v, nil
	case starlark.Bool:
		if rc {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, errExprParse
	}
}

// Rewrite the assembler-style number syntax into starlark syntax.
func (e *exprEvaluator) rewrite(expr string) string {
	expr = charRegexp.ReplaceAllStringFunc(expr, func(s string) string {
		c := s[1 : len(s)-1]
		if c[0] == '\\' {
			c = c[1:]
		}
		return fmt.Sprintf("%d", c[0])
	})

	expr = divRegexp.ReplaceAllString(expr, "//")

	return wordRegexp.ReplaceAllStringFunc(expr, func(w string) string {
		lw := strings.ToLower(w)
		switch {
		case w[0] == '$':
			return "0x" + w[1:]
		case e.hasSymbol(w):
			return w
		case len(lw) > 2 && strings.HasPrefix(lw, "0d"):
			return strings.TrimLeft(w[2:], "0") + zeroIfEmpty(w[2:])
		case len(lw) > 2 && (strings.HasPrefix(lw, "0x") || strings.HasPrefix(lw, "0b")):
			return w
		case e.hexMode && hexRegexp.MatchString(w):
			return "0x" + w
		case w[0] >= '0' && w[0] <= '9':
			// starlark rejects decimal literals with leading zeros.
			if t := strings.TrimLeft(w, "0"); t != "" {
				return t
			}
			return "0"
		}
		return w
	})
}

// Replace the symbol table with the exported labels. Labels that cannot be
// written as identifiers are skipped. Returns the number of symbols kept.
func (e *exprEvaluator) setSymbols(exports []asm.Export) int {
	e.symbols = make(map[string]int, len(exports))
	for _, x := range exports {
		if identRegexp.MatchString(x.Label) && !keywords[x.Label] {
			e.symbols[x.Label] = int(x.Address)
		}
	}
	return len(e.symbols)
}

func (e *exprEvaluator) hasSymbol(name string) bool {
	_, ok := e.symbols[name]
	return ok
}

func zeroIfEmpty(s string) string {
	if strings.TrimLeft(s, "0") == "" {
		return "0"
	}
	return ""
}
