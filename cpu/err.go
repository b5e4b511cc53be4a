// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fault raised while executing instructions.
type ErrorKind byte

const (
	// UnknownOpcode is a diagnostic, not a fatal error: the opcode byte
	// has no entry in the instruction set. Execution continues with the
	// next byte.
	UnknownOpcode ErrorKind = iota + 1

	// MalformedInstruction means an opcode decoded to a descriptor that
	// has no instruction body. It is never executed.
	MalformedInstruction
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownOpcode:
		return "unknown opcode"
	case MalformedInstruction:
		return "malformed instruction"
	}
	return "unknown error kind"
}

// Errors
var (
	ErrUnknownOpcode        = errors.New("unknown opcode")
	ErrMalformedInstruction = errors.New("malformed instruction")
)

// ExecError describes a fault raised by Execute. It wraps ErrUnknownOpcode
// or ErrMalformedInstruction depending on its Kind.
type ExecError struct {
	Kind   ErrorKind
	Opcode byte   // offending opcode byte
	Addr   uint16 // address the opcode was fetched from
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%v $%02X at $%04X", e.Kind, e.Opcode, e.Addr)
}

func (e *ExecError) Unwrap() error {
	switch e.Kind {
	case UnknownOpcode:
		return ErrUnknownOpcode
	case MalformedInstruction:
		return ErrMalformedInstruction
	}
	return nil
}
